package linear

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tsawler/go-funcinfo/interp"
)

// modelDocument is the on-disk JSON layout for a saved model.
type modelDocument struct {
	InputShape []int          `json:"input_shape"`
	Weights    []weightTensor `json:"weights"`
}

type weightTensor struct {
	Name  string    `json:"name"`
	Shape []int     `json:"shape"`
	Data  []float32 `json:"data"`
	Type  string    `json:"type"` // "weight" or "bias"
}

// LoadJSON reads a saved model and binds it to the given gradient kind.
// The kind is an attribution choice, not a model property, so it is not
// part of the document.
func LoadJSON(path string, kind interp.GradientKind) (*Model, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open model file: %w", err)
	}
	defer file.Close()

	var doc modelDocument
	if err := json.NewDecoder(file).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode model file: %v", err)
	}
	return fromDocument(&doc, kind)
}

// SaveJSON writes the model weights as an indented JSON document.
func (m *Model) SaveJSON(path string) error {
	classes := m.Classes()
	_, features := m.weights.Dims()

	weight := weightTensor{
		Name:  "linear.weight",
		Shape: []int{classes, features},
		Data:  make([]float32, classes*features),
		Type:  "weight",
	}
	bias := weightTensor{
		Name:  "linear.bias",
		Shape: []int{classes},
		Data:  make([]float32, classes),
		Type:  "bias",
	}
	for c := 0; c < classes; c++ {
		row := m.weights.RawRowView(c)
		for j, v := range row {
			weight.Data[c*features+j] = float32(v)
		}
		bias.Data[c] = float32(m.bias[c])
	}
	doc := modelDocument{
		InputShape: m.InputShape(),
		Weights:    []weightTensor{weight, bias},
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create model file: %v", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(&doc); err != nil {
		return fmt.Errorf("failed to encode model file: %v", err)
	}
	return nil
}

func fromDocument(doc *modelDocument, kind interp.GradientKind) (*Model, error) {
	var weight, bias *weightTensor
	for i := range doc.Weights {
		t := &doc.Weights[i]
		switch t.Type {
		case "weight":
			weight = t
		case "bias":
			bias = t
		}
	}
	if weight == nil {
		return nil, fmt.Errorf("model document has no weight tensor")
	}
	if len(weight.Shape) != 2 {
		return nil, fmt.Errorf("weight tensor %q has shape %v, want (classes, features)", weight.Name, weight.Shape)
	}
	classes, features := weight.Shape[0], weight.Shape[1]
	if len(weight.Data) != classes*features {
		return nil, fmt.Errorf("weight tensor %q has %d values for shape %v", weight.Name, len(weight.Data), weight.Shape)
	}
	rows := make([][]float32, classes)
	for c := 0; c < classes; c++ {
		rows[c] = weight.Data[c*features : (c+1)*features]
	}
	var biasData []float32
	if bias != nil {
		if len(bias.Data) != classes {
			return nil, fmt.Errorf("bias tensor %q has %d values for %d classes", bias.Name, len(bias.Data), classes)
		}
		biasData = bias.Data
	}
	model, err := New(rows, biasData, doc.InputShape, kind)
	if err != nil {
		return nil, fmt.Errorf("model document invalid: %v", err)
	}
	return model, nil
}
