package visualize

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tsawler/go-funcinfo/tensor"
)

// PlotType identifies the kind of plot a PlotData document describes.
type PlotType string

const (
	// SaliencyHeatmap is a per-pixel attribution strength grid.
	SaliencyHeatmap PlotType = "saliency_heatmap"
)

// PlotData is the universal JSON format for the sidecar plotting service.
type PlotData struct {
	PlotType  PlotType  `json:"plot_type"`
	Title     string    `json:"title"`
	Timestamp time.Time `json:"timestamp"`
	ModelName string    `json:"model_name"`

	Series []SeriesData `json:"series"`

	Config PlotConfig `json:"config"`

	Metrics map[string]interface{} `json:"metrics,omitempty"`
}

// SeriesData represents a single data series in a plot.
type SeriesData struct {
	Name  string                 `json:"name"`
	Type  string                 `json:"type"` // "line", "scatter", "heatmap"
	Data  []DataPoint            `json:"data"`
	Style map[string]interface{} `json:"style,omitempty"`
}

// DataPoint represents a single data point.
type DataPoint struct {
	X     interface{} `json:"x"`
	Y     interface{} `json:"y"`
	Z     interface{} `json:"z,omitempty"`
	Label string      `json:"label,omitempty"`
	Color string      `json:"color,omitempty"`
}

// PlotConfig contains plot-specific configuration.
type PlotConfig struct {
	XAxisLabel    string                 `json:"x_axis_label"`
	YAxisLabel    string                 `json:"y_axis_label"`
	XAxisScale    string                 `json:"x_axis_scale"`
	YAxisScale    string                 `json:"y_axis_scale"`
	ShowLegend    bool                   `json:"show_legend"`
	ShowGrid      bool                   `json:"show_grid"`
	Width         int                    `json:"width"`
	Height        int                    `json:"height"`
	Interactive   bool                   `json:"interactive"`
	CustomOptions map[string]interface{} `json:"custom_options,omitempty"`
}

// HeatmapPlot renders a (H, W) saliency map as heatmap plot data, one point
// per pixel with Z carrying the attribution strength.
func HeatmapPlot(saliency *tensor.Tensor, title, modelName string) (PlotData, error) {
	if saliency == nil || len(saliency.Shape) != 2 {
		got := []int(nil)
		if saliency != nil {
			got = saliency.Shape
		}
		return PlotData{}, &tensor.ShapeError{Op: "visualize: heatmap plot", Got: got, Want: "(H, W)"}
	}
	height, width := saliency.Shape[0], saliency.Shape[1]

	data := make([]DataPoint, 0, saliency.NumElems)
	var sum float64
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := saliency.Data[y*width+x]
			sum += float64(v)
			data = append(data, DataPoint{X: x, Y: y, Z: v})
		}
	}
	min, max := saliency.MinMax()

	series := []SeriesData{
		{
			Name: "Attribution",
			Type: "heatmap",
			Data: data,
			Style: map[string]interface{}{
				"colorscale": "Viridis",
			},
		},
	}

	return PlotData{
		PlotType:  SaliencyHeatmap,
		Title:     title,
		Timestamp: time.Now(),
		ModelName: modelName,
		Series:    series,
		Config: PlotConfig{
			XAxisLabel:  "Column",
			YAxisLabel:  "Row",
			XAxisScale:  "linear",
			YAxisScale:  "linear",
			ShowLegend:  false,
			ShowGrid:    false,
			Width:       600,
			Height:      600,
			Interactive: true,
			CustomOptions: map[string]interface{}{
				"grid_height": height,
				"grid_width":  width,
			},
		},
		Metrics: map[string]interface{}{
			"min":  min,
			"max":  max,
			"mean": sum / float64(saliency.NumElems),
		},
	}, nil
}

// ToJSON converts plot data to an indented JSON string.
func (pd PlotData) ToJSON() (string, error) {
	jsonData, err := json.MarshalIndent(pd, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal plot data to JSON: %w", err)
	}
	return string(jsonData), nil
}
