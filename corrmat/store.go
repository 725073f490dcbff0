package corrmat

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"
)

// StoreFormat selects the on-disk encoding of a correlation store.
type StoreFormat int

const (
	FormatJSON StoreFormat = iota
	FormatBinary
)

func (f StoreFormat) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// ParseStoreFormat maps a user-facing format name to its constant.
func ParseStoreFormat(s string) (StoreFormat, error) {
	switch s {
	case "json":
		return FormatJSON, nil
	case "binary":
		return FormatBinary, nil
	default:
		return 0, fmt.Errorf("corrmat: unknown store format %q", s)
	}
}

const storeVersion = 1

// storeDocument is the serialized shape of a ClassMatrices mapping, shared
// by both encodings.
type storeDocument struct {
	Version int          `json:"version"`
	Side    int          `json:"side"`
	Entries []storeEntry `json:"entries"`
}

type storeEntry struct {
	Label int       `json:"label"`
	Order int       `json:"order"`
	Data  []float64 `json:"data"` // row-major, Order×Order
}

// Store saves and loads a ClassMatrices mapping as a single file. Saves
// replace the whole mapping atomically: the document is written to a
// temporary file in the destination directory and renamed into place, so a
// reader never observes a partially written store.
type Store struct {
	format StoreFormat
}

func NewStore(format StoreFormat) *Store {
	return &Store{format: format}
}

func (s *Store) Format() StoreFormat { return s.format }

// Save writes the mapping to path in the store's format.
func (s *Store) Save(matrices *ClassMatrices, path string) error {
	doc, err := buildDocument(matrices)
	if err != nil {
		return fmt.Errorf("encode correlation store: %w", err)
	}

	var encoded []byte
	switch s.format {
	case FormatJSON:
		encoded, err = json.MarshalIndent(doc, "", "  ")
	case FormatBinary:
		encoded, err = encodeBinary(doc)
	default:
		return fmt.Errorf("corrmat: unsupported store format: %d", s.format)
	}
	if err != nil {
		return fmt.Errorf("encode correlation store: %w", err)
	}

	return writeAtomic(path, encoded)
}

// Load reads a mapping written by Save in the store's format. A missing
// file surfaces the underlying fs.ErrNotExist so callers can fall back to
// estimation; undecodable content wraps ErrCorruptStore.
func (s *Store) Load(path string) (*ClassMatrices, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open correlation store: %w", err)
	}

	var doc storeDocument
	switch s.format {
	case FormatJSON:
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptStore, err)
		}
	case FormatBinary:
		if err := decodeBinary(raw, &doc); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("corrmat: unsupported store format: %d", s.format)
	}

	return documentMatrices(&doc)
}

func buildDocument(matrices *ClassMatrices) (*storeDocument, error) {
	doc := &storeDocument{Version: storeVersion, Side: matrices.Side()}
	for _, label := range matrices.Classes() {
		corr, err := matrices.For(label)
		if err != nil {
			return nil, err
		}
		n := corr.SymmetricDim()
		data := make([]float64, 0, n*n)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				data = append(data, corr.At(i, j))
			}
		}
		doc.Entries = append(doc.Entries, storeEntry{Label: label, Order: n, Data: data})
	}
	return doc, nil
}

func documentMatrices(doc *storeDocument) (*ClassMatrices, error) {
	if doc.Version != storeVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptStore, doc.Version)
	}
	matrices, err := NewClassMatrices(doc.Side)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptStore, err)
	}
	for _, entry := range doc.Entries {
		if entry.Order != doc.Side {
			return nil, fmt.Errorf("%w: class %d has order %d, store side is %d",
				ErrCorruptStore, entry.Label, entry.Order, doc.Side)
		}
		if len(entry.Data) != entry.Order*entry.Order {
			return nil, fmt.Errorf("%w: class %d has %d values for order %d",
				ErrCorruptStore, entry.Label, len(entry.Data), entry.Order)
		}
		if err := matrices.Put(entry.Label, mat.NewSymDense(entry.Order, entry.Data)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptStore, err)
		}
	}
	return matrices, nil
}

func writeAtomic(path string, encoded []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("write correlation store: %w", err)
	}
	if _, err := tmp.Write(encoded); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write correlation store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write correlation store: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace correlation store: %w", err)
	}
	return nil
}
