package dataset

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// buildImageTree writes a root/<class>/<file> fixture tree. Entries are
// "class/name.ext"; .png files get real image bytes so they survive decoding.
func buildImageTree(t *testing.T, entries []string) string {
	t.Helper()
	root := t.TempDir()
	for _, entry := range entries {
		path := filepath.Join(root, filepath.FromSlash(entry))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir fixture: %v", err)
		}
		if filepath.Ext(path) == ".png" {
			writeSolidPNG(t, path, color.RGBA{R: 200, A: 255})
			continue
		}
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write fixture: %v", err)
		}
	}
	return root
}

func writeSolidPNG(t *testing.T, path string, c color.RGBA) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("create fixture: %v", err)
	}
	defer file.Close()
	if err := png.Encode(file, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
}

func TestNewImageFolderDataset(t *testing.T) {
	root := buildImageTree(t, []string{
		"cat/a.png",
		"cat/b.jpg",
		"cat/notes.txt", // filtered by extension
		"dog/c.png",
		"stray.png", // not inside a class directory
	})

	ds, err := NewImageFolderDataset(root, nil)
	if err != nil {
		t.Fatalf("NewImageFolderDataset: %v", err)
	}
	if ds.Len() != 3 {
		t.Errorf("Len() = %d, want 3", ds.Len())
	}
	if ds.NumClasses() != 2 {
		t.Errorf("NumClasses() = %d, want 2", ds.NumClasses())
	}
	if got := ds.ClassNames(); !reflect.DeepEqual(got, []string{"cat", "dog"}) {
		t.Errorf("ClassNames() = %v, want [cat dog]", got)
	}
	if got := ds.Labels(); !reflect.DeepEqual(got, []int{0, 0, 1}) {
		t.Errorf("Labels() = %v, want [0 0 1]", got)
	}

	dist := ds.ClassDistribution()
	if dist["cat"] != 2 || dist["dog"] != 1 {
		t.Errorf("ClassDistribution() = %v, want cat:2 dog:1", dist)
	}
}

func TestGetItem(t *testing.T) {
	root := buildImageTree(t, []string{"cat/a.png", "dog/b.png"})
	ds, err := NewImageFolderDataset(root, nil)
	if err != nil {
		t.Fatalf("NewImageFolderDataset: %v", err)
	}

	path, label, err := ds.GetItem(1)
	if err != nil {
		t.Fatalf("GetItem(1): %v", err)
	}
	if label != 1 || !strings.HasSuffix(path, filepath.Join("dog", "b.png")) {
		t.Errorf("GetItem(1) = (%q, %d)", path, label)
	}

	if _, _, err := ds.GetItem(2); err == nil {
		t.Error("expected out-of-range error")
	}
	if _, _, err := ds.GetItem(-1); err == nil {
		t.Error("expected out-of-range error for negative index")
	}
}

func TestFilterByClass(t *testing.T) {
	root := buildImageTree(t, []string{"cat/a.png", "cat/b.png", "dog/c.png"})
	ds, err := NewImageFolderDataset(root, nil)
	if err != nil {
		t.Fatalf("NewImageFolderDataset: %v", err)
	}

	dogs := ds.FilterByClass([]string{"dog", "hamster"})
	if dogs.Len() != 1 {
		t.Fatalf("filtered Len() = %d, want 1", dogs.Len())
	}
	// Class indices survive filtering so labels still line up with names.
	if got := dogs.Labels(); !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("filtered Labels() = %v, want [1]", got)
	}
	if dogs.NumClasses() != 2 {
		t.Errorf("filtered NumClasses() = %d, want 2", dogs.NumClasses())
	}
}

func TestSubset(t *testing.T) {
	root := buildImageTree(t, []string{"cat/a.png", "cat/b.png", "dog/c.png"})
	ds, err := NewImageFolderDataset(root, nil)
	if err != nil {
		t.Fatalf("NewImageFolderDataset: %v", err)
	}

	sub := ds.Subset([]int{2, 0})
	if sub.Len() != 2 {
		t.Fatalf("subset Len() = %d, want 2", sub.Len())
	}
	if got := sub.Labels(); !reflect.DeepEqual(got, []int{1, 0}) {
		t.Errorf("subset Labels() = %v, want [1 0]", got)
	}
}

func TestNewImageFolderDatasetEmpty(t *testing.T) {
	root := buildImageTree(t, []string{"cat/notes.txt"})
	if _, err := NewImageFolderDataset(root, nil); err == nil {
		t.Error("expected error for class tree without images")
	}
	if _, err := NewImageFolderDataset(filepath.Join(root, "absent"), nil); err == nil {
		t.Error("expected error for missing root")
	}
}

func TestTensors(t *testing.T) {
	root := buildImageTree(t, []string{"cat/a.png", "dog/b.png", "dog/c.png"})
	ds, err := NewImageFolderDataset(root, nil)
	if err != nil {
		t.Fatalf("NewImageFolderDataset: %v", err)
	}

	data, labels, err := ds.Tensors(0, 2, 2)
	if err != nil {
		t.Fatalf("Tensors: %v", err)
	}
	if want := []int{3, 3, 2, 2}; !reflect.DeepEqual(data.Shape, want) {
		t.Errorf("tensor shape %v, want %v", data.Shape, want)
	}
	if !reflect.DeepEqual(labels, []int{0, 1, 1}) {
		t.Errorf("labels %v, want [0 1 1]", labels)
	}
}

func TestString(t *testing.T) {
	root := buildImageTree(t, []string{"cat/a.png", "dog/b.png"})
	ds, err := NewImageFolderDataset(root, nil)
	if err != nil {
		t.Fatalf("NewImageFolderDataset: %v", err)
	}
	s := ds.String()
	for _, want := range []string{"2 samples", "2 classes", "cat", "dog"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q, missing %q", s, want)
		}
	}
}
