package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tsawler/go-funcinfo/tensor"
	"github.com/tsawler/go-funcinfo/vision/preprocessing"
)

// ImageFolderDataset is a labeled reference set loaded from a directory
// structure where each subdirectory is one class. Class indices follow the
// lexical order of the directory names, so they are stable across runs.
type ImageFolderDataset struct {
	imagePaths []string
	labels     []int
	classNames []string
	classToIdx map[string]int
}

// NewImageFolderDataset scans root for class subdirectories and collects
// every image with one of the given extensions. A nil extensions slice
// defaults to the common image formats.
func NewImageFolderDataset(root string, extensions []string) (*ImageFolderDataset, error) {
	if len(extensions) == 0 {
		extensions = []string{".jpg", ".jpeg", ".png"}
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to list classes: %w", err)
	}

	dataset := &ImageFolderDataset{
		classToIdx: make(map[string]int),
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		className := entry.Name()
		classIdx := len(dataset.classNames)
		dataset.classNames = append(dataset.classNames, className)
		dataset.classToIdx[className] = classIdx

		files, err := os.ReadDir(filepath.Join(root, className))
		if err != nil {
			return nil, fmt.Errorf("failed to list class %s: %w", className, err)
		}
		for _, file := range files {
			if file.IsDir() || !hasExtension(file.Name(), extensions) {
				continue
			}
			dataset.imagePaths = append(dataset.imagePaths, filepath.Join(root, className, file.Name()))
			dataset.labels = append(dataset.labels, classIdx)
		}
	}

	if len(dataset.imagePaths) == 0 {
		return nil, fmt.Errorf("no images found in %s", root)
	}
	return dataset, nil
}

func hasExtension(name string, extensions []string) bool {
	ext := filepath.Ext(name)
	for _, want := range extensions {
		if strings.EqualFold(ext, want) {
			return true
		}
	}
	return false
}

// Len returns the number of samples.
func (d *ImageFolderDataset) Len() int {
	return len(d.imagePaths)
}

// GetItem returns the image path and class index at the given position.
func (d *ImageFolderDataset) GetItem(index int) (string, int, error) {
	if index < 0 || index >= len(d.imagePaths) {
		return "", 0, fmt.Errorf("index %d out of range [0, %d)", index, len(d.imagePaths))
	}
	return d.imagePaths[index], d.labels[index], nil
}

// NumClasses returns the number of classes found under the root.
func (d *ImageFolderDataset) NumClasses() int {
	return len(d.classNames)
}

// ClassNames returns the class names in index order.
func (d *ImageFolderDataset) ClassNames() []string {
	return d.classNames
}

// Labels returns a copy of the per-sample class indices.
func (d *ImageFolderDataset) Labels() []int {
	return append([]int(nil), d.labels...)
}

// ClassDistribution returns the sample count per class name.
func (d *ImageFolderDataset) ClassDistribution() map[string]int {
	dist := make(map[string]int)
	for _, label := range d.labels {
		dist[d.classNames[label]]++
	}
	return dist
}

// Subset creates a new dataset holding only the given sample indices.
func (d *ImageFolderDataset) Subset(indices []int) *ImageFolderDataset {
	subset := &ImageFolderDataset{
		imagePaths: make([]string, len(indices)),
		labels:     make([]int, len(indices)),
		classNames: d.classNames,
		classToIdx: d.classToIdx,
	}
	for i, idx := range indices {
		subset.imagePaths[i] = d.imagePaths[idx]
		subset.labels[i] = d.labels[idx]
	}
	return subset
}

// FilterByClass creates a new dataset containing only samples whose class
// name is listed. Unknown names are ignored. Class indices are preserved.
func (d *ImageFolderDataset) FilterByClass(classNames []string) *ImageFolderDataset {
	keep := make(map[int]bool)
	for _, className := range classNames {
		if idx, exists := d.classToIdx[className]; exists {
			keep[idx] = true
		}
	}

	filtered := &ImageFolderDataset{
		classNames: d.classNames,
		classToIdx: d.classToIdx,
	}
	for i, label := range d.labels {
		if keep[label] {
			filtered.imagePaths = append(filtered.imagePaths, d.imagePaths[i])
			filtered.labels = append(filtered.labels, label)
		}
	}
	return filtered
}

// Tensors materializes the whole dataset through the preprocessing pipeline
// into one (N, 3, H, W) tensor plus the parallel label slice, sample order
// preserved.
func (d *ImageFolderDataset) Tensors(resizeTo, cropTo, workers int) (*tensor.Tensor, []int, error) {
	batch, err := preprocessing.TransformBatch(d.imagePaths, resizeTo, cropTo, workers)
	if err != nil {
		return nil, nil, err
	}
	return batch, d.Labels(), nil
}

// String summarizes the dataset and its class distribution.
func (d *ImageFolderDataset) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("ImageFolderDataset: %d samples, %d classes\n", len(d.imagePaths), len(d.classNames)))
	sb.WriteString("Class distribution:\n")
	dist := d.ClassDistribution()
	for _, className := range d.classNames {
		sb.WriteString(fmt.Sprintf("  %s: %d samples\n", className, dist[className]))
	}
	return sb.String()
}
