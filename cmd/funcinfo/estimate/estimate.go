package estimate

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tsawler/go-funcinfo/corrmat"
	"github.com/tsawler/go-funcinfo/vision/dataset"
)

var (
	datasetDir string
	outPath    string
	format     string
	resizeTo   int
	cropTo     int
	classes    []int
	epsilon    float64
	minSamples int
	workers    int
	force      bool
)

var Cmd = &cobra.Command{
	Use:   "estimate",
	Short: "Estimate per-class feature correlation matrices from a reference dataset",
	Long: `Estimate scans a directory with one subdirectory of images per class,
preprocesses every image, and computes one Pearson correlation matrix over
the spatial feature grid per class. The matrices are written to a store
that the explain command reuses.

Classes with fewer than --min-samples samples are skipped.`,
	RunE: runEstimate,
}

func init() {
	defaults := corrmat.DefaultEstimatorConfig()
	Cmd.Flags().StringVar(&datasetDir, "dataset", "", "directory with one subdirectory of images per class (required)")
	Cmd.Flags().StringVar(&outPath, "out", "matrices.json", "output path for the correlation store")
	Cmd.Flags().StringVar(&format, "format", "json", "store format: json or binary")
	Cmd.Flags().IntVar(&resizeTo, "resize", 0, "resize the shorter image edge to this size (0 keeps the size)")
	Cmd.Flags().IntVar(&cropTo, "crop", 0, "center-crop images to this square size (0 skips the crop)")
	Cmd.Flags().IntSliceVar(&classes, "classes", nil, "restrict estimation to these class indices")
	Cmd.Flags().Float64Var(&epsilon, "epsilon", defaults.Epsilon, "positive-definiteness repair constant added to the diagonal")
	Cmd.Flags().IntVar(&minSamples, "min-samples", defaults.MinSamples, "smallest class size that still gets a matrix")
	Cmd.Flags().IntVar(&workers, "workers", 4, "concurrent image preprocessing workers")
	Cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing store")
	Cmd.MarkFlagRequired("dataset")
}

func runEstimate(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(outPath); err == nil && !force {
		return fmt.Errorf("store %s already exists, pass --force to overwrite", outPath)
	}
	storeFormat, err := corrmat.ParseStoreFormat(format)
	if err != nil {
		return err
	}

	folder, err := dataset.NewImageFolderDataset(datasetDir, nil)
	if err != nil {
		return fmt.Errorf("failed to load reference dataset: %w", err)
	}
	slog.Info("loaded reference dataset", "samples", folder.Len(), "classes", folder.NumClasses())

	data, labels, err := folder.Tensors(resizeTo, cropTo, workers)
	if err != nil {
		return fmt.Errorf("failed to materialize reference dataset: %w", err)
	}

	config := corrmat.DefaultEstimatorConfig()
	config.Epsilon = epsilon
	config.Classes = classes
	config.MinSamples = minSamples
	estimator, err := corrmat.NewEstimator(config, slog.Default())
	if err != nil {
		return err
	}
	matrices, err := estimator.Estimate(data, labels)
	if err != nil {
		return fmt.Errorf("estimation failed: %w", err)
	}

	if err := corrmat.NewStore(storeFormat).Save(matrices, outPath); err != nil {
		return fmt.Errorf("failed to save correlation store: %w", err)
	}

	fmt.Printf("Saved %d class matrices of order %d to %s (%s)\n",
		matrices.Len(), matrices.Side(), outPath, storeFormat)
	for _, class := range matrices.Classes() {
		fmt.Printf("  class %d: %s\n", class, folder.ClassNames()[class])
	}
	return nil
}
