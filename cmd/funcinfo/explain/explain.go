package explain

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tsawler/go-funcinfo/corrmat"
	"github.com/tsawler/go-funcinfo/interp"
	"github.com/tsawler/go-funcinfo/linear"
	"github.com/tsawler/go-funcinfo/vision/preprocessing"
	"github.com/tsawler/go-funcinfo/visualize"
)

var (
	imagePath    string
	matricesPath string
	modelPath    string
	format       string
	label        int
	gradientOf   string
	noiseAmount  float64
	samples      int
	split        int
	workers      int
	seed         uint64
	alpha        float64
	savePath     string
	plotJSONPath string
)

var Cmd = &cobra.Command{
	Use:   "explain",
	Short: "Explain one image prediction with correlated-noise attribution",
	Long: `Explain perturbs an image with noise drawn from the correlation matrix of
its class, averages the model's input gradients over the perturbed copies,
and renders the averaged gradients as an attribution overlay.

The correlation store must be estimated beforehand with the estimate
command. By default the explained class is the model's own prediction;
pass --label to explain a specific class instead.`,
	RunE: runExplain,
}

func init() {
	Cmd.Flags().StringVar(&imagePath, "image", "", "image to explain (required)")
	Cmd.Flags().StringVar(&matricesPath, "matrices", "matrices.json", "correlation store produced by estimate")
	Cmd.Flags().StringVar(&modelPath, "model", "", "linear model weights JSON (required)")
	Cmd.Flags().StringVar(&format, "format", "json", "correlation store format: json or binary")
	Cmd.Flags().IntVar(&label, "label", interp.AutoLabel, "class to explain (-1 explains the predicted class)")
	Cmd.Flags().StringVar(&gradientOf, "gradient-of", "probability", "target scalar: probability, logit or loss")
	Cmd.Flags().Float64Var(&noiseAmount, "noise", interp.DefaultConfig().NoiseAmount, "covariance scale of the correlated noise")
	Cmd.Flags().IntVar(&samples, "samples", interp.DefaultConfig().NSamples, "number of perturbed copies to average over")
	Cmd.Flags().IntVar(&split, "split", interp.DefaultConfig().Split, "number of gradient chunks")
	Cmd.Flags().IntVar(&workers, "workers", interp.DefaultConfig().Workers, "concurrent gradient chunk workers")
	Cmd.Flags().Uint64Var(&seed, "seed", 0, "noise seed (0 picks a random one)")
	Cmd.Flags().Float64Var(&alpha, "alpha", 0.5, "overlay blend weight: 0 image only, 1 attribution only")
	Cmd.Flags().StringVar(&savePath, "save", "", "write the attribution overlay PNG here")
	Cmd.Flags().StringVar(&plotJSONPath, "plot-json", "", "write heatmap plot data JSON here")
	Cmd.MarkFlagRequired("image")
	Cmd.MarkFlagRequired("model")
}

func runExplain(cmd *cobra.Command, args []string) error {
	storeFormat, err := corrmat.ParseStoreFormat(format)
	if err != nil {
		return err
	}
	matrices, err := corrmat.NewStore(storeFormat).Load(matricesPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("correlation store %s not found, run 'funcinfo estimate' first", matricesPath)
		}
		return err
	}

	kind, err := interp.ParseGradientKind(gradientOf)
	if err != nil {
		return err
	}
	model, err := linear.LoadJSON(modelPath, kind)
	if err != nil {
		return err
	}

	pair, err := loadInput(model)
	if err != nil {
		return err
	}

	config := interp.DefaultConfig()
	config.NoiseAmount = noiseAmount
	config.NSamples = samples
	config.Split = split
	config.Workers = workers
	config.Seed = seed
	interpreter, err := interp.New(model, matrices, config, nil)
	if err != nil {
		return err
	}

	result, err := interpreter.Interpret(pair.Input, label)
	if err != nil {
		return err
	}

	fmt.Printf("Explained %s\n", imagePath)
	fmt.Printf("  explained class:  %d\n", result.ResolvedLabel)
	fmt.Printf("  predicted class:  %d (probability %.4f)\n", result.PredictedLabel, result.PredictedProba)
	fmt.Printf("  explanation:      %v\n", result.Explanation)

	saliency, err := result.Explanation.AbsSumChannels()
	if err != nil {
		return err
	}

	if savePath != "" {
		overlay, err := visualize.Overlay(pair.Display, saliency, alpha)
		if err != nil {
			return err
		}
		if err := visualize.SavePNG(savePath, overlay); err != nil {
			return err
		}
		fmt.Printf("  overlay saved to: %s\n", savePath)
	}

	if plotJSONPath != "" {
		title := fmt.Sprintf("Attribution for %s (class %d)", filepath.Base(imagePath), result.ResolvedLabel)
		plot, err := visualize.HeatmapPlot(saliency, title, filepath.Base(modelPath))
		if err != nil {
			return err
		}
		raw, err := plot.ToJSON()
		if err != nil {
			return err
		}
		if err := os.WriteFile(plotJSONPath, []byte(raw), 0o644); err != nil {
			return fmt.Errorf("failed to write plot data: %w", err)
		}
		fmt.Printf("  plot data saved to: %s\n", plotJSONPath)
	}
	return nil
}

// loadInput decodes the image and shapes it for the model: square model
// grids get the resize-and-center-crop treatment, anything else must
// already match the model's input size.
func loadInput(model *linear.Model) (*preprocessing.Pair, error) {
	img, err := preprocessing.LoadImage(imagePath)
	if err != nil {
		return nil, err
	}
	shape := model.InputShape() // (C, H, W)
	resizeTo, cropTo := 0, 0
	if shape[1] == shape[2] {
		resizeTo, cropTo = shape[1], shape[1]
	}
	return preprocessing.Transform(img, resizeTo, cropTo)
}
