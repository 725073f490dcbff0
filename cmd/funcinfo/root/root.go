package root

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tsawler/go-funcinfo/cmd/funcinfo/estimate"
	"github.com/tsawler/go-funcinfo/cmd/funcinfo/explain"
	"github.com/tsawler/go-funcinfo/cmd/funcinfo/inspect"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "funcinfo",
	Short: "Correlated-noise gradient attribution for image classifiers",
	Long: `Funcinfo explains image classifier predictions by drawing noise from a
class-conditional feature correlation matrix, perturbing the input with it,
and averaging the model's input gradients over the perturbed copies.

A typical session estimates the per-class correlation matrices from a
reference dataset once, then reuses the saved store to explain individual
images.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.funcinfo.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose (debug) logging")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(estimate.Cmd)
	rootCmd.AddCommand(explain.Cmd)
	rootCmd.AddCommand(inspect.Cmd)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting home directory: %v\n", err)
			os.Exit(1)
		}

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".funcinfo")
	}

	viper.SetEnvPrefix("FUNCINFO")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}

	level := slog.LevelInfo
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
