package inspect

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/tsawler/go-funcinfo/corrmat"
)

var (
	matricesPath string
	format       string
)

var Cmd = &cobra.Command{
	Use:   "inspect",
	Short: "Inspect a correlation store",
	Long: `Inspect loads a correlation store, lists the classes it covers, and
checks every matrix for positive definiteness the way the attribution
engine will use it.`,
	RunE: runInspect,
}

func init() {
	Cmd.Flags().StringVar(&matricesPath, "matrices", "matrices.json", "correlation store to inspect")
	Cmd.Flags().StringVar(&format, "format", "json", "store format: json or binary")
}

func runInspect(cmd *cobra.Command, args []string) error {
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

	fmt.Printf("Correlation store %s (%s)\n", matricesPath, storeFormat)
	fmt.Printf("  matrix order: %d\n", matrices.Side())
	fmt.Printf("  classes:      %d\n", matrices.Len())

	bad := 0
	for _, class := range matrices.Classes() {
		corr, err := matrices.For(class)
		if err != nil {
			return err
		}
		var chol mat.Cholesky
		if chol.Factorize(corr) {
			fmt.Printf("  class %d: positive definite\n", class)
			continue
		}
		bad++
		fmt.Printf("  class %d: NOT positive definite\n", class)
	}
	if bad > 0 {
		return fmt.Errorf("%d of %d matrices are not positive definite", bad, matrices.Len())
	}
	return nil
}
