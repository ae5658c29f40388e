package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/loadshift/config"
	"github.com/kilianp07/loadshift/core/allocation"
)

var surplus float64

var allocateCmd = &cobra.Command{
	Use:   "allocate",
	Short: "Print the allocation computed for a surplus reading",
	Long: "Runs the allocator once against the configured devices without " +
		"touching them. Negative values mean power is exported.",
	RunE: runAllocate,
}

func init() {
	allocateCmd.Flags().Float64VarP(&surplus, "surplus", "s", 0, "surplus in watts, negative when exporting")
	rootCmd.AddCommand(allocateCmd)
}

func runAllocate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	catalog, err := cfg.Catalog()
	if err != nil {
		return err
	}
	alloc := allocation.NewAllocator(cfg.Control.PowerHeadroomWatts).Compute(surplus, catalog)
	out := cmd.OutOrStdout()
	for _, as := range alloc.Assignments {
		if _, err := fmt.Fprintf(out, "%-20s %s\n", as.Device, as.Direction); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(out, "expected draw: %dW\n", alloc.ExpectedPowerDraw)
	return err
}
