package main

import (
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joshuapare/qimem/mem/region"
)

var (
	regionPermanent string
	regionTransient string
)

func init() {
	cmd := newRegionCmd()
	cmd.Flags().StringVar(&regionPermanent, "permanent", "", "Permanent storage size (overrides "+region.EnvPermanentSize+")")
	cmd.Flags().StringVar(&regionTransient, "transient", "", "Transient storage size (overrides "+region.EnvTransientSize+")")
	rootCmd.AddCommand(cmd)
}

func newRegionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "region",
		Short: "Reserve the raw memory region and report its layout",
		Long: `The region command reserves permanent and transient storage the way
the application does at start-up and prints the resulting sizes.

Sizes default to the built-in configuration, then the QI_PERMANENT_SIZE and
QI_TRANSIENT_SIZE environment variables, then the flags.

Example:
  qictl region
  qictl region --permanent 64MiB --transient 16MiB --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegion()
		},
	}
	return cmd
}

// RegionReport is the JSON form of the region command.
type RegionReport struct {
	PermanentSize int `json:"permanent_size"`
	TransientSize int `json:"transient_size"`
	Total         int `json:"total"`
}

func runRegion() error {
	cfg, err := region.ConfigFromEnv()
	if err != nil {
		return err
	}
	if regionPermanent != "" {
		if cfg.PermanentSize, err = parseSize(regionPermanent); err != nil {
			return err
		}
	}
	if regionTransient != "" {
		if cfg.TransientSize, err = parseSize(regionTransient); err != nil {
			return err
		}
	}

	m, err := region.New(cfg)
	if err != nil {
		return err
	}
	defer m.Close()

	report := RegionReport{
		PermanentSize: m.Permanent.Capacity(),
		TransientSize: m.Transient.Capacity(),
		Total:         cfg.Total(),
	}
	if jsonOut {
		return printJSON(report)
	}

	printInfo("Permanent: %s (%s bytes)\n", humanize.IBytes(uint64(report.PermanentSize)), humanize.Comma(int64(report.PermanentSize)))
	printInfo("Transient: %s (%s bytes)\n", humanize.IBytes(uint64(report.TransientSize)), humanize.Comma(int64(report.TransientSize)))
	printInfo("Reserved:  %s\n", humanize.IBytes(uint64(report.Total)))
	return nil
}
