package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joshuapare/qimem/internal/bitidx"
	"github.com/joshuapare/qimem/mem/arena"
	"github.com/joshuapare/qimem/mem/region"
)

var (
	arenaSize      string
	arenaTransient bool
)

func init() {
	cmd := newArenaCmd()
	cmd.Flags().StringVar(&arenaSize, "size", "4KiB", "Arena size (e.g. 4096, 64KiB)")
	cmd.Flags().BoolVar(&arenaTransient, "transient", false, "Carve the arena from transient storage")
	rootCmd.AddCommand(cmd)
}

func newArenaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "arena [size|reset...]",
		Short: "Bump-allocate from a linear arena",
		Long: `The arena command carves a linear arena from a reserved memory region
and runs a list of allocations against it. The word "reset" discards all
allocations. Overflowing the arena is reported as an error.

Example:
  qictl arena 5 100 1KiB
  qictl arena --size 256 200 reset 200 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArena(args)
		},
	}
	return cmd
}

// ArenaAlloc is one allocation in an arena run.
type ArenaAlloc struct {
	Request int  `json:"request"`
	Offset  int  `json:"offset"`
	Used    int  `json:"used"`
	Reset   bool `json:"reset,omitempty"`
}

// ArenaReport is the JSON form of an arena run.
type ArenaReport struct {
	Region string       `json:"region"`
	Size   int          `json:"size"`
	Allocs []ArenaAlloc `json:"allocs"`
	Used   int          `json:"used"`
}

func runArena(args []string) error {
	size, err := parseSize(arenaSize)
	if err != nil {
		return err
	}

	cfg, err := region.ConfigFromEnv()
	if err != nil {
		return err
	}
	if arenaTransient {
		cfg.TransientSize = max(cfg.TransientSize, size)
	} else {
		cfg.PermanentSize = max(cfg.PermanentSize, size)
	}
	m, err := region.New(cfg)
	if err != nil {
		return err
	}
	defer m.Close()

	r := m.Region(arenaTransient)
	ar, err := arena.NewFromRegion(r, size)
	if err != nil {
		return err
	}
	printVerbose("Arena of %s carved from %s region\n", humanize.IBytes(uint64(size)), r.Name())

	report := ArenaReport{Region: r.Name(), Size: ar.Size()}
	for _, arg := range args {
		if arg == "reset" {
			ar.Reset()
			report.Allocs = append(report.Allocs, ArenaAlloc{Reset: true})
			if !jsonOut {
				printInfo("reset\n")
			}
			continue
		}
		n, err := parseSize(arg)
		if err != nil {
			return err
		}
		if step := bitidx.AlignUp(n, arena.Alignment); step > ar.Remaining() {
			return fmt.Errorf("arena overflow: %d bytes requested, %d remaining", n, ar.Remaining())
		}
		off := ar.Used()
		ar.Alloc(n)
		report.Allocs = append(report.Allocs, ArenaAlloc{Request: n, Offset: off, Used: ar.Used()})
		if !jsonOut {
			printInfo("alloc %-8d offset=%-8d used=%d\n", n, off, ar.Used())
		}
	}
	report.Used = ar.Used()

	if jsonOut {
		return printJSON(report)
	}
	printInfo("Used: %s of %s\n", humanize.IBytes(uint64(ar.Used())), humanize.IBytes(uint64(ar.Size())))
	return nil
}
