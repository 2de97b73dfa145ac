package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joshuapare/qimem/mem/buddy"
	"github.com/joshuapare/qimem/mem/region"
)

var (
	buddySize     string
	buddyMinBlock int
	buddyEmbed    bool
	buddyDump     bool
	buddyCheck    bool
	buddyRegion   bool
)

func init() {
	cmd := newBuddyCmd()
	cmd.Flags().StringVar(&buddySize, "size", "1KiB", "Managed buffer size (e.g. 1000, 64KiB)")
	cmd.Flags().IntVar(&buddyMinBlock, "min-block", 32, "Minimum block size in bytes")
	cmd.Flags().BoolVar(&buddyEmbed, "embed", false, "Store allocator metadata inside the managed buffer")
	cmd.Flags().BoolVar(&buddyDump, "dump", false, "Dump allocator state after the script")
	cmd.Flags().BoolVar(&buddyCheck, "check", false, "Verify allocator invariants after every operation")
	cmd.Flags().BoolVar(&buddyRegion, "region", false, "Carve the buffer from a reserved memory region")
	rootCmd.AddCommand(cmd)
}

func newBuddyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "buddy [op...]",
		Short: "Run an allocation script against a buddy allocator",
		Long: `The buddy command creates a buddy allocator and runs a script of
operations against it. Each operation is one argument:

  <size> | alloc:<size>   allocate; the result becomes the next slot
  calloc:<size>           allocate zeroed memory
  free:<slot>             free the block in a slot
  realloc:<slot>:<size>   resize the block in a slot

Sizes accept humanized units. A failed allocation is reported and the
script continues; the allocator writes its state dump to stderr.

Example:
  qictl buddy 200 200 200 200 200
  qictl buddy --size 1000 --min-block 16 100 free:0 512 --dump
  qictl buddy --embed --check 60 realloc:0:300 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuddy(args)
		},
	}
	return cmd
}

// BuddyOp is the outcome of one script operation.
type BuddyOp struct {
	Op      string `json:"op"`
	Slot    int    `json:"slot"`
	Ref     int    `json:"ref"`
	Block   int    `json:"block,omitempty"`
	Freed   bool   `json:"freed,omitempty"`
	Failed  bool   `json:"failed,omitempty"`
	Message string `json:"message,omitempty"`
}

// BuddyReport is the JSON form of a buddy run.
type BuddyReport struct {
	Size       int         `json:"size"`
	ActualSize int         `json:"actual_size"`
	MinBlock   int         `json:"min_block"`
	MaxLevel   int         `json:"max_level"`
	Overhead   int         `json:"overhead"`
	FreeSize   int         `json:"free_size"`
	Ops        []BuddyOp   `json:"ops"`
	Stats      buddy.Stats `json:"stats"`
}

func runBuddy(args []string) error {
	size, err := parseSize(buddySize)
	if err != nil {
		return err
	}

	opts := &buddy.Options{EmbedMetadata: buddyEmbed, Diagnostics: os.Stderr}
	if quiet || jsonOut {
		opts.Diagnostics = io.Discard
	}

	a, closeFn, err := newBuddy(size, opts)
	if err != nil {
		return err
	}
	defer closeFn()

	printVerbose("Buddy allocator: span %s, buffer %s, min block %d, %d levels, %d bytes metadata\n",
		humanize.IBytes(uint64(a.Size())), humanize.IBytes(uint64(a.ActualSize())),
		a.MinBlockSize(), a.MaxLevel()+1, a.Overhead())

	var slots []buddy.Ref
	report := BuddyReport{
		Size:       a.Size(),
		ActualSize: a.ActualSize(),
		MinBlock:   a.MinBlockSize(),
		MaxLevel:   a.MaxLevel(),
		Overhead:   a.Overhead(),
	}

	for _, arg := range args {
		op, err := runBuddyOp(a, &slots, arg)
		if err != nil {
			return fmt.Errorf("%s: %w", arg, err)
		}
		report.Ops = append(report.Ops, op)
		if !jsonOut {
			printBuddyOp(op)
		}
		if buddyCheck {
			if err := a.CheckInvariants(); err != nil {
				return fmt.Errorf("invariant violated after %s: %w", arg, err)
			}
		}
	}

	report.FreeSize = a.FreeSize()
	report.Stats = a.Stats()
	if jsonOut {
		return printJSON(report)
	}

	printInfo("Free: %s of %s\n", humanize.IBytes(uint64(a.FreeSize())), humanize.IBytes(uint64(a.Size())))
	st := a.Stats()
	printInfo("Stats: %d allocs, %d frees, %d failures, %d splits, %d merges\n",
		st.AllocCalls, st.FreeCalls, st.Failures, st.Splits, st.Merges)
	if buddyDump && !quiet {
		return a.Dump(os.Stdout)
	}
	return nil
}

// newBuddy builds the allocator over a heap buffer, or over a region
// reservation when --region is set.
func newBuddy(size int, opts *buddy.Options) (*buddy.Allocator, func(), error) {
	if !buddyRegion {
		a, err := buddy.New(make([]byte, size), buddyMinBlock, opts)
		return a, func() {}, err
	}

	cfg, err := region.ConfigFromEnv()
	if err != nil {
		return nil, nil, err
	}
	// Room for the buffer plus separate metadata.
	cfg.PermanentSize = max(cfg.PermanentSize, 2*size+4096)
	m, err := region.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	a, err := buddy.NewFromRegion(m, size, buddyMinBlock, false, opts)
	if err != nil {
		m.Close()
		return nil, nil, err
	}
	printVerbose("Carved from %s (%d bytes used)\n", cfg, m.Permanent.Used())
	return a, func() { m.Close() }, nil
}

func runBuddyOp(a *buddy.Allocator, slots *[]buddy.Ref, arg string) (BuddyOp, error) {
	name, rest, hasRest := strings.Cut(arg, ":")
	if !hasRest {
		name, rest = "alloc", arg
	}

	switch name {
	case "alloc", "calloc":
		n, err := parseSize(rest)
		if err != nil {
			return BuddyOp{}, err
		}
		alloc := a.Alloc
		if name == "calloc" {
			alloc = a.Calloc
		}
		ref, block, err := alloc(n)
		return recordAlloc(slots, BuddyOp{Op: arg, Slot: len(*slots)}, ref, len(block), err)

	case "free":
		slot, err := lookupSlot(*slots, rest)
		if err != nil {
			return BuddyOp{}, err
		}
		ref := (*slots)[slot]
		size, err := a.BlockSize(ref)
		if err != nil {
			return BuddyOp{}, err
		}
		if err := a.Free(ref); err != nil {
			return BuddyOp{}, err
		}
		(*slots)[slot] = buddy.NilRef
		return BuddyOp{Op: arg, Slot: slot, Ref: int(ref), Block: size, Freed: true}, nil

	case "realloc":
		slotStr, sizeStr, ok := strings.Cut(rest, ":")
		if !ok {
			return BuddyOp{}, errors.New("expected realloc:<slot>:<size>")
		}
		slot, err := lookupSlot(*slots, slotStr)
		if err != nil {
			return BuddyOp{}, err
		}
		n, err := parseSize(sizeStr)
		if err != nil {
			return BuddyOp{}, err
		}
		ref, block, err := a.Realloc((*slots)[slot], n)
		if errors.Is(err, buddy.ErrNoSpace) {
			return BuddyOp{Op: arg, Slot: slot, Ref: int((*slots)[slot]), Failed: true, Message: err.Error()}, nil
		}
		if err != nil {
			return BuddyOp{}, err
		}
		(*slots)[slot] = ref
		return BuddyOp{Op: arg, Slot: slot, Ref: int(ref), Block: len(block), Freed: ref == buddy.NilRef}, nil
	}
	return BuddyOp{}, fmt.Errorf("unknown operation %q", name)
}

func recordAlloc(slots *[]buddy.Ref, op BuddyOp, ref buddy.Ref, block int, err error) (BuddyOp, error) {
	if errors.Is(err, buddy.ErrNoSpace) {
		op.Ref, op.Failed, op.Message = int(buddy.NilRef), true, err.Error()
		*slots = append(*slots, buddy.NilRef)
		return op, nil
	}
	if err != nil {
		return BuddyOp{}, err
	}
	op.Ref, op.Block = int(ref), block
	*slots = append(*slots, ref)
	return op, nil
}

func lookupSlot(slots []buddy.Ref, s string) (int, error) {
	slot, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("bad slot %q: %w", s, err)
	}
	if slot < 0 || slot >= len(slots) {
		return 0, fmt.Errorf("slot %d out of range (have %d)", slot, len(slots))
	}
	if slots[slot] == buddy.NilRef {
		return 0, fmt.Errorf("slot %d is empty", slot)
	}
	return slot, nil
}

func printBuddyOp(op BuddyOp) {
	switch {
	case op.Failed:
		printInfo("[%d] %-16s FAILED (%s)\n", op.Slot, op.Op, op.Message)
	case op.Freed:
		printInfo("[%d] %-16s freed\n", op.Slot, op.Op)
	default:
		printInfo("[%d] %-16s ref=%-6d block=%d\n", op.Slot, op.Op, op.Ref, op.Block)
	}
}

// parseSize parses a humanized byte count.
func parseSize(s string) (int, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("bad size %q: %w", s, err)
	}
	if n > uint64(1<<40) {
		return 0, fmt.Errorf("size %q too large", s)
	}
	return int(n), nil
}
