package main

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuddyCommand_Script(t *testing.T) {
	resetFlags()
	buddyCheck = true
	buddyDump = true

	output, err := captureOutput(t, func() error {
		return runBuddy([]string{"200", "200", "free:0", "alloc:512", "calloc:16"})
	})
	require.NoError(t, err)

	assert.Contains(t, output, "[0] 200")
	assert.Contains(t, output, "ref=256")
	assert.Contains(t, output, "freed")
	assert.Contains(t, output, "block=512")
	assert.Contains(t, output, "=== BUDDY ALLOCATOR STATE ===")
	assert.NotContains(t, output, "FAILED")
}

func TestBuddyCommand_FifthAllocationFails(t *testing.T) {
	resetFlags()
	jsonOut = true

	output, err := captureOutput(t, func() error {
		return runBuddy([]string{"200", "200", "200", "200", "200"})
	})
	require.NoError(t, err)

	var report BuddyReport
	decodeJSON(t, output, &report)
	require.Len(t, report.Ops, 5)
	for i, op := range report.Ops[:4] {
		assert.False(t, op.Failed, "op %d", i)
		assert.Equal(t, 256, op.Block)
		assert.Equal(t, 256*i, op.Ref)
	}
	assert.True(t, report.Ops[4].Failed)
	assert.Equal(t, 1, report.Stats.Failures)
	assert.Equal(t, 0, report.FreeSize)
}

func TestBuddyCommand_ReallocAndRegion(t *testing.T) {
	resetFlags()
	jsonOut = true
	buddyRegion = true
	buddyMinBlock = 16

	output, err := captureOutput(t, func() error {
		return runBuddy([]string{"100", "free:0", "512", "realloc:1:1000", "realloc:1:300", "realloc:1:0"})
	})
	require.NoError(t, err)

	var report BuddyReport
	decodeJSON(t, output, &report)
	require.Len(t, report.Ops, 6)
	assert.Equal(t, 0, report.Ops[2].Ref)
	assert.True(t, report.Ops[3].Failed, "a 1024-byte block cannot coexist with the live 512")
	assert.Equal(t, 0, report.Ops[4].Ref, "300 still fits the 512 block")
	assert.Equal(t, -1, report.Ops[5].Ref)
	assert.Equal(t, 1024, report.FreeSize)
}

func TestBuddyCommand_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown op", []string{"bogus:1"}},
		{"slot out of range", []string{"free:3"}},
		{"double free", []string{"64", "free:0", "free:0"}},
		{"bad size", []string{"alloc:lots"}},
		{"bad realloc", []string{"64", "realloc:0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags()
			quiet = true
			_, err := captureOutput(t, func() error { return runBuddy(tt.args) })
			assert.Error(t, err)
		})
	}

	resetFlags()
	buddyMinBlock = 8
	_, err := captureOutput(t, func() error { return runBuddy(nil) })
	assert.Error(t, err, "minimum block below link size")
}

func TestArenaCommand(t *testing.T) {
	resetFlags()
	jsonOut = true

	output, err := captureOutput(t, func() error {
		return runArena([]string{"5", "100", "reset", "16"})
	})
	require.NoError(t, err)

	var report ArenaReport
	decodeJSON(t, output, &report)
	require.Len(t, report.Allocs, 4)
	assert.Equal(t, "permanent", report.Region)
	assert.Equal(t, 4096, report.Size)
	assert.Equal(t, 16, report.Allocs[1].Offset)
	assert.Equal(t, 128, report.Allocs[1].Used)
	assert.True(t, report.Allocs[2].Reset)
	assert.Equal(t, 0, report.Allocs[3].Offset)
	assert.Equal(t, 16, report.Used)
}

func TestArenaCommand_Text(t *testing.T) {
	resetFlags()

	output, err := captureOutput(t, func() error {
		return runArena([]string{"5", "reset"})
	})
	require.NoError(t, err)
	assert.Contains(t, output, "alloc 5 ")
	assert.Contains(t, output, "reset\n")
	assert.Contains(t, output, "Used: 0 B of 4.0 KiB")
}

func TestArenaCommand_Overflow(t *testing.T) {
	resetFlags()
	arenaSize = "32"
	arenaTransient = true

	_, err := captureOutput(t, func() error {
		return runArena([]string{"17", "17"})
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "arena overflow")
}

func TestRegionCommand(t *testing.T) {
	resetFlags()
	regionPermanent = "1MiB"
	regionTransient = "64KiB"

	output, err := captureOutput(t, runRegion)
	require.NoError(t, err)
	assert.Contains(t, output, "Permanent: 1.0 MiB (1,048,576 bytes)")
	assert.Contains(t, output, "Transient: 64 KiB (65,536 bytes)")

	resetFlags()
	regionPermanent = "huge"
	_, err = captureOutput(t, runRegion)
	assert.Error(t, err)
}

func TestCollideCommand(t *testing.T) {
	resetFlags()
	jsonOut = true

	output, err := captureOutput(t, func() error {
		return runCollide([]string{"box:0,0,1,1", "box:1.5,0,1,1"})
	})
	require.NoError(t, err)

	var report CollideReport
	decodeJSON(t, output, &report)
	assert.True(t, report.Intersects)
	assert.InDelta(t, 0.5, report.Depth, 1e-4)
	assert.InDelta(t, -1, report.Normal[0], 1e-4)

	resetFlags()
	output, err = captureOutput(t, func() error {
		return runCollide([]string{"circle:0,0,1", "poly:3,0,5,0,4,2"})
	})
	require.NoError(t, err)
	assert.Contains(t, output, "separated")

	for _, bad := range [][]string{
		{"circle:0,0", "circle:1,1,1"},
		{"hexagon:0,0,1", "circle:1,1,1"},
		{"box:0,0,1,x", "circle:1,1,1"},
		{"poly:0,0,1,1", "circle:1,1,1"},
	} {
		_, err := captureOutput(t, func() error { return runCollide(bad) })
		assert.Error(t, err, "%v", bad)
	}
}

func TestBuildVersion(t *testing.T) {
	bi := &debug.BuildInfo{
		GoVersion: "go1.25.3",
		Main:      debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123abcd"},
			{Key: "vcs.time", Value: "2026-10-01T12:00:00Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	}

	info := buildVersion(bi, true)
	assert.Equal(t, VersionInfo{
		Version:   "dev",
		Commit:    "0123abcd",
		Built:     "2026-10-01T12:00:00Z",
		GoVersion: "go1.25.3",
		Modified:  true,
	}, info)

	bi.Main.Version = "v0.3.0"
	assert.Equal(t, "v0.3.0", buildVersion(bi, true).Version)

	assert.Equal(t, VersionInfo{Version: "dev", Commit: "none", Built: "unknown"}, buildVersion(nil, false))
}

func TestVersionCommand(t *testing.T) {
	resetFlags()
	jsonOut = true

	output, err := captureOutput(t, runVersion)
	require.NoError(t, err)

	var info VersionInfo
	decodeJSON(t, output, &info)
	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.Commit)
	assert.NotEmpty(t, info.GoVersion)
}
