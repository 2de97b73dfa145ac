package region

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
)

// Config sizes the two regions reserved at start-up.
type Config struct {
	PermanentSize int // bytes; allocators and long-lived data
	TransientSize int // bytes; scratch data rebuilt every phase
}

// Predefined configurations.
var (
	// ConfigSmall suits tests and tools.
	ConfigSmall = Config{
		PermanentSize: 4 << 20,
		TransientSize: 1 << 20,
	}

	// ConfigGame is sized for a full game session.
	ConfigGame = Config{
		PermanentSize: 256 << 20,
		TransientSize: 64 << 20,
	}

	// DefaultConfig is used when no configuration is supplied.
	DefaultConfig = ConfigSmall
)

// Environment variables read by ConfigFromEnv. Values accept humanized sizes
// such as "64MiB" or "512KB".
const (
	EnvPermanentSize = "QI_PERMANENT_SIZE"
	EnvTransientSize = "QI_TRANSIENT_SIZE"
)

// ConfigFromEnv returns DefaultConfig with any sizes overridden from the environment.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig
	if err := sizeFromEnv(EnvPermanentSize, &cfg.PermanentSize); err != nil {
		return Config{}, err
	}
	if err := sizeFromEnv(EnvTransientSize, &cfg.TransientSize); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Total returns the number of bytes the configuration reserves.
func (c Config) Total() int {
	return alignUp(c.PermanentSize) + alignUp(c.TransientSize)
}

// String renders the configuration with humanized sizes.
func (c Config) String() string {
	return fmt.Sprintf("permanent=%s transient=%s",
		humanize.IBytes(uint64(max(c.PermanentSize, 0))),
		humanize.IBytes(uint64(max(c.TransientSize, 0))))
}

func (c Config) validate() error {
	if c.PermanentSize < 0 {
		return fmt.Errorf("permanent size %d: %w", c.PermanentSize, ErrBadSize)
	}
	if c.TransientSize < 0 {
		return fmt.Errorf("transient size %d: %w", c.TransientSize, ErrBadSize)
	}
	return nil
}

func sizeFromEnv(name string, dst *int) error {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return nil
	}
	n, err := humanize.ParseBytes(v)
	if err != nil {
		return fmt.Errorf("region: parse %s=%q: %w", name, v, err)
	}
	if n > uint64(maxRegionSize) {
		return fmt.Errorf("region: %s=%q exceeds %s", name, v, humanize.IBytes(uint64(maxRegionSize)))
	}
	*dst = int(n)
	return nil
}
