package formula

import (
	"errors"
	"fmt"

	"mercator-hq/formula/pkg/config"
	"mercator-hq/formula/pkg/formula/cache"
	"mercator-hq/formula/pkg/formula/validator"
)

// ErrInvalidConfig is returned by New for an unusable EngineConfig.
var ErrInvalidConfig = errors.New("invalid engine config")

// EngineConfig contains configuration for the expression engine.
type EngineConfig struct {
	// MaxLength is the maximum expression length in bytes.
	// Default: 500.
	MaxLength int

	// MaxDepth bounds nesting of parentheses, calls and prefix operators.
	// Default: 32.
	MaxDepth int

	// CacheCapacity is the number of parsed expressions kept.
	// Zero or negative disables the cache.
	// Default: 1024.
	CacheCapacity int

	// PreviewLength is how many characters of a rejected expression are
	// kept in the audit record.
	// Default: 64.
	PreviewLength int

	// Denylist adds identifiers to the built-in denylist.
	Denylist []string
}

// DefaultEngineConfig returns the default engine configuration.
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		MaxLength:     validator.DefaultMaxLength,
		MaxDepth:      32,
		CacheCapacity: cache.DefaultCapacity,
		PreviewLength: validator.DefaultPreviewLength,
	}
}

// EngineConfigFrom converts the engine section of the file configuration.
// A cache capacity of -1 disables the cache.
func EngineConfigFrom(cfg config.EngineConfig) *EngineConfig {
	c := DefaultEngineConfig()
	if cfg.MaxLength > 0 {
		c.MaxLength = cfg.MaxLength
	}
	if cfg.MaxDepth > 0 {
		c.MaxDepth = cfg.MaxDepth
	}
	if cfg.CacheCapacity != 0 {
		c.CacheCapacity = cfg.CacheCapacity
	}
	if cfg.PreviewLength > 0 {
		c.PreviewLength = cfg.PreviewLength
	}
	c.Denylist = append(c.Denylist, cfg.Denylist...)
	return c
}

// Validate validates the engine configuration.
func (c *EngineConfig) Validate() error {
	if c.MaxLength <= 0 {
		return fmt.Errorf("%w: max length must be positive, got %d", ErrInvalidConfig, c.MaxLength)
	}
	if c.MaxDepth <= 0 {
		return fmt.Errorf("%w: max depth must be positive, got %d", ErrInvalidConfig, c.MaxDepth)
	}
	if c.PreviewLength <= 0 {
		return fmt.Errorf("%w: preview length must be positive, got %d", ErrInvalidConfig, c.PreviewLength)
	}
	for i, name := range c.Denylist {
		if name == "" {
			return fmt.Errorf("%w: denylist entry %d is empty", ErrInvalidConfig, i)
		}
	}
	return nil
}
