package cache

import (
	"context"
	"time"
)

// Disabled is the cache used when `[cache] disabled = true`. Every lookup
// misses, so each SVG request goes through Graphviz.
type Disabled struct{}

// NewDisabled returns a cache that stores nothing.
func NewDisabled() Cache { return Disabled{} }

// Get always misses.
func (Disabled) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

// Set discards data.
func (Disabled) Set(context.Context, string, []byte, time.Duration) error { return nil }

// Delete is a no-op, as is Close.
func (Disabled) Delete(context.Context, string) error { return nil }

func (Disabled) Close() error { return nil }
