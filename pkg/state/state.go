// Package state reads the page's initial application state tree.
//
// The tree is decoded JSON (maps, slices and scalars). Values may be wrapped by
// the page's reactivity layer in an object exposing "value" or "_value"; every
// read goes through Unwrap so callers never see the wrapper.
package state

import (
	"context"
	"fmt"
	"strings"
	"time"

	errs "github.com/flyflypeng/xiaohongshu-skill/pkg/errors"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/logger"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/retry"
)

// Tree is a decoded state object
type Tree = map[string]interface{}

// Unwrap replaces a reactive wrapper with its inner value
func Unwrap(v interface{}) interface{} {
	m, ok := v.(map[string]interface{})
	if !ok {
		return v
	}
	if inner, ok := m["value"]; ok {
		return inner
	}
	if inner, ok := m["_value"]; ok {
		return inner
	}
	return v
}

// Resolve walks a dotted path through tree, unwrapping at every hop.
// A missing key or a non-mapping where descent is required yields ok == false.
func Resolve(tree interface{}, path string) (interface{}, bool) {
	current := Unwrap(tree)
	if path == "" {
		return current, current != nil
	}

	for _, key := range strings.Split(path, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		next, ok := m[key]
		if !ok || next == nil {
			return nil, false
		}
		current = Unwrap(next)
	}

	return current, current != nil
}

// Flatten flattens exactly one level of nested arrays.
// Deeper nesting is kept as is.
func Flatten(items []interface{}) []interface{} {
	flat := make([]interface{}, 0, len(items))
	for _, item := range items {
		if inner, ok := item.([]interface{}); ok {
			flat = append(flat, inner...)
			continue
		}
		flat = append(flat, item)
	}
	return flat
}

// List resolves path and returns its one-level-flattened array
func List(tree interface{}, path string) ([]interface{}, bool) {
	v, ok := Resolve(tree, path)
	if !ok {
		return nil, false
	}
	items, ok := v.([]interface{})
	if !ok {
		return nil, false
	}
	return Flatten(items), true
}

// Map resolves path and returns it as a mapping
func Map(tree interface{}, path string) (map[string]interface{}, bool) {
	v, ok := Resolve(tree, path)
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]interface{})
	return m, ok
}

// String resolves path and returns a string, stringifying numbers
func String(tree interface{}, path string) string {
	v, ok := Resolve(tree, path)
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case float64:
		if s == float64(int64(s)) {
			return fmt.Sprintf("%d", int64(s))
		}
		return fmt.Sprintf("%g", s)
	case bool:
		return fmt.Sprintf("%t", s)
	default:
		return ""
	}
}

// FirstString returns the first non-empty string among paths
func FirstString(tree interface{}, paths ...string) string {
	for _, p := range paths {
		if s := String(tree, p); s != "" {
			return s
		}
	}
	return ""
}

// Fetcher reads a value from the live page; ok == false means not yet populated
type Fetcher func(ctx context.Context) (value interface{}, ok bool, err error)

// LookupConfig bounds a keyed lookup
type LookupConfig struct {
	Attempts int
	Backoff  time.Duration
	Logger   logger.Logger
}

// DefaultLookupConfig is three attempts with a fixed 2s pause
func DefaultLookupConfig() LookupConfig {
	return LookupConfig{Attempts: 3, Backoff: 2 * time.Second}
}

// errNotReady marks an absent value so retry keeps trying
var errNotReady = errs.New(errs.ErrorTypeExtraction, "state entry not yet populated")

// Lookup calls fetch until it reports a value or attempts run out.
// Exhaustion is not an error: it returns ok == false. Only fatal faults
// (challenge, not started) and context cancellation are returned as errors.
func Lookup(ctx context.Context, fetch Fetcher, cfg LookupConfig) (interface{}, bool, error) {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 1
	}

	var found interface{}
	err := retry.Do(func() error {
		v, ok, err := fetch(ctx)
		if err != nil {
			if errs.IsFatal(err) {
				return err
			}
			return errs.Wrap(errs.ErrorTypeExtraction, "state read failed", err)
		}
		if !ok {
			return errNotReady
		}
		found = v
		return nil
	}, &retry.Config{
		MaxAttempts: cfg.Attempts,
		Backoff:     &retry.ConstantBackoff{Delay: cfg.Backoff},
		Context:     ctx,
		Logger:      cfg.Logger,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			if cfg.Logger != nil {
				cfg.Logger.InfoWithFields("State not ready, retrying", map[string]interface{}{
					"attempt":  attempt,
					"attempts": cfg.Attempts,
				})
			}
		},
	})

	if err == nil {
		return found, true, nil
	}
	if errs.IsFatal(err) || ctx.Err() != nil {
		return nil, false, err
	}
	return nil, false, nil
}
