// Package idgen provides pluggable ID generation for migrate-guard entities.
//
// All constructors across the core (storage, jobservice, pipeline) accept a
// Generator, making the ID strategy a startup-time decision rather than a
// compile-time one — tests substitute a deterministic sequence generator.
package idgen

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 returns a Generator that produces RFC 9562 UUID v7 strings.
// Time-sortable, globally unique — the default strategy for persisted
// entities (jobs, runs, artifacts, pages).
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed wraps a Generator and prepends a fixed prefix, for type-scoped
// identifiers (e.g. "job_", "run_", "art_").
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Default is the ecosystem default: UUIDv7.
var Default Generator = UUIDv7()

// New produces an ID using the Default generator.
func New() string {
	return Default()
}

// Sequential returns a Generator that produces deterministic,
// monotonically increasing IDs ("<prefix>1", "<prefix>2", ...). Intended
// for tests that need stable, readable IDs.
func Sequential(prefix string) Generator {
	var n atomic.Uint64
	return func() string {
		return fmt.Sprintf("%s%d", prefix, n.Add(1))
	}
}
