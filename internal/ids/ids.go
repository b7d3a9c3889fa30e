// Package ids provides the typed identifiers shared across the compiler.
//
// Identifiers are minted from process-wide monotonic counters, so two
// definitions registered in different sessions of the same process never
// collide. Zero is the invalid sentinel for every identifier kind.
package ids

import "sync/atomic"

// DefId identifies a registered definition (function, struct, enum,
// protocol or declaration).
type DefId uint64

// GlobalConstId identifies a module-level constant slot, e.g. the
// function value backing a higher-order use of a compiled definition.
type GlobalConstId uint64

// Invalid ID constants (zero is sentinel).
const (
	NoDefId         DefId         = 0
	NoGlobalConstId GlobalConstId = 0
)

// IsValid returns true if the ID is valid (non-zero).
func (id DefId) IsValid() bool         { return id != NoDefId }
func (id GlobalConstId) IsValid() bool { return id != NoGlobalConstId }

var (
	defCounter         atomic.Uint64
	globalConstCounter atomic.Uint64
)

// FreshDefId returns a definition id that has not been handed out before.
func FreshDefId() DefId {
	return DefId(defCounter.Add(1))
}

// FreshGlobalConstId returns an unused global constant id.
func FreshGlobalConstId() GlobalConstId {
	return GlobalConstId(globalConstCounter.Add(1))
}
