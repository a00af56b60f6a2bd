package invalidation

import (
	"sync/atomic"

	"go.trai.ch/incr/internal/core/domain"
)

// Latches are the cache drop flags of one build. A latch is never reset; a new build starts
// with a new value.
type Latches struct {
	bits atomic.Uint32
}

// Set flips the latch of kind and reports whether this call flipped it.
func (l *Latches) Set(kind domain.DropKind) bool {
	mask := uint32(1) << kind
	return l.bits.Or(mask)&mask == 0
}

// IsSet reports whether the latch of kind was flipped.
func (l *Latches) IsSet(kind domain.DropKind) bool {
	return l.bits.Load()&(uint32(1)<<kind) != 0
}

// Kinds returns the flipped latches in declaration order.
func (l *Latches) Kinds() []domain.DropKind {
	var out []domain.DropKind
	for _, k := range domain.DropKinds() {
		if l.IsSet(k) {
			out = append(out, k)
		}
	}
	return out
}
