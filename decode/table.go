package decode

import (
	"math/bits"

	"github.com/ezrec/cf68k/cpu"
)

// TABLE_SIZE is the number of dispatch slots: one per instruction word.
const TABLE_SIZE = 1 << 16

// Table maps every instruction word to a handler. Later registrations
// override earlier ones, so generic patterns are registered before the
// specialized variants they contain.
type Table[H any] struct {
	Features cpu.Features // Registrations for other features are ignored.

	slots []H
}

// NewTable creates a table with every slot holding the fallback handler.
func NewTable[H any](features cpu.Features, fallback H) (t *Table[H]) {
	t = &Table[H]{
		Features: features,
		slots:    make([]H, TABLE_SIZE),
	}
	for n := range t.slots {
		t.slots[n] = fallback
	}
	return
}

// Register stores h at every word w with w&mask == pattern, when the
// table's features include feature. A pattern with bits outside its mask
// is a programming error.
func (t *Table[H]) Register(h H, pattern, mask uint16, feature cpu.Feature) {
	if pattern&mask != pattern {
		panic(&ErrPattern{Pattern: pattern, Mask: mask})
	}

	if !t.Features.Has(feature) {
		return
	}

	// The leading ones of the mask pin the high bits; only the range
	// they allow has to be scanned.
	fixed := bits.LeadingZeros16(^mask)
	from := int(pattern)
	to := min(from+(1<<(16-fixed)), TABLE_SIZE)

	for w := from; w < to; w++ {
		if uint16(w)&mask == pattern {
			t.slots[w] = h
		}
	}
}

// Lookup returns the handler of an instruction word.
func (t *Table[H]) Lookup(w Word) H {
	return t.slots[w]
}
