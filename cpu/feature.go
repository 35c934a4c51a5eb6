package cpu

import (
	"fmt"
	"iter"
	"strings"
)

// Feature is an optional capability of an m68k family core.
type Feature int

const (
	FEATURE_BASE          = Feature(0)  // base
	FEATURE_M68000        = Feature(1)  // m68000
	FEATURE_CF_ISA_A      = Feature(2)  // cf_isa_a
	FEATURE_CF_ISA_B      = Feature(3)  // cf_isa_b
	FEATURE_CF_ISA_APLUSC = Feature(4)  // cf_isa_aplusc
	FEATURE_BRAL          = Feature(5)  // bral
	FEATURE_BCCL          = Feature(6)  // bccl
	FEATURE_CF_FPU        = Feature(7)  // cf_fpu
	FEATURE_CF_MAC        = Feature(8)  // cf_mac
	FEATURE_CF_EMAC       = Feature(9)  // cf_emac
	FEATURE_CF_EMAC_B     = Feature(10) // cf_emac_b
	FEATURE_USP           = Feature(11) // usp
	FEATURE_EXT_FULL      = Feature(12) // ext_full
	FEATURE_WORD_INDEX    = Feature(13) // word_index
	FEATURE_SCALED_INDEX  = Feature(14) // scaled_index
	FEATURE_LONG_MULDIV   = Feature(15) // long_muldiv
	FEATURE_BKPT          = Feature(16) // bkpt
	FEATURE_MMU           = Feature(17) // mmu
	featureCount          = 18
)

var _feature_names = [featureCount]string{
	"base", "m68000", "cf_isa_a", "cf_isa_b", "cf_isa_aplusc", "bral",
	"bccl", "cf_fpu", "cf_mac", "cf_emac", "cf_emac_b", "usp", "ext_full",
	"word_index", "scaled_index", "long_muldiv", "bkpt", "mmu",
}

func (ft Feature) String() string {
	if ft >= 0 && ft < featureCount {
		return _feature_names[ft]
	}
	return fmt.Sprintf("Feature(%d)", int(ft))
}

// ParseFeature finds a feature by name.
func ParseFeature(name string) (ft Feature, err error) {
	name = strings.ToLower(name)
	for n, fname := range _feature_names {
		if fname == name {
			ft = Feature(n)
			return
		}
	}
	err = ErrFeatureUnknown(name)
	return
}

// Features is a set of features. FEATURE_BASE is always present.
type Features uint32

// NewFeatures creates a feature set.
func NewFeatures(fts ...Feature) Features {
	return Features(1 << FEATURE_BASE).With(fts...)
}

// With returns the set with the features added.
func (fs Features) With(fts ...Feature) Features {
	for _, ft := range fts {
		fs |= 1 << uint(ft)
	}
	return fs | (1 << FEATURE_BASE)
}

// Has returns true if the feature is in the set.
func (fs Features) Has(ft Feature) bool {
	return (fs|(1<<FEATURE_BASE))&(1<<uint(ft)) != 0
}

// All iterates over the features in the set.
func (fs Features) All() iter.Seq[Feature] {
	return func(yield func(Feature) bool) {
		for ft := FEATURE_BASE; ft < featureCount; ft++ {
			if fs.Has(ft) && !yield(ft) {
				return
			}
		}
	}
}

func (fs Features) String() string {
	var names []string
	for ft := range fs.All() {
		names = append(names, ft.String())
	}
	return strings.Join(names, ",")
}
