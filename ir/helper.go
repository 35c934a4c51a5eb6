package ir

import (
	"fmt"
	"sort"
	"sync"
)

// HelperFunc is the native body of a helper routine. The environment is
// the value given to the Machine; arguments arrive in call order.
type HelperFunc func(env any, args ...uint64) (ret uint64, err error)

// Helper is an out-of-line routine callable from generated code.
type Helper struct {
	Name  string
	Args  []Width // Argument widths.
	Ret   Width   // Return width, unless NoRet.
	Fn    HelperFunc
	NoRet bool // Helper returns no value.
}

var helpers = struct {
	sync.RWMutex
	byName map[string]*Helper
}{
	byName: map[string]*Helper{},
}

// Register adds a helper to the process-wide registry. Registering the
// same name twice is a programming error.
func Register(h *Helper) *Helper {
	helpers.Lock()
	defer helpers.Unlock()

	if _, ok := helpers.byName[h.Name]; ok {
		panic(fmt.Sprintf("ir: helper %q registered twice", h.Name))
	}
	helpers.byName[h.Name] = h

	return h
}

// Lookup finds a registered helper by name.
func Lookup(name string) (h *Helper, ok bool) {
	helpers.RLock()
	defer helpers.RUnlock()

	h, ok = helpers.byName[name]
	return
}

// Helpers lists the registered helper names in order.
func Helpers() (names []string) {
	helpers.RLock()
	defer helpers.RUnlock()

	for name := range helpers.byName {
		names = append(names, name)
	}
	sort.Strings(names)

	return
}
