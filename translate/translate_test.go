package translate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrom(t *testing.T) {
	assert := assert.New(t)

	Use()
	assert.Equal("pc 00001000: bus error", From("pc %08x: %v", 0x1000, "bus error"))

	Use("en-GB", "en-US")
	assert.Equal("vector 0x20", From("vector 0x%x", 32))
}

func TestFprintf(t *testing.T) {
	assert := assert.New(t)

	Use()
	var sb strings.Builder
	n, err := Fprintf(&sb, "halted at %08x\n", 0x400)
	assert.NoError(err)
	assert.Equal("halted at 00000400\n", sb.String())
	assert.Equal(sb.Len(), n)
}
