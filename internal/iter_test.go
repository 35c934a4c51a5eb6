package internal

import (
	"maps"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIterSeq2Concat(t *testing.T) {
	assert := assert.New(t)

	a := map[string]int{"A": 1}
	b := map[string]int{"B": 2}

	var keys []string
	for key := range IterSeq2Concat(maps.All(a), maps.All(b)) {
		keys = append(keys, key)
	}
	assert.Equal([]string{"A", "B"}, keys)

	// Stopping early.
	for range IterSeq2Concat(maps.All(a), maps.All(b)) {
		break
	}
}

func TestIterSeq2Sorted(t *testing.T) {
	assert := assert.New(t)

	first := map[string]string{"UART_BASE": "0x0", "EXCP_TRAP0": "32"}
	second := map[string]string{"UART_BASE": "0x1000", "CACHE_SIZE": "4096"}

	var keys, values []string
	for key, value := range IterSeq2Sorted(IterSeq2Concat(maps.All(first), maps.All(second))) {
		keys = append(keys, key)
		values = append(values, value)
	}
	assert.Equal([]string{"CACHE_SIZE", "EXCP_TRAP0", "UART_BASE"}, keys)
	assert.Equal([]string{"4096", "32", "0x1000"}, values)
}
