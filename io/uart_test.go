package io

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUart_Output(t *testing.T) {
	assert := assert.New(t)

	var out bytes.Buffer
	uart := &Uart{Output: &out}

	for _, c := range []byte("hi\n") {
		assert.NoError(uart.Write(UART_DATA+3, 1, uint64(c)))
	}
	assert.Equal("hi\n", out.String())

	status, err := uart.Read(UART_STATUS, 4)
	assert.NoError(err)
	assert.Equal(uint64(UART_STATUS_TX_READY|UART_STATUS_RX_EOF), status)

	// No output stream discards.
	uart = &Uart{}
	assert.NoError(uart.Write(UART_DATA, 4, 'x'))
}

func TestUart_Input(t *testing.T) {
	assert := assert.New(t)

	uart := &Uart{Input: strings.NewReader("ok")}

	var got []byte
	assert.Eventually(func() bool {
		status, err := uart.Read(UART_STATUS+3, 1)
		if err != nil {
			return true
		}
		if status&UART_STATUS_RX_READY != 0 {
			value, _ := uart.Read(UART_DATA+3, 1)
			got = append(got, byte(value))
		}
		return status&UART_STATUS_RX_EOF != 0
	}, time.Second, time.Millisecond)

	assert.Equal([]byte("ok"), got)

	// Reading with nothing pending returns zero.
	value, err := uart.Read(UART_DATA, 4)
	assert.NoError(err)
	assert.Equal(uint64(0), value)
}

func TestUart_Unmapped(t *testing.T) {
	assert := assert.New(t)

	uart := &Uart{}

	var berr *ErrBus
	_, err := uart.Read(0x10, 4)
	assert.ErrorAs(err, &berr)
	err = uart.Write(0x10, 4, 0)
	assert.ErrorAs(err, &berr)
}

// endless never runs out of input.
type endless byte

func (e endless) Read(buf []byte) (n int, err error) {
	for n = range buf {
		buf[n] = byte(e)
	}
	n = len(buf)
	return
}

func TestUart_Close(t *testing.T) {
	assert := assert.New(t)

	uart := &Uart{Input: endless('x')}

	// The guest never reads, so the receive FIFO fills up.
	assert.Eventually(func() bool {
		_, err := uart.Read(UART_STATUS, 4)
		return err == nil && len(uart.rx) == UART_RX_DEPTH
	}, time.Second, time.Millisecond)

	assert.NoError(uart.Close())
	assert.NoError(uart.Close())
	assert.Eventually(uart.eof.Load, time.Second, time.Millisecond)

	// Buffered input is still delivered, then the FIFO is empty.
	count := 0
	for {
		status, err := uart.Read(UART_STATUS, 4)
		assert.NoError(err)
		if status&UART_STATUS_RX_READY == 0 {
			assert.NotZero(status & UART_STATUS_RX_EOF)
			break
		}
		value, _ := uart.Read(UART_DATA, 4)
		assert.Equal(uint64('x'), value)
		count++
	}
	assert.Equal(UART_RX_DEPTH, count)

	// Closing a UART that never started.
	assert.NoError((&Uart{}).Close())
}
