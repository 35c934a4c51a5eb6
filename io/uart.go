package io

import (
	"fmt"
	"io"
	"iter"
	"maps"
	"sync"
	"sync/atomic"
)

// UART register offsets and status bits.
const (
	UART_DATA   = 0x0 // Receive and transmit holding register.
	UART_STATUS = 0x4 // Status register.
	UART_SIZE   = 0x8

	UART_STATUS_RX_READY = 0x1 // A received byte is waiting.
	UART_STATUS_TX_READY = 0x2 // The transmitter accepts a byte.
	UART_STATUS_RX_EOF   = 0x4 // The input stream has ended.

	UART_RX_DEPTH = 64 // Receive FIFO depth.
)

var _uart_defines = map[string]string{
	"UART_DATA":            fmt.Sprintf("0x%x", UART_DATA),
	"UART_STATUS":          fmt.Sprintf("0x%x", UART_STATUS),
	"UART_STATUS_RX_READY": fmt.Sprintf("0x%x", UART_STATUS_RX_READY),
	"UART_STATUS_TX_READY": fmt.Sprintf("0x%x", UART_STATUS_TX_READY),
	"UART_STATUS_RX_EOF":   fmt.Sprintf("0x%x", UART_STATUS_RX_EOF),
}

// Uart is a polled serial console. Input is read in the background into
// a receive FIFO, so a guest polling the status register never blocks.
type Uart struct {
	Input  io.Reader // May be nil for no input.
	Output io.Writer // May be nil to discard output.

	once   sync.Once
	rx     chan byte
	eof    atomic.Bool
	done   chan struct{}
	closed sync.Once
}

var _ Device = (*Uart)(nil)
var _ io.Closer = (*Uart)(nil)

// Defines returns the register layout.
func (uart *Uart) Defines() iter.Seq2[string, string] {
	return maps.All(_uart_defines)
}

func (uart *Uart) start() {
	uart.once.Do(func() {
		uart.rx = make(chan byte, UART_RX_DEPTH)
		uart.done = make(chan struct{})
		if uart.Input == nil {
			uart.eof.Store(true)
			close(uart.rx)
			return
		}
		go uart.receive()
	})
}

func (uart *Uart) receive() {
	defer close(uart.rx)
	defer uart.eof.Store(true)

	var one [1]byte
	for {
		_, err := uart.Input.Read(one[:])
		if err != nil {
			return
		}
		select {
		case uart.rx <- one[0]:
		case <-uart.done:
			return
		}
	}
}

// Close stops the receiver. A Read already blocked on Input still has to
// return before the receiver exits.
func (uart *Uart) Close() (err error) {
	uart.start()
	uart.closed.Do(func() {
		close(uart.done)
	})
	return
}

func (uart *Uart) Read(offset uint32, size int) (value uint64, err error) {
	uart.start()

	switch offset {
	case UART_DATA + 3, UART_DATA:
		select {
		case b, ok := <-uart.rx:
			if ok {
				value = uint64(b)
			}
		default:
		}
	case UART_STATUS + 3, UART_STATUS:
		value = UART_STATUS_TX_READY
		switch {
		case len(uart.rx) > 0:
			value |= UART_STATUS_RX_READY
		case uart.eof.Load():
			value |= UART_STATUS_RX_EOF
		}
	default:
		err = &ErrBus{Address: offset, Size: size}
	}
	return
}

func (uart *Uart) Write(offset uint32, size int, value uint64) (err error) {
	switch offset {
	case UART_DATA + 3, UART_DATA:
		if uart.Output != nil {
			_, err = uart.Output.Write([]byte{byte(value)})
		}
	case UART_STATUS + 3, UART_STATUS:
	default:
		err = &ErrBus{Address: offset, Size: size, Write: true}
	}
	return
}
