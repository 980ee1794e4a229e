package serialmux

import (
	"fmt"
	"io"
)

// SerialPorter is what a mux reads lines from and writes commands to.
type SerialPorter interface {
	io.ReadWriteCloser
}

// Parity of a serial frame. The zero value is no parity.
type Parity int

const (
	NoParity Parity = iota
	OddParity
	EvenParity
)

// String returns the single-letter form used in "8N1".
func (p Parity) String() string {
	switch p {
	case OddParity:
		return "O"
	case EvenParity:
		return "E"
	}
	return "N"
}

func parityFromLetter(s string) Parity {
	switch s {
	case "O":
		return OddParity
	case "E":
		return EvenParity
	}
	return NoParity
}

// StopBits of a serial frame. The zero value is one stop bit.
type StopBits int

const (
	OneStopBit StopBits = iota
	TwoStopBits
)

// Count returns the number of stop bits.
func (s StopBits) Count() int {
	if s == TwoStopBits {
		return 2
	}
	return 1
}

// SerialPortMode is the framing a port is opened with, independent of the
// serial library.
type SerialPortMode struct {
	BaudRate int
	DataBits int
	Parity   Parity
	StopBits StopBits
}

// DefaultSerialPortMode is the rangefinder console framing, 115200 8N1.
func DefaultSerialPortMode() *SerialPortMode {
	return &SerialPortMode{BaudRate: DefaultBaudRate, DataBits: 8}
}

func (m *SerialPortMode) String() string {
	return fmt.Sprintf("%d %d%s%d", m.BaudRate, m.DataBits, m.Parity, m.StopBits.Count())
}

// SerialPortFactory opens serial ports. Tests inject MockSerialPortFactory.
type SerialPortFactory interface {
	Open(path string, mode *SerialPortMode) (SerialPorter, error)
}

// SerialPortOpener adapts a function to SerialPortFactory.
type SerialPortOpener func(path string, mode *SerialPortMode) (SerialPorter, error)

func (f SerialPortOpener) Open(path string, mode *SerialPortMode) (SerialPorter, error) {
	return f(path, mode)
}
