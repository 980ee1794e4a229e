package serialmux

import (
	"errors"
	"fmt"
	"sort"

	"go.bug.st/serial"

	"github.com/banshee-data/scanview/internal/monitoring"
)

// ErrNoPorts is returned by LastPort when no serial ports are present.
var ErrNoPorts = errors.New("no serial ports found")

// RealPortFactory opens ports with go.bug.st/serial.
type RealPortFactory struct{}

func (RealPortFactory) Open(path string, mode *SerialPortMode) (SerialPorter, error) {
	if mode == nil {
		mode = DefaultSerialPortMode()
	}
	return serial.Open(path, serialMode(mode))
}

// OpenSerialMux opens path through factory and wraps it in a SerialMux.
func OpenSerialMux(factory SerialPortFactory, path string, opts PortOptions) (*SerialMux[SerialPorter], error) {
	mode, err := opts.Mode()
	if err != nil {
		return nil, err
	}
	port, err := factory.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	monitoring.Logf("opened serial port %s at %s", path, mode)
	return NewSerialMux(port), nil
}

// NewRealSerialMux opens a hardware serial port at path.
func NewRealSerialMux(path string, opts PortOptions) (*SerialMux[SerialPorter], error) {
	return OpenSerialMux(RealPortFactory{}, path, opts)
}

// ListPorts returns the serial ports present on the host, sorted by name.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	sort.Strings(ports)
	return ports, nil
}

// LastPort picks the last entry of ports, the one a freshly attached USB
// adapter usually gets.
func LastPort(ports []string) (string, error) {
	if len(ports) == 0 {
		return "", ErrNoPorts
	}
	return ports[len(ports)-1], nil
}
