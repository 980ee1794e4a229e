package serialmux

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSerialMux(t *testing.T) {
	port := NewTestableSerialPort()
	factory := NewMockSerialPortFactory(port)

	mux, err := OpenSerialMux(factory, "/dev/ttyUSB0", PortOptions{})
	require.NoError(t, err)
	require.NotNil(t, mux)

	call := factory.LastCall()
	require.NotNil(t, call)
	assert.Equal(t, "/dev/ttyUSB0", call.Path)
	assert.Equal(t, DefaultSerialPortMode(), call.Mode)

	require.NoError(t, mux.Initialise())
	assert.Equal(t, "POLL\n", string(port.GetWrittenData()))
}

func TestOpenSerialMux_Errors(t *testing.T) {
	factory := NewMockSerialPortFactory(nil)
	_, err := OpenSerialMux(factory, "/dev/x", PortOptions{Parity: "?"})
	require.Error(t, err)
	assert.Nil(t, factory.LastCall(), "invalid options must not reach the factory")

	factory.Error = errors.New("permission denied")
	_, err = OpenSerialMux(factory, "/dev/x", PortOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open /dev/x")
	assert.ErrorIs(t, err, factory.Error)
}

func TestSerialPortOpener(t *testing.T) {
	var gotPath string
	opener := SerialPortOpener(func(path string, mode *SerialPortMode) (SerialPorter, error) {
		gotPath = path
		return NewTestableSerialPort(), nil
	})
	_, err := OpenSerialMux(opener, "COM3", PortOptions{BaudRate: 9600})
	require.NoError(t, err)
	assert.Equal(t, "COM3", gotPath)
}

func TestLastPort(t *testing.T) {
	_, err := LastPort(nil)
	assert.ErrorIs(t, err, ErrNoPorts)

	p, err := LastPort([]string{"/dev/ttyS0", "/dev/ttyUSB0"})
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", p)
}
