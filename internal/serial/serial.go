package serial

import (
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial"
)

// DefaultBaudRate is used when Config.BaudRate is zero.
const DefaultBaudRate = 115200

// ErrTimeout is returned by Read when no byte arrived within the read timeout.
var ErrTimeout = errors.New("serial: read timeout")

// Config describes how a port is opened.
type Config struct {
	BaudRate int
	// ReadTimeout bounds a single Read. Zero blocks until data arrives.
	ReadTimeout time.Duration
}

// device is the subset of go.bug.st/serial.Port used here.
type device interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	Drain() error
	ResetInputBuffer() error
	SetDTR(dtr bool) error
	SetRTS(rts bool) error
}

// Port is an 8N1 serial line usable as an io.ReadWriteCloser.
type Port struct {
	dev      device
	name     string
	baudRate int
	timeout  time.Duration
}

// Open opens a serial port with the given configuration.
func Open(name string, cfg Config) (*Port, error) {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	if cfg.ReadTimeout < 0 {
		return nil, errors.Errorf("serial: negative read timeout %s", cfg.ReadTimeout)
	}

	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open port %s", name)
	}

	timeout := serial.NoTimeout
	if cfg.ReadTimeout > 0 {
		timeout = cfg.ReadTimeout
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		port.Close()
		return nil, errors.Wrap(err, "failed to set read timeout")
	}

	return newPort(port, name, cfg), nil
}

func newPort(dev device, name string, cfg Config) *Port {
	return &Port{
		dev:      dev,
		name:     name,
		baudRate: cfg.BaudRate,
		timeout:  cfg.ReadTimeout,
	}
}

// Read reads from the port. An expired read timeout is reported as
// ErrTimeout instead of the zero-byte read the driver returns.
func (p *Port) Read(buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	n, err := p.dev.Read(buf)
	if err != nil {
		return n, errors.Wrapf(err, "read %s", p.name)
	}
	if n == 0 && p.timeout > 0 {
		return 0, ErrTimeout
	}
	return n, nil
}

// Write writes data to the port.
func (p *Port) Write(data []byte) (int, error) {
	n, err := p.dev.Write(data)
	if err != nil {
		return n, errors.Wrapf(err, "write %s", p.name)
	}
	return n, nil
}

// Close closes the port.
func (p *Port) Close() error {
	if p.dev == nil {
		return nil
	}
	err := p.dev.Close()
	p.dev = nil
	return err
}

// Flush discards any unread input.
func (p *Port) Flush() error {
	return p.dev.ResetInputBuffer()
}

// Drain waits until all written data has been transmitted.
func (p *Port) Drain() error {
	return p.dev.Drain()
}

// SetDTR sets the DTR signal.
func (p *Port) SetDTR(value bool) error {
	return p.dev.SetDTR(value)
}

// SetRTS sets the RTS signal.
func (p *Port) SetRTS(value bool) error {
	return p.dev.SetRTS(value)
}

// Name returns the port name.
func (p *Port) Name() string {
	return p.name
}

// BaudRate returns the configured baud rate.
func (p *Port) BaudRate() int {
	return p.baudRate
}

// IsTimeout reports whether err is a read timeout.
func IsTimeout(err error) bool {
	return errors.Cause(err) == ErrTimeout
}

// ListPorts returns a list of available serial ports.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, errors.Wrap(err, "failed to list ports")
	}
	return ports, nil
}
