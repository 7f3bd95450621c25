// Package hostlink is the thread-context link between the engine
// running on this process and an operator: a serial connection to the
// physical machine's control head plus a line-oriented debug console,
// grounded on host/serial's Port abstraction and host/cmd/gopper-host's
// command loop.
package hostlink

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

// Port is the minimal interface hostlink needs from a serial
// connection, matching host/serial.Port so the same code works against
// a real device or a mock in tests.
type Port interface {
	io.ReadWriteCloser
	Flush() error
}

// Config mirrors host/serial.Config.
type Config struct {
	Device      string
	Baud        int
	ReadTimeout time.Duration
}

// DefaultConfig returns typical settings for a USB CDC control link.
func DefaultConfig(device string) Config {
	return Config{Device: device, Baud: 250000, ReadTimeout: 100 * time.Millisecond}
}

type nativePort struct {
	port *serial.Port
}

// Open opens a native serial port via github.com/tarm/serial.
func Open(cfg Config) (Port, error) {
	sc := &serial.Config{Name: cfg.Device, Baud: cfg.Baud, ReadTimeout: cfg.ReadTimeout}
	p, err := serial.OpenPort(sc)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Device, err)
	}
	return &nativePort{port: p}, nil
}

func (p *nativePort) Read(b []byte) (int, error)  { return p.port.Read(b) }
func (p *nativePort) Write(b []byte) (int, error) { return p.port.Write(b) }
func (p *nativePort) Close() error                { return p.port.Close() }
func (p *nativePort) Flush() error                { return p.port.Flush() }

// Link wraps a Port with line-buffered reads for the report package's
// serial text protocol ("ok", "echo: ...", "endstops hit: ...").
type Link struct {
	port   Port
	reader *bufio.Reader
}

// NewLink wraps an already-open Port.
func NewLink(port Port) *Link {
	return &Link{port: port, reader: bufio.NewReader(port)}
}

// WriteLine writes s followed by a newline.
func (l *Link) WriteLine(s string) error {
	_, err := l.port.Write([]byte(s + "\n"))
	return err
}

// ReadLine blocks until a full line arrives or the port's read timeout
// elapses.
func (l *Link) ReadLine() (string, error) {
	line, err := l.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line, nil
}

// Close closes the underlying port.
func (l *Link) Close() error { return l.port.Close() }
