package robot

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

// DefaultBaudRate is the sensor board's serial speed.
const DefaultBaudRate = 115200

// Readings returned when the board does not answer.
const (
	NoAnalog  = 1023
	NoDigital = true
)

// Board reads sensor channels from a microcontroller over a line protocol.
// "A<ch>\n" answers with a decimal reading, "D<ch>\n" with 0 or 1.
//
// Reads never fail: a broken link yields NoAnalog or NoDigital, which are
// the no-contact values, and the error is kept for Err.
type Board struct {
	mu     sync.Mutex
	rw     io.ReadWriter
	r      *bufio.Reader
	closer io.Closer
	err    error
}

// OpenBoard opens the sensor board on a serial port.
func OpenBoard(port string, baud int) (*Board, error) {
	if port == "" {
		return nil, fmt.Errorf("sensor board: %w", ErrNoPort)
	}
	if baud == 0 {
		baud = DefaultBaudRate
	}
	p, err := serial.Open(port, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open sensor board: %w", err)
	}
	if err := p.SetReadTimeout(50 * time.Millisecond); err != nil {
		p.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	b := NewBoard(p)
	b.closer = p
	return b, nil
}

// NewBoard speaks the board protocol over rw.
func NewBoard(rw io.ReadWriter) *Board {
	return &Board{rw: rw, r: bufio.NewReader(rw)}
}

// Close closes the serial port, if the board owns one.
func (b *Board) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer.Close()
}

// Err returns the most recent read error, or nil.
func (b *Board) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// ReadAnalog returns the reading on an analog channel.
func (b *Board) ReadAnalog(channel int) int {
	line, ok := b.query('A', channel)
	if !ok {
		return NoAnalog
	}
	v, err := strconv.Atoi(line)
	if err != nil {
		b.fail(fmt.Errorf("analog %d: bad reply %q", channel, line))
		return NoAnalog
	}
	return v
}

// ReadDigital returns the level on a digital channel.
func (b *Board) ReadDigital(channel int) bool {
	line, ok := b.query('D', channel)
	if !ok {
		return NoDigital
	}
	switch line {
	case "0":
		return false
	case "1":
		return true
	}
	b.fail(fmt.Errorf("digital %d: bad reply %q", channel, line))
	return NoDigital
}

func (b *Board) query(kind byte, channel int) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := fmt.Fprintf(b.rw, "%c%d\n", kind, channel); err != nil {
		b.err = fmt.Errorf("write %c%d: %w", kind, channel, err)
		return "", false
	}
	line, err := b.r.ReadString('\n')
	if err != nil {
		b.err = fmt.Errorf("read %c%d: %w", kind, channel, err)
		return "", false
	}
	b.err = nil
	return strings.TrimSpace(line), true
}

func (b *Board) fail(err error) {
	b.mu.Lock()
	b.err = err
	b.mu.Unlock()
}
