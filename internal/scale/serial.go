package scale

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

// SerialConfig holds the physical indicator endpoint settings.
type SerialConfig struct {
	Port        string
	BaudRate    int
	ReadTimeout time.Duration
}

// SerialSource reads a weight indicator attached to a serial port. All I/O
// problems surface as unavailable readings; only Connect returns errors.
type SerialSource struct {
	cfg SerialConfig

	mu   sync.Mutex
	port serial.Port
}

// NewSerialSource constructs a SerialSource. The port stays closed until
// Connect.
func NewSerialSource(cfg SerialConfig) *SerialSource {
	if cfg.BaudRate <= 0 {
		cfg.BaudRate = 9600
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = time.Second
	}
	return &SerialSource{cfg: cfg}
}

// Connect opens the serial port. Connecting while already connected is a
// no-op.
func (s *SerialSource) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open()
}

func (s *SerialSource) open() error {
	if s.port != nil {
		return nil
	}
	if s.cfg.Port == "" {
		return fmt.Errorf("scale: serial port not configured")
	}
	port, err := serial.Open(s.cfg.Port, &serial.Mode{BaudRate: s.cfg.BaudRate})
	if err != nil {
		return fmt.Errorf("scale: open %s: %w", s.cfg.Port, err)
	}
	if err := port.SetReadTimeout(s.cfg.ReadTimeout); err != nil {
		_ = port.Close()
		return fmt.Errorf("scale: set read timeout: %w", err)
	}
	s.port = port
	return nil
}

// Disconnect closes the serial port if open.
func (s *SerialSource) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	return err
}

// ReadWeight reads one line from the indicator, bounded by the read
// timeout. A closed port gets one transparent reconnection attempt; any
// failure after that yields an unavailable reading for this poll.
func (s *SerialSource) ReadWeight() (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		if err := s.open(); err != nil {
			return 0, false
		}
	}

	line, ok := s.readLine()
	if !ok {
		return 0, false
	}
	return ParseLine(line)
}

const maxLineBytes = 256

// readLine assembles bytes until a newline, a timeout (zero-length read)
// or the line cap. Non-ASCII bytes are dropped, matching indicators that
// occasionally emit framing garbage.
func (s *SerialSource) readLine() (string, bool) {
	var sb strings.Builder
	buf := make([]byte, 64)
	for sb.Len() < maxLineBytes {
		n, err := s.port.Read(buf)
		if err != nil {
			// Drop the handle so the next poll reconnects.
			_ = s.port.Close()
			s.port = nil
			return "", false
		}
		if n == 0 {
			// Read timeout.
			break
		}
		for _, b := range buf[:n] {
			if b == '\n' {
				return strings.TrimRight(sb.String(), "\r"), true
			}
			if b >= 0x20 && b < 0x7f {
				sb.WriteByte(b)
			}
		}
	}
	if sb.Len() == 0 {
		return "", false
	}
	return sb.String(), true
}
