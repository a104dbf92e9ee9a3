package logging

import (
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"time"
)

var errCoolingDown = errors.New("logstash: waiting before reconnect")

// LogstashWriter mirrors newline-delimited JSON log lines to a Logstash TCP
// input. Writes never fail the caller: while Logstash is unreachable lines are
// dropped and reconnects are attempted after a cool-down.
type LogstashWriter struct {
	addr         string
	dialTimeout  time.Duration
	writeTimeout time.Duration
	cooldown     time.Duration
	dial         func(network, addr string, timeout time.Duration) (net.Conn, error)

	mu      sync.Mutex
	conn    net.Conn
	retryAt time.Time
	closed  bool
	dropped uint64
}

type Option func(*LogstashWriter)

// WithCooldown sets how long to wait after a failed dial or write. Defaults to 5s.
func WithCooldown(d time.Duration) Option {
	return func(w *LogstashWriter) { w.cooldown = d }
}

func NewLogstashWriter(addr string, opts ...Option) (*LogstashWriter, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("logstash: empty address")
	}
	w := &LogstashWriter{
		addr:         addr,
		dialTimeout:  2 * time.Second,
		writeTimeout: time.Second,
		cooldown:     5 * time.Second,
		dial:         net.DialTimeout,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

func (w *LogstashWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	line := p
	if p[len(p)-1] != '\n' {
		line = append(append(make([]byte, 0, len(p)+1), p...), '\n')
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, io.ErrClosedPipe
	}
	if err := w.connectLocked(); err != nil {
		w.dropped++
		return len(p), nil
	}
	if w.writeTimeout > 0 {
		_ = w.conn.SetWriteDeadline(time.Now().Add(w.writeTimeout))
	}
	if _, err := w.conn.Write(line); err != nil {
		w.dropped++
		_ = w.conn.Close()
		w.conn = nil
		w.retryAt = time.Now().Add(w.cooldown)
	}
	return len(p), nil
}

// Dropped returns the number of lines discarded while Logstash was unreachable.
func (w *LogstashWriter) Dropped() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dropped
}

func (w *LogstashWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if w.conn == nil {
		return nil
	}
	err := w.conn.Close()
	w.conn = nil
	return err
}

func (w *LogstashWriter) connectLocked() error {
	if w.conn != nil {
		return nil
	}
	if time.Now().Before(w.retryAt) {
		return errCoolingDown
	}
	conn, err := w.dial("tcp", w.addr, w.dialTimeout)
	if err != nil {
		w.retryAt = time.Now().Add(w.cooldown)
		return err
	}
	w.conn = conn
	w.retryAt = time.Time{}
	return nil
}
