package bot

import (
	"context"
	"github.com/tawnybot/tawny/util"
	"strings"
	"sync"
	"time"
)

// memConn is an in-memory conn used by the tests. Inbound lines are injected with
// Line, outbound lines are captured and inspected with Sent and SentContainsWait.
type memConn struct {
	inbound chan string
	sent    []string
	closed  bool
	mu      sync.RWMutex
}

func newMemConn() *memConn {
	return &memConn{
		inbound: make(chan string, 128),
	}
}

func (c *memConn) Connect(_ context.Context) error {
	return nil
}

func (c *memConn) ReadLine() (string, error) {
	line, ok := <-c.inbound
	if !ok {
		return "", errConnClosed
	}
	return line, nil
}

func (c *memConn) SendLine(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, line)
	return nil
}

func (c *memConn) SendPong() error {
	return c.SendLine(pongLine)
}

func (c *memConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.inbound)
	}
	return nil
}

// Line injects one inbound protocol line
func (c *memConn) Line(line string) {
	c.inbound <- line
}

// Sent returns a copy of all captured outbound lines
func (c *memConn) Sent() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sent := make([]string, len(c.sent))
	copy(sent, c.sent)
	return sent
}

// SentContains returns true if any captured outbound line contains the needle
func (c *memConn) SentContains(needle string) bool {
	for _, line := range c.Sent() {
		if strings.Contains(line, needle) {
			return true
		}
	}
	return false
}

// SentContainsWait waits up to the given timeout for an outbound line containing the needle
func (c *memConn) SentContainsWait(needle string, timeout time.Duration) bool {
	return util.WaitUntil(func() bool {
		return c.SentContains(needle)
	}, timeout)
}
