package bot

import (
	"context"
	"fmt"
	"github.com/gorilla/websocket"
	"github.com/tawnybot/tawny/config"
	"golang.org/x/time/rate"
	"strings"
	"sync"
)

const pongLine = "PONG :tmi.twitch.tv"

// ircConn speaks the Twitch IRC dialect over a WebSocket. Outbound chat lines are
// rate limited to stay below Twitch's 20 messages per 30 seconds allowance; PONGs
// bypass the limiter so slow chatters cannot starve the keepalive.
type ircConn struct {
	config  *config.Config
	ws      *websocket.Conn
	limiter *rate.Limiter
	ctx     context.Context
	pending []string
	sendMu  sync.Mutex
}

func newIRCConn(conf *config.Config) *ircConn {
	return &ircConn{
		config:  conf,
		limiter: rate.NewLimiter(rate.Limit(20.0/30.0), 20),
	}
}

func (c *ircConn) Connect(ctx context.Context) error {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, c.config.ServerAddr, nil)
	if err != nil {
		return fmt.Errorf("cannot connect to %s: %w", c.config.ServerAddr, err)
	}
	c.ws = ws
	c.ctx = ctx
	return nil
}

// ReadLine returns the next protocol line in arrival order. A WebSocket frame may
// carry several CRLF-separated lines; surplus lines are buffered for later reads.
func (c *ircConn) ReadLine() (string, error) {
	if len(c.pending) > 0 {
		line := c.pending[0]
		c.pending = c.pending[1:]
		return line, nil
	}
	_, payload, err := c.ws.ReadMessage()
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(string(payload), "\r\n") {
		if line != "" {
			c.pending = append(c.pending, line)
		}
	}
	if len(c.pending) == 0 {
		return "", nil
	}
	return c.ReadLine()
}

func (c *ircConn) SendLine(line string) error {
	if err := c.limiter.Wait(c.ctx); err != nil {
		return err
	}
	return c.write(line)
}

func (c *ircConn) SendPong() error {
	return c.write(pongLine)
}

func (c *ircConn) write(line string) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, []byte(line+"\r\n"))
}

func (c *ircConn) Close() error {
	if c.ws == nil {
		return nil
	}
	return c.ws.Close()
}
