package bot

import (
	"context"
	"errors"
)

// errConnClosed is returned by ReadLine once the connection has been closed locally
var errConnClosed = errors.New("connection closed")

// conn is the transport the dispatch loop reads from and replies through. Implementations
// must deliver inbound lines in arrival order and send outbound lines in call order.
// An empty line returned from ReadLine is a no-op; the loop skips it.
type conn interface {
	Connect(ctx context.Context) error
	ReadLine() (string, error)
	SendLine(line string) error
	SendPong() error
	Close() error
}
