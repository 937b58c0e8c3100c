package bot

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/nicklaw5/helix/v2"
)

// Channel represents one joined chat room. Each channel runs its own background
// update task refreshing stream info through the Helix API; the cached state feeds
// commands like uptime.
type Channel struct {
	Name      string
	bot       *Bot
	live      bool
	title     string
	viewers   int
	startedAt time.Time
	cancelFn  context.CancelFunc
	mu        sync.RWMutex
}

func newChannel(name string, bot *Bot) *Channel {
	return &Channel{
		Name: name,
		bot:  bot,
	}
}

// Say posts a message to the channel
func (c *Channel) Say(text string) error {
	return c.bot.Say(c.Name, text)
}

// StreamInfo returns the cached live state, title, viewer count and stream uptime
func (c *Channel) StreamInfo() (live bool, title string, viewers int, uptime time.Duration) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.live {
		uptime = c.bot.clock.Since(c.startedAt)
	}
	return c.live, c.title, c.viewers, uptime
}

// startUpdateLoop launches the background update task. It is a no-op if the bot
// has no Helix client configured.
func (c *Channel) startUpdateLoop(ctx context.Context) {
	if c.bot.helix == nil {
		return
	}
	ctx, c.cancelFn = context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(c.bot.config.ChannelUpdateInterval)
		defer ticker.Stop()
		c.update()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.update()
			}
		}
	}()
}

// stopUpdateLoop cancels the background update task
func (c *Channel) stopUpdateLoop() {
	if c.cancelFn != nil {
		c.cancelFn()
	}
}

func (c *Channel) update() {
	resp, err := c.bot.helix.GetStreams(&helix.StreamsParams{
		UserLogins: []string{c.Name},
	})
	if err != nil {
		log.Printf("[channel %s] cannot refresh stream info: %s", c.Name, err.Error())
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(resp.Data.Streams) == 0 {
		c.live = false
		c.title = ""
		c.viewers = 0
		return
	}
	stream := resp.Data.Streams[0]
	c.live = true
	c.title = stream.Title
	c.viewers = stream.ViewerCount
	c.startedAt = stream.StartedAt
}
