package bot

import (
	"golang.org/x/sync/errgroup"
	"log"
	"sync"
)

// Listeners implement any subset of the interfaces below; an unimplemented event is
// a no-op for that listener. Three populations are consulted in a fixed order: the
// bot's own hooks, every loaded module, then every ad-hoc subscriber. Fire-and-forget
// events are delivered to each listener in its own goroutine; check-style events
// (permission, before-execute) are gathered synchronously and AND-ed.

// ConnectedListener is notified once the bot has joined all configured channels
type ConnectedListener interface {
	OnConnected()
}

// RawMessageListener receives every classified inbound line
type RawMessageListener interface {
	OnRawMessage(msg *Message)
}

// PrivmsgListener receives channel messages that were not command invocations
type PrivmsgListener interface {
	OnPrivmsgReceived(msg *Message)
}

// PrivmsgSentListener is notified after the bot posts a channel message
type PrivmsgSentListener interface {
	OnPrivmsgSent(channel string, text string, sender string)
}

// WhisperListener receives whispers that were not command invocations
type WhisperListener interface {
	OnWhisperReceived(msg *Message)
}

// WhisperSentListener is notified after the bot sends a whisper
type WhisperSentListener interface {
	OnWhisperSent(receiver string, text string, sender string)
}

// PermissionChecker can veto a command invocation before the static permission check
type PermissionChecker interface {
	OnPermissionCheck(msg *Message, cmd *Command) bool
}

// BeforeCommandListener can silently veto a command that passed all other gates
type BeforeCommandListener interface {
	OnBeforeCommandExecute(msg *Message, cmd *Command) bool
}

// AfterCommandListener is notified after a command executed successfully
type AfterCommandListener interface {
	OnAfterCommandExecute(msg *Message, cmd *Command)
}

// BitsListener is notified when a channel message carries a bits donation
type BitsListener interface {
	OnBitsDonated(msg *Message, bits int)
}

// SubscriptionListener is notified of channel subscription notices
type SubscriptionListener interface {
	OnChannelSubscription(msg *Message)
}

// RaidListener is notified when another channel raids one of the bot's channels
type RaidListener interface {
	OnChannelRaided(msg *Message, viewers int)
}

// ChannelJoinedListener is notified when the bot itself joins a channel
type ChannelJoinedListener interface {
	OnChannelJoined(channel *Channel)
}

// ChannelPointsListener is notified of channel point redemptions
type ChannelPointsListener interface {
	OnChannelPointsRedemption(msg *Message, rewardID string)
}

// UserJoinListener is notified when a user other than the bot joins a channel
type UserJoinListener interface {
	OnUserJoin(msg *Message)
}

// UserPartListener is notified when a user leaves a channel
type UserPartListener interface {
	OnUserPart(msg *Message)
}

// ModuleReloadedListener is notified after a module has been hot-reloaded
type ModuleReloadedListener interface {
	OnModuleReloaded(name string)
}

// listeners snapshots all three listener populations in delivery order
func (b *Bot) listeners() []any {
	all := make([]any, 0)
	if b.hooks != nil {
		all = append(all, b.hooks)
	}
	for _, module := range b.modules.loaded() {
		all = append(all, module)
	}
	b.mu.Lock()
	subscribers := make([]any, len(b.subscribers))
	copy(subscribers, b.subscribers)
	b.mu.Unlock()
	return append(all, subscribers...)
}

// fire delivers a fire-and-forget event to every listener, each in its own goroutine.
// A panicking listener is logged and never suppresses delivery to the others.
func (b *Bot) fire(event Event, deliver func(listener any)) {
	for _, listener := range b.listeners() {
		listener := listener
		go func() {
			defer recoverListener(event)
			deliver(listener)
		}()
	}
}

// fireCheck delivers a check-style event to every listener independently, waits for
// all of them, and combines the results with a logical AND. Listeners that do not
// implement the event count as allowed, as does a listener that panics: a broken
// hook must not block the others, and the deny path is reserved for hooks that
// explicitly return false.
func (b *Bot) fireCheck(event Event, check func(listener any) bool) bool {
	var g errgroup.Group
	var mu sync.Mutex
	allowed := true
	for _, listener := range b.listeners() {
		listener := listener
		g.Go(func() error {
			result := safeCheck(event, listener, check)
			mu.Lock()
			allowed = allowed && result
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return allowed
}

func safeCheck(event Event, listener any, check func(listener any) bool) (allowed bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[event %s] listener panicked: %v", event, r)
			allowed = true
		}
	}()
	return check(listener)
}

func recoverListener(event Event) {
	if r := recover(); r != nil {
		log.Printf("[event %s] listener panicked: %v", event, r)
	}
}
