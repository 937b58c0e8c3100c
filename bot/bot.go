// Package bot implements the Twitch chat bot core: the protocol line classifier, the
// command registry and its permission/cooldown/whitelist gates, the event fan-out to
// bot hooks, extension modules and ad-hoc subscribers, and the dispatch loop tying
// them together.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/jonboulle/clockwork"
	"github.com/nicklaw5/helix/v2"
	"github.com/tawnybot/tawny/config"
	"github.com/tawnybot/tawny/store"
)

var (
	// ErrAuthFailed is returned when Twitch rejects the configured credentials
	ErrAuthFailed = errors.New("authentication failed")

	// ErrUnexpectedGreeting is returned when the server greeting is not the expected welcome
	ErrUnexpectedGreeting = errors.New("unexpected server greeting")
)

const (
	permissionDeniedMessage = "you do not have permission to execute %s in #%s"
	commandDisabledMessage  = "%s is disabled for this channel"
	notWhitelistedMessage   = "%s is not whitelisted for this channel"
	onCooldownMessage       = "%s is on cooldown, seconds left: %d"
	invalidArgsMessage      = "%s; usage: %s %s"
)

const (
	stateStopped int32 = iota
	stateConnecting
	stateRunning
)

// Bot is the single-threaded dispatch loop plus the registries it owns. One Bot
// reads from one transport; reactions to inbound lines run as independent tasks
// and never block the read loop.
type Bot struct {
	config      *config.Config
	conn        conn
	commands    *commandRegistry
	modules     *moduleRegistry
	hooks       any
	subscribers []any
	channels    map[string]*Channel
	cooldowns   store.Cooldowns
	perms       store.Permissions
	whitelist   store.Whitelist
	disabled    store.Disabled
	helix       *helix.Client
	clock       clockwork.Clock
	emotes      []string
	state       int32
	ctx         context.Context
	cancelFn    context.CancelFunc
	mu          sync.Mutex
}

// New creates a bot from the given config, wiring the stores the config selects.
// A config with token "mem" uses an in-memory transport; the tests rely on this.
func New(conf *config.Config) (*Bot, error) {
	if conf.Nick == "" || conf.Token == "" {
		return nil, errors.New("missing nick or token")
	}
	clock := clockwork.NewRealClock()
	b := &Bot{
		config:   conf,
		clock:    clock,
		channels: make(map[string]*Channel),
		state:    stateStopped,
	}
	ctx := context.Background()
	var customCommands store.Commands
	var err error
	switch conf.CommandBackend() {
	case config.BackendPostgres:
		if customCommands, err = store.NewPostgresCommands(ctx, conf.DatabaseURL); err != nil {
			return nil, err
		}
	default:
		customCommands = store.NewMemoryCommands()
	}
	switch conf.CooldownBackend() {
	case config.BackendRedis:
		if b.cooldowns, err = store.NewRedisCooldowns(ctx, conf.RedisURL, clock); err != nil {
			return nil, err
		}
	default:
		b.cooldowns = store.NewMemoryCooldowns(clock)
	}
	if conf.PermissionFile != "" {
		if b.perms, err = store.LoadPermissions(conf.PermissionFile); err != nil {
			return nil, err
		}
	} else {
		b.perms = store.NewMemoryPermissions()
	}
	b.whitelist = store.NewConfigWhitelist(conf.WhitelistEnabled, conf.WhitelistDenyMessage, conf.WhitelistedCommands)
	b.disabled = store.NewMemoryDisabled()
	if conf.HelixEnabled() {
		if b.helix, err = helix.NewClient(&helix.Options{ClientID: conf.HelixClientID, ClientSecret: conf.HelixClientSecret}); err != nil {
			return nil, err
		}
	}
	if conf.Token == "mem" {
		b.conn = newMemConn()
	} else {
		b.conn = newIRCConn(conf)
	}
	b.commands = newCommandRegistry(conf.CommandPrefix, customCommands)
	b.modules = newModuleRegistry(b)
	b.hooks = &defaultHooks{bot: b}
	b.registerBuiltinCommands()
	return b, nil
}

// Config returns the bot configuration; modules use it for nick and prefix
func (b *Bot) Config() *config.Config {
	return b.config
}

// Channel returns the joined channel with the given name, or nil
func (b *Bot) Channel(name string) *Channel {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.channels[name]
}

// Emotes returns the global emote names fetched at startup
func (b *Bot) Emotes() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.emotes
}

// Subscribe registers an ad-hoc event listener. Like built-in command registration,
// this must happen before Run.
func (b *Bot) Subscribe(listener any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, listener)
}

// SetHooks replaces the bot's own listener population
func (b *Bot) SetHooks(listener any) {
	b.hooks = listener
}

// LoadModule constructs, initializes and registers an extension module
func (b *Bot) LoadModule(factory ModuleFactory) error {
	return b.modules.load(factory)
}

// RegisterCommand adds a built-in command descriptor. Must happen before Run.
func (b *Bot) RegisterCommand(cmd *Command) {
	b.commands.register(cmd)
}

// Run connects to Twitch, authenticates, joins the configured channels and then
// processes inbound lines until Stop is called or the transport fails. It blocks.
func (b *Bot) Run() error {
	if !atomic.CompareAndSwapInt32(&b.state, stateStopped, stateConnecting) {
		return errors.New("bot already started")
	}
	ctx, cancel := context.WithCancel(context.Background())
	b.mu.Lock()
	b.ctx = ctx
	b.cancelFn = cancel
	b.mu.Unlock()
	if err := b.connect(ctx); err != nil {
		atomic.StoreInt32(&b.state, stateStopped)
		return err
	}
	atomic.StoreInt32(&b.state, stateRunning)
	b.fire(EventConnected, func(listener any) {
		if l, ok := listener.(ConnectedListener); ok {
			l.OnConnected()
		}
	})
	return b.readLoop()
}

// Stop shuts the bot down: it parts every joined channel with a fixed delay between
// sends, sends the disconnect notice, flips the running flag, requests cancellation
// of outstanding tasks and notifies every module of unload.
func (b *Bot) Stop() {
	if !atomic.CompareAndSwapInt32(&b.state, stateRunning, stateStopped) &&
		!atomic.CompareAndSwapInt32(&b.state, stateConnecting, stateStopped) {
		return
	}
	log.Printf("shutting down")
	for _, channel := range b.channelList() {
		channel.stopUpdateLoop()
		if err := b.conn.SendLine("PART #" + channel.Name); err != nil {
			log.Printf("cannot part #%s: %s", channel.Name, err.Error())
		}
		b.clock.Sleep(b.config.PartDelay)
	}
	if err := b.conn.SendLine("QUIT"); err != nil {
		log.Printf("cannot send disconnect notice: %s", err.Error())
	}
	b.mu.Lock()
	cancel := b.cancelFn
	b.channels = make(map[string]*Channel)
	b.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	b.modules.unloadAll()
	_ = b.conn.Close()
}

// Say posts a message to a channel
func (b *Bot) Say(channel string, text string) error {
	if channel == "" {
		return errors.New("no channel to send to")
	}
	if err := b.conn.SendLine(fmt.Sprintf("PRIVMSG #%s :%s", channel, text)); err != nil {
		return err
	}
	b.fire(EventPrivmsgSent, func(listener any) {
		if l, ok := listener.(PrivmsgSentListener); ok {
			l.OnPrivmsgSent(channel, text, b.config.Nick)
		}
	})
	return nil
}

// Whisper sends a private message to a user, relayed through the home channel
func (b *Bot) Whisper(user string, text string) error {
	channel := b.config.HomeChannel()
	if channel == "" {
		channel = "jtv"
	}
	if err := b.conn.SendLine(fmt.Sprintf("PRIVMSG #%s :/w %s %s", channel, user, text)); err != nil {
		return err
	}
	b.fire(EventWhisperSent, func(listener any) {
		if l, ok := listener.(WhisperSentListener); ok {
			l.OnWhisperSent(user, text, b.config.Nick)
		}
	})
	return nil
}

func (b *Bot) connect(ctx context.Context) error {
	log.Printf("logging in as %s", b.config.Nick)
	if err := b.conn.Connect(ctx); err != nil {
		return err
	}
	b.setupHelix()
	if err := b.authenticate(); err != nil {
		return err
	}
	b.requestCapabilities()
	for _, name := range b.config.Channels {
		channel := newChannel(name, b)
		b.mu.Lock()
		b.channels[name] = channel
		b.mu.Unlock()
		if err := b.conn.SendLine("JOIN #" + name); err != nil {
			return err
		}
		channel.startUpdateLoop(ctx)
	}
	return nil
}

// authenticate sends the credentials and validates the server greeting. Anything
// other than the 001 welcome is fatal; the caller terminates the process.
func (b *Bot) authenticate() error {
	if err := b.conn.SendLine("PASS " + b.config.Token); err != nil {
		return err
	}
	if err := b.conn.SendLine("NICK " + b.config.Nick); err != nil {
		return err
	}
	for {
		line, err := b.conn.ReadLine()
		if err != nil {
			return err
		}
		if line == "" {
			continue
		}
		if strings.Contains(line, " 001 ") {
			return nil
		}
		if strings.Contains(strings.ToLower(line), "authentication failed") {
			return fmt.Errorf("%w: %s", ErrAuthFailed, strings.TrimSpace(line))
		}
		return fmt.Errorf("%w: %s", ErrUnexpectedGreeting, strings.TrimSpace(line))
	}
}

// requestCapabilities asks Twitch for message tags, whispers and membership notices
func (b *Bot) requestCapabilities() {
	for _, capability := range []string{"commands", "tags", "membership"} {
		if err := b.conn.SendLine("CAP REQ :twitch.tv/" + capability); err != nil {
			log.Printf("cannot request capability %s: %s", capability, err.Error())
		}
	}
}

// setupHelix acquires an app access token and fetches the global emote list. Helix
// being unavailable degrades stream info lookups but is not fatal.
func (b *Bot) setupHelix() {
	if b.helix == nil {
		return
	}
	resp, err := b.helix.RequestAppAccessToken([]string{})
	if err != nil {
		log.Printf("cannot authenticate with helix, stream info disabled: %s", err.Error())
		b.helix = nil
		return
	}
	b.helix.SetAppAccessToken(resp.Data.AccessToken)
	emotes, err := b.helix.GetGlobalEmotes()
	if err != nil {
		log.Printf("cannot fetch global emotes: %s", err.Error())
		return
	}
	names := make([]string, 0, len(emotes.Data.Emotes))
	for _, emote := range emotes.Data.Emotes {
		names = append(names, emote.Name)
	}
	b.mu.Lock()
	b.emotes = names
	b.mu.Unlock()
}

// readLoop is the single-threaded cooperative loop: exactly one blocking read per
// iteration, strict arrival-order classification, reactions scheduled as independent
// tasks. The loop never waits for a reaction to finish.
func (b *Bot) readLoop() error {
	for {
		line, err := b.conn.ReadLine()
		if err != nil {
			if !b.running() {
				return nil
			}
			return err
		}
		if !b.running() {
			return nil
		}
		if line == "" {
			continue // transient empty read
		}
		msg := parseMessage(line)
		if msg == nil {
			continue
		}
		msg.bot = b
		msg.Channel = b.Channel(msg.ChannelName)
		b.dispatch(msg)
	}
}

// dispatch schedules at most one primary reaction for the message, plus the
// corresponding event deliveries
func (b *Bot) dispatch(msg *Message) {
	if msg.Type == TypePing {
		if err := b.conn.SendPong(); err != nil {
			log.Printf("cannot send pong: %s", err.Error())
		}
		return // the pong is the sole reaction, no event fires
	}
	b.fire(EventRawMessage, func(listener any) {
		if l, ok := listener.(RawMessageListener); ok {
			l.OnRawMessage(msg)
		}
	})
	var cmd *Command
	if len(msg.Parts) > 0 && msg.IsUserMessage() && !strings.EqualFold(msg.Author, b.config.Nick) {
		var err error
		if cmd, err = b.commands.lookup(b.ctx, msg.ChannelName, msg.Parts[0]); err != nil {
			log.Printf("cannot look up command %s: %s", msg.Parts[0], err.Error())
		}
	}
	switch {
	case cmd != nil && commandContextMatches(msg, cmd):
		go b.runCommandTask(msg, cmd)
	case msg.Type == TypeWhisper:
		b.fire(EventWhisperReceived, func(listener any) {
			if l, ok := listener.(WhisperListener); ok {
				l.OnWhisperReceived(msg)
			}
		})
	case msg.Type == TypePrivmsg:
		b.fire(EventPrivmsgReceived, func(listener any) {
			if l, ok := listener.(PrivmsgListener); ok {
				l.OnPrivmsgReceived(msg)
			}
		})
	case msg.Type == TypeUserJoin && strings.EqualFold(msg.Author, b.config.Nick):
		channel := msg.Channel
		b.fire(EventChannelJoined, func(listener any) {
			if l, ok := listener.(ChannelJoinedListener); ok {
				l.OnChannelJoined(channel)
			}
		})
	case msg.Type == TypeUserJoin:
		b.fire(EventUserJoin, func(listener any) {
			if l, ok := listener.(UserJoinListener); ok {
				l.OnUserJoin(msg)
			}
		})
	case msg.Type == TypeUserPart:
		b.fire(EventUserPart, func(listener any) {
			if l, ok := listener.(UserPartListener); ok {
				l.OnUserPart(msg)
			}
		})
	case msg.Type == TypeSubscription:
		b.fire(EventChannelSubscription, func(listener any) {
			if l, ok := listener.(SubscriptionListener); ok {
				l.OnChannelSubscription(msg)
			}
		})
	case msg.Type == TypeRaid:
		viewers := msg.Tags.RaidViewerCount()
		b.fire(EventChannelRaided, func(listener any) {
			if l, ok := listener.(RaidListener); ok {
				l.OnChannelRaided(msg, viewers)
			}
		})
	case msg.Type == TypeChannelPoints:
		rewardID := msg.Tags.RewardID()
		b.fire(EventChannelPointsRedemption, func(listener any) {
			if l, ok := listener.(ChannelPointsListener); ok {
				l.OnChannelPointsRedemption(msg, rewardID)
			}
		})
	}
	if msg.IsPrivmsg() && msg.Tags.Bits() > 0 {
		bits := msg.Tags.Bits()
		b.fire(EventBitsDonated, func(listener any) {
			if l, ok := listener.(BitsListener); ok {
				l.OnBitsDonated(msg, bits)
			}
		})
	}
}

func commandContextMatches(msg *Message, cmd *Command) bool {
	return (msg.IsWhisper() && cmd.Context&ContextWhisper != 0) ||
		(msg.IsPrivmsg() && cmd.Context&ContextChannel != 0)
}

func (b *Bot) runCommandTask(msg *Message, cmd *Command) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[command %s] panicked: %v", cmd.Fullname, r)
		}
	}()
	b.runCommand(msg, cmd)
}

// runCommand applies the five gates in order and executes the command body only
// if all of them pass. The cooldown record is written after successful execution
// only; no gated or failed invocation ever touches it.
func (b *Bot) runCommand(msg *Message, cmd *Command) {
	if !b.checkPermission(msg, cmd) {
		b.replyErr(msg.ReplyWhisper(fmt.Sprintf(permissionDeniedMessage, cmd.Fullname, msg.ChannelName)))
		return
	}
	if !cmd.custom && b.disabled.IsDisabled(msg.ChannelName, cmd.Fullname) {
		b.replyErr(msg.Reply(fmt.Sprintf(commandDisabledMessage, cmd.Fullname)))
		return
	}
	if !cmd.custom && !b.whitelist.IsWhitelisted(cmd.Fullname) {
		if b.whitelist.DenyMessageEnabled() {
			b.replyErr(msg.Reply(fmt.Sprintf(notWhitelistedMessage, cmd.Fullname)))
		}
		return
	}
	bypass := cmd.CooldownBypass != "" && b.perms.HasPermission(msg.ChannelName, msg.Author, cmd.CooldownBypass)
	if cmd.Cooldown > 0 && !bypass {
		onCooldown, err := b.cooldowns.IsOnCooldown(b.ctx, msg.ChannelName, cmd.Fullname, cmd.Cooldown)
		if err != nil {
			log.Printf("[command %s] cannot check cooldown: %s", cmd.Fullname, err.Error())
		} else if onCooldown {
			since, _ := b.cooldowns.TimeSinceLast(b.ctx, msg.ChannelName, cmd.Fullname)
			remaining := int(math.Ceil((cmd.Cooldown - since).Seconds()))
			b.replyErr(msg.Reply(fmt.Sprintf(onCooldownMessage, cmd.Fullname, remaining)))
			return
		}
	}
	if !b.fireCheck(EventBeforeCommandExecute, func(listener any) bool {
		if l, ok := listener.(BeforeCommandListener); ok {
			return l.OnBeforeCommandExecute(msg, cmd)
		}
		return true
	}) {
		return // silent veto
	}
	var args []string
	if len(msg.Parts) > 1 {
		args = msg.Parts[1:]
	}
	if err := cmd.Fn(msg, args); err != nil {
		if errors.Is(err, ErrInvalidArgs) {
			b.replyErr(msg.Reply(strings.TrimSpace(fmt.Sprintf(invalidArgsMessage, err.Error(), cmd.Fullname, cmd.Syntax))))
		} else {
			log.Printf("[command %s] failed: %s", cmd.Fullname, err.Error())
		}
		return
	}
	if cmd.Cooldown > 0 && !bypass {
		if err := b.cooldowns.RecordExecution(b.ctx, msg.ChannelName, cmd.Fullname); err != nil {
			log.Printf("[command %s] cannot record execution: %s", cmd.Fullname, err.Error())
		}
	}
	b.fire(EventAfterCommandExecute, func(listener any) {
		if l, ok := listener.(AfterCommandListener); ok {
			l.OnAfterCommandExecute(msg, cmd)
		}
	})
}

// checkPermission combines the hook populations with the static permission store
// check. The static check only applies if the command requires a permission.
func (b *Bot) checkPermission(msg *Message, cmd *Command) bool {
	allowed := b.fireCheck(EventPermissionCheck, func(listener any) bool {
		if l, ok := listener.(PermissionChecker); ok {
			return l.OnPermissionCheck(msg, cmd)
		}
		return true
	})
	if cmd.Permission != "" {
		allowed = allowed && b.perms.HasPermission(msg.ChannelName, msg.Author, cmd.Permission)
	}
	return allowed
}

func (b *Bot) running() bool {
	return atomic.LoadInt32(&b.state) == stateRunning
}

func (b *Bot) channelList() []*Channel {
	b.mu.Lock()
	defer b.mu.Unlock()
	channels := make([]*Channel, 0, len(b.channels))
	for _, name := range b.config.Channels {
		if channel, ok := b.channels[name]; ok {
			channels = append(channels, channel)
		}
	}
	return channels
}

func (b *Bot) replyErr(err error) {
	if err != nil {
		log.Printf("cannot send reply: %s", err.Error())
	}
}

// defaultHooks is the bot's own listener population. It logs chat traffic; replace
// it with SetHooks to change the bot's built-in behavior.
type defaultHooks struct {
	bot *Bot
}

func (h *defaultHooks) OnConnected() {
	log.Printf("connected as %s", h.bot.config.Nick)
}

func (h *defaultHooks) OnPrivmsgReceived(msg *Message) {
	log.Printf("%s(#%s): %s", msg.Author, msg.ChannelName, msg.Text)
}

func (h *defaultHooks) OnWhisperReceived(msg *Message) {
	log.Printf("%s (whisper): %s", msg.Author, msg.Text)
}

func (h *defaultHooks) OnPrivmsgSent(channel string, text string, sender string) {
	log.Printf("%s(#%s): %s", sender, channel, text)
}

func (h *defaultHooks) OnWhisperSent(receiver string, text string, sender string) {
	log.Printf("%s -> %s: %s", sender, receiver, text)
}

func (h *defaultHooks) OnChannelJoined(channel *Channel) {
	if channel != nil {
		log.Printf("joined #%s", channel.Name)
	}
}
