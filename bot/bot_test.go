package bot

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/tawnybot/tawny/config"
	"github.com/tawnybot/tawny/store"
	"github.com/tawnybot/tawny/util"
)

const maxWaitTime = 5 * time.Second

func createConfig() *config.Config {
	conf := config.New("tawny", "mem")
	conf.Channels = []string{"mainchan"}
	conf.PartDelay = time.Millisecond
	return conf
}

// startTestBot creates a bot over the in-memory transport, applies the given setup
// (register commands, subscribe listeners, swap stores), injects the server welcome
// and runs the bot until it has joined its channel
func startTestBot(t *testing.T, conf *config.Config, setup func(robot *Bot)) (*Bot, *memConn) {
	t.Helper()
	robot, err := New(conf)
	if err != nil {
		t.Fatal(err)
	}
	if setup != nil {
		setup(robot)
	}
	conn := robot.conn.(*memConn)
	conn.Line(":tmi.twitch.tv 001 tawny :Welcome, GLHF!")
	go func() { _ = robot.Run() }()
	if !conn.SentContainsWait("JOIN #mainchan", maxWaitTime) {
		t.Fatal("bot did not join its channel")
	}
	return robot, conn
}

func grantPermission(robot *Bot, user string, permissions ...string) {
	group := &store.PermissionGroup{Members: []string{user}, Permissions: permissions}
	robot.perms.(*store.MemoryPermissions).Grant("mainchan", user, group)
}

func privmsg(conn *memConn, user string, text string) {
	conn.Line(fmt.Sprintf(":%s!%s@%s.tmi.twitch.tv PRIVMSG #mainchan :%s", user, user, user, text))
}

func sentCount(conn *memConn, needle string) int {
	count := 0
	for _, line := range conn.Sent() {
		if strings.Contains(line, needle) {
			count++
		}
	}
	return count
}

func TestBotPingPong(t *testing.T) {
	listener := newTestListener()
	robot, conn := startTestBot(t, createConfig(), func(robot *Bot) {
		robot.Subscribe(listener)
	})
	defer robot.Stop()

	conn.Line("PING :tmi.twitch.tv")
	assert.True(t, conn.SentContainsWait(pongLine, maxWaitTime))

	// the pong is the sole reaction, not even the raw message event fires
	time.Sleep(100 * time.Millisecond)
	listener.snapshot(func() {
		assert.Equal(t, 0, listener.raws)
	})
}

func TestBotCommandCooldown(t *testing.T) {
	fakeClock := clockwork.NewFakeClock()
	cooldowns := store.NewMemoryCooldowns(fakeClock)
	robot, conn := startTestBot(t, createConfig(), func(robot *Bot) {
		robot.cooldowns = cooldowns
	})
	defer robot.Stop()

	privmsg(conn, "alice", "!ping")
	assert.True(t, conn.SentContainsWait("PRIVMSG #mainchan :pong", maxWaitTime))
	assert.True(t, util.WaitUntil(func() bool {
		onCooldown, _ := cooldowns.IsOnCooldown(context.Background(), "mainchan", "!ping", 5*time.Second)
		return onCooldown
	}, maxWaitTime))

	fakeClock.Advance(2 * time.Second)
	privmsg(conn, "alice", "!ping")
	assert.True(t, conn.SentContainsWait("!ping is on cooldown, seconds left: 3", maxWaitTime))
	assert.Equal(t, 1, sentCount(conn, "PRIVMSG #mainchan :pong"))

	fakeClock.Advance(3 * time.Second)
	privmsg(conn, "alice", "!ping")
	assert.True(t, util.WaitUntil(func() bool {
		return sentCount(conn, "PRIVMSG #mainchan :pong") == 2
	}, maxWaitTime))
}

func TestBotCooldownBypass(t *testing.T) {
	fakeClock := clockwork.NewFakeClock()
	cooldowns := store.NewMemoryCooldowns(fakeClock)
	robot, conn := startTestBot(t, createConfig(), func(robot *Bot) {
		robot.cooldowns = cooldowns
		robot.RegisterCommand(&Command{
			Name:           "spam",
			Context:        ContextChannel,
			Cooldown:       5 * time.Second,
			CooldownBypass: "bypass_cooldown",
			Fn: func(msg *Message, _ []string) error {
				return msg.Reply("spam!")
			},
		})
		grantPermission(robot, "alice", "bypass_cooldown")
	})
	defer robot.Stop()

	privmsg(conn, "alice", "!spam")
	privmsg(conn, "alice", "!spam")
	assert.True(t, util.WaitUntil(func() bool {
		return sentCount(conn, "PRIVMSG #mainchan :spam!") == 2
	}, maxWaitTime))

	// bypassed invocations never touch the cooldown store
	onCooldown, err := cooldowns.IsOnCooldown(context.Background(), "mainchan", "!spam", 5*time.Second)
	assert.NoError(t, err)
	assert.False(t, onCooldown)
}

func TestBotPermissionDenied(t *testing.T) {
	robot, conn := startTestBot(t, createConfig(), nil)
	defer robot.Stop()

	privmsg(conn, "alice", "!addcmd greet hello")
	assert.True(t, conn.SentContainsWait("PRIVMSG #mainchan :/w alice you do not have permission to execute !addcmd in #mainchan", maxWaitTime))

	cmd, err := robot.commands.lookup(context.Background(), "mainchan", "!greet")
	assert.NoError(t, err)
	assert.Nil(t, cmd)
}

func TestBotPermissionHookDenied(t *testing.T) {
	listener := newTestListener()
	listener.allowPermission = false
	robot, conn := startTestBot(t, createConfig(), func(robot *Bot) {
		robot.Subscribe(listener)
	})
	defer robot.Stop()

	privmsg(conn, "alice", "!ping")
	assert.True(t, conn.SentContainsWait("/w alice you do not have permission to execute !ping", maxWaitTime))
	assert.False(t, conn.SentContains("PRIVMSG #mainchan :pong"))
}

func TestBotBeforeExecuteVeto(t *testing.T) {
	listener := newTestListener()
	listener.allowBefore = false
	fakeClock := clockwork.NewFakeClock()
	cooldowns := store.NewMemoryCooldowns(fakeClock)
	robot, conn := startTestBot(t, createConfig(), func(robot *Bot) {
		robot.Subscribe(listener)
		robot.cooldowns = cooldowns
	})
	defer robot.Stop()

	privmsg(conn, "alice", "!ping")
	assert.True(t, util.WaitUntil(func() bool {
		vetoed := false
		listener.snapshot(func() { vetoed = listener.befores > 0 })
		return vetoed
	}, maxWaitTime))

	// the veto is silent and leaves no trace in the cooldown store
	time.Sleep(100 * time.Millisecond)
	assert.False(t, conn.SentContains("pong"))
	onCooldown, err := cooldowns.IsOnCooldown(context.Background(), "mainchan", "!ping", 5*time.Second)
	assert.NoError(t, err)
	assert.False(t, onCooldown)
}

func TestBotManageCustomCommands(t *testing.T) {
	robot, conn := startTestBot(t, createConfig(), func(robot *Bot) {
		grantPermission(robot, "alice", "manage_commands")
	})
	defer robot.Stop()

	privmsg(conn, "alice", "!addcmd greet hello {user}, welcome to {channel}")
	assert.True(t, conn.SentContainsWait("added command !greet", maxWaitTime))

	privmsg(conn, "bob", "!greet")
	assert.True(t, conn.SentContainsWait("PRIVMSG #mainchan :hello bob, welcome to mainchan", maxWaitTime))

	privmsg(conn, "alice", "!delcmd greet")
	assert.True(t, conn.SentContainsWait("deleted command !greet", maxWaitTime))

	cmd, err := robot.commands.lookup(context.Background(), "mainchan", "!greet")
	assert.NoError(t, err)
	assert.Nil(t, cmd)
}

func TestBotDisableEnableCommand(t *testing.T) {
	robot, conn := startTestBot(t, createConfig(), func(robot *Bot) {
		grantPermission(robot, "alice", "manage_commands")
	})
	defer robot.Stop()

	privmsg(conn, "alice", "!disablecmd ping")
	assert.True(t, conn.SentContainsWait("!ping is now disabled for this channel", maxWaitTime))

	privmsg(conn, "bob", "!ping")
	assert.True(t, conn.SentContainsWait("PRIVMSG #mainchan :!ping is disabled for this channel", maxWaitTime))
	assert.False(t, conn.SentContains("PRIVMSG #mainchan :pong"))

	privmsg(conn, "alice", "!enablecmd ping")
	assert.True(t, conn.SentContainsWait("!ping is now enabled for this channel", maxWaitTime))

	privmsg(conn, "bob", "!ping")
	assert.True(t, conn.SentContainsWait("PRIVMSG #mainchan :pong", maxWaitTime))
}

func TestBotWhitelist(t *testing.T) {
	conf := createConfig()
	conf.WhitelistEnabled = true
	conf.WhitelistedCommands = []string{"!ping"}
	robot, conn := startTestBot(t, conf, func(robot *Bot) {
		customs := robot.commands.custom
		_ = customs.Add(context.Background(), &store.CustomCommand{Channel: "mainchan", Name: "hello", Response: "hi {user}!"})
	})
	defer robot.Stop()

	// not whitelisted, deny message disabled: dropped without a reply
	privmsg(conn, "alice", "!commands")
	time.Sleep(150 * time.Millisecond)
	assert.False(t, conn.SentContains("available commands"))

	// whitelisted built-in still runs
	privmsg(conn, "alice", "!ping")
	assert.True(t, conn.SentContainsWait("PRIVMSG #mainchan :pong", maxWaitTime))

	// custom commands are exempt from the whitelist
	privmsg(conn, "alice", "!hello")
	assert.True(t, conn.SentContainsWait("PRIVMSG #mainchan :hi alice!", maxWaitTime))
}

func TestBotWhitelistDenyMessage(t *testing.T) {
	conf := createConfig()
	conf.WhitelistEnabled = true
	conf.WhitelistedCommands = []string{"!ping"}
	conf.WhitelistDenyMessage = true
	robot, conn := startTestBot(t, conf, nil)
	defer robot.Stop()

	privmsg(conn, "alice", "!commands")
	assert.True(t, conn.SentContainsWait("!commands is not whitelisted for this channel", maxWaitTime))
}

func TestBotWhisperCommand(t *testing.T) {
	robot, conn := startTestBot(t, createConfig(), nil)
	defer robot.Stop()

	conn.Line(":alice!alice@alice.tmi.twitch.tv WHISPER tawny :!ping")
	assert.True(t, conn.SentContainsWait("PRIVMSG #mainchan :/w alice pong", maxWaitTime))
}

func TestBotChannelOnlyCommandViaWhisper(t *testing.T) {
	listener := newTestListener()
	robot, conn := startTestBot(t, createConfig(), func(robot *Bot) {
		robot.Subscribe(listener)
	})
	defer robot.Stop()

	// !uptime only runs in channel context; a whisper falls through to the whisper event
	conn.Line(":alice!alice@alice.tmi.twitch.tv WHISPER tawny :!uptime")
	assert.True(t, util.WaitUntil(func() bool {
		received := false
		listener.snapshot(func() { received = len(listener.whispers) == 1 && listener.whispers[0] == "!uptime" })
		return received
	}, maxWaitTime))
	assert.False(t, conn.SentContains("/w alice"))
}

func TestBotIgnoresOwnMessages(t *testing.T) {
	listener := newTestListener()
	robot, conn := startTestBot(t, createConfig(), func(robot *Bot) {
		robot.Subscribe(listener)
	})
	defer robot.Stop()

	privmsg(conn, "tawny", "!ping")
	assert.True(t, util.WaitUntil(func() bool {
		received := false
		listener.snapshot(func() { received = len(listener.privmsgs) == 1 })
		return received
	}, maxWaitTime))
	assert.False(t, conn.SentContains("PRIVMSG #mainchan :pong"))
}

func TestBotInvalidArgsReply(t *testing.T) {
	robot, conn := startTestBot(t, createConfig(), nil)
	defer robot.Stop()

	privmsg(conn, "alice", "!help")
	assert.True(t, conn.SentContainsWait("usage: !help <command>", maxWaitTime))

	privmsg(conn, "alice", "!help ping")
	assert.True(t, conn.SentContainsWait("checks if the bot is alive", maxWaitTime))
}

func TestBotEventDispatch(t *testing.T) {
	listener := newTestListener()
	robot, conn := startTestBot(t, createConfig(), func(robot *Bot) {
		robot.Subscribe(listener)
	})
	defer robot.Stop()

	conn.Line(":tawny!tawny@tawny.tmi.twitch.tv JOIN #mainchan")
	conn.Line(":alice!alice@alice.tmi.twitch.tv JOIN #mainchan")
	conn.Line(":alice!alice@alice.tmi.twitch.tv PART #mainchan")
	conn.Line("@bits=100 :alice!alice@alice.tmi.twitch.tv PRIVMSG #mainchan :cheer100 great stream")
	conn.Line(`@msg-id=resub;system-msg=alice\ssubscribed! :tmi.twitch.tv USERNOTICE #mainchan :great channel`)
	conn.Line("@msg-id=raid;msg-param-viewerCount=42 :tmi.twitch.tv USERNOTICE #mainchan")
	conn.Line("@custom-reward-id=abc-123 :alice!alice@alice.tmi.twitch.tv PRIVMSG #mainchan :my reward")

	assert.True(t, util.WaitUntil(func() bool {
		done := false
		listener.snapshot(func() {
			done = len(listener.channelsJoined) == 1 &&
				len(listener.userJoins) == 1 &&
				len(listener.userParts) == 1 &&
				len(listener.bits) == 1 &&
				listener.subscriptions == 1 &&
				len(listener.raids) == 1 &&
				len(listener.redemptions) == 1 &&
				listener.raws == 7
		})
		return done
	}, maxWaitTime))

	listener.snapshot(func() {
		assert.Equal(t, []string{"mainchan"}, listener.channelsJoined)
		assert.Equal(t, []string{"alice"}, listener.userJoins)
		assert.Equal(t, []string{"alice"}, listener.userParts)
		assert.Equal(t, []int{100}, listener.bits)
		assert.Equal(t, []int{42}, listener.raids)
		assert.Equal(t, []string{"abc-123"}, listener.redemptions)
		assert.Equal(t, 7, listener.raws)
		assert.Empty(t, listener.privmsgs) // bits and redemptions are not plain chat
	})
}

func TestBotReloadModuleCommand(t *testing.T) {
	listener := newTestListener()
	var instances []*testModule
	robot, conn := startTestBot(t, createConfig(), func(robot *Bot) {
		robot.Subscribe(listener)
		grantPermission(robot, "alice", "admin")
		_ = robot.LoadModule(func() Module {
			instance := &testModule{name: "espresso"}
			instances = append(instances, instance)
			return instance
		})
	})
	defer robot.Stop()

	privmsg(conn, "alice", "!reloadmod espresso")
	assert.True(t, conn.SentContainsWait("reloaded module espresso", maxWaitTime))
	assert.True(t, util.WaitUntil(func() bool {
		reloaded := false
		listener.snapshot(func() { reloaded = len(listener.reloaded) == 1 })
		return reloaded
	}, maxWaitTime))
	assert.Len(t, instances, 2)

	privmsg(conn, "alice", "!reloadmod missing")
	assert.True(t, conn.SentContainsWait("cannot reload module missing", maxWaitTime))
}

func TestBotAuthFailure(t *testing.T) {
	robot, err := New(createConfig())
	if err != nil {
		t.Fatal(err)
	}
	conn := robot.conn.(*memConn)
	conn.Line(":tmi.twitch.tv NOTICE * :Login authentication failed")
	assert.ErrorIs(t, robot.Run(), ErrAuthFailed)
}

func TestBotUnexpectedGreeting(t *testing.T) {
	robot, err := New(createConfig())
	if err != nil {
		t.Fatal(err)
	}
	conn := robot.conn.(*memConn)
	conn.Line(":tmi.twitch.tv NOTICE * :Improperly formatted auth")
	assert.ErrorIs(t, robot.Run(), ErrUnexpectedGreeting)
}

func TestBotStop(t *testing.T) {
	module := &testModule{name: "espresso"}
	robot, conn := startTestBot(t, createConfig(), func(robot *Bot) {
		_ = robot.LoadModule(func() Module { return module })
	})

	assert.Error(t, robot.Run()) // already started

	robot.Stop()
	assert.True(t, conn.SentContains("PART #mainchan"))
	assert.True(t, conn.SentContains("QUIT"))
	assert.EqualValues(t, 1, module.unloads)
	assert.Nil(t, robot.Channel("mainchan"))

	robot.Stop() // idempotent
	assert.Equal(t, 1, sentCount(conn, "QUIT"))
}
