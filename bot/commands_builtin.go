package bot

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tawnybot/tawny/store"
)

const (
	permissionManageCommands = "manage_commands"
	permissionAdmin          = "admin"
)

// registerBuiltinCommands populates the registry once at startup
func (b *Bot) registerBuiltinCommands() {
	b.commands.register(&Command{
		Name:     "ping",
		Context:  ContextBoth,
		Cooldown: 5 * time.Second,
		Help:     "checks if the bot is alive",
		Fn: func(msg *Message, _ []string) error {
			return msg.Reply("pong")
		},
	})
	b.commands.register(&Command{
		Name:    "commands",
		Context: ContextBoth,
		Help:    "lists all commands available in this channel",
		Fn:      b.execCommands,
	})
	b.commands.register(&Command{
		Name:    "help",
		Context: ContextBoth,
		Syntax:  "<command>",
		Help:    "shows the syntax and description of a command",
		Fn:      b.execHelp,
	})
	b.commands.register(&Command{
		Name:       "addcmd",
		Context:    ContextChannel,
		Permission: permissionManageCommands,
		Syntax:     "<name> <response...>",
		Help:       "adds a custom command to this channel",
		Fn:         b.execAddCommand,
	})
	b.commands.register(&Command{
		Name:       "delcmd",
		Context:    ContextChannel,
		Permission: permissionManageCommands,
		Syntax:     "<name>",
		Help:       "deletes a custom command from this channel",
		Fn:         b.execDelCommand,
	})
	b.commands.register(&Command{
		Name:       "disablecmd",
		Context:    ContextChannel,
		Permission: permissionManageCommands,
		Syntax:     "<command>",
		Help:       "disables a built-in command for this channel",
		Fn:         b.execDisableCommand,
	})
	b.commands.register(&Command{
		Name:       "enablecmd",
		Context:    ContextChannel,
		Permission: permissionManageCommands,
		Syntax:     "<command>",
		Help:       "re-enables a built-in command for this channel",
		Fn:         b.execEnableCommand,
	})
	b.commands.register(&Command{
		Name:     "uptime",
		Context:  ContextChannel,
		Cooldown: 10 * time.Second,
		Help:     "shows how long the stream has been live",
		Fn:       b.execUptime,
	})
	b.commands.register(&Command{
		Name:       "reloadmod",
		Context:    ContextBoth,
		Permission: permissionAdmin,
		Syntax:     "<module>",
		Help:       "hot-reloads an extension module",
		Fn:         b.execReloadModule,
	})
}

func (b *Bot) execCommands(msg *Message, _ []string) error {
	names := b.commands.names()
	if msg.ChannelName != "" {
		customs, err := b.commands.custom.List(b.ctx, msg.ChannelName)
		if err != nil {
			return err
		}
		for _, custom := range customs {
			names = append(names, b.config.CommandPrefix+custom.Name)
		}
	}
	sort.Strings(names)
	return msg.Reply("available commands: " + strings.Join(names, ", "))
}

func (b *Bot) execHelp(msg *Message, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: no command given", ErrInvalidArgs)
	}
	cmd, err := b.commands.lookup(b.ctx, msg.ChannelName, normalizeCommandName(args[0], b.config.CommandPrefix))
	if err != nil {
		return err
	}
	if cmd == nil {
		return msg.Reply(fmt.Sprintf("unknown command %s", args[0]))
	}
	if cmd.custom {
		return msg.Reply(fmt.Sprintf("%s is a custom command", cmd.Fullname))
	}
	return msg.Reply(strings.TrimSpace(fmt.Sprintf("%s %s - %s", cmd.Fullname, cmd.Syntax, cmd.Help)))
}

func (b *Bot) execAddCommand(msg *Message, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: expected a command name and a response", ErrInvalidArgs)
	}
	name := strings.TrimPrefix(strings.ToLower(args[0]), b.config.CommandPrefix)
	command := &store.CustomCommand{
		Channel:  msg.ChannelName,
		Name:     name,
		Response: strings.Join(args[1:], " "),
	}
	if err := b.commands.custom.Add(b.ctx, command); err != nil {
		return err
	}
	return msg.Reply(fmt.Sprintf("added command %s%s", b.config.CommandPrefix, name))
}

func (b *Bot) execDelCommand(msg *Message, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: no command given", ErrInvalidArgs)
	}
	name := strings.TrimPrefix(strings.ToLower(args[0]), b.config.CommandPrefix)
	if err := b.commands.custom.Delete(b.ctx, msg.ChannelName, name); err != nil {
		return err
	}
	return msg.Reply(fmt.Sprintf("deleted command %s%s", b.config.CommandPrefix, name))
}

func (b *Bot) execDisableCommand(msg *Message, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: no command given", ErrInvalidArgs)
	}
	fullname := normalizeCommandName(args[0], b.config.CommandPrefix)
	if _, ok := b.commands.commands[strings.ToLower(fullname)]; !ok {
		return fmt.Errorf("%w: %s is not a built-in command", ErrInvalidArgs, args[0])
	}
	b.disabled.Disable(msg.ChannelName, fullname)
	return msg.Reply(fmt.Sprintf("%s is now disabled for this channel", fullname))
}

func (b *Bot) execEnableCommand(msg *Message, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: no command given", ErrInvalidArgs)
	}
	fullname := normalizeCommandName(args[0], b.config.CommandPrefix)
	b.disabled.Enable(msg.ChannelName, fullname)
	return msg.Reply(fmt.Sprintf("%s is now enabled for this channel", fullname))
}

func (b *Bot) execUptime(msg *Message, _ []string) error {
	if msg.Channel == nil {
		return msg.Reply("stream info is not available")
	}
	live, _, _, uptime := msg.Channel.StreamInfo()
	if !live {
		return msg.Reply(fmt.Sprintf("#%s is not live right now", msg.ChannelName))
	}
	return msg.Reply(fmt.Sprintf("#%s has been live for %s", msg.ChannelName, uptime.Round(time.Minute)))
}

func (b *Bot) execReloadModule(msg *Message, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: no module given", ErrInvalidArgs)
	}
	if err := b.modules.reload(args[0]); err != nil {
		return msg.Reply(fmt.Sprintf("cannot reload module %s: %s", args[0], err.Error()))
	}
	b.fire(EventModuleReloaded, func(listener any) {
		if l, ok := listener.(ModuleReloadedListener); ok {
			l.OnModuleReloaded(args[0])
		}
	})
	return msg.Reply(fmt.Sprintf("reloaded module %s", args[0]))
}

// normalizeCommandName ensures a user-supplied command name carries the prefix
func normalizeCommandName(name string, prefix string) string {
	return prefix + strings.TrimPrefix(strings.ToLower(name), prefix)
}
