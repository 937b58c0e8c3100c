package bot

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/tawnybot/tawny/store"
)

// ErrInvalidArgs marks a recovered, user-visible argument failure. Command bodies
// wrap it with the concrete reason; the dispatcher replies with the command syntax.
var ErrInvalidArgs = errors.New("invalid arguments")

// Command is a built-in command descriptor, owned by the registry for the process
// lifetime. Custom commands are wrapped into the same shape by the lookup path.
type Command struct {
	Name           string
	Fullname       string
	Context        CommandContext
	Permission     string
	Cooldown       time.Duration
	CooldownBypass string
	Syntax         string
	Help           string
	Fn             func(msg *Message, args []string) error
	custom         bool
}

// commandRegistry maps command fullnames to built-in descriptors and falls back to
// the per-channel custom command store. Registration happens before dispatch begins,
// so concurrent lookups need no locking.
type commandRegistry struct {
	prefix   string
	custom   store.Commands
	commands map[string]*Command
}

func newCommandRegistry(prefix string, custom store.Commands) *commandRegistry {
	return &commandRegistry{
		prefix:   prefix,
		custom:   custom,
		commands: make(map[string]*Command),
	}
}

// register adds a built-in command, deriving its fullname from the configured prefix
func (r *commandRegistry) register(cmd *Command) {
	cmd.Fullname = r.prefix + cmd.Name
	r.commands[strings.ToLower(cmd.Fullname)] = cmd
}

// lookup resolves the first token of a message to a command: built-ins first, then
// the channel's custom command store. Returns nil if neither matches.
func (r *commandRegistry) lookup(ctx context.Context, channel string, firstToken string) (*Command, error) {
	token := strings.ToLower(firstToken)
	if cmd, ok := r.commands[token]; ok {
		return cmd, nil
	}
	name := strings.TrimPrefix(token, r.prefix)
	if name == token {
		return nil, nil // not a command invocation
	}
	record, err := r.custom.Get(ctx, channel, name)
	if err != nil || record == nil {
		return nil, err
	}
	return newCustomCommandAction(record, r.prefix), nil
}

// names returns the fullnames of all built-in commands
func (r *commandRegistry) names() []string {
	names := make([]string, 0, len(r.commands))
	for _, cmd := range r.commands {
		names = append(names, cmd.Fullname)
	}
	return names
}

// newCustomCommandAction wraps a persisted custom command record behind the built-in
// execution contract. Custom commands skip the disabled and whitelist gates.
func newCustomCommandAction(record *store.CustomCommand, prefix string) *Command {
	return &Command{
		Name:     record.Name,
		Fullname: prefix + record.Name,
		Context:  ContextChannel,
		custom:   true,
		Fn: func(msg *Message, _ []string) error {
			return msg.Reply(expandResponse(record.Response, msg))
		},
	}
}

// expandResponse substitutes the placeholders supported in custom command responses
func expandResponse(response string, msg *Message) string {
	replacer := strings.NewReplacer("{user}", msg.Author, "{channel}", msg.ChannelName)
	return replacer.Replace(response)
}
