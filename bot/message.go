package bot

import (
	"strconv"
	"strings"
)

// subscriptionMsgIDs lists the USERNOTICE msg-id values that count as a subscription event
var subscriptionMsgIDs = map[string]bool{
	"sub":                 true,
	"resub":               true,
	"subgift":             true,
	"anonsubgift":         true,
	"submysterygift":      true,
	"giftpaidupgrade":     true,
	"anongiftpaidupgrade": true,
}

// Tags holds the structured `@key=value;...` metadata prefixed to a protocol line
type Tags struct {
	values map[string]string
}

// parseTags parses the semicolon-delimited key=value tag list (without the leading '@')
func parseTags(s string) *Tags {
	values := make(map[string]string)
	for _, pair := range strings.Split(s, ";") {
		key, value, _ := strings.Cut(pair, "=")
		if key != "" {
			values[key] = value
		}
	}
	return &Tags{values: values}
}

// Get returns the raw value of a tag, or an empty string
func (t *Tags) Get(key string) string {
	if t == nil {
		return ""
	}
	return t.values[key]
}

// Bits returns the value of the bits tag, or zero
func (t *Tags) Bits() int {
	bits, _ := strconv.Atoi(t.Get("bits"))
	return bits
}

// MsgID returns the msg-id tag identifying a USERNOTICE subtype
func (t *Tags) MsgID() string {
	return t.Get("msg-id")
}

// RewardID returns the channel points reward id, if the message redeemed one
func (t *Tags) RewardID() string {
	return t.Get("custom-reward-id")
}

// RaidViewerCount returns the number of viewers arriving with a raid
func (t *Tags) RaidViewerCount() int {
	count, _ := strconv.Atoi(t.Get("msg-param-viewerCount"))
	return count
}

// DisplayName returns the sender's display name
func (t *Tags) DisplayName() string {
	return unescapeTag(t.Get("display-name"))
}

// UserID returns the sender's Twitch user id
func (t *Tags) UserID() string {
	return t.Get("user-id")
}

// Badges returns the names of the sender's chat badges
func (t *Tags) Badges() []string {
	raw := t.Get("badges")
	if raw == "" {
		return nil
	}
	badges := make([]string, 0)
	for _, badge := range strings.Split(raw, ",") {
		name, _, _ := strings.Cut(badge, "/")
		badges = append(badges, name)
	}
	return badges
}

// IsMod returns true if the sender is a channel moderator
func (t *Tags) IsMod() bool {
	return t.Get("mod") == "1"
}

// IsSubscriber returns true if the sender is subscribed to the channel
func (t *Tags) IsSubscriber() bool {
	return t.Get("subscriber") == "1"
}

// SystemMsg returns the server-rendered notice text of a USERNOTICE
func (t *Tags) SystemMsg() string {
	return unescapeTag(t.Get("system-msg"))
}

// unescapeTag reverses the IRCv3 tag value escaping
func unescapeTag(s string) string {
	replacer := strings.NewReplacer(`\s`, " ", `\:`, ";", `\\`, `\`, `\r`, "\r", `\n`, "\n")
	return replacer.Replace(s)
}

// Message is the immutable snapshot of one parsed protocol line. It is created once
// per inbound line and discarded after the dispatch iteration; reactions scheduled
// from it hold their own reference.
type Message struct {
	Raw         string
	Type        MessageType
	Author      string
	ChannelName string
	Channel     *Channel
	Text        string
	Parts       []string
	Tags        *Tags
	bot         *Bot
}

// IsPrivmsg returns true if the line was posted visibly in a channel,
// including bits donations and channel point redemptions
func (m *Message) IsPrivmsg() bool {
	return m.Type == TypePrivmsg || m.Type == TypeBits || m.Type == TypeChannelPoints
}

// IsWhisper returns true if the line is a private message to the bot
func (m *Message) IsWhisper() bool {
	return m.Type == TypeWhisper
}

// IsUserMessage returns true if a user typed the line, as opposed to a server notification
func (m *Message) IsUserMessage() bool {
	return m.IsPrivmsg() || m.IsWhisper()
}

// Reply sends a response in the context the message arrived in: in-channel for
// channel messages, as a whisper for whispers
func (m *Message) Reply(text string) error {
	if m.IsWhisper() {
		return m.bot.Whisper(m.Author, text)
	}
	return m.bot.Say(m.ChannelName, text)
}

// ReplyWhisper responds privately to the message author regardless of origin
func (m *Message) ReplyWhisper(text string) error {
	return m.bot.Whisper(m.Author, text)
}

// parseMessage classifies one raw protocol line into a Message. It returns nil for
// blank lines. Lines that match no known verb classify as TypeNone. The function is
// a pure transform; channel references are attached by the dispatch loop afterwards.
func parseMessage(raw string) *Message {
	line := strings.Trim(raw, "\r\n ")
	if line == "" {
		return nil
	}
	msg := &Message{Raw: raw, Type: TypeNone}
	if strings.HasPrefix(line, "PING") {
		msg.Type = TypePing
		return msg
	}
	if strings.HasPrefix(line, "@") {
		rawTags, rest, ok := strings.Cut(line[1:], " ")
		if !ok {
			return msg
		}
		msg.Tags = parseTags(rawTags)
		line = rest
	}
	if strings.HasPrefix(line, ":") {
		prefix, rest, ok := strings.Cut(line[1:], " ")
		if !ok {
			return msg
		}
		msg.Author, _, _ = strings.Cut(prefix, "!")
		line = rest
	}
	verb, params, _ := strings.Cut(line, " ")
	params, trailing, _ := strings.Cut(params, ":")
	fields := strings.Fields(params)
	channel := ""
	if len(fields) > 0 {
		channel = strings.TrimPrefix(fields[0], "#")
	}
	switch verb {
	case "PRIVMSG":
		msg.ChannelName = channel
		msg.Text = trailing
		switch {
		case msg.Tags.Bits() > 0:
			msg.Type = TypeBits
		case msg.Tags.RewardID() != "":
			msg.Type = TypeChannelPoints
		default:
			msg.Type = TypePrivmsg
		}
	case "WHISPER":
		msg.Type = TypeWhisper
		msg.Text = trailing
	case "JOIN":
		msg.Type = TypeUserJoin
		msg.ChannelName = channel
	case "PART":
		msg.Type = TypeUserPart
		msg.ChannelName = channel
	case "USERNOTICE":
		msg.ChannelName = channel
		msg.Text = trailing
		switch {
		case subscriptionMsgIDs[msg.Tags.MsgID()]:
			msg.Type = TypeSubscription
		case msg.Tags.MsgID() == "raid":
			msg.Type = TypeRaid
		}
	}
	msg.Parts = strings.Fields(msg.Text)
	return msg
}
