package bot

// MessageType classifies one inbound protocol line
type MessageType int

// All possible MessageType constants
const (
	TypeNone MessageType = iota
	TypePing
	TypePrivmsg
	TypeWhisper
	TypeBits
	TypeChannelPoints
	TypeUserJoin
	TypeUserPart
	TypeSubscription
	TypeRaid
)

func (t MessageType) String() string {
	switch t {
	case TypePing:
		return "ping"
	case TypePrivmsg:
		return "privmsg"
	case TypeWhisper:
		return "whisper"
	case TypeBits:
		return "bits"
	case TypeChannelPoints:
		return "channel-points"
	case TypeUserJoin:
		return "user-join"
	case TypeUserPart:
		return "user-part"
	case TypeSubscription:
		return "subscription"
	case TypeRaid:
		return "raid"
	default:
		return "none"
	}
}

// CommandContext defines where a command may be invoked from
type CommandContext int

// All possible CommandContext constants
const (
	ContextChannel CommandContext = 1 << iota
	ContextWhisper
	ContextBoth = ContextChannel | ContextWhisper
)

// Event names one fan-out point. It is a dispatch key, not a runtime object.
type Event string

// All possible Event constants
const (
	EventConnected               = Event("on_connected")
	EventRawMessage              = Event("on_raw_message")
	EventPrivmsgReceived         = Event("on_privmsg_received")
	EventPrivmsgSent             = Event("on_privmsg_sent")
	EventWhisperReceived         = Event("on_whisper_received")
	EventWhisperSent             = Event("on_whisper_sent")
	EventPermissionCheck         = Event("on_permission_check")
	EventBeforeCommandExecute    = Event("on_before_command_execute")
	EventAfterCommandExecute     = Event("on_after_command_execute")
	EventBitsDonated             = Event("on_bits_donated")
	EventChannelSubscription     = Event("on_channel_subscription")
	EventChannelRaided           = Event("on_channel_raided")
	EventChannelJoined           = Event("on_channel_joined")
	EventChannelPointsRedemption = Event("on_channel_points_redemption")
	EventUserJoin                = Event("on_user_join")
	EventUserPart                = Event("on_user_part")
	EventModuleReloaded          = Event("on_module_reloaded")
)
