// Package cmd provides the tawny CLI application
package cmd

import (
	"errors"
	"fmt"
	"github.com/tawnybot/tawny/bot"
	"github.com/tawnybot/tawny/config"
	"github.com/tawnybot/tawny/util"
	"github.com/urfave/cli/v2"
	"github.com/urfave/cli/v2/altsrc"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
)

// New creates a new CLI application
func New() *cli.App {
	flags := []cli.Flag{
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, EnvVars: []string{"TAWNY_CONFIG_FILE"}, Value: "/etc/tawny/config.yml", DefaultText: "/etc/tawny/config.yml", Usage: "config file"},
		&cli.BoolFlag{Name: "debug", EnvVars: []string{"TAWNY_DEBUG"}, Value: false, Usage: "enable debugging output"},
		altsrc.NewStringFlag(&cli.StringFlag{Name: "nick", Aliases: []string{"n"}, EnvVars: []string{"TAWNY_NICK"}, DefaultText: "none", Usage: "bot account login name"}),
		altsrc.NewStringFlag(&cli.StringFlag{Name: "token", Aliases: []string{"t"}, EnvVars: []string{"TAWNY_TOKEN"}, DefaultText: "none", Usage: "OAuth token for the bot account (oauth:...)"}),
		altsrc.NewStringSliceFlag(&cli.StringSliceFlag{Name: "channels", Aliases: []string{"j"}, EnvVars: []string{"TAWNY_CHANNELS"}, Usage: "channels to join"}),
		altsrc.NewStringFlag(&cli.StringFlag{Name: "command-prefix", Aliases: []string{"p"}, EnvVars: []string{"TAWNY_COMMAND_PREFIX"}, Value: config.DefaultCommandPrefix, Usage: "prefix marking a chat message as a command"}),
		altsrc.NewStringFlag(&cli.StringFlag{Name: "server-addr", EnvVars: []string{"TAWNY_SERVER_ADDR"}, Value: config.DefaultServerAddr, Usage: "Twitch IRC WebSocket gateway address"}),
		altsrc.NewStringFlag(&cli.StringFlag{Name: "database-url", EnvVars: []string{"TAWNY_DATABASE_URL"}, DefaultText: "none", Usage: "Postgres URL for the custom command store"}),
		altsrc.NewStringFlag(&cli.StringFlag{Name: "redis-url", EnvVars: []string{"TAWNY_REDIS_URL"}, DefaultText: "none", Usage: "Redis URL for the cooldown store"}),
		altsrc.NewStringFlag(&cli.StringFlag{Name: "permission-file", EnvVars: []string{"TAWNY_PERMISSION_FILE"}, DefaultText: "none", Usage: "YAML file defining per-channel permission groups"}),
		altsrc.NewBoolFlag(&cli.BoolFlag{Name: "whitelist-enabled", EnvVars: []string{"TAWNY_WHITELIST_ENABLED"}, Usage: "only allow whitelisted built-in commands"}),
		altsrc.NewStringSliceFlag(&cli.StringSliceFlag{Name: "whitelist", EnvVars: []string{"TAWNY_WHITELIST"}, Usage: "whitelisted built-in commands"}),
		altsrc.NewBoolFlag(&cli.BoolFlag{Name: "whitelist-deny-message", EnvVars: []string{"TAWNY_WHITELIST_DENY_MESSAGE"}, Usage: "reply in chat when a command is not whitelisted"}),
		altsrc.NewStringFlag(&cli.StringFlag{Name: "helix-client-id", EnvVars: []string{"TAWNY_HELIX_CLIENT_ID"}, DefaultText: "none", Usage: "Twitch Helix API client id, used for stream info"}),
		altsrc.NewStringFlag(&cli.StringFlag{Name: "helix-client-secret", EnvVars: []string{"TAWNY_HELIX_CLIENT_SECRET"}, DefaultText: "none", Usage: "Twitch Helix API client secret"}),
		altsrc.NewDurationFlag(&cli.DurationFlag{Name: "part-delay", EnvVars: []string{"TAWNY_PART_DELAY"}, Value: config.DefaultPartDelay, Usage: "delay between PARTs at shutdown"}),
		altsrc.NewDurationFlag(&cli.DurationFlag{Name: "channel-update-interval", EnvVars: []string{"TAWNY_CHANNEL_UPDATE_INTERVAL"}, Value: config.DefaultChannelUpdateInterval, Usage: "how often stream info is refreshed per channel"}),
	}
	return &cli.App{
		Name:                   "tawny",
		Usage:                  "Twitch chat bot with custom commands, cooldowns and hot-reloadable modules",
		UsageText:              "tawny [OPTION..]",
		HideHelp:               true,
		HideVersion:            true,
		EnableBashCompletion:   true,
		UseShortOptionHandling: true,
		Reader:                 os.Stdin,
		Writer:                 os.Stdout,
		ErrWriter:              os.Stderr,
		Action:                 execRun,
		Before:                 initConfigFileInputSource("config", flags),
		Flags:                  flags,
	}
}

func execRun(c *cli.Context) error {
	nick := c.String("nick")
	token := c.String("token")
	channels := c.StringSlice("channels")
	prefix := c.String("command-prefix")
	permissionFile := c.String("permission-file")
	whitelisted := c.StringSlice("whitelist")

	if nick == "" {
		return errors.New("missing bot nick, pass --nick, set TAWNY_NICK env variable or nick config option")
	} else if token == "" {
		return errors.New("missing OAuth token, pass --token, set TAWNY_TOKEN env variable or token config option")
	} else if token != "mem" && !strings.HasPrefix(token, "oauth:") {
		return errors.New("token must start with 'oauth:'")
	} else if len(channels) == 0 {
		return errors.New("no channels to join, pass --channels, set TAWNY_CHANNELS env variable or channels config option")
	} else if prefix == "" {
		return errors.New("command prefix must not be empty")
	} else if permissionFile != "" && !util.FileExists(permissionFile) {
		return fmt.Errorf("permission file %s does not exist", permissionFile)
	} else if c.Bool("whitelist-enabled") && len(whitelisted) == 0 {
		return errors.New("whitelist is enabled but empty; every built-in command would be blocked")
	}

	conf := config.New(nick, token)
	conf.Channels = channels
	conf.CommandPrefix = prefix
	conf.ServerAddr = c.String("server-addr")
	conf.DatabaseURL = c.String("database-url")
	conf.RedisURL = c.String("redis-url")
	conf.PermissionFile = permissionFile
	conf.WhitelistEnabled = c.Bool("whitelist-enabled")
	conf.WhitelistedCommands = whitelisted
	conf.WhitelistDenyMessage = c.Bool("whitelist-deny-message")
	conf.HelixClientID = c.String("helix-client-id")
	conf.HelixClientSecret = c.String("helix-client-secret")
	conf.PartDelay = c.Duration("part-delay")
	conf.ChannelUpdateInterval = c.Duration("channel-update-interval")
	conf.Debug = c.Bool("debug")

	robot, err := bot.New(conf)
	if err != nil {
		return err
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs // Doesn't matter which
		log.Printf("Signal received. Leaving channels and shutting down.")
		robot.Stop()
	}()

	if err := robot.Run(); err != nil {
		return err
	}

	log.Printf("Exiting.")
	return nil
}

// initConfigFileInputSource is like altsrc.InitInputSourceWithContext and altsrc.NewYamlSourceFromFlagFunc, but checks
// if the config flag is exists and only loads it if it does. If the flag is set and the file exists, it fails.
func initConfigFileInputSource(configFlag string, flags []cli.Flag) cli.BeforeFunc {
	return func(context *cli.Context) error {
		configFile := context.String(configFlag)
		if context.IsSet(configFlag) && !util.FileExists(configFile) {
			return fmt.Errorf("config file %s does not exist", configFile)
		} else if !context.IsSet(configFlag) && !util.FileExists(configFile) {
			return nil
		}
		inputSource, err := altsrc.NewYamlSourceFromFile(configFile)
		if err != nil {
			return err
		}
		return altsrc.ApplyInputSourceValues(context, inputSource, flags)
	}
}
