// This is an example bot that serves a settings dashboard next to its Discord connection.
// Its greeting is read from the settings tree, so edits made in the dashboard take effect immediately.
//
// Usage:
//
//	export DISCORD_TOKEN="your-bot-token"
//	export DASHBOARD_CLIENT_ID="your-application-id"
//	export DASHBOARD_CLIENT_SECRET="your-client-secret"
//	go run . --config dashboard.yaml --settings settings.yaml --db dashboard.db
//
// Then, in a Discord channel where the bot is present, type:
//
//	.dashboard
//	.greet
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"github.com/oklahomer/go-kasumi/logger"
	"github.com/oklahomer/go-sarah/v4"
	"github.com/spf13/pflag"

	dashboard "github.com/oklahomer/go-sarah-dashboard"
	"github.com/oklahomer/go-sarah-dashboard/settings"
)

var manifests = dashboard.Manifests{
	"greeter": {
		ID:          "greeter",
		Name:        "Greeter",
		Description: "Replies to `.greet` with the configured **greeting**.",
	},
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := pflag.NewFlagSet("example", pflag.ContinueOnError)
	configPath := flags.String("config", "dashboard.yaml", "dashboard configuration file")
	settingsPath := flags.String("settings", "settings.yaml", "settings schema with default values")
	dbPath := flags.String("db", "dashboard.db", "SQLite database for persisted settings")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}

	token := os.Getenv("DISCORD_TOKEN")
	if token == "" {
		return fmt.Errorf("DISCORD_TOKEN environment variable is required")
	}

	config, err := dashboard.LoadConfig(*configPath)
	if err != nil {
		return err
	}

	root, err := settings.Load(*settingsPath)
	if err != nil {
		return err
	}

	store, err := settings.NewSQLiteStore(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tree := settings.NewTree(root, settings.WithPersister(store))
	if err := tree.Load(ctx); err != nil {
		return err
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return fmt.Errorf("failed to create Discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentMessageContent

	users, err := dashboard.NewBotIdentity(token, dashboard.WithSession(session), dashboard.WithOwnerIDs(config.OwnerIDs...))
	if err != nil {
		return err
	}

	d, err := dashboard.New(config, tree, manifests, users, dashboard.WithSecretStore(store))
	if err != nil {
		logger.Errorf("Refusing to start dashboard: %+v", err)
	}

	storage := sarah.NewUserContextStorage(sarah.NewCacheConfig())
	bot := sarah.NewBot(&adapter{session: session}, sarah.BotWithStorage(storage))
	sarah.RegisterBot(dashboard.NewBot(bot, d))

	if d != nil {
		props, err := dashboard.NewCommandProps(DISCORD, d)
		if err != nil {
			return err
		}
		sarah.RegisterCommandProps(props)
	}
	registerGreetCommand(tree)

	if err := sarah.Run(ctx, sarah.NewConfig()); err != nil {
		return fmt.Errorf("failed to run: %w", err)
	}

	logger.Infof("Bot is running. Press Ctrl+C to stop.")
	<-ctx.Done()
	logger.Infof("Shutting down...")

	return nil
}

var greetPattern = regexp.MustCompile(`^\.greet`)

func registerGreetCommand(tree *settings.Tree) {
	props := sarah.NewCommandPropsBuilder().
		BotType(DISCORD).
		Identifier("greet").
		MatchPattern(greetPattern).
		Func(func(_ context.Context, _ sarah.Input) (*sarah.CommandResponse, error) {
			greeting, ok := tree.Lookup("greeter.greeting")
			if !ok {
				return &sarah.CommandResponse{Content: "Hello!"}, nil
			}

			volume, _ := tree.Lookup("greeter.volume")
			content := greeting.Value().(string)
			if volume != nil && volume.Value().(int64) > 10 {
				content += "!!!"
			}
			return &sarah.CommandResponse{Content: content}, nil
		}).
		Instruction("Input .greet to receive the greeting configured in the dashboard.").
		MustBuild()

	sarah.RegisterCommandProps(props)
}
