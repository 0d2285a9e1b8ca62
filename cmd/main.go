package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/prskeet/prskeet/internal/config"
	"github.com/prskeet/prskeet/internal/domain/ports"
	domainErrors "github.com/prskeet/prskeet/internal/errors"
	"github.com/prskeet/prskeet/internal/i18n"
	"github.com/prskeet/prskeet/internal/infrastructure/httpclient"
	"github.com/prskeet/prskeet/internal/infrastructure/preview"
	"github.com/prskeet/prskeet/internal/infrastructure/publish/bluesky"
	"github.com/prskeet/prskeet/internal/infrastructure/publish/dryrun"
	"github.com/prskeet/prskeet/internal/infrastructure/vcs/github"
	"github.com/prskeet/prskeet/internal/logger"
	"github.com/prskeet/prskeet/internal/scheduler"
	"github.com/prskeet/prskeet/internal/services"
	"github.com/prskeet/prskeet/internal/version"
)

func main() {
	// A .env in the working directory is a convenience, not a requirement.
	_ = godotenv.Load()

	app, err := initializeApp()
	if err != nil {
		log.Fatalf("failed to initialize: %v", err)
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func initializeApp() (*cli.Command, error) {
	translations, err := i18n.NewTranslations("en")
	if err != nil {
		return nil, err
	}
	if lang := os.Getenv("LANGUAGE"); lang != "" && lang != "en" {
		if err := translations.SetLanguage(lang); err != nil {
			return nil, domainErrors.NewAppError(domainErrors.TypeConfiguration,
				"Unsupported LANGUAGE", err).WithContext("language", lang)
		}
	}

	return &cli.Command{
		Name:        "prskeet",
		Usage:       "Watch a GitHub repository and post pull request updates to Bluesky",
		Version:     version.FullVersion(),
		Description: "Polls the repository's pull request feed and announces opened, closed and merged pull requests.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Load environment variables from `FILE` before reading the configuration",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log each sync cycle, not only problems",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Log everything, including page walks and suppressed items",
			},
		},
		Commands: []*cli.Command{
			newRunCommand(translations),
			newSyncCommand(translations),
		},
	}, nil
}

func newRunCommand(translations *i18n.Translations) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: translations.GetMessage("run_command_description", 0, nil),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := buildApp(ctx, cmd, translations)
			if err != nil {
				return err
			}

			sched, err := scheduler.New(app.cfg.Sync.CronSpec, app.cfg.Sync.Location, app.engine.Run)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info(ctx, "watching repository",
				"owner", app.cfg.GitHub.Owner,
				"repo", app.cfg.GitHub.Repo,
				"mode", app.cfg.App.Mode)
			sched.Run(ctx)
			return nil
		},
	}
}

func newSyncCommand(translations *i18n.Translations) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: translations.GetMessage("sync_command_description", 0, nil),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := buildApp(ctx, cmd, translations)
			if err != nil {
				return err
			}
			return app.engine.Run(ctx)
		},
	}
}

// application holds the wired object graph behind both commands.
type application struct {
	cfg    *config.Config
	engine *services.SyncService
}

func buildApp(ctx context.Context, cmd *cli.Command, translations *i18n.Translations) (*application, error) {
	if envFile := cmd.String("env-file"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, domainErrors.NewAppError(domainErrors.TypeConfiguration,
				"Could not load env file", err).WithContext("env_file", envFile)
		}
	}

	logger.Initialize(cmd.Bool("debug"), cmd.Bool("verbose"))

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	// The env file may set a language the process environment did not.
	if cfg.App.Language != "en" {
		if err := translations.SetLanguage(cfg.App.Language); err != nil {
			return nil, domainErrors.NewAppError(domainErrors.TypeConfiguration,
				"Unsupported LANGUAGE", err).WithContext("language", cfg.App.Language)
		}
	}

	publisher, err := buildPublisher(ctx, cfg)
	if err != nil {
		return nil, err
	}

	httpClient := httpclient.Default()
	vcsClient := github.NewGitHubClient(cfg.GitHub.Owner, cfg.GitHub.Repo, cfg.GitHub.Token)
	announcer := services.NewAnnouncer(publisher, preview.NewOpenGraphFetcher(httpClient),
		translations, cfg.GitHub.Owner, cfg.GitHub.Repo)

	opts := services.SyncOptions{
		StartOverride: cfg.Sync.StartOverride,
		IgnoreUsers:   cfg.Sync.IgnoreUsers,
	}
	if cfg.Sync.StateFile != "" {
		opts.Store = services.NewFileWatermarkStore(cfg.Sync.StateFile)
	}

	return &application{
		cfg:    cfg,
		engine: services.NewSyncService(vcsClient, announcer, opts),
	}, nil
}

// buildPublisher connects to Bluesky in production mode and fails fast on
// bad credentials. Every other mode logs the composed posts instead.
func buildPublisher(ctx context.Context, cfg *config.Config) (ports.Publisher, error) {
	if !cfg.App.Production() {
		logger.Info(ctx, "dry-run mode, posts will be logged, not sent", "mode", cfg.App.Mode)
		return dryrun.New(), nil
	}

	if cfg.Bluesky.Identifier == "" || cfg.Bluesky.Password == "" {
		return nil, domainErrors.NewAppError(domainErrors.TypeConfiguration,
			"Production mode needs Bluesky credentials", nil).
			WithSuggestion("Set BLUESKY_IDENTIFIER and BLUESKY_PASSWORD, or unset MODE to stay in dry-run")
	}

	return bluesky.Connect(ctx, cfg.Bluesky.Host, cfg.Bluesky.Identifier, cfg.Bluesky.Password, httpclient.Default())
}
