package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/custodia-labs/docwatch/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docwatch/internal/adapters/driven/notify"
	"github.com/custodia-labs/docwatch/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docwatch/internal/adapters/driving/cli"
	"github.com/custodia-labs/docwatch/internal/adapters/driving/oauth"
	"github.com/custodia-labs/docwatch/internal/connectors/google"
	"github.com/custodia-labs/docwatch/internal/connectors/google/drive"
	"github.com/custodia-labs/docwatch/internal/connectors/google/gmail"
	"github.com/custodia-labs/docwatch/internal/core/services"
	"github.com/custodia-labs/docwatch/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Config keys read by the composition root.
const (
	keyCredentialsFile = "google.credentials_file"
	keyTokenFile       = "google.token_file"
	keyGmailSender     = "notify.gmail_sender"
	keyWebhookTimeout  = "notify.webhook_timeout"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetVersion(version)
	if err := cli.Execute(ctx, bootstrap); err != nil {
		os.Exit(1)
	}
}

// bootstrap wires the adapters for one command invocation.
func bootstrap(opts cli.Options) (*cli.Services, error) {
	ctx := context.Background()

	cfgStore, err := file.NewConfigStore(opts.DataDir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	store, err := sqlite.NewStore(opts.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	credentialsFile := pathSetting(cfgStore.GetString(keyCredentialsFile), opts.DataDir, "credentials.json")
	tokenFile := pathSetting(cfgStore.GetString(keyTokenFile), opts.DataDir, "token.json")

	ts, err := google.NewTokenSource(ctx, credentialsFile, tokenFile, google.DefaultScopes...)
	if err != nil {
		// Commands that never reach Google still work; provider calls fail fast.
		logger.Debug("google credentials unavailable: %v", err)
		ts = google.UnavailableTokenSource(err)
	}

	driveSvc, err := google.NewDriveService(ctx, ts)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	gmailSvc, err := google.NewGmailService(ctx, ts)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("create gmail service: %w", err)
	}

	provider := drive.NewProvider(driveSvc, google.NewRateLimiter(google.ServiceDrive))

	webhook := notify.NewWebhook(cfgStore.GetDuration(keyWebhookTimeout))
	router := notify.NewRouter().
		Handle(gmail.Scheme, gmail.NewNotifier(
			gmailSvc, cfgStore.GetString(keyGmailSender), google.NewRateLimiter(google.ServiceGmail),
		)).
		Handle("http", webhook).
		Handle("https", webhook)

	tracking := store.TrackingStore()
	poller := services.NewPoller(services.LoadPollerConfig(cfgStore), tracking, provider, router, nil, nil)
	tracker := services.NewTrackerService(tracking, poller)

	return &cli.Services{
		Tracker:     tracker,
		Poller:      poller,
		Config:      cfgStore,
		ResolveRef:  drive.ParseDocRef,
		WatchConfig: cfgStore.Watch,
		Authorize: func(ctx context.Context) error {
			return authorize(ctx, credentialsFile, tokenFile)
		},
		Close: store.Close,
	}, nil
}

// authorize runs the browser consent flow and saves the token.
func authorize(ctx context.Context, credentialsFile, tokenFile string) error {
	cfg, err := google.LoadOAuthConfig(credentialsFile, google.DefaultScopes...)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("no OAuth client file at %s; download one from the Cloud console: %w",
				credentialsFile, err)
		}
		return err
	}

	token, err := (&oauth.Flow{Config: cfg}).Run(ctx)
	if err != nil {
		return err
	}
	if err := google.SaveToken(tokenFile, token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	logger.Info("token saved to %s", tokenFile)
	return nil
}

// pathSetting expands a leading "~/" and falls back to dataDir/name.
func pathSetting(value, dataDir, name string) string {
	if value == "" {
		return filepath.Join(dataDir, name)
	}
	if strings.HasPrefix(value, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, value[2:])
		}
	}
	return value
}
