// Package cli implements the docwatch command line on top of cobra.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docwatch/internal/core/domain"
	"github.com/custodia-labs/docwatch/internal/core/ports/driven"
	"github.com/custodia-labs/docwatch/internal/core/ports/driving"
	"github.com/custodia-labs/docwatch/internal/core/services"
	"github.com/custodia-labs/docwatch/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// RefResolver turns a document URL or bare ID into (docID, docType).
type RefResolver func(ref string, docType domain.DocType) (string, domain.DocType, error)

// Options are the global flag values handed to the bootstrap function.
type Options struct {
	DataDir string
	Verbose bool
}

// Services are the dependencies commands run against.
type Services struct {
	Tracker    driving.TrackerService
	Poller     driving.Poller
	Config     driven.ConfigStore
	ResolveRef RefResolver

	// WatchConfig reloads Config on file changes until ctx is done.
	WatchConfig func(ctx context.Context, onChange func()) error

	// Authorize runs the interactive OAuth flow and saves the token.
	Authorize func(ctx context.Context) error

	// Close releases storage handles.
	Close func() error
}

// Bootstrap builds Services once global flags are parsed.
type Bootstrap func(opts Options) (*Services, error)

// Service handles used by commands. Set by Execute or directly in tests.
var (
	trackerService driving.TrackerService
	pollerService  driving.Poller
	configStore    driven.ConfigStore
	resolveRef     RefResolver
	watchConfig    func(ctx context.Context, onChange func()) error
	authorize      func(ctx context.Context) error
	closeServices  func() error

	bootstrap Bootstrap
)

// Global flags.
var (
	verbose    bool
	tenantFlag string
	dataDir    string
)

var rootCmd = &cobra.Command{
	Use:   "docwatch",
	Short: "Watch shared documents and get notified when they change",
	Long: `docwatch polls document metadata on a fixed interval, detects when a
watched document was modified, and sends a notification to each subscribed
destination. Every detected change is written to an append-only audit trail.

Destinations are mailto: addresses (sent through Gmail) or http(s) webhook URLs.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		teardown()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&tenantFlag, "tenant", "", "tenant scope (defaults to the configured tenant)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default ~/.docwatch)")
}

// Execute runs the root command. b is called once before any command
// that needs services.
func Execute(ctx context.Context, b Bootstrap) error {
	bootstrap = b
	return rootCmd.ExecuteContext(ctx)
}

// SetVersion sets the version reported by "docwatch version".
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// DefaultDataDir returns ~/.docwatch, or ./.docwatch if the home directory
// cannot be resolved.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".docwatch"
	}
	return filepath.Join(home, ".docwatch")
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	logger.SetOutput(cmd.ErrOrStderr())

	if cmd.Annotations[annotationNoServices] == "true" || bootstrap == nil || trackerService != nil {
		return nil
	}

	dir := dataDir
	if dir == "" {
		dir = DefaultDataDir()
	}
	svc, err := bootstrap(Options{DataDir: dir, Verbose: verbose})
	if err != nil {
		return err
	}
	useServices(svc)
	return nil
}

func useServices(svc *Services) {
	trackerService = svc.Tracker
	pollerService = svc.Poller
	configStore = svc.Config
	resolveRef = svc.ResolveRef
	watchConfig = svc.WatchConfig
	authorize = svc.Authorize
	closeServices = svc.Close
}

func teardown() {
	if closeServices != nil {
		if err := closeServices(); err != nil {
			logger.Warn("closing services: %v", err)
		}
	}
}

// annotationNoServices marks commands that run without bootstrap.
const annotationNoServices = "docwatch/no-services"

// currentTenant returns --tenant, else the configured tenant.
func currentTenant() (domain.TenantID, error) {
	tenant := domain.TenantID(strings.TrimSpace(tenantFlag))
	if tenant == "" {
		tenant = services.LoadTenant(configStore)
	}
	if err := tenant.Validate(); err != nil {
		return "", err
	}
	return tenant, nil
}

func requireTracker() error {
	if trackerService == nil {
		return errors.New("tracker service not configured")
	}
	return nil
}

// resolve turns a ref into a doc ID and type for commands that need both.
func resolve(ref string, docType domain.DocType) (string, domain.DocType, error) {
	if resolveRef != nil {
		return resolveRef(ref, docType)
	}
	return ref, docType, domain.ValidateDocRef(ref, docType)
}

// lookupID resolves ref for commands that only need the doc ID.
// A bare ID with no type is taken as-is.
func lookupID(ref string, docType domain.DocType) (string, error) {
	ref = strings.TrimSpace(ref)
	if docType == "" && !strings.Contains(ref, "://") {
		if ref == "" {
			return "", fmt.Errorf("%w: document reference is required", domain.ErrInvalidInput)
		}
		return ref, nil
	}
	id, _, err := resolve(ref, docType)
	return id, err
}
