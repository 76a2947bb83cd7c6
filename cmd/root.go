package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/s0up4200/marquee/catalog"
	"github.com/s0up4200/marquee/config"
	"github.com/s0up4200/marquee/filter"
	"github.com/s0up4200/marquee/telemetry"
)

var (
	cfgFile       string
	cfg           *config.Config
	logger        zerolog.Logger
	catalogClient *catalog.Client
	store         telemetry.Store
	closeStore    func() error
	recorder      *telemetry.Recorder
	trending      *telemetry.Trending
	filters       *filter.Manager

	// Command flags
	filterExpr string
	preset     string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "marquee",
	Short: "Browse the TMDB movie catalog and see what people search for",
	Long: `marquee searches and discovers movies from TMDB, records which titles
people search for in a document store, and shows the most searched terms as a
trending leaderboard.`,
	PersistentPreRunE:  initializeApp,
	PersistentPostRunE: shutdownApp,
	SilenceUsage:       true,
}

// Execute adds all child commands to the root command and runs it until
// completion or an interrupt.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(presetsCmd)
	rootCmd.AddCommand(trendingCmd)
	rootCmd.AddCommand(homeCmd)
	rootCmd.AddCommand(detailsCmd)
	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(versionCmd)
}

// initializeApp loads configuration and wires the clients
func initializeApp(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger = setupLogger(cfg.Logging)

	catalogClient = catalog.NewClient(cfg.Catalog.URL, cfg.Catalog.Token, logger,
		catalog.WithTimeout(cfg.Catalog.Timeout),
		catalog.WithImageBaseURL(cfg.Catalog.ImageBaseURL),
	)

	store, closeStore, err = newTelemetryStore(cfg.Telemetry, logger)
	if err != nil {
		return fmt.Errorf("failed to create telemetry store: %w", err)
	}

	recorder = telemetry.NewRecorder(store, logger, telemetry.WithImageBaseURL(cfg.Catalog.ImageBaseURL))
	trending = telemetry.NewTrending(store, logger)

	filters = filter.NewManager()
	if err := filters.RegisterFilters(cfg.Filter.Presets); err != nil {
		return fmt.Errorf("invalid filter preset: %w", err)
	}

	logger.Debug().
		Str("catalog", cfg.Catalog.URL).
		Str("telemetry_driver", cfg.Telemetry.Driver).
		Msg("Initialized")
	return nil
}

func shutdownApp(cmd *cobra.Command, args []string) error {
	if closeStore == nil {
		return nil
	}
	if err := closeStore(); err != nil {
		logger.Warn().Err(err).Msg("Failed to close telemetry store")
	}
	return nil
}

// newTelemetryStore builds the store selected by cfg.Driver. Stores that
// support it enforce one record per search term.
func newTelemetryStore(cfg config.TelemetryConfig, logger zerolog.Logger) (telemetry.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Driver {
	case config.DriverREST:
		s := telemetry.NewRESTStore(telemetry.RESTConfig{
			Endpoint:     cfg.Endpoint,
			ProjectID:    cfg.ProjectID,
			APIKey:       cfg.APIKey,
			DatabaseID:   cfg.DatabaseID,
			CollectionID: cfg.CollectionID,
		}, logger, telemetry.WithRESTTimeout(cfg.Timeout))
		return s, noop, nil

	case config.DriverSQLite:
		s, err := telemetry.OpenSQLiteStore(cfg.Path, cfg.CollectionID, logger,
			telemetry.WithSQLiteUniqueKeys(telemetry.FieldSearchTerm))
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil

	case config.DriverMemory:
		return telemetry.NewMemoryStore(telemetry.WithUniqueKeys(telemetry.FieldSearchTerm)), noop, nil

	default:
		return nil, nil, fmt.Errorf("unknown telemetry driver %q", cfg.Driver)
	}
}

// setupLogger configures the zerolog logger
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}
	zerolog.SetGlobalLevel(level)

	var out io.Writer
	if cfg.Format == "json" {
		out = os.Stderr
	} else {
		out = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
			NoColor:    !cfg.Color || !isTerminal(os.Stderr),
		}
	}

	// The file always gets JSON so it stays machine readable.
	if cfg.File != "" {
		out = zerolog.MultiLevelWriter(out, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		})
	}

	return zerolog.New(out).With().Timestamp().Logger()
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// getFilter compiles --filter. An empty expression means no filtering.
func getFilter() (filter.Filter, error) {
	if filterExpr == "" {
		return nil, nil
	}

	f, err := filters.Compile(filterExpr)
	if err != nil {
		return nil, fmt.Errorf("invalid filter expression: %w", err)
	}
	return f, nil
}
