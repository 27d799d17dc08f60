package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/numdox/numdox/internal/analyzer"
	"github.com/numdox/numdox/internal/config"
	"github.com/numdox/numdox/internal/fingerprint"
	"github.com/numdox/numdox/internal/history"
	"github.com/numdox/numdox/internal/history/ndjson"
	"github.com/numdox/numdox/internal/history/postgres"
	"github.com/numdox/numdox/internal/history/sqlite"
	"github.com/numdox/numdox/internal/metrics"
	"github.com/numdox/numdox/internal/osint"
	"github.com/numdox/numdox/internal/phone"
	"github.com/numdox/numdox/internal/query"
	"github.com/numdox/numdox/internal/report"
	"github.com/numdox/numdox/internal/search"
	"github.com/numdox/numdox/pkg/ratelimit"
	"github.com/numdox/numdox/pkg/useragent"
)

var (
	cfgFile string

	flagRegion      string
	flagMaxHits     int
	flagQueryDelay  time.Duration
	flagNumberDelay time.Duration
	flagTimeout     time.Duration
	flagFingerprint string
	flagMetricsPort int

	outJSON string
	outTxt  string
	outCSV  string
	outHTML string

	rootCmd = &cobra.Command{
		Use:   "numdox <number> [number...]",
		Short: "Search the open web for traces of phone numbers",
		Long: `numdox validates phone numbers, builds a set of search queries per number
and collects deduplicated findings from search results into a report.

Numbers without a country code are parsed against the configured default
region. Output defaults to a text report on stdout; file formats are
selected with the --out-* flags and may be combined.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, args)
		},
		SilenceUsage: true,
	}
)

func init() {
	f := rootCmd.Flags()
	f.StringVar(&cfgFile, "config", "", "config file (default looks for ./config.yaml)")
	f.StringVar(&flagRegion, "region", "", "default region for numbers without a country code")
	f.IntVar(&flagMaxHits, "max-hits", 0, "maximum deduplicated hits kept per number")
	f.DurationVar(&flagQueryDelay, "delay", 0, "minimum delay between search queries")
	f.DurationVar(&flagNumberDelay, "number-delay", 0, "minimum delay between numbers")
	f.DurationVar(&flagTimeout, "timeout", 0, "per-request timeout")
	f.StringVar(&flagFingerprint, "fingerprint", "", "TLS fingerprint profile (chrome, firefox, safari, go, random)")
	f.IntVar(&flagMetricsPort, "metrics-port", 0, "expose Prometheus metrics on this port")

	f.StringVar(&outJSON, "out-json", "", "write JSON report to file")
	f.StringVar(&outTxt, "out-txt", "", "write text report to file")
	f.StringVar(&outCSV, "out-csv", "", "write CSV report to file")
	f.StringVar(&outHTML, "out-html", "", "write HTML report to file")
}

func runScan(cmd *cobra.Command, numbers []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	applyFlagOverrides(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cfg.Log.Level)

	var metricsSrv *metrics.Server
	if cfg.Metrics.Port > 0 {
		metricsSrv = metrics.Start(cfg.Metrics.Port)
		logger.Info("metrics listening", "port", cfg.Metrics.Port)
	}

	// Ctrl-C stops the scan cooperatively: in-flight work is kept and the
	// remaining numbers are reported as cancelled.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := openHistory(ctx, cfg.History)
	if err != nil {
		return err
	}
	if backend != nil {
		defer backend.Close()
	}

	profile, err := fingerprint.ParseProfile(cfg.Search.Fingerprint)
	if err != nil {
		return err
	}

	client, err := search.New(search.Config{
		BaseURL:     cfg.Search.BaseURL,
		Timeout:     cfg.Search.Timeout,
		Fingerprint: profile,
		UAPool:      useragent.NewPool(cfg.Search.UserAgents),
		Pacer:       ratelimit.NewPacer(cfg.Scan.QueryDelay, cfg.Scan.Jitter),
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	// Empty means "not configured", which keeps the builder defaults.
	keywords := cfg.Scan.SocialVariants
	if len(keywords) == 0 {
		keywords = nil
	}

	scanner := osint.NewScanner(
		phone.NewValidator(cfg.Scan.DefaultRegion),
		query.NewBuilderWith(keywords, nil),
		osint.NewAggregator(client, cfg.Scan.MaxHits, logger),
		ratelimit.NewPacer(cfg.Scan.NumberDelay, cfg.Scan.Jitter),
		logger,
	)

	sr := scanner.Run(ctx, numbers)

	for i := range sr.Numbers {
		analyzer.Annotate(&sr.Numbers[i])
	}

	if backend != nil {
		// Persistence failures must not cost the operator the report.
		for i := range sr.Numbers {
			if err := backend.Save(context.Background(), sr.ID, &sr.Numbers[i]); err != nil {
				logger.Warn("history save failed", "number", sr.Numbers[i].Raw, "err", err)
			}
		}
	}

	if err := writeOutputs(sr); err != nil {
		return err
	}

	if metricsSrv != nil {
		_ = metricsSrv.Stop(context.Background())
	}
	return nil
}

// applyFlagOverrides lets explicit flags win over file and environment
// configuration.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("region") {
		cfg.Scan.DefaultRegion = flagRegion
	}
	if f.Changed("max-hits") {
		cfg.Scan.MaxHits = flagMaxHits
	}
	if f.Changed("delay") {
		cfg.Scan.QueryDelay = flagQueryDelay
		if !f.Changed("number-delay") {
			cfg.Scan.NumberDelay = flagQueryDelay
		}
	}
	if f.Changed("number-delay") {
		cfg.Scan.NumberDelay = flagNumberDelay
	}
	if f.Changed("timeout") {
		cfg.Search.Timeout = flagTimeout
	}
	if f.Changed("fingerprint") {
		cfg.Search.Fingerprint = flagFingerprint
	}
	if f.Changed("metrics-port") {
		cfg.Metrics.Port = flagMetricsPort
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger
}

func openHistory(ctx context.Context, cfg config.HistoryConfig) (history.Backend, error) {
	switch cfg.Backend {
	case "":
		return nil, nil
	case "ndjson":
		return ndjson.New(cfg.DSN)
	case "sqlite":
		return sqlite.New(cfg.DSN)
	case "postgres":
		return postgres.New(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown history backend %q", cfg.Backend)
	}
}

// writeOutputs renders every requested format in parallel. With no output
// flags set, the text report goes to stdout.
func writeOutputs(sr report.ScanReport) error {
	type output struct {
		path  string
		write func(io.Writer, report.ScanReport) error
	}

	outputs := []output{
		{outJSON, report.WriteJSON},
		{outTxt, report.WriteText},
		{outCSV, report.WriteCSV},
		{outHTML, report.WriteHTML},
	}

	var g errgroup.Group
	requested := 0
	for _, o := range outputs {
		if o.path == "" {
			continue
		}
		requested++
		g.Go(func() error {
			f, err := os.Create(o.path)
			if err != nil {
				return fmt.Errorf("create %s: %w", o.path, err)
			}
			if err := o.write(f, sr); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if requested == 0 {
		return report.WriteText(os.Stdout, sr)
	}
	return nil
}
