package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/brightenyim/latstat/internal/config"
	"github.com/brightenyim/latstat/internal/engine"
	"github.com/brightenyim/latstat/internal/output"
	"github.com/brightenyim/latstat/internal/proxy"
)

var (
	serveConfigPath    string
	serveListen        string
	serveNoColor       bool
	serveStatsInterval time.Duration
	serveQuery         string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the measuring proxy",
	Long: `Serve starts the forward proxy, printing intercept-overhead statistics
periodically and a final summary on shutdown.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", "", "Path to YAML configuration file")
	serveCmd.Flags().StringVarP(&serveListen, "listen", "l", "", "Listen address (overrides config)")
	serveCmd.Flags().BoolVar(&serveNoColor, "no-color", false, "Disable colored output")
	serveCmd.Flags().DurationVar(&serveStatsInterval, "stats-interval", 0, "Interval between stats reports (overrides config)")
	serveCmd.Flags().StringVarP(&serveQuery, "query", "q", "", "Print one value from the final snapshot by gjson path")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadServeConfig()
	if err != nil {
		return err
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("error creating logger: %w", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	eng := engine.New(
		engine.WithLogger(sugar),
		engine.WithSweep(cfg.Sweep.Interval.D(), cfg.Sweep.MaxEntryAge.D()),
	)
	eng.Start()
	defer eng.Stop()

	pxy := proxy.New(eng, cfg.Intercept, cfg.UpstreamTimeout.D(), sugar)

	srv := &http.Server{
		Addr:    cfg.Listen,
		Handler: pxy,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	sugar.Infof("latstat listening on %s", cfg.Listen)

	noColor := cfg.NoColor || !output.StdoutIsTerminal()
	formatter := output.NewFormatter(noColor)

	var statsC <-chan time.Time // nil channel: never fires when reporting is off
	if cfg.Stats.Interval > 0 {
		ticker := time.NewTicker(cfg.Stats.Interval.D())
		defer ticker.Stop()
		statsC = ticker.C
	}

	for {
		select {
		case <-statsC:
			fmt.Println(formatter.FormatSnapshot(eng.Snapshot()))
		case err := <-errCh:
			if err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("proxy server error: %w", err)
			}
			return nil
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				sugar.Warnf("shutdown: %v", err)
			}

			snap := eng.Snapshot()
			fmt.Println(formatter.FormatSnapshot(snap))
			fmt.Println(formatter.FormatLatencyReport(pxy.Metrics().Report()))

			if serveQuery != "" {
				value, err := output.Query(snap, serveQuery)
				if err != nil {
					return err
				}
				fmt.Println(value)
			}
			return nil
		}
	}
}

func loadServeConfig() (*config.Config, error) {
	cfg := config.Default()
	if serveConfigPath != "" {
		loaded, err := config.Load(serveConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if serveListen != "" {
		cfg.Listen = serveListen
	}
	if serveNoColor {
		cfg.NoColor = true
	}
	if serveStatsInterval > 0 {
		cfg.Stats.Interval = config.Duration(serveStatsInterval)
	}

	return cfg, config.Validate(cfg)
}
