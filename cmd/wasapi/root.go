package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gen2brain/wasapi"
)

var (
	cfg        *Config
	globalOpts struct {
		configPath  string
		logLevel    string
		metricsAddr string
	}
	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "wasapi",
	Short: "Play, record and inspect audio with WASAPI",
	Long: `wasapi plays, records and inspects audio through the Windows Audio Session API.

Streams run in shared mode by default. Use --exclusive to take over the device and
--events to let the audio engine pace the stream instead of polling.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = LoadConfig(globalOpts.configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if cmd.Flags().Changed("log-level") || cfg.Log.Level == "" {
			cfg.Log.Level = globalOpts.logLevel
		}
		if err := setupLogger(cfg.Log.Level); err != nil {
			return err
		}

		if cmd.Flags().Changed("metrics-addr") {
			cfg.Metrics.Addr = globalOpts.metricsAddr
		}
		if cfg.Metrics.Addr != "" {
			if err := serveMetrics(cfg.Metrics.Addr); err != nil {
				return err
			}
		}

		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file (default: <user config dir>/wasapi/config.toml)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.logLevel, "log-level", "info",
		"Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.metricsAddr, "metrics-addr", "",
		"Serve prometheus metrics on this address, e.g. localhost:9090")
}

// setupLogger logs to stderr so stdout stays clean for output. The library logs through the
// same logger.
func setupLogger(level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(lvl).
		With().
		Timestamp().
		Logger()
	wasapi.SetLogger(logger)

	return nil
}

func serveMetrics(addr string) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	if err := wasapi.RegisterMetrics(reg); err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("addr", addr).Msg("metrics server failed")
		}
	}()
	logger.Info().Str("addr", addr).Msg("serving metrics")

	return nil
}
