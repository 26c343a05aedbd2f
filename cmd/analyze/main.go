package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/tradepro/internal/app"
	"github.com/ajitpratap0/tradepro/internal/config"
)

type options struct {
	configPath  string
	ticker      string
	predict     bool
	horizons    []int
	printConfig bool
	timeout     time.Duration
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &options{}
	var horizons string
	fs.StringVar(&opts.configPath, "config", "", "Path to config file")
	fs.StringVar(&opts.ticker, "ticker", "", "Ticker to analyze, e.g. AAPL or BTC-USD")
	fs.BoolVar(&opts.predict, "predict", false, "Print price predictions instead of the agent analysis")
	fs.StringVar(&horizons, "horizons", "", "Comma separated prediction horizons in days, e.g. 1,7,30")
	fs.BoolVar(&opts.printConfig, "print-config", false, "Print the effective configuration and exit")
	fs.DurationVar(&opts.timeout, "timeout", 60*time.Second, "Overall deadline")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if horizons != "" {
		for _, part := range strings.Split(horizons, ",") {
			h, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil || h < 1 {
				return nil, fmt.Errorf("invalid horizon %q", part)
			}
			opts.horizons = append(opts.horizons, h)
		}
	}
	if opts.ticker == "" && !opts.printConfig {
		return nil, fmt.Errorf("-ticker is required")
	}
	return opts, nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	if opts.printConfig {
		if err := config.Dump(cfg, stdout); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		return 0
	}

	// Logs go to stderr so stdout stays valid JSON.
	logger := config.InitLoggerWithConfig(config.LoggerConfig{
		Level:  cfg.App.LogLevel,
		Format: "console",
		Output: stderr,
	}).Level(zerolog.WarnLevel)
	log.Logger = logger

	a, err := app.New(cfg, logger)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	var result interface{}
	switch {
	case opts.predict && a.Predictor == nil:
		fmt.Fprintln(stderr, "predictor disabled by configuration")
		return 1
	case opts.predict && len(opts.horizons) > 1:
		result = a.Predictor.PredictMultiHorizon(ctx, opts.ticker, opts.horizons)
	case opts.predict:
		h := cfg.Context.Horizon
		if len(opts.horizons) == 1 {
			h = opts.horizons[0]
		}
		result = a.Predictor.Predict(ctx, opts.ticker, h)
	default:
		result = a.Analyze(ctx, strings.ToUpper(opts.ticker))
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}
