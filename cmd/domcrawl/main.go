/*
Package main is the entry point for the domcrawl command-line application.

domcrawl reads a list of domain names, one per line, and writes a CSV report
with, for every domain:
  - its nameservers, A records and MX records, queried against a fixed public resolver;
  - its registrar and expiration date from WHOIS;
  - whether its A records point at one of our hosting plans;
  - which service hosts its email, judged from the MX records.

Lookups run one after another. A failed lookup only fills its own cell with
an "Error: ..." description; the only fatal condition is a missing input file.

The application uses Cobra for flag parsing and zap for diagnostics. Progress
lines go to stdout, diagnostics to stderr. An optional Prometheus endpoint
exposes lookup counters while a long list is being processed.
*/
package main

/*
domcrawl — bulk DNS and WHOIS audit for lists of domains
Copyright (C) 2025  Pepijn van der Stap <rxtls@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/x-stp/domcrawl/internal/classify"
	"github.com/x-stp/domcrawl/internal/core"
	"github.com/x-stp/domcrawl/internal/input"
	"github.com/x-stp/domcrawl/internal/lookup"
	"github.com/x-stp/domcrawl/internal/metrics"
	"github.com/x-stp/domcrawl/internal/report"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	inputFile   string
	outputFile  string
	nameservers []string
	rulesFile   string
	metricsAddr string
	debug       bool

	// appFs is swapped for an in-memory filesystem in tests.
	appFs = afero.NewOsFs()
	// stdout receives the user-facing progress lines.
	stdout io.Writer = os.Stdout
)

var rootCmd = &cobra.Command{
	Use:   "domcrawl",
	Short: "domcrawl - gather DNS and WHOIS data for a list of domains into a CSV report",
	Long: `This application gathers domain information. It accepts a file containing a
list of domains and generates a csv with nameservers, A and MX records, registrar,
expiration date, hosting plan and email hosting service for each of them.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogger(debug)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return crawlDomains(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().StringVarP(&inputFile, "input", "i", "", fmt.Sprintf("the file containing a list of domains (default %q)", input.DefaultPath))
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", report.DefaultPath, "the CSV report to write (overwritten)")
	rootCmd.Flags().StringSliceVar(&nameservers, "nameserver", []string{lookup.DefaultNameserver}, "nameserver(s) to query instead of the system resolver")
	rootCmd.Flags().StringVar(&rulesFile, "rules", "", "YAML file overriding the hosting/email classification table")
	rootCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (disabled when empty)")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	_ = zap.L().Sync()

	if err != nil {
		var notFound *input.NotFoundError
		if errors.As(err, &notFound) {
			color.New(color.FgRed).Fprintln(stdout, notFound.Error())
		} else {
			color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// setupLogger installs the global zap logger.
func setupLogger(debug bool) error {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}

	logger, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return nil
}

// crawlDomains is the handler for the root command.
func crawlDomains(ctx context.Context) (err error) {
	// The input check comes first so a missing list never touches the report file.
	path, usedDefault, err := input.ResolvePath(appFs, inputFile)
	if err != nil {
		return err
	}
	if usedDefault {
		fmt.Fprintf(stdout, "Successfully found '%s' file in current directory, using this as input\n\n", path)
	}

	rules := classify.DefaultRules()
	if rulesFile != "" {
		if rules, err = classify.LoadRules(appFs, rulesFile); err != nil {
			return err
		}
		zap.L().Debug("loaded classification rules", zap.String("path", rulesFile))
	}

	if metricsAddr != "" {
		metrics.EnableMetrics()
		if err := metrics.StartMetricsServer(metricsAddr); err != nil {
			zap.L().Warn("failed to start metrics server", zap.Error(err))
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = metrics.ShutdownMetricsServer(shutdownCtx)
		}()
	}

	resolver := lookup.NewResolver(&lookup.Config{Nameservers: nameservers})
	zap.L().Debug("resolver configured", zap.Strings("servers", resolver.Servers()))

	crawler, err := core.NewCrawler(&core.Config{
		Resolver:   resolver,
		Whois:      lookup.NewWhoisClient(),
		Classifier: classify.New(rules),
		Console:    stdout,
		Logger:     zap.L(),
	})
	if err != nil {
		return err
	}

	src, err := input.Open(appFs, path)
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := report.Create(appFs, outputFile)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, out.Close())
	}()

	stats, err := crawler.Run(ctx, src, out)
	if err != nil {
		if errors.Is(err, core.ErrCrawlCancelled) {
			zap.L().Warn("interrupted, report holds the domains finished so far",
				zap.Int("rows", out.Rows()), zap.String("path", out.Path()))
		}
		return err
	}

	logReport(zap.L(), out, stats)
	color.New(color.FgGreen).Fprintf(stdout, "\nTask completed successfully :) in [%.2f seconds]\n\n", stats.Elapsed.Seconds())
	return nil
}

// logReport records the run summary. It stays at debug level; the console
// already shows the completion line.
func logReport(logger *zap.Logger, out *report.Writer, stats *core.Stats) {
	logger.Debug("report written",
		zap.String("path", out.Path()),
		zap.Int("rows", out.Rows()),
		zap.Int("failed_lookups", stats.FailedLookups()),
		zap.String("digest", fmt.Sprintf("%016x", out.Digest())))
}
