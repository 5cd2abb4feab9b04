/*
Package core drives the audit: it pulls domains from a source, resolves each
one, classifies it and hands the finished record to a sink.

The pipeline is deliberately sequential. One domain is fully resolved, and its
row written, before the next name is read.
*/
package core

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
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/x-stp/domcrawl/internal/classify"
	"github.com/x-stp/domcrawl/internal/lookup"
	"github.com/x-stp/domcrawl/internal/metrics"
	"github.com/x-stp/domcrawl/internal/report"
	"go.uber.org/zap"
)

// ErrCrawlCancelled is returned by Run when its context ends before the source is exhausted.
var ErrCrawlCancelled = errors.New("crawl cancelled")

// Config wires a Crawler to its collaborators.
// Resolver and Whois are required; the rest fall back to defaults.
type Config struct {
	Resolver   Resolver
	Whois      WhoisLookup
	Classifier *classify.Classifier
	// Console receives the progress lines. Defaults to os.Stdout.
	Console io.Writer
	// Logger receives diagnostics. Defaults to zap.L().
	Logger *zap.Logger
}

// Stats summarises a run.
type Stats struct {
	StartTime time.Time
	Elapsed   time.Duration
	Domains   int
	// Failures counts failed lookups by kind.
	Failures map[lookup.Kind]int
}

// FailedLookups returns the total number of failed lookups.
func (s *Stats) FailedLookups() int {
	n := 0
	for _, c := range s.Failures {
		n += c
	}
	return n
}

// Crawler runs the per-domain pipeline.
type Crawler struct {
	resolver   Resolver
	whois      WhoisLookup
	classifier *classify.Classifier
	console    io.Writer
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// NewCrawler validates cfg and returns a Crawler.
func NewCrawler(cfg *Config) (*Crawler, error) {
	if cfg == nil || cfg.Resolver == nil || cfg.Whois == nil {
		return nil, errors.New("crawler: resolver and whois lookup are required")
	}

	c := &Crawler{
		resolver:   cfg.Resolver,
		whois:      cfg.Whois,
		classifier: cfg.Classifier,
		console:    cfg.Console,
		logger:     cfg.Logger,
		metrics:    metrics.GetMetrics(),
	}
	if c.classifier == nil {
		c.classifier = classify.New(classify.DefaultRules())
	}
	if c.console == nil {
		c.console = os.Stdout
	}
	if c.logger == nil {
		c.logger = zap.L()
	}
	return c, nil
}

// Run processes every domain of src in order and writes one record per
// domain to sink. Lookup failures never stop the run; a sink error, a source
// read error or cancellation of ctx does.
func (c *Crawler) Run(ctx context.Context, src DomainSource, sink RecordSink) (*Stats, error) {
	stats := &Stats{StartTime: time.Now(), Failures: make(map[lookup.Kind]int)}
	defer func() {
		stats.Elapsed = time.Since(stats.StartTime)
	}()

	fmt.Fprintf(c.console, "Starting Data Collection For Domains..\n\n")

	index := 0
	for src.Scan() {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("%w after %d domains: %v", ErrCrawlCancelled, stats.Domains, err)
		}

		index++
		name := src.Text()
		fmt.Fprintf(c.console, "Getting data for domain (%d): %s\n", index, name)

		rec := c.resolve(ctx, index, name, stats)
		// A half-resolved domain is dropped rather than written with aborted lookups.
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("%w after %d domains: %v", ErrCrawlCancelled, stats.Domains, err)
		}

		c.metrics.RecordDomain()

		if err := sink.Write(rec); err != nil {
			return stats, err
		}
		c.metrics.RecordRow(rec.Hosting, rec.Email)
		stats.Domains++
	}
	if err := src.Err(); err != nil {
		return stats, fmt.Errorf("failed reading domain list: %w", err)
	}

	c.metrics.ObserveRun(time.Since(stats.StartTime))
	return stats, nil
}

// resolve performs the four lookups for name, in order, and classifies the result.
func (c *Crawler) resolve(ctx context.Context, index int, name string, stats *Stats) report.Record {
	rec := report.Record{Index: index, Name: name}

	rec.Nameservers = c.recordSet(ctx, "NS", name, c.resolver.LookupNS, stats)
	rec.ARecords = c.recordSet(ctx, "A", name, c.resolver.LookupA, stats)
	rec.MXRecords = c.recordSet(ctx, "MX", name, c.resolver.LookupMX, stats)
	rec.Whois = c.registration(ctx, name, stats)

	labels := c.classifier.Classify(rec.ARecords.Text(), rec.MXRecords.Text())
	rec.Hosting = labels.Hosting
	rec.Email = labels.Email
	return rec
}

func (c *Crawler) recordSet(ctx context.Context, rtype, name string,
	fn func(context.Context, string) ([]string, error), stats *Stats) lookup.Result {
	done := metrics.MeasureDuration(c.metrics.LookupDuration, prometheus.Labels{"record_type": rtype})
	values, err := fn(ctx, name)
	done()

	c.observe(rtype, name, err, stats)
	if err != nil {
		return lookup.Failed(err)
	}
	return lookup.Ok(values...)
}

func (c *Crawler) registration(ctx context.Context, name string, stats *Stats) lookup.WhoisResult {
	done := metrics.MeasureDuration(c.metrics.LookupDuration, prometheus.Labels{"record_type": "WHOIS"})
	info, err := c.whois.Lookup(ctx, name)
	done()

	c.observe("WHOIS", name, err, stats)
	if err != nil {
		return lookup.WhoisResult{Err: err}
	}
	return lookup.WhoisResult{Info: info}
}

// observe accounts for one finished lookup. Failures are only logged at
// debug level; the report cell carries the error for the operator.
func (c *Crawler) observe(rtype, name string, err error, stats *Stats) {
	if err == nil {
		c.metrics.RecordLookup(rtype, "")
		return
	}

	kind := lookup.KindOf(err)
	stats.Failures[kind]++
	c.metrics.RecordLookup(rtype, string(kind))
	c.logger.Debug("lookup failed",
		zap.String("domain", name),
		zap.String("record_type", rtype),
		zap.String("kind", string(kind)),
		zap.Error(err))
}
