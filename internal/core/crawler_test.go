package core

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x-stp/domcrawl/internal/input"
	"github.com/x-stp/domcrawl/internal/lookup"
	"github.com/x-stp/domcrawl/internal/report"
	"go.uber.org/zap"
)

const badDomain = "bad-domain-does-not-exist.invalid"

type nxError struct{ name string }

func (e nxError) Error() string { return "The DNS query name does not exist: " + e.name + "." }

// fakeResolver serves canned answers; names it does not know fail as NXDOMAIN.
type fakeResolver struct {
	ns, a, mx map[string][]string
	asked     []string
}

func (f *fakeResolver) get(m map[string][]string, rtype, name string) ([]string, error) {
	f.asked = append(f.asked, rtype+" "+name)
	if v, ok := m[name]; ok {
		return v, nil
	}
	return nil, nxError{name: name}
}

func (f *fakeResolver) LookupNS(_ context.Context, name string) ([]string, error) {
	return f.get(f.ns, "NS", name)
}

func (f *fakeResolver) LookupA(_ context.Context, name string) ([]string, error) {
	return f.get(f.a, "A", name)
}

func (f *fakeResolver) LookupMX(_ context.Context, name string) ([]string, error) {
	return f.get(f.mx, "MX", name)
}

type fakeWhois struct {
	info map[string]lookup.WhoisInfo
}

func (f *fakeWhois) Lookup(_ context.Context, name string) (lookup.WhoisInfo, error) {
	if v, ok := f.info[name]; ok {
		return v, nil
	}
	return lookup.WhoisInfo{}, errors.New("whois: domain is not found")
}

func newFakes() (*fakeResolver, *fakeWhois) {
	exp := time.Date(2026, 8, 13, 4, 0, 0, 0, time.UTC)
	res := &fakeResolver{
		ns: map[string][]string{"example.com": {"a.iana-servers.net.", "b.iana-servers.net."}},
		a:  map[string][]string{"example.com": {"35.208.132.251", "35.206.96.200"}},
		mx: map[string][]string{"example.com": {"1 aspmx.l.google.com."}},
	}
	who := &fakeWhois{info: map[string]lookup.WhoisInfo{
		"example.com": {Registrar: "MarkMonitor Inc.", Expiration: &exp},
	}}
	return res, who
}

func runCrawl(t *testing.T, fs afero.Fs, domains string) (*Stats, [][]string, string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, "domains.txt", []byte(domains), 0644))

	src, err := input.Open(fs, "domains.txt")
	require.NoError(t, err)
	defer src.Close()

	w, err := report.Create(fs, report.DefaultPath)
	require.NoError(t, err)

	res, who := newFakes()
	var console bytes.Buffer
	c, err := NewCrawler(&Config{Resolver: res, Whois: who, Console: &console, Logger: zap.NewNop()})
	require.NoError(t, err)

	stats, err := c.Run(context.Background(), src, w)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := afero.ReadFile(fs, report.DefaultPath)
	require.NoError(t, err)
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return stats, rows, console.String()
}

func TestCrawlEndToEnd(t *testing.T) {
	t.Parallel()

	stats, rows, console := runCrawl(t, afero.NewMemMapFs(), "example.com\n"+badDomain+"\n")

	require.Len(t, rows, 3)
	assert.Equal(t, report.Header, rows[0])

	good := rows[1]
	assert.Equal(t, []string{
		"1",
		"example.com",
		"MarkMonitor Inc.",
		"a.iana-servers.net.\nb.iana-servers.net.\n",
		"35.208.132.251\n35.206.96.200\n",
		"1 aspmx.l.google.com.\n",
		"2026-08-13 04:00:00",
		"Yes, LEGACY PLAN(Based on A record)",
		"Google Workspaces: *Use caution when modifying nameserver records*",
	}, good)

	bad := rows[2]
	assert.Equal(t, "2", bad[0])
	assert.Equal(t, badDomain, bad[1])
	assert.Equal(t, "Error: whois: domain is not found", bad[2])
	for _, cell := range bad[3:6] {
		assert.Equal(t, "Error: The DNS query name does not exist: "+badDomain+".\n", cell)
	}
	assert.Equal(t, "Error: whois: domain is not found", bad[6])
	assert.Equal(t, "No,(Based on A record)", bad[7])
	assert.Equal(t, "Error getting mx records, the domain may not have any active email service or mx records are down", bad[8])

	assert.Equal(t, 2, stats.Domains)
	assert.Equal(t, 4, stats.FailedLookups())
	assert.Equal(t, 4, stats.Failures[lookup.KindUnknown])

	assert.Contains(t, console, "Starting Data Collection For Domains..")
	assert.Contains(t, console, "Getting data for domain (1): example.com\n")
	assert.Contains(t, console, "Getting data for domain (2): "+badDomain+"\n")
}

func TestCrawlRowCountAndOrder(t *testing.T) {
	t.Parallel()

	var names []string
	for i := 0; i < 25; i++ {
		names = append(names, "host"+strconv.Itoa(i)+".example")
	}
	// Surrounding whitespace and blank lines must not disturb numbering.
	domains := "\n  " + strings.Join(names, "  \n\n") + "\n"

	stats, rows, _ := runCrawl(t, afero.NewMemMapFs(), domains)
	require.Len(t, rows, len(names)+1)
	assert.Equal(t, len(names), stats.Domains)
	for i, row := range rows[1:] {
		assert.Equal(t, strconv.Itoa(i+1), row[0])
		assert.Equal(t, names[i], row[1])
	}
}

func TestCrawlLookupOrderPerDomain(t *testing.T) {
	t.Parallel()

	res, who := newFakes()
	c, err := NewCrawler(&Config{Resolver: res, Whois: who, Console: &bytes.Buffer{}, Logger: zap.NewNop()})
	require.NoError(t, err)

	src := &sliceSource{names: []string{"example.com", "example.org"}}
	sink := &memSink{}
	_, err = c.Run(context.Background(), src, sink)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"NS example.com", "A example.com", "MX example.com",
		"NS example.org", "A example.org", "MX example.org",
	}, res.asked)
	require.Len(t, sink.records, 2)
	assert.Equal(t, 1, sink.records[0].Index)
	assert.Equal(t, "Google Workspaces: *Use caution when modifying nameserver records*", sink.records[0].Email)
	assert.Equal(t, 2, sink.records[1].Index)
	assert.Error(t, sink.records[1].MXRecords.Err)
	assert.Equal(t, "Error getting mx records, the domain may not have any active email service or mx records are down", sink.records[1].Email)
}

func TestCrawlStopsOnCancel(t *testing.T) {
	t.Parallel()

	res, who := newFakes()
	c, err := NewCrawler(&Config{Resolver: res, Whois: who, Console: &bytes.Buffer{}, Logger: zap.NewNop()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := &memSink{}
	stats, err := c.Run(ctx, &sliceSource{names: []string{"example.com"}}, sink)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCrawlCancelled)
	assert.Empty(t, sink.records)
	assert.Equal(t, 0, stats.Domains)
}

func TestCrawlSinkErrorStopsRun(t *testing.T) {
	t.Parallel()

	res, who := newFakes()
	c, err := NewCrawler(&Config{Resolver: res, Whois: who, Console: &bytes.Buffer{}, Logger: zap.NewNop()})
	require.NoError(t, err)

	sink := &memSink{err: errors.New("disk full")}
	_, err = c.Run(context.Background(), &sliceSource{names: []string{"example.com", "example.org"}}, sink)
	require.Error(t, err)
	assert.Len(t, res.asked, 3)
}

func TestNewCrawlerRequiresCollaborators(t *testing.T) {
	t.Parallel()

	_, err := NewCrawler(nil)
	assert.Error(t, err)
	_, err = NewCrawler(&Config{Resolver: &fakeResolver{}})
	assert.Error(t, err)
}

type sliceSource struct {
	names []string
	pos   int
}

func (s *sliceSource) Scan() bool {
	if s.pos >= len(s.names) {
		return false
	}
	s.pos++
	return true
}

func (s *sliceSource) Text() string { return s.names[s.pos-1] }
func (s *sliceSource) Err() error   { return nil }

type memSink struct {
	records []report.Record
	err     error
}

func (m *memSink) Write(rec report.Record) error {
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, rec)
	return nil
}
