package report

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

/*
Package report writes the domain audit table as CSV.

Lookup results stay typed up to this point; Write is where failed lookups
become "Error: ..." cells and absent WHOIS fields become placeholders.
Every byte written also feeds an xxh3 digest, so two runs over the same
domains can be compared without diffing files.
*/

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/afero"
	"github.com/x-stp/domcrawl/internal/lookup"
	"github.com/zeebo/xxh3"
	"go.uber.org/multierr"
)

// DefaultPath is the output table written in the working directory.
const DefaultPath = "domain_information.csv"

// Header is the fixed first row of the table.
var Header = []string{
	"#:",
	"DOMAIN:",
	"REGISTRAR:",
	"NAMESERVERS:",
	"A RECORDS:",
	"MX RECORDS:",
	"EXPIRATION DATE:",
	"HOSTED ON DM SG:",
	"EMAIL HOSTING SERVICE:",
}

// Record is everything known about one domain once it has been resolved and classified.
type Record struct {
	Index       int
	Name        string
	Nameservers lookup.Result
	ARecords    lookup.Result
	MXRecords   lookup.Result
	Whois       lookup.WhoisResult
	Hosting     string
	Email       string
}

// Row renders r in Header order.
func (r Record) Row() []string {
	return []string{
		strconv.Itoa(r.Index),
		r.Name,
		r.Whois.RegistrarText(),
		r.Nameservers.Text(),
		r.ARecords.Text(),
		r.MXRecords.Text(),
		r.Whois.ExpirationText(),
		r.Hosting,
		r.Email,
	}
}

// Writer appends records to a CSV file. It is not safe for concurrent use.
type Writer struct {
	file   afero.File
	csv    *csv.Writer
	digest *xxh3.Hasher
	rows   int
	path   string
}

// Create truncates or creates path on fs and writes the header row.
func Create(fs afero.Fs, path string) (*Writer, error) {
	f, err := fs.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create report %s: %w", path, err)
	}

	h := xxh3.New()
	w := &Writer{
		file:   f,
		csv:    csv.NewWriter(io.MultiWriter(f, h)),
		digest: h,
		path:   path,
	}
	if err := w.csv.Write(Header); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to write report header: %w", err)
	}
	return w, nil
}

// Write appends one row for rec.
func (w *Writer) Write(rec Record) error {
	if err := w.csv.Write(rec.Row()); err != nil {
		return fmt.Errorf("failed to write row %d (%s): %w", rec.Index, rec.Name, err)
	}
	// Flush per row so an interrupted run keeps every finished domain.
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return fmt.Errorf("failed to flush row %d (%s): %w", rec.Index, rec.Name, err)
	}
	w.rows++
	return nil
}

// Rows returns the number of data rows written, header excluded.
func (w *Writer) Rows() int {
	return w.rows
}

// Path returns the file being written.
func (w *Writer) Path() string {
	return w.path
}

// Digest returns the xxh3 hash of everything written so far.
func (w *Writer) Digest() uint64 {
	w.csv.Flush()
	return w.digest.Sum64()
}

// Close flushes pending output and closes the file.
func (w *Writer) Close() error {
	w.csv.Flush()
	return multierr.Combine(w.csv.Error(), w.file.Close())
}
