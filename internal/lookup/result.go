package lookup

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
	"strings"
	"time"
)

const (
	// ErrorPrefix starts every rendered failure. The classifier keys on it.
	ErrorPrefix = "Error: "

	// AbsentPlaceholder renders a WHOIS field the registry did not return.
	AbsentPlaceholder = "N/A"

	// ExpirationLayout formats expiration dates in the report.
	ExpirationLayout = "2006-01-02 15:04:05"
)

// Result is the outcome of one record-set lookup: either the ordered values
// or the error that replaced them.
type Result struct {
	Values []string
	Err    error
}

// Ok wraps values in a successful Result.
func Ok(values ...string) Result {
	return Result{Values: values}
}

// Failed wraps err in a failed Result.
func Failed(err error) Result {
	return Result{Err: err}
}

// Lines returns the values, or a single "Error: ..." placeholder for a
// failed lookup, so downstream code can treat both uniformly.
func (r Result) Lines() []string {
	if r.Err != nil {
		return []string{ErrorPrefix + r.Err.Error()}
	}
	return r.Values
}

// Text renders Lines with every entry terminated by a newline.
func (r Result) Text() string {
	var sb strings.Builder
	for _, line := range r.Lines() {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// WhoisInfo holds the registration fields the report consumes.
// Expiration is nil when the registry returned no parseable date;
// ExpirationRaw keeps the registry's own text in that case.
type WhoisInfo struct {
	Registrar     string
	Expiration    *time.Time
	ExpirationRaw string
}

// WhoisResult is the outcome of a WHOIS lookup.
type WhoisResult struct {
	Info WhoisInfo
	Err  error
}

// RegistrarText renders the registrar cell.
func (w WhoisResult) RegistrarText() string {
	if w.Err != nil {
		return ErrorPrefix + w.Err.Error()
	}
	if w.Info.Registrar == "" {
		return AbsentPlaceholder
	}
	return w.Info.Registrar
}

// ExpirationText renders the expiration date cell.
func (w WhoisResult) ExpirationText() string {
	switch {
	case w.Err != nil:
		return ErrorPrefix + w.Err.Error()
	case w.Info.Expiration != nil:
		return w.Info.Expiration.UTC().Format(ExpirationLayout)
	case w.Info.ExpirationRaw != "":
		return w.Info.ExpirationRaw
	default:
		return AbsentPlaceholder
	}
}
