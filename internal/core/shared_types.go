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

	"github.com/x-stp/domcrawl/internal/lookup"
	"github.com/x-stp/domcrawl/internal/report"
)

// Resolver answers the three record-set lookups. *lookup.Resolver implements it.
type Resolver interface {
	LookupNS(ctx context.Context, name string) ([]string, error)
	LookupA(ctx context.Context, name string) ([]string, error)
	LookupMX(ctx context.Context, name string) ([]string, error)
}

// WhoisLookup fetches registration data. *lookup.WhoisClient implements it.
type WhoisLookup interface {
	Lookup(ctx context.Context, name string) (lookup.WhoisInfo, error)
}

// DomainSource yields domain names in order. *input.Source implements it.
type DomainSource interface {
	Scan() bool
	Text() string
	Err() error
}

// RecordSink receives finished records. *report.Writer implements it.
type RecordSink interface {
	Write(rec report.Record) error
}
