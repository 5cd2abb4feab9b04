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
	"context"
	"errors"
	"strings"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
)

// querier is the part of *whois.Client the WhoisClient needs.
type querier interface {
	Whois(domain string, servers ...string) (string, error)
}

// WhoisClient fetches registration data over the WHOIS protocol, following
// registry referrals, and extracts the registrar and expiration date.
type WhoisClient struct {
	client querier
	parse  func(text string) (whoisparser.WhoisInfo, error)
}

// NewWhoisClient returns a WhoisClient with the library's default servers and timeouts.
func NewWhoisClient() *WhoisClient {
	return &WhoisClient{
		client: whois.NewClient(),
		parse:  whoisparser.Parse,
	}
}

// Lookup queries WHOIS for name.
// The underlying protocol client is not context aware; ctx is only checked before the query.
func (w *WhoisClient) Lookup(ctx context.Context, name string) (WhoisInfo, error) {
	if err := ctx.Err(); err != nil {
		return WhoisInfo{}, newError(KindCanceled, name, "WHOIS", "lookup aborted", err)
	}

	raw, err := w.client.Whois(asciiName(name))
	if err != nil {
		return WhoisInfo{}, newError(KindWhois, name, "WHOIS", "", err)
	}

	parsed, err := w.parse(raw)
	if err != nil {
		kind := KindWhois
		if errors.Is(err, whoisparser.ErrNotFoundDomain) {
			kind = KindWhoisNotFound
		}
		return WhoisInfo{}, newError(kind, name, "WHOIS", "", err)
	}
	return infoFromParsed(parsed), nil
}

// infoFromParsed keeps the two fields the report uses; either may be absent.
func infoFromParsed(p whoisparser.WhoisInfo) WhoisInfo {
	var info WhoisInfo
	if p.Registrar != nil {
		info.Registrar = strings.TrimSpace(p.Registrar.Name)
		if info.Registrar == "" {
			info.Registrar = strings.TrimSpace(p.Registrar.Organization)
		}
	}
	if p.Domain != nil {
		info.Expiration = p.Domain.ExpirationDateInTime
		info.ExpirationRaw = strings.TrimSpace(p.Domain.ExpirationDate)
	}
	return info
}
