/*
Package lookup performs the per-domain network lookups: NS, A and MX record
sets against an explicitly configured nameserver, and WHOIS registration data.

Every lookup returns either values or an *Error; nothing here retries, sleeps
or runs concurrently. The caller decides how a failure is rendered.
*/
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
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
	"golang.org/x/net/idna"
)

const (
	// DefaultNameserver is the public resolver queried instead of the system configuration.
	DefaultNameserver = "8.8.8.8"
	// DefaultPort is the DNS port appended to nameservers given without one.
	DefaultPort = "53"
)

// Config selects the nameservers the Resolver talks to.
// A zero-value Config queries DefaultNameserver on DefaultPort.
type Config struct {
	// Nameservers are tried in order, moving on only when the transport fails.
	Nameservers []string
	// Port is used for nameservers that carry no port of their own.
	Port string
}

// DefaultConfig returns the configuration used when no nameserver is given.
func DefaultConfig() *Config {
	return &Config{
		Nameservers: []string{DefaultNameserver},
		Port:        DefaultPort,
	}
}

// exchanger is the part of *dns.Client the Resolver needs.
type exchanger interface {
	ExchangeContext(ctx context.Context, m *dns.Msg, address string) (*dns.Msg, time.Duration, error)
}

// Resolver queries record sets through miekg/dns. It is read-only after
// construction and holds no per-domain state.
type Resolver struct {
	servers []string
	udp     exchanger
	tcp     exchanger
}

// NewResolver builds a Resolver from cfg. A nil cfg means DefaultConfig().
// Library default timeouts are kept.
func NewResolver(cfg *Config) *Resolver {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	port := cfg.Port
	if port == "" {
		port = DefaultPort
	}
	nameservers := cfg.Nameservers
	if len(nameservers) == 0 {
		nameservers = []string{DefaultNameserver}
	}

	servers := make([]string, 0, len(nameservers))
	for _, ns := range nameservers {
		servers = append(servers, serverAddr(ns, port))
	}

	return &Resolver{
		servers: servers,
		udp:     &dns.Client{Net: "udp"},
		tcp:     &dns.Client{Net: "tcp"},
	}
}

// Servers returns the host:port addresses queried, in order.
func (r *Resolver) Servers() []string {
	out := make([]string, len(r.servers))
	copy(out, r.servers)
	return out
}

// asciiName returns the punycode form of an internationalised name.
// Names idna rejects are sent as given and fail at the server.
func asciiName(name string) string {
	ascii, err := idna.Lookup.ToASCII(name)
	if err != nil {
		return name
	}
	return ascii
}

// serverAddr appends port unless ns already names one.
func serverAddr(ns, port string) string {
	ns = strings.TrimSpace(ns)
	if _, _, err := net.SplitHostPort(ns); err == nil {
		return ns
	}
	return net.JoinHostPort(strings.Trim(ns, "[]"), port)
}

// LookupNS returns the authoritative nameserver hostnames of name.
func (r *Resolver) LookupNS(ctx context.Context, name string) ([]string, error) {
	rrs, err := r.query(ctx, name, dns.TypeNS)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rrs))
	for _, rr := range rrs {
		out = append(out, rr.(*dns.NS).Ns)
	}
	return out, nil
}

// LookupA returns the IPv4 addresses of name.
func (r *Resolver) LookupA(ctx context.Context, name string) ([]string, error) {
	rrs, err := r.query(ctx, name, dns.TypeA)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rrs))
	for _, rr := range rrs {
		out = append(out, rr.(*dns.A).A.String())
	}
	return out, nil
}

// LookupMX returns the mail exchangers of name as "<preference> <host>".
func (r *Resolver) LookupMX(ctx context.Context, name string) ([]string, error) {
	rrs, err := r.query(ctx, name, dns.TypeMX)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rrs))
	for _, rr := range rrs {
		mx := rr.(*dns.MX)
		out = append(out, fmt.Sprintf("%d %s", mx.Preference, mx.Mx))
	}
	return out, nil
}

// query sends one question and returns only the answer records of qtype.
func (r *Resolver) query(ctx context.Context, name string, qtype uint16) ([]dns.RR, error) {
	rtype := dns.TypeToString[qtype]
	fqdn := dns.Fqdn(asciiName(name))

	msg := new(dns.Msg)
	msg.SetQuestion(fqdn, qtype)

	var lastErr error
	for _, server := range r.servers {
		if err := ctx.Err(); err != nil {
			return nil, newError(KindCanceled, name, rtype, "lookup aborted", err)
		}

		resp, _, err := r.udp.ExchangeContext(ctx, msg, server)
		if err == nil && resp.Truncated {
			resp, _, err = r.tcp.ExchangeContext(ctx, msg, server)
		}
		if err != nil {
			kind := transportKind(err)
			lastErr = newError(kind, name, rtype,
				fmt.Sprintf("The DNS query %s IN %s to %s failed", fqdn, rtype, server), err)
			if kind == KindCanceled {
				return nil, lastErr
			}
			continue
		}
		return answers(resp, name, fqdn, qtype, server)
	}
	return nil, lastErr
}

func answers(resp *dns.Msg, name, fqdn string, qtype uint16, server string) ([]dns.RR, error) {
	rtype := dns.TypeToString[qtype]

	switch resp.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		return nil, newError(KindNXDomain, name, rtype,
			"The DNS query name does not exist: "+fqdn, nil)
	default:
		return nil, newError(KindServFail, name, rtype,
			fmt.Sprintf("All nameservers failed to answer the query %s IN %s: Server %s answered %s",
				fqdn, rtype, server, dns.RcodeToString[resp.Rcode]), nil)
	}

	var out []dns.RR
	for _, rr := range resp.Answer {
		// CNAME and DNAME links in the chain are not part of the answer set.
		if rr.Header().Rrtype == qtype {
			out = append(out, rr)
		}
	}
	if len(out) == 0 {
		return nil, newError(KindNoAnswer, name, rtype,
			fmt.Sprintf("The DNS response does not contain an answer to the question: %s IN %s", fqdn, rtype), nil)
	}
	return out, nil
}
