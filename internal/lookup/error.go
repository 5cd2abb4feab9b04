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
	"fmt"
	"net"
)

// Kind classifies why a lookup failed. It is used as the error_type label on
// metrics and lets callers branch without string matching.
type Kind string

// Lookup failure kinds.
const (
	KindNXDomain      Kind = "nxdomain"
	KindNoAnswer      Kind = "no_answer"
	KindServFail      Kind = "servfail"
	KindTimeout       Kind = "timeout"
	KindNetwork       Kind = "network"
	KindCanceled      Kind = "canceled"
	KindWhois         Kind = "whois"
	KindWhoisNotFound Kind = "whois_not_found"
	KindUnknown       Kind = "unknown"
)

// Error is the error returned by every lookup in this package.
// Name is the queried domain and Type the record type ("NS", "A", "MX" or
// "WHOIS"). Err, when set, is the underlying transport or parser error.
type Error struct {
	Kind Kind
	Name string
	Type string
	msg  string
	Err  error
}

func newError(kind Kind, name, rtype, msg string, err error) *Error {
	return &Error{Kind: kind, Name: name, Type: rtype, msg: msg, Err: err}
}

// Error returns the human readable description that ends up in the report.
func (e *Error) Error() string {
	if e.Err != nil && e.msg == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.Err)
	}
	return e.msg
}

// Unwrap exposes the underlying error to errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf reports the failure kind of err.
// Nil yields the empty kind, errors not produced by this package yield KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCanceled
	}
	return KindUnknown
}

// transportKind maps a dial/read error onto a Kind.
func transportKind(err error) Kind {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCanceled
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTimeout
	}
	return KindNetwork
}
