package input

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

// Package input locates the domain list and streams its entries.

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"
)

// DefaultPath is looked up in the working directory when no input is given.
const DefaultPath = "domain_list.txt"

// ErrNotFound matches every *NotFoundError via errors.Is.
var ErrNotFound = errors.New("input file not found")

// NotFoundError reports a missing input file. Default is set when the path
// was not supplied by the user.
type NotFoundError struct {
	Path    string
	Default bool
}

func (e *NotFoundError) Error() string {
	if e.Default {
		return fmt.Sprintf("File '%s' was not found please use the '-i' argument and provide the name of your input file", e.Path)
	}
	return fmt.Sprintf("File %s was not found in the current folder", e.Path)
}

// Is lets errors.Is(err, ErrNotFound) succeed.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ResolvePath returns the input path to read: explicit when set, DefaultPath otherwise.
// The returned bool reports whether the default was used.
func ResolvePath(fs afero.Fs, explicit string) (string, bool, error) {
	path, usedDefault := explicit, false
	if path == "" {
		path, usedDefault = DefaultPath, true
	}

	ok, err := afero.Exists(fs, path)
	if err != nil {
		return "", usedDefault, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !ok {
		return "", usedDefault, &NotFoundError{Path: path, Default: usedDefault}
	}
	return path, usedDefault, nil
}

// Source yields trimmed, non-empty lines of a domain list in file order.
// Lines of any length are accepted. It reads lazily; restarting means
// opening the file again.
type Source struct {
	file    afero.File
	reader  *bufio.Reader
	current string
	done    bool
	err     error
}

// Open opens path on fs for streaming.
func Open(fs afero.Fs, path string) (*Source, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input %s: %w", path, err)
	}
	return &Source{file: f, reader: bufio.NewReader(f)}, nil
}

// Scan advances to the next domain. It returns false at end of input or on a read error.
func (s *Source) Scan() bool {
	for !s.done {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			s.done = true
			if !errors.Is(err, io.EOF) {
				s.err = err
				break
			}
		}
		if line = strings.TrimSpace(line); line != "" {
			s.current = line
			return true
		}
	}
	s.current = ""
	return false
}

// Text returns the domain found by the last successful Scan.
func (s *Source) Text() string {
	return s.current
}

// Err returns the read error that stopped Scan, if any.
func (s *Source) Err() error {
	return s.err
}

// Close releases the underlying file.
func (s *Source) Close() error {
	return s.file.Close()
}
