package classify

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
Package classify derives the hosting and email labels of a domain from the
rendered text of its A and MX lookups.

Matching is plain substring search over the whole newline-joined text, in the
table's order. The result for A records is advisory: an address match says
where the name points today, not who hosts it.
*/

import "strings"

// Labels are the two categorical columns of a report row.
type Labels struct {
	Hosting string
	Email   string
}

// Classifier applies a Rules table. It holds no state besides the table.
type Classifier struct {
	rules Rules
}

// New returns a Classifier for rules.
func New(rules Rules) *Classifier {
	return &Classifier{rules: rules}
}

// Rules returns the table in use.
func (c *Classifier) Rules() Rules {
	return c.rules
}

// Classify labels one domain.
func (c *Classifier) Classify(aText, mxText string) Labels {
	return Labels{
		Hosting: c.Hosting(aText),
		Email:   c.Email(mxText),
	}
}

// Hosting returns the label of the first hosting rule found in aText.
func (c *Classifier) Hosting(aText string) string {
	return firstMatch(c.rules.Hosting, aText)
}

// Email returns the lookup-failure label when mxText carries the error
// marker, otherwise the label of the first provider rule found.
func (c *Classifier) Email(mxText string) string {
	if m := c.rules.Email.ErrorMarker; m != "" && strings.Contains(mxText, m) {
		return c.rules.Email.ErrorLabel
	}
	return firstMatch(c.rules.Email.RuleSet, mxText)
}

func firstMatch(set RuleSet, text string) string {
	for _, r := range set.Rules {
		if strings.Contains(text, r.Match) {
			return r.Label
		}
	}
	return set.Default
}
