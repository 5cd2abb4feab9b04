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

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

//go:embed default_rules.yaml
var defaultRulesYAML []byte

// Rule maps a substring to a label.
type Rule struct {
	Match string
	Label string
}

// RuleSet is an ordered list of rules with a fallback label.
type RuleSet struct {
	Rules   []Rule
	Default string
}

// EmailRuleSet adds the lookup-failure marker, which is checked before any rule.
type EmailRuleSet struct {
	RuleSet
	ErrorMarker string
	ErrorLabel  string
}

// Rules is the complete classification table.
type Rules struct {
	Hosting RuleSet
	Email   EmailRuleSet
}

type ruleDTO struct {
	Match string `yaml:"match"`
	Label string `yaml:"label"`
}

type hostingDTO struct {
	Default string    `yaml:"default"`
	Rules   []ruleDTO `yaml:"rules"`
}

type emailDTO struct {
	ErrorMarker string    `yaml:"error_marker"`
	ErrorLabel  string    `yaml:"error_label"`
	Default     string    `yaml:"default"`
	Rules       []ruleDTO `yaml:"rules"`
}

type rulesDTO struct {
	Hosting hostingDTO `yaml:"hosting"`
	Email   emailDTO   `yaml:"email"`
}

// DefaultRules returns the built-in table.
func DefaultRules() Rules {
	r, err := ParseRules(defaultRulesYAML)
	if err != nil {
		panic(fmt.Sprintf("classify: embedded rules are invalid: %v", err))
	}
	return r
}

// LoadRules reads a table from a YAML file on fs.
func LoadRules(fs afero.Fs, path string) (Rules, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return Rules{}, fmt.Errorf("failed to read rules %s: %w", path, err)
	}
	r, err := ParseRules(data)
	if err != nil {
		return Rules{}, fmt.Errorf("invalid rules %s: %w", path, err)
	}
	return r, nil
}

// ParseRules decodes and validates a YAML table.
func ParseRules(data []byte) (Rules, error) {
	var dto rulesDTO
	if err := yaml.Unmarshal(data, &dto); err != nil {
		return Rules{}, err
	}

	hosting, err := toRules("hosting", dto.Hosting.Rules)
	if err != nil {
		return Rules{}, err
	}
	email, err := toRules("email", dto.Email.Rules)
	if err != nil {
		return Rules{}, err
	}

	r := Rules{
		Hosting: RuleSet{Rules: hosting, Default: dto.Hosting.Default},
		Email: EmailRuleSet{
			RuleSet:     RuleSet{Rules: email, Default: dto.Email.Default},
			ErrorMarker: dto.Email.ErrorMarker,
			ErrorLabel:  dto.Email.ErrorLabel,
		},
	}
	return r, r.Validate()
}

func toRules(section string, in []ruleDTO) ([]Rule, error) {
	out := make([]Rule, 0, len(in))
	for i, d := range in {
		if d.Match == "" || d.Label == "" {
			return nil, fmt.Errorf("%s rule %d: match and label are required", section, i+1)
		}
		out = append(out, Rule{Match: d.Match, Label: d.Label})
	}
	return out, nil
}

// Validate checks that every fallback label is present.
func (r Rules) Validate() error {
	var err error
	if r.Hosting.Default == "" {
		err = multierr.Append(err, errors.New("hosting.default is required"))
	}
	if r.Email.Default == "" {
		err = multierr.Append(err, errors.New("email.default is required"))
	}
	if (r.Email.ErrorMarker == "") != (r.Email.ErrorLabel == "") {
		err = multierr.Append(err, errors.New("email.error_marker and email.error_label must be set together"))
	}
	return err
}
