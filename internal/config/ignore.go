package config

import (
	"fmt"
	"regexp"
)

// IgnoreRule matches environment names that must not be deployed.
// A /delimited/ entry is a regular expression; anything else is a literal.
type IgnoreRule struct {
	Literal string
	Pattern *regexp.Regexp
}

// Match reports whether env is covered by the rule.
func (r IgnoreRule) Match(env string) bool {
	if r.Pattern != nil {
		return r.Pattern.MatchString(env)
	}
	return env == r.Literal
}

// String returns the rule as it was written in configuration.
func (r IgnoreRule) String() string {
	if r.Pattern != nil {
		return "/" + r.Pattern.String() + "/"
	}
	return r.Literal
}

// CompileIgnoreRules parses ignore_environments entries.
func CompileIgnoreRules(entries []string) ([]IgnoreRule, error) {
	rules := make([]IgnoreRule, 0, len(entries))
	for i, entry := range entries {
		if len(entry) > 2 && entry[0] == '/' && entry[len(entry)-1] == '/' {
			re, err := regexp.Compile(entry[1 : len(entry)-1])
			if err != nil {
				return nil, fmt.Errorf("entry %d (%s): %w", i, entry, err)
			}
			rules = append(rules, IgnoreRule{Pattern: re})
			continue
		}
		rules = append(rules, IgnoreRule{Literal: entry})
	}
	return rules, nil
}
