// Package safety classifies and sanitizes user-submitted comment text.
package safety

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Config controls which checks the analyzer applies.
type Config struct {
	MinLength       int      `yaml:"min_length"`
	MaxLength       int      `yaml:"max_length"`
	SpamFilter      bool     `yaml:"spam_filter"`
	ProfanityFilter bool     `yaml:"profanity_filter"`
	SpamWords       []string `yaml:"spam_words,omitempty"`
	ProfanityWords  []string `yaml:"profanity_words,omitempty"`
}

// DefaultConfig returns the stock filter settings.
func DefaultConfig() Config {
	return Config{
		MinLength:       1,
		MaxLength:       5000,
		SpamFilter:      true,
		ProfanityFilter: true,
	}
}

const (
	maxRunLength   = 6
	maxTokenRepeat = 10
	maxLinks       = 3
)

var (
	linkPattern    = regexp.MustCompile(`https?://\S+`)
	mentionPattern = regexp.MustCompile(`@[A-Za-z0-9_]+`)
)

// Analyzer evaluates text against a Config. It holds no mutable state and is
// safe for concurrent use.
type Analyzer struct {
	config    Config
	spam      []string
	profanity []string
	masks     []*regexp.Regexp
}

// New creates an analyzer. Custom words are merged with the built-in lists.
func New(config Config) *Analyzer {
	a := &Analyzer{
		config:    config,
		spam:      mergeWords(builtinSpam, config.SpamWords),
		profanity: mergeWords(builtinProfanity, config.ProfanityWords),
	}
	for _, w := range a.profanity {
		a.masks = append(a.masks, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(w)))
	}
	return a
}

// Config returns the configuration the analyzer was built with.
func (a *Analyzer) Config() Config {
	return a.config
}

// IsContentSafe reports whether text passes every enabled check.
func (a *Analyzer) IsContentSafe(text string) bool {
	_, failed := a.FilteredReason(text)
	return !failed
}

// FilteredReason returns the first failing check in priority order:
// length, spam, profanity, repetition, links. The bool is false when the
// text is safe.
func (a *Analyzer) FilteredReason(text string) (Reason, bool) {
	switch {
	case !a.lengthValid(text):
		return ReasonLength, true
	case a.config.SpamFilter && a.ContainsSpam(text):
		return ReasonSpam, true
	case a.config.ProfanityFilter && a.ContainsProfanity(text):
		return ReasonProfanity, true
	case HasExcessiveRepetition(text):
		return ReasonRepetition, true
	case HasSuspiciousLinks(text):
		return ReasonLinks, true
	}
	return "", false
}

// ContainsSpam reports a case-insensitive match against the spam dictionary.
func (a *Analyzer) ContainsSpam(text string) bool {
	return containsAny(text, a.spam)
}

// ContainsProfanity reports a case-insensitive match against the profanity
// dictionary.
func (a *Analyzer) ContainsProfanity(text string) bool {
	return containsAny(text, a.profanity)
}

func (a *Analyzer) lengthValid(text string) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(text))
	return n >= a.config.MinLength && n <= a.config.MaxLength
}

// HasExcessiveRepetition reports a run of six or more identical characters
// on one line, or any whitespace-delimited token appearing more than ten
// times.
func HasExcessiveRepetition(text string) bool {
	var prev rune
	run := 0
	for _, r := range text {
		if r == prev && r != '\n' {
			run++
			if run >= maxRunLength {
				return true
			}
			continue
		}
		prev, run = r, 1
	}

	counts := make(map[string]int)
	for _, tok := range strings.Fields(text) {
		counts[tok]++
		if counts[tok] > maxTokenRepeat {
			return true
		}
	}
	return false
}

// HasSuspiciousLinks reports more than three links, or any link that
// contains a known URL shortener host.
func HasSuspiciousLinks(text string) bool {
	links := linkPattern.FindAllString(text, -1)
	if len(links) > maxLinks {
		return true
	}
	for _, l := range links {
		if isShortener(l) {
			return true
		}
	}
	return false
}

// LinkCount returns the number of http(s) URLs in text.
func LinkCount(text string) int {
	return len(linkPattern.FindAllString(text, -1))
}

// MentionCount returns the number of @-mention tokens in text, duplicates
// included.
func MentionCount(text string) int {
	return len(mentionPattern.FindAllString(text, -1))
}

func isShortener(link string) bool {
	link = strings.ToLower(link)
	for _, s := range shortenerHosts {
		if strings.Contains(link, s) {
			return true
		}
	}
	return false
}

func containsAny(text string, words []string) bool {
	folded := fold(text)
	for _, w := range words {
		if strings.Contains(folded, fold(w)) {
			return true
		}
	}
	return false
}

// fold lowercases with Unicode rules. A Caser is stateful, so one is built
// per call.
func fold(s string) string {
	return cases.Lower(language.Und).String(s)
}

func mergeWords(builtin, custom []string) []string {
	words := make([]string, 0, len(builtin)+len(custom))
	words = append(words, builtin...)
	for _, w := range custom {
		if w = strings.TrimSpace(w); w != "" {
			words = append(words, w)
		}
	}
	return words
}
