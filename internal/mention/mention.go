// Package mention parses and renders @username references in comment text.
package mention

import (
	"errors"
	"fmt"
	"html"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMax is the default cap on distinct mentions per comment.
const DefaultMax = 10

// ErrInvalidMention is returned for tokens that are not a single @username.
var ErrInvalidMention = errors.New("invalid mention")

var (
	tokenPattern  = regexp.MustCompile(`@([A-Za-z0-9_]+)`)
	formatPattern = regexp.MustCompile(`^@[A-Za-z0-9_]+$`)
	invalidChars  = regexp.MustCompile(`[^A-Za-z0-9_]`)
)

// Token is one distinct mention found in a piece of text.
type Token struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"user_name"`
	Raw         string `json:"original_text"`
	Offset      int    `json:"position"` // in characters, not bytes
}

// Parse returns the distinct mentions in text in first-seen order, keeping
// at most limit of them. Extra mentions are dropped silently.
func Parse(text string, limit int) []Token {
	var tokens []Token
	if limit <= 0 {
		return tokens
	}

	seen := make(map[string]bool)
	for _, m := range tokenPattern.FindAllStringSubmatchIndex(text, -1) {
		user := text[m[2]:m[3]]
		if seen[user] {
			continue
		}
		seen[user] = true
		tokens = append(tokens, Token{
			UserID:      user,
			DisplayName: user,
			Raw:         text[m[0]:m[1]],
			Offset:      utf8.RuneCountInString(text[:m[0]]),
		})
		if len(tokens) >= limit {
			break
		}
	}
	return tokens
}

// Usernames returns every mentioned username in order, duplicates included.
func Usernames(text string) []string {
	var names []string
	for _, m := range tokenPattern.FindAllStringSubmatch(text, -1) {
		names = append(names, m[1])
	}
	return names
}

// Has reports whether text contains at least one mention.
func Has(text string) bool {
	return tokenPattern.MatchString(text)
}

// Count returns the number of distinct users mentioned in text.
func Count(text string) int {
	return len(Parse(text, math.MaxInt))
}

// Stats summarizes the mentions in a piece of text.
type Stats struct {
	Total  int      `json:"total_mentions"`
	Unique int      `json:"unique_mentions"`
	Users  []string `json:"mentioned_users"`
}

// Statistics counts total and distinct mentions in text.
func Statistics(text string) Stats {
	names := Usernames(text)
	var users []string
	seen := make(map[string]bool)
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			users = append(users, n)
		}
	}
	return Stats{Total: len(names), Unique: len(users), Users: users}
}

// Remove deletes every mention token and tidies the leftover whitespace.
func Remove(text string) string {
	text = tokenPattern.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}

// Highlight wraps every mention token in a span with the given CSS class.
// An empty class uses "mention-highlight".
func Highlight(text, class string) string {
	if class == "" {
		class = "mention-highlight"
	}
	return tokenPattern.ReplaceAllString(text, `<span class="`+html.EscapeString(class)+`">$0</span>`)
}

// LinkFunc renders a mention of username as markup.
type LinkFunc func(username string) string

// DefaultLink renders a profile link for username.
func DefaultLink(username string) string {
	return fmt.Sprintf(`<a href="/user/%s" class="mention">@%s</a>`, username, username)
}

// ReplaceWithLinks replaces every mention token with the output of link.
// A nil link uses DefaultLink.
func ReplaceWithLinks(text string, link LinkFunc) string {
	if link == nil {
		link = DefaultLink
	}
	return tokenPattern.ReplaceAllStringFunc(text, func(tok string) string {
		return link(tok[1:])
	})
}

// Normalize strips a leading @, lowercases, and drops every character that
// cannot appear in a username.
func Normalize(s string) string {
	s = strings.TrimLeft(s, "@")
	return invalidChars.ReplaceAllString(strings.ToLower(s), "")
}

// ValidateFormat reports whether s is exactly one @username token.
func ValidateFormat(s string) bool {
	return formatPattern.MatchString(s)
}

// ParseToken returns the username of a single @username token.
func ParseToken(s string) (string, error) {
	if !ValidateFormat(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidMention, s)
	}
	return s[1:], nil
}

// DisplayOptions controls FormatForDisplay.
type DisplayOptions struct {
	URL    string // "{username}" is replaced; default "/user/{username}"
	Class  string // default "mention"
	Target string
}

// FormatForDisplay renders a mention of username as an escaped anchor.
func FormatForDisplay(username string, opts DisplayOptions) string {
	if opts.URL == "" {
		opts.URL = "/user/{username}"
	}
	if opts.Class == "" {
		opts.Class = "mention"
	}

	href := strings.ReplaceAll(opts.URL, "{username}", username)
	attrs := fmt.Sprintf(`href="%s" class="%s"`, html.EscapeString(href), html.EscapeString(opts.Class))
	if opts.Target != "" {
		attrs += fmt.Sprintf(` target="%s"`, html.EscapeString(opts.Target))
	}
	return fmt.Sprintf("<a %s>@%s</a>", attrs, html.EscapeString(username))
}

// DefaultContextWindow is the number of characters kept on each side of a
// mention by FindContext.
const DefaultContextWindow = 50

// Context is a window of text around one mention occurrence.
type Context struct {
	Text          string `json:"context"`
	MentionOffset int    `json:"mention_position"` // within Text
	FullOffset    int    `json:"full_position"`    // within the original text
}

// FindContext returns a window of up to window characters either side of
// every occurrence of @username. A window of zero or less uses
// DefaultContextWindow.
func FindContext(text, username string, window int) []Context {
	if window <= 0 {
		window = DefaultContextWindow
	}

	runes := []rune(text)
	var contexts []Context
	for _, m := range tokenPattern.FindAllStringSubmatchIndex(text, -1) {
		if text[m[2]:m[3]] != username {
			continue
		}
		pos := utf8.RuneCountInString(text[:m[0]])
		end := pos + utf8.RuneCountInString(text[m[0]:m[1]])

		start := max(pos-window, 0)
		stop := min(end+window, len(runes))
		contexts = append(contexts, Context{
			Text:          string(runes[start:stop]),
			MentionOffset: pos - start,
			FullOffset:    pos,
		})
	}
	return contexts
}
