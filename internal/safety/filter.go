package safety

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	whitespacePattern = regexp.MustCompile(`\s+`)
	entityPattern     = regexp.MustCompile(`^&(#[0-9]+|#[xX][0-9a-fA-F]+|[A-Za-z][A-Za-z0-9]*);`)
)

// FilterContent normalizes whitespace, strips markup tags, escapes what is
// left and masks profanity. Running it on its own output is a no-op.
func (a *Analyzer) FilterContent(text string) string {
	text = normalizeSpace(text)
	text = escapeHTML(stripTags(text))
	// removed tags can leave doubled spaces behind, and can join the halves
	// of a word, so masking runs last
	return a.mask(normalizeSpace(text))
}

func (a *Analyzer) mask(text string) string {
	for _, re := range a.masks {
		text = re.ReplaceAllStringFunc(text, func(m string) string {
			return strings.Repeat("*", utf8.RuneCountInString(m))
		})
	}
	return text
}

func normalizeSpace(s string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}

// stripTags drops anything that looks like a markup tag. An unterminated
// tag swallows the rest of the input.
func stripTags(s string) string {
	var b strings.Builder
	inTag := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inTag:
			if c == '>' {
				inTag = false
			}
		case c == '<' && i+1 < len(s) && isTagStart(s[i+1]):
			inTag = true
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isTagStart(c byte) bool {
	return c == '/' || c == '!' || c == '?' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// escapeHTML escapes markup-significant characters but leaves existing
// entities alone, so escaped text is never double encoded.
func escapeHTML(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '&':
			if entityPattern.MatchString(s[i:]) {
				b.WriteByte('&')
			} else {
				b.WriteString("&amp;")
			}
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&quot;")
		case '\'':
			b.WriteString("&#39;")
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
