package safety

import "unicode/utf8"

// Reason identifies the check that rejected a piece of content.
type Reason string

const (
	ReasonLength     Reason = "length"
	ReasonSpam       Reason = "spam"
	ReasonProfanity  Reason = "profanity"
	ReasonRepetition Reason = "repetition"
	ReasonLinks      Reason = "links"
)

// Message returns a user-facing explanation for the reason.
func (r Reason) Message() string {
	switch r {
	case ReasonLength:
		return "Comment length is outside the allowed range"
	case ReasonSpam:
		return "Comment contains spam"
	case ReasonProfanity:
		return "Comment contains inappropriate language"
	case ReasonRepetition:
		return "Comment contains excessive repetition"
	case ReasonLinks:
		return "Comment contains suspicious links"
	default:
		return string(r)
	}
}

// Report is a full breakdown of every check, for moderation dashboards.
type Report struct {
	Length              int    `json:"length"`
	LengthValid         bool   `json:"is_length_valid"`
	ContainsSpam        bool   `json:"contains_spam"`
	ContainsProfanity   bool   `json:"contains_profanity"`
	ExcessiveRepetition bool   `json:"has_excessive_repetition"`
	SuspiciousLinks     bool   `json:"has_suspicious_links"`
	IsSafe              bool   `json:"is_safe"`
	FilteredReason      Reason `json:"filtered_reason,omitempty"`
	LinkCount           int    `json:"link_count"`
	MentionCount        int    `json:"mention_count"`
}

// Analyze runs every check and reports each result individually. Spam and
// profanity matches are reported even when the corresponding filter is off.
func (a *Analyzer) Analyze(text string) Report {
	reason, failed := a.FilteredReason(text)
	return Report{
		Length:              utf8.RuneCountInString(text),
		LengthValid:         a.lengthValid(text),
		ContainsSpam:        a.ContainsSpam(text),
		ContainsProfanity:   a.ContainsProfanity(text),
		ExcessiveRepetition: HasExcessiveRepetition(text),
		SuspiciousLinks:     HasSuspiciousLinks(text),
		IsSafe:              !failed,
		FilteredReason:      reason,
		LinkCount:           LinkCount(text),
		MentionCount:        MentionCount(text),
	}
}
