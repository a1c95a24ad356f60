package comment

import "time"

// VoteType is the direction of a vote.
type VoteType string

const (
	Like    VoteType = "like"
	Dislike VoteType = "dislike"
)

// ValidVoteTypes is the set of allowed vote types.
var ValidVoteTypes = []VoteType{Like, Dislike}

// IsValid checks if a vote type is recognized.
func (t VoteType) IsValid() bool {
	for _, v := range ValidVoteTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Label returns a human-readable label for the vote type.
func (t VoteType) Label() string {
	switch t {
	case Like:
		return "Like"
	case Dislike:
		return "Dislike"
	default:
		return string(t)
	}
}

// IsPositive reports whether the vote counts towards likes.
func (t VoteType) IsPositive() bool {
	return t == Like
}

// IsNegative reports whether the vote counts towards dislikes.
func (t VoteType) IsNegative() bool {
	return t == Dislike
}

// deltas returns the counter adjustments for adding (sign 1) or removing
// (sign -1) one vote of this type.
func (t VoteType) deltas(sign int64) (likes, dislikes int64) {
	if t == Like {
		return sign, 0
	}
	return 0, sign
}

// Vote is one voter's vote on a comment.
type Vote struct {
	ID        int64      `json:"id"`
	CommentID int64      `json:"comment_id"`
	VoterID   string     `json:"voter_id,omitempty"`
	VoterIP   string     `json:"voter_ip,omitempty"`
	Type      VoteType   `json:"vote_type"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Voter identifies who is voting. ID is authoritative when set; IP is used
// only for anonymous voters.
type Voter struct {
	ID string
	IP string
}

// Key returns the effective identity used to enforce one vote per voter.
// It is empty when the voter carries no identity at all.
func (v Voter) Key() string {
	switch {
	case v.ID != "":
		return "id:" + v.ID
	case v.IP != "":
		return "ip:" + v.IP
	default:
		return ""
	}
}

// VoteAction describes what a vote call did.
type VoteAction string

const (
	VoteCreated VoteAction = "created"
	VoteUpdated VoteAction = "updated"
	VoteRemoved VoteAction = "removed"
)

// VoteStats is computed from the vote rows themselves.
type VoteStats struct {
	Likes    int64 `json:"likes"`
	Dislikes int64 `json:"dislikes"`
	Total    int64 `json:"total"`
	Score    int64 `json:"score"`
}
