package domain

import "time"

// Turn is one query/answer exchange in a conversation.
type Turn struct {
	// Query is what the user asked.
	Query string

	// Answer is what the system replied.
	Answer string

	// CreatedAt is when the turn completed.
	CreatedAt time.Time
}

// Tokens returns the approximate token cost of the turn.
func (t Turn) Tokens() int {
	return TokenCount(t.Query) + TokenCount(t.Answer)
}

// ConversationSession holds the ordered dialogue history for one session.
// History is bounded: oldest turns are evicted beyond the configured
// turn count or token budget, whichever binds first.
type ConversationSession struct {
	// ID is the unique identifier for the session.
	ID string

	// CollectionID scopes the session to one collection.
	CollectionID string

	// Turns is the ordered history, oldest first.
	Turns []Turn

	// CreatedAt is when the session started.
	CreatedAt time.Time

	// UpdatedAt is when the last turn was appended.
	UpdatedAt time.Time
}

// Append adds a turn and evicts oldest turns beyond the given bounds.
// A maxTurns or maxTokens of zero means that bound does not apply.
func (s *ConversationSession) Append(turn Turn, maxTurns, maxTokens int) {
	s.Turns = append(s.Turns, turn)
	s.Turns = EvictOldest(s.Turns, maxTurns, maxTokens)
	s.UpdatedAt = turn.CreatedAt
}

// EvictOldest trims turns FIFO until both the turn count and the token
// budget are satisfied. The most recent turn is always kept.
func EvictOldest(turns []Turn, maxTurns, maxTokens int) []Turn {
	if maxTurns > 0 {
		for len(turns) > maxTurns {
			turns = turns[1:]
		}
	}
	if maxTokens > 0 {
		total := 0
		for i := range turns {
			total += turns[i].Tokens()
		}
		for len(turns) > 1 && total > maxTokens {
			total -= turns[0].Tokens()
			turns = turns[1:]
		}
	}
	return turns
}
