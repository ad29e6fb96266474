package services

import (
	"fmt"
	"strings"

	"github.com/tessera-labs/tessera/internal/core/domain"
)

// ContextManager maintains bounded session history and produces an
// isolated query context.
//
// The two outputs of BuildContext travel on deliberately separate
// paths: the isolated query is the only text retrieval ever sees, while
// the context window goes only to answer generation. Concatenating
// history into the retrieval query lets earlier topics contaminate
// ranking for unrelated follow-ups, so the separation is structural,
// not a tuning knob.
type ContextManager struct {
	cfg domain.SessionConfig
}

// NewContextManager creates a context manager with the given bounds.
func NewContextManager(cfg domain.SessionConfig) *ContextManager {
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = 10
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2000
	}
	return &ContextManager{cfg: cfg}
}

// BuildContext derives the retrieval query and the generation context
// window from a session and a new query. The isolated query is a
// function of newQuery alone.
func (m *ContextManager) BuildContext(
	session *domain.ConversationSession, newQuery string,
) (isolatedQuery string, window []domain.Turn, err error) {
	isolatedQuery = strings.Join(domain.Tokens(newQuery), " ")
	if isolatedQuery == "" {
		return "", nil, fmt.Errorf("%w: query is empty", domain.ErrInvalidInput)
	}

	if session != nil {
		window = domain.EvictOldest(append([]domain.Turn(nil), session.Turns...),
			m.cfg.MaxTurns, m.cfg.MaxTokens)
	}
	return isolatedQuery, window, nil
}

// AppendTurn records a completed exchange on the session, evicting the
// oldest turns beyond the configured bounds.
func (m *ContextManager) AppendTurn(session *domain.ConversationSession, turn domain.Turn) {
	session.Append(turn, m.cfg.MaxTurns, m.cfg.MaxTokens)
}
