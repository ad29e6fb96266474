package services

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-labs/tessera/internal/core/domain"
)

func TestContextManager_IsolatedQueryIgnoresHistory(t *testing.T) {
	m := NewContextManager(domain.SessionConfig{MaxTurns: 10, MaxTokens: 2000})

	empty := &domain.ConversationSession{ID: "s1"}
	loaded := &domain.ConversationSession{ID: "s2", Turns: []domain.Turn{
		{Query: "tell me about kubernetes networking", Answer: "a long answer about CNI plugins"},
		{Query: "and service meshes", Answer: "istio and linkerd details"},
	}}

	fromEmpty, _, err := m.BuildContext(empty, "what is database replication")
	require.NoError(t, err)
	fromLoaded, window, err := m.BuildContext(loaded, "what is database replication")
	require.NoError(t, err)

	// Retrieval sees the same text regardless of what came before.
	assert.Equal(t, fromEmpty, fromLoaded)
	assert.NotContains(t, fromLoaded, "kubernetes")

	// Generation still gets the history.
	assert.Len(t, window, 2)
}

func TestContextManager_EmptyQueryRejected(t *testing.T) {
	m := NewContextManager(domain.SessionConfig{})

	_, _, err := m.BuildContext(&domain.ConversationSession{}, "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestContextManager_WindowRespectsTurnBound(t *testing.T) {
	m := NewContextManager(domain.SessionConfig{MaxTurns: 3, MaxTokens: 100000})

	session := &domain.ConversationSession{ID: "s1"}
	for i := 0; i < 6; i++ {
		m.AppendTurn(session, domain.Turn{
			Query:     "question " + strings.Repeat("x", i+1),
			Answer:    "answer",
			CreatedAt: time.Now(),
		})
	}

	assert.Len(t, session.Turns, 3)
	// Oldest evicted first: the survivors are the three most recent.
	assert.Equal(t, "question xxxx", session.Turns[0].Query)
}

func TestContextManager_WindowRespectsTokenBudget(t *testing.T) {
	m := NewContextManager(domain.SessionConfig{MaxTurns: 100, MaxTokens: 12})

	session := &domain.ConversationSession{ID: "s1"}
	// 8 tokens per turn, budget 12: only the latest survives.
	for i := 0; i < 3; i++ {
		m.AppendTurn(session, domain.Turn{
			Query:  "four tokens in query",
			Answer: "four tokens in answer",
		})
	}

	assert.Len(t, session.Turns, 1)
}

func TestContextManager_MostRecentTurnAlwaysKept(t *testing.T) {
	m := NewContextManager(domain.SessionConfig{MaxTurns: 5, MaxTokens: 2})

	session := &domain.ConversationSession{ID: "s1"}
	m.AppendTurn(session, domain.Turn{
		Query:  "a turn far larger than the whole token budget allows",
		Answer: "and an answer to match it",
	})

	// Over budget on its own, but never evicted.
	require.Len(t, session.Turns, 1)
}
