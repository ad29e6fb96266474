package driving

import (
	"context"

	"github.com/tessera-labs/tessera/internal/core/domain"
)

// QueryService is the query-side boundary of the engine.
type QueryService interface {
	// Search answers a natural-language query against a collection,
	// maintaining the session's conversation history. Calls for
	// different sessions run in parallel; calls on the same session are
	// serialised in submission order.
	Search(ctx context.Context, collectionID, sessionID, query string) (*domain.SearchOutput, error)
}
