// Package bleve implements the lexical index on top of an in-memory
// Bleve index, partitioned by collection.
package bleve

import (
	"context"
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"

	"github.com/tessera-labs/tessera/internal/core/domain"
	"github.com/tessera-labs/tessera/internal/core/ports/driven"
)

// Index implements driven.LexicalIndex using Bleve term scoring.
type Index struct {
	idx bleve.Index
}

var _ driven.LexicalIndex = (*Index)(nil)

// chunkDoc is the shape Bleve indexes per chunk. The collection ID is
// indexed verbatim so searches can be constrained to one collection
// with an exact term filter.
type chunkDoc struct {
	CollectionID string `json:"collection_id"`
	Text         string `json:"text"`
}

// NewIndex creates an in-memory lexical index.
// The standard analyzer (lowercase + tokenize, no stemming) is used for
// chunk text so query terms match the exact words that appear in chunks.
func NewIndex() (*Index, error) {
	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = standard.Name
	textField.Store = false
	textField.IncludeInAll = false

	collectionField := bleve.NewKeywordFieldMapping()
	collectionField.Store = false
	collectionField.IncludeInAll = false

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("text", textField)
	docMapping.AddFieldMappingsAt("collection_id", collectionField)

	im := bleve.NewIndexMapping()
	im.DefaultMapping = docMapping

	idx, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("failed to create lexical index: %w", err)
	}
	return &Index{idx: idx}, nil
}

// Index adds or updates a chunk. Re-indexing the same chunk ID replaces
// the previous entry.
func (x *Index) Index(ctx context.Context, chunk domain.Chunk) error {
	doc := chunkDoc{CollectionID: chunk.CollectionID, Text: chunk.Text}
	if err := x.idx.Index(chunk.ID, doc); err != nil {
		return fmt.Errorf("failed to index chunk %s: %w", chunk.ID, err)
	}
	return nil
}

// Search runs a match query over chunk text, restricted to one
// collection, and returns up to limit hits ordered by score.
func (x *Index) Search(ctx context.Context, collectionID, query string, limit int) ([]driven.LexicalHit, error) {
	mq := bleve.NewMatchQuery(query)
	mq.SetField("text")
	tq := bleve.NewTermQuery(collectionID)
	tq.SetField("collection_id")

	req := bleve.NewSearchRequest(bleve.NewConjunctionQuery(mq, tq))
	req.Size = limit

	res, err := x.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("lexical search failed: %w", err)
	}

	hits := make([]driven.LexicalHit, 0, len(res.Hits))
	for _, hit := range res.Hits {
		hits = append(hits, driven.LexicalHit{ChunkID: hit.ID, Score: hit.Score})
	}
	return hits, nil
}

// Delete removes a chunk from the index. Deleting an unknown chunk ID
// is a no-op.
func (x *Index) Delete(ctx context.Context, chunkID string) error {
	if err := x.idx.Delete(chunkID); err != nil {
		return fmt.Errorf("failed to delete chunk %s: %w", chunkID, err)
	}
	return nil
}

// Close releases the index.
func (x *Index) Close() error {
	return x.idx.Close()
}
