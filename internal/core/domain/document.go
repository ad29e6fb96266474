package domain

import "time"

// DocumentStatus tracks a document through the ingestion pipeline.
type DocumentStatus string

// Document lifecycle states.
const (
	// DocumentStatusPending means the document is uploaded but not yet processed.
	DocumentStatusPending DocumentStatus = "pending"

	// DocumentStatusChunking means the document is being split into chunks.
	DocumentStatusChunking DocumentStatus = "chunking"

	// DocumentStatusEmbedding means chunks are being embedded and indexed.
	DocumentStatusEmbedding DocumentStatus = "embedding"

	// DocumentStatusReady means the document is fully searchable.
	DocumentStatusReady DocumentStatus = "ready"

	// DocumentStatusFailed means ingestion failed; FailReason explains why.
	DocumentStatusFailed DocumentStatus = "failed"
)

// IsValid returns true if the status is recognised.
func (s DocumentStatus) IsValid() bool {
	switch s {
	case DocumentStatusPending, DocumentStatusChunking, DocumentStatusEmbedding,
		DocumentStatusReady, DocumentStatusFailed:
		return true
	default:
		return false
	}
}

// InFlight returns true while the ingestion pipeline is still working
// on the document.
func (s DocumentStatus) InFlight() bool {
	return s == DocumentStatusPending || s == DocumentStatusChunking || s == DocumentStatusEmbedding
}

// Document represents one ingested document.
// It is owned by exactly one Collection, created on upload, and mutated
// only by the ingestion pipeline. The query pipeline never writes it.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// CollectionID links to the owning Collection.
	CollectionID string

	// SourceRef is the original location (file path, URL, upload name).
	SourceRef string

	// Content is the full extracted text before chunking.
	Content string

	// Status is the document's position in the ingestion state machine.
	Status DocumentStatus

	// FailReason holds the failure classification when Status is failed.
	// It names a specific error kind (token limit, adapter failure),
	// never a generic message.
	FailReason string

	// Excluded marks a failed document as deliberately left out of the
	// collection after its retries were exhausted. An excluded document
	// no longer blocks the collection from becoming ready.
	Excluded bool

	// QuestionCoverage is the fraction of the document's chunks that are
	// referenced by at least one generated question.
	QuestionCoverage float64

	// CreatedAt is when the document was submitted.
	CreatedAt time.Time

	// UpdatedAt is when the document last changed.
	UpdatedAt time.Time
}

// Chunk represents the unit of retrieval within a document.
// Chunks are contiguous and ordered by Seq with no gaps beyond the
// configured overlap, and TokenCount never exceeds the configured ceiling.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// CollectionID links to the owning Collection, denormalised so the
	// retrieval indexes can partition by collection without a join.
	CollectionID string

	// Seq is the ordinal position within the document.
	Seq int

	// Text is the chunk's content.
	Text string

	// TokenCount is the number of tokens in Text.
	TokenCount int

	// OverlapTokens is how many leading tokens are shared with the
	// previous chunk. Zero for the first chunk.
	OverlapTokens int

	// Embedding is the vector representation, set once embedded.
	Embedding []float32

	// EmbedModel identifies the model that produced Embedding.
	// All chunks in a collection share one model.
	EmbedModel string

	// EmbedFailed marks a chunk whose embedding call failed while the
	// rest of the document continued (partial-failure isolation).
	EmbedFailed bool
}
