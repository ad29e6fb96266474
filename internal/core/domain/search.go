package domain

// QueryResult is one retrieved chunk with its scores for one query.
type QueryResult struct {
	// Chunk is the retrieved passage.
	Chunk Chunk

	// Score is the fused relevance score from hybrid retrieval.
	Score float64

	// Confidence is the calibrated confidence in [0,1].
	Confidence float64
}

// Evaluation scores a generated answer against its retrieved context.
type Evaluation struct {
	// Groundedness is the degree to which the answer is supported by
	// the retrieved passages, in [0,1].
	Groundedness float64

	// Relevance is the degree to which the answer addresses the query,
	// in [0,1].
	Relevance float64
}

// SearchOutput is the response to one query.
type SearchOutput struct {
	// Answer is the generated answer text. Empty when generation was
	// unavailable.
	Answer string

	// Results are the retrieved passages ordered by final rank.
	Results []QueryResult

	// OverallConfidence is the calibrated confidence in the answer,
	// in [0,1].
	OverallConfidence float64

	// RewrittenQuery is the isolated query actually used for retrieval.
	RewrittenQuery string

	// Evaluation holds groundedness and relevance scores for the answer.
	Evaluation Evaluation

	// GenerationUnavailable is set when retrieval succeeded but answer
	// synthesis failed. Results are still populated so the caller can
	// show evidence.
	GenerationUnavailable bool
}
