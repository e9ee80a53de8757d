// Package retrieval implements the retrieval half of the question-answering
// pipeline: keyword (BM25) search over a corpus snapshot, the vector-search
// contract, weighted score fusion with fingerprint deduplication,
// cross-encoder reranking with a deterministic fallback, and LLM-backed
// query expansion.
//
// Score semantics are local to each stage. Raw vector distances are converted
// to similarities, each source list is min-max normalized independently, and
// only then are lists fused. Scores from different stages must never be
// compared without renormalization.
package retrieval
