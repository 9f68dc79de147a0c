// Package vectorindex groups the driven.VectorIndex implementations.
//
//   - hnsw: approximate hierarchical navigable small world graph (default)
//   - flat: exact exhaustive scan
//
// Both use cosine similarity over L2-normalised copies of the input vectors
// and order hits by similarity descending, then insertion sequence ascending.
// Neither persists anything: the durable entry store is the source of truth
// and the index is rebuilt from it at open.
package vectorindex
