// Package hnsw implements driven.VectorIndex on github.com/coder/hnsw, a
// hierarchical navigable small world graph in pure Go.
//
// The graph is held in memory only. Level assignment draws from a seeded
// generator. Hits are rescored against normalised copies of the vectors and
// ordered by similarity, then by insertion sequence.
package hnsw
