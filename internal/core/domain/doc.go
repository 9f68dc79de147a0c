// Package domain holds the types shared by every layer of fintweet: labelled
// posts (Record), stored embeddings (IndexedEntry), the persisted collection
// header (Collection), per-ticker sentiment rows (PivotRow), settings and the
// sentinel errors.
//
// Domain imports nothing outside the standard library. Every other internal
// package may import it.
package domain
