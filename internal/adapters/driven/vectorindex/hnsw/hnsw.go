package hnsw

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/coder/hnsw"

	"github.com/custodia-labs/fintweet/internal/adapters/driven/vectorindex/vecmath"
	"github.com/custodia-labs/fintweet/internal/core/domain"
	"github.com/custodia-labs/fintweet/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Default configuration values
const (
	DefaultM              = 16
	DefaultEfConstruction = 200
	DefaultEfSearch       = 64
	DefaultSeed           = 42
)

// Config holds graph parameters.
type Config struct {
	// Dimensions is the vector size. Required.
	Dimensions int

	// M is the number of links per node.
	M int

	// EfConstruction is the candidate list size while inserting.
	EfConstruction int

	// EfSearch is the candidate list size while searching. Raised to k when smaller.
	EfSearch int

	// Seed drives level assignment.
	Seed int64
}

type node struct {
	id  string
	seq int64
	vec []float32
}

// Index provides approximate nearest-neighbour search with cosine similarity.
// Graph keys are positions in nodes.
type Index struct {
	mu    sync.Mutex
	cfg   Config
	graph *hnsw.Graph[int]

	nodes []node
	byID  map[string]int
	// zeros are positions of zero vectors. They have no direction, so they
	// stay out of the graph and score 0 against every query.
	zeros  []int
	closed bool
}

// New creates an empty index. Zero-valued parameters take their defaults.
func New(cfg Config) (*Index, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("%w: hnsw: dimension must be positive", domain.ErrInvalidInput)
	}
	if cfg.M == 0 {
		cfg.M = DefaultM
	}
	if cfg.M < 2 {
		return nil, fmt.Errorf("%w: hnsw: M must be at least 2", domain.ErrInvalidInput)
	}
	if cfg.EfConstruction <= 0 {
		cfg.EfConstruction = DefaultEfConstruction
	}
	if cfg.EfSearch <= 0 {
		cfg.EfSearch = DefaultEfSearch
	}

	g := hnsw.NewGraph[int]()
	g.M = cfg.M
	g.Ml = 1 / math.Log(float64(cfg.M))
	g.Distance = hnsw.CosineDistance
	g.Rng = rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // G404: level assignment, not security sensitive.

	return &Index{
		cfg:   cfg,
		graph: g,
		byID:  make(map[string]int),
	}, nil
}

// Add inserts a vector. Adding a known id is a no-op.
func (idx *Index) Add(_ context.Context, docID string, seq int64, embedding []float32) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return fmt.Errorf("%w: hnsw: index is closed", domain.ErrVectorIndexUnavailable)
	}
	if len(embedding) != idx.cfg.Dimensions {
		return fmt.Errorf("%w: hnsw: embedding dimension mismatch", domain.ErrInvalidInput)
	}
	if _, ok := idx.byID[docID]; ok {
		return nil
	}

	key := len(idx.nodes)
	vec := vecmath.Normalize(embedding)
	idx.nodes = append(idx.nodes, node{id: docID, seq: seq, vec: vec})
	idx.byID[docID] = key

	if isZero(vec) {
		idx.zeros = append(idx.zeros, key)
		return nil
	}
	idx.graph.EfSearch = idx.cfg.EfConstruction
	idx.graph.Add(hnsw.MakeNode(key, vec))
	return nil
}

// Search returns up to k approximate nearest neighbours, most similar first.
// When the graph walk yields fewer than min(k, Len()) hits the index falls
// back to an exhaustive scan, so the result size is always min(k, Len()).
func (idx *Index) Search(_ context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return nil, fmt.Errorf("%w: hnsw: index is closed", domain.ErrVectorIndexUnavailable)
	}
	if len(query) != idx.cfg.Dimensions {
		return nil, fmt.Errorf("%w: hnsw: query dimension mismatch", domain.ErrInvalidInput)
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: hnsw: k must be positive", domain.ErrInvalidInput)
	}
	if len(idx.nodes) == 0 {
		return []driven.VectorHit{}, nil
	}

	q := vecmath.Normalize(query)
	want := min(k, len(idx.nodes))

	var hits []driven.VectorHit
	if !isZero(q) && idx.graph.Len() > 0 {
		idx.graph.EfSearch = max(idx.cfg.EfSearch, k)
		for _, n := range idx.graph.Search(q, k) {
			hits = append(hits, idx.hit(q, n.Key))
		}
		for _, key := range idx.zeros {
			hits = append(hits, idx.hit(q, key))
		}
	}
	if len(hits) < want {
		hits = idx.scan(q)
	}

	vecmath.SortHits(hits)
	return hits[:want], nil
}

// Len returns the number of indexed vectors.
func (idx *Index) Len() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return len(idx.nodes)
}

// Close releases resources.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.closed = true
	idx.graph = nil
	idx.nodes = nil
	idx.byID = nil
	idx.zeros = nil
	return nil
}

func (idx *Index) hit(q []float32, key int) driven.VectorHit {
	n := idx.nodes[key]
	return driven.VectorHit{DocID: n.id, Seq: n.seq, Similarity: vecmath.Dot(q, n.vec)}
}

func (idx *Index) scan(q []float32) []driven.VectorHit {
	hits := make([]driven.VectorHit, len(idx.nodes))
	for i := range idx.nodes {
		hits[i] = idx.hit(q, i)
	}
	return hits
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
