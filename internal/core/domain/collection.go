package domain

import "fmt"

// DefaultCollection is the logical name of the post index.
const DefaultCollection = "tweets"

// Metric is a vector similarity metric.
type Metric string

// MetricCosine is the only metric the document store supports.
const MetricCosine Metric = "cosine"

// Collection declares a persisted index. Metric and Dimensions are fixed at
// creation time.
type Collection struct {
	Name       string
	Metric     Metric
	Dimensions int
}

// Validate checks the declaration is usable.
func (c Collection) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: collection name is required", ErrInvalidInput)
	}
	if c.Metric != MetricCosine {
		return fmt.Errorf("%w: unsupported metric %q", ErrInvalidInput, c.Metric)
	}
	if c.Dimensions <= 0 {
		return fmt.Errorf("%w: collection dimensions must be positive", ErrInvalidInput)
	}
	return nil
}

// Compatible reports whether an existing declaration matches c.
func (c Collection) Compatible(existing Collection) error {
	if existing.Metric != c.Metric || existing.Dimensions != c.Dimensions {
		return fmt.Errorf("%w: %q was created with metric=%s dimensions=%d, requested metric=%s dimensions=%d",
			ErrCollectionMismatch, c.Name, existing.Metric, existing.Dimensions, c.Metric, c.Dimensions)
	}
	return nil
}
