package domain

// IngestReport summarises one ingestion batch.
type IngestReport struct {
	// BatchID correlates log lines of a single batch.
	BatchID string `json:"batch_id"`

	// Received is the number of records in the batch.
	Received int `json:"received"`

	// Inserted is the number of entries newly added to the document store.
	Inserted int `json:"inserted"`

	// Skipped is the number of records whose doc_id was already indexed.
	Skipped int `json:"skipped"`

	// RecordSetSize is the size of the record set after the append.
	RecordSetSize int `json:"record_set_size"`
}
