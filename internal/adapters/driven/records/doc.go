// Package records reads labelled post files into domain records.
//
// Supported formats, chosen by extension:
//   - .jsonl / .ndjson: one JSON object per line
//   - .json: a single object or an array of objects
//   - .csv / .tsv: a header row naming the columns
//
// Column and field names follow the labelling pipeline output: doc_id,
// text, clean_text (or clean), sentiment, topic (or a numeric label) and
// tickers. Tickers in delimited files are either "|"-separated or a JSON
// array. Records without a doc_id get their zero-based position in the file.
// Fields that are present are never recomputed.
package records
