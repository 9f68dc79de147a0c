package records

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/custodia-labs/fintweet/internal/core/domain"
)

// maxLineSize bounds a single JSON Lines record.
const maxLineSize = 4 * 1024 * 1024

// Extensions lists the file extensions ReadFile understands.
var Extensions = []string{".jsonl", ".ndjson", ".json", ".csv", ".tsv"}

// Supported reports whether path has a readable extension.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// ReadFile reads all records from path.
func ReadFile(path string) ([]domain.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	var records []domain.Record
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".jsonl", ".ndjson":
		records, err = ReadJSONL(f)
	case ".json":
		var data []byte
		data, err = io.ReadAll(f)
		if err == nil {
			records, err = DecodeJSON(data)
		}
	case ".csv":
		records, err = ReadDelimited(f, ',')
	case ".tsv":
		records, err = ReadDelimited(f, '\t')
	default:
		return nil, fmt.Errorf("%w: record file extension %q", domain.ErrUnsupportedType, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return records, nil
}

// rawRecord accepts the field spellings and types found in labelled exports.
type rawRecord struct {
	DocID     any             `json:"doc_id"`
	Text      string          `json:"text"`
	CleanText string          `json:"clean_text"`
	Clean     string          `json:"clean"`
	Sentiment string          `json:"sentiment"`
	Topic     string          `json:"topic"`
	Label     *int            `json:"label"`
	Tickers   json.RawMessage `json:"tickers"`
	Embedding []float32       `json:"embedding"`
}

func (r *rawRecord) toRecord(pos int) (domain.Record, error) {
	rec := domain.Record{
		Text:      r.Text,
		CleanText: r.CleanText,
		Sentiment: domain.ParseSentiment(r.Sentiment),
		Topic:     r.Topic,
		Embedding: r.Embedding,
	}

	id, err := formatID(r.DocID)
	if err != nil {
		return rec, err
	}
	if id == "" {
		id = strconv.Itoa(pos)
	}
	rec.DocID = id

	if rec.CleanText == "" {
		rec.CleanText = r.Clean
	}
	if rec.CleanText == "" {
		return rec, fmt.Errorf("%w: record %s has no clean_text", domain.ErrInvalidInput, id)
	}
	if rec.Topic == "" && r.Label != nil {
		rec.Topic = domain.TopicFromLabel(*r.Label)
	}

	tickers, err := parseTickers(r.Tickers)
	if err != nil {
		return rec, fmt.Errorf("%w: record %s: %w", domain.ErrInvalidInput, id, err)
	}
	rec.Tickers = tickers
	return rec, nil
}

// formatID renders string and numeric ids. Large tweet ids arrive as json.Number.
func formatID(v any) (string, error) {
	switch id := v.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(id), nil
	case json.Number:
		return id.String(), nil
	default:
		return "", fmt.Errorf("%w: doc_id must be a string or number", domain.ErrInvalidInput)
	}
}

// parseTickers accepts a JSON array, a "|"-separated string or null.
func parseTickers(raw json.RawMessage) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return splitTickers(s)
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("tickers: %w", err)
	}
	return cleanTickers(list), nil
}

// splitTickers parses a delimited-file cell.
func splitTickers(cell string) ([]string, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" || cell == "[]" {
		return nil, nil
	}
	if strings.HasPrefix(cell, "[") {
		var list []string
		if err := json.Unmarshal([]byte(cell), &list); err != nil {
			// Python list reprs use single quotes.
			if err2 := json.Unmarshal([]byte(strings.ReplaceAll(cell, "'", `"`)), &list); err2 != nil {
				return nil, fmt.Errorf("tickers %q: %w", cell, err)
			}
		}
		return cleanTickers(list), nil
	}
	return cleanTickers(strings.Split(cell, "|")), nil
}

// cleanTickers trims entries and drops empty ones. Duplicates are kept: a
// post naming a ticker twice counts twice, as in the labelled export.
func cleanTickers(in []string) []string {
	out := make([]string, 0, len(in))
	for _, t := range in {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// DecodeJSON parses a single JSON record or an array of records.
func DecodeJSON(data []byte) ([]domain.Record, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", domain.ErrInvalidInput)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raws []rawRecord
	if data[0] == '[' {
		if err := dec.Decode(&raws); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
		}
	} else {
		var one rawRecord
		if err := dec.Decode(&one); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
		}
		raws = []rawRecord{one}
	}

	records := make([]domain.Record, 0, len(raws))
	for i := range raws {
		rec, err := raws[i].toRecord(i)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// ReadJSONL reads one JSON object per line. Blank lines are skipped and do
// not advance the positional id.
func ReadJSONL(r io.Reader) ([]domain.Record, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var records []domain.Record
	line := 0
	for sc.Scan() {
		line++
		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 {
			continue
		}
		dec := json.NewDecoder(bytes.NewReader(text))
		dec.UseNumber()
		var raw rawRecord
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", domain.ErrInvalidInput, line, err)
		}
		rec, err := raw.toRecord(len(records))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// ReadDelimited reads a CSV or TSV file with a header row.
func ReadDelimited(r io.Reader, comma rune) ([]domain.Record, error) {
	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %w", domain.ErrInvalidInput, err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}
	if _, ok := cols["clean_text"]; !ok {
		if _, ok := cols["clean"]; !ok {
			return nil, fmt.Errorf("%w: header has no clean_text or clean column", domain.ErrInvalidInput)
		}
	}

	cell := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var records []domain.Record
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
		}

		pos := len(records)
		raw := rawRecord{
			Text:      cell(row, "text"),
			CleanText: cell(row, "clean_text"),
			Clean:     cell(row, "clean"),
			Sentiment: cell(row, "sentiment"),
			Topic:     cell(row, "topic"),
		}
		if id := strings.TrimSpace(cell(row, "doc_id")); id != "" {
			raw.DocID = id
		}
		if label := strings.TrimSpace(cell(row, "label")); label != "" {
			n, err := strconv.Atoi(label)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d: label %q is not an integer", domain.ErrInvalidInput, pos+1, label)
			}
			raw.Label = &n
		}

		rec, err := raw.toRecord(pos)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", pos+1, err)
		}
		tickers, err := splitTickers(cell(row, "tickers"))
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %w", domain.ErrInvalidInput, pos+1, err)
		}
		rec.Tickers = tickers
		records = append(records, rec)
	}
	return records, nil
}
