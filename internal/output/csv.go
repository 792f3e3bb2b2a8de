/*
PURPOSE:
  Writes records as CSV for `gitml ls --format csv`.
  One row per record; params and metrics flattened into dotted columns so
  runs can be compared in a spreadsheet.

REQUIREMENTS:
  Implementation-discovered:
  - Column set is the union of all param/metric keys across the records,
    sorted, so every row lines up.
  - Nested mappings flatten as "params.optim.lr".

ARCHITECTURE INTEGRATION:
  - Called by: internal/cli
  - Consumes: internal/model.Record

ERROR HANDLING:
  - Returns error on write failure.

IMPLEMENTATION RULES:
  - Use encoding/csv.
  - Flush() after every write.

USAGE:
  w := output.NewCSVWriter(os.Stdout)
  err := w.WriteAll(records)
*/

package output

import (
	"encoding/csv"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/daryltucker/gitml/internal/model"
)

// CSVWriter handles writing records as CSV.
type CSVWriter struct {
	writer *csv.Writer
	mu     sync.Mutex
}

// NewCSVWriter creates a new CSVWriter on w.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{writer: csv.NewWriter(w)}
}

// WriteAll writes a header and one row per record.
// It is thread-safe.
func (cw *CSVWriter) WriteAll(records []model.Record) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	flat := make([]map[string]string, len(records))
	keySet := map[string]bool{}
	for i, rec := range records {
		row := map[string]string{}
		flatten("params", rec.Params, row)
		flatten("metrics", rec.Metrics, row)
		for k := range row {
			keySet[k] = true
		}
		flat[i] = row
	}
	keys := make([]string, 0, len(keySet))
	for k := range keySet {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	header := append([]string{"id", "timestamp", "remarks"}, keys...)
	if err := cw.writer.Write(header); err != nil {
		return err
	}

	for i, rec := range records {
		row := []string{rec.ID, rec.Timestamp.UTC().Format(time.RFC3339), rec.Remarks}
		for _, k := range keys {
			row = append(row, flat[i][k])
		}
		if err := cw.writer.Write(row); err != nil {
			return err
		}
		cw.writer.Flush()
	}
	cw.writer.Flush()
	return cw.writer.Error()
}

func flatten(prefix string, values model.Values, into map[string]string) {
	for k, v := range values {
		key := prefix + "." + k
		if nested, ok := v.Map(); ok {
			flatten(key, nested, into)
			continue
		}
		into[key] = v.String()
	}
}
