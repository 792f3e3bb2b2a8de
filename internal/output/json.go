/*
PURPOSE:
  Writes records as JSON Lines (NDJSON) or YAML for machine consumption
  (`gitml ls --format json`, `gitml show --format yaml`).

REQUIREMENTS:
  Implementation-discovered:
  - JSON Lines is friendlier to jq and streaming than one large array.

ARCHITECTURE INTEGRATION:
  - Called by: internal/cli
  - Consumes: internal/model.Record

ERROR HANDLING:
  - Returns error on encode or write failure.

IMPLEMENTATION RULES:
  - Use encoding/json.NewEncoder.
  - Thread-safe.
*/

package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/daryltucker/gitml/internal/model"
)

// JSONWriter handles writing records as JSON lines.
type JSONWriter struct {
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewJSONWriter creates a new JSONWriter on w.
func NewJSONWriter(w io.Writer) *JSONWriter {
	return &JSONWriter{encoder: json.NewEncoder(w)}
}

// Write writes a single record as a JSON line.
func (jw *JSONWriter) Write(rec model.Record) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	return jw.encoder.Encode(rec)
}

// WriteYAML writes records as a YAML sequence, or a single document when
// there is exactly one record.
func WriteYAML(w io.Writer, records ...model.Record) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	var doc any = records
	if len(records) == 1 {
		doc = records[0]
	}
	if err := encoder.Encode(doc); err != nil {
		return err
	}
	return encoder.Close()
}

// Format names a record rendering.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatCSV   Format = "csv"
)

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatTable, FormatJSON, FormatYAML, FormatCSV:
		return f, nil
	case "":
		return FormatTable, nil
	}
	return "", fmt.Errorf("unknown format %q (want table, json, yaml or csv)", s)
}

// Write renders records in format f. title is only used by the table view.
func Write(w io.Writer, f Format, title string, records []model.Record) error {
	switch f {
	case FormatJSON:
		jw := NewJSONWriter(w)
		for _, rec := range records {
			if err := jw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	case FormatYAML:
		return WriteYAML(w, records...)
	case FormatCSV:
		return NewCSVWriter(w).WriteAll(records)
	}
	if title == "" && len(records) == 1 {
		return WriteRecord(w, records[0])
	}
	return WriteRecords(w, title, records)
}
