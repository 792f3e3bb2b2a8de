/*
PURPOSE:
  Defines the core data structures used throughout GitML.
  A Record describes one saved iteration (or a promoted commit): its id,
  hyper-parameters, metrics, free-text remarks and creation time.

REQUIREMENTS:
  User-specified:
  - Params and metrics are arbitrary nested mappings supplied by the user's program.
  - Records are immutable once written.

  Implementation-discovered:
  - Params/metrics must round-trip through the JSON record store without loss,
    so they are a closed set of value variants (see value.go), not interface{}.
  - The artifact digest is kept on the record so a load can detect a tampered model file.

ARCHITECTURE INTEGRATION:
  - Used by: internal/store, internal/iteration, internal/output, pkg/gitml
  - Shared across boundaries.

ERROR HANDLING:
  - None (pure data structs).

IMPLEMENTATION RULES:
  - Keep structs simple and public.
  - Timestamps are time.Time in UTC; ordering uses time comparison, never string compare.
  - Stores written by older releases carry "20060102150405" local-time
    timestamps; they are read and re-written as RFC 3339.

USAGE:
  rec := model.Record{ID: id, Params: params, Timestamp: time.Now().UTC()}

SELF-HEALING INSTRUCTIONS:
  - If a field is added, update output/table.go and output/csv.go column lists.

RELATED FILES:
  - internal/model/value.go
  - internal/output/table.go

MAINTENANCE:
  - Adding fields is backward compatible (omitempty); never rename json tags,
    existing .gitml/.data files depend on them.
*/

package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Record represents a single saved iteration or commit.
type Record struct {
	ID        string    `json:"id" yaml:"id"`
	Params    Values    `json:"params" yaml:"params"`
	Metrics   Values    `json:"metrics" yaml:"metrics"`
	Remarks   string    `json:"remarks" yaml:"remarks"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`

	// ModelDigest is the BLAKE3 digest of the stored artifact bytes. Empty
	// when the iteration was saved without a model.
	ModelDigest string `json:"model_digest,omitempty" yaml:"model_digest,omitempty"`
	// Serializer names the codec the model was written with (e.g. "cbor").
	Serializer string `json:"serializer,omitempty" yaml:"serializer,omitempty"`
}

// LegacyTimestampLayout is the compact local-time timestamp older stores use.
const LegacyTimestampLayout = "20060102150405"

// UnmarshalJSON accepts RFC 3339 and legacy compact timestamps.
func (r *Record) UnmarshalJSON(data []byte) error {
	type plain Record
	aux := struct {
		*plain
		Timestamp json.RawMessage `json:"timestamp"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	ts, err := parseTimestamp(aux.Timestamp)
	if err != nil {
		return fmt.Errorf("record %s: %w", r.ID, err)
	}
	r.Timestamp = ts
	return nil
}

func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, nil
	}
	var s string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, err
		}
	} else {
		s = string(raw)
	}
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.ParseInLocation(LegacyTimestampLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
	}
	return t.UTC(), nil
}

// SortByTimestamp sorts records newest first. Records with equal timestamps
// keep a stable order by id so listings are deterministic.
func SortByTimestamp(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Timestamp.Equal(records[j].Timestamp) {
			return records[i].ID > records[j].ID
		}
		return records[i].Timestamp.After(records[j].Timestamp)
	})
}

// Kind selects one of the two record collections.
type Kind string

const (
	KindIteration Kind = "iteration"
	KindCommit    Kind = "commit"
)

// Plural returns the display form used in listings ("iterations", "commits").
func (k Kind) Plural() string {
	return string(k) + "s"
}
