package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daryltucker/gitml/internal/model"
)

func sample() model.Record {
	return model.Record{
		ID:        "0190a1b2c3d4",
		Params:    model.Values{"lr": model.Number(0.01), "optim": model.Map(model.Values{"name": model.String("adam")})},
		Metrics:   model.Values{"acc": model.Number(0.91)},
		Remarks:   "first try",
		Timestamp: time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC),
	}
}

func TestRenderRecord(t *testing.T) {
	table := RenderRecord(sample())
	assert.Contains(t, table, "0190a1b2c3d4")
	assert.Contains(t, table, "lr: 0.01, optim: {name: adam}")
	assert.Contains(t, table, "acc: 0.91")
	assert.Contains(t, table, "first try")

	rows := Rows(model.Record{ID: "x"})
	assert.Equal(t, [][2]string{{"id", "x"}}, rows, "empty fields are omitted")
}

func TestWriteJSONLines(t *testing.T) {
	var buf bytes.Buffer
	recs := []model.Record{sample(), sample()}
	recs[1].ID = "second"
	require.NoError(t, Write(&buf, FormatJSON, "", recs))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	var back model.Record
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &back))
	assert.Equal(t, "second", back.ID)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	other := model.Record{ID: "b", Metrics: model.Values{"loss": model.Number(0.3)}}
	require.NoError(t, Write(&buf, FormatCSV, "", []model.Record{sample(), other}))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"id", "timestamp", "remarks", "metrics.acc", "metrics.loss", "params.lr", "params.optim.name"}, rows[0])
	assert.Equal(t, "adam", rows[1][6])
	assert.Equal(t, "0.3", rows[2][4])
	assert.Equal(t, "", rows[2][3])
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatYAML, "", []model.Record{sample()}))
	out := buf.String()
	assert.Contains(t, out, "id: 0190a1b2c3d4")
	assert.Contains(t, out, "name: adam")
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatTable, f)
	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "auto", "warn")
	logger.Info("hidden")
	logger.Warn("shown", "id", "abc")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"id":"abc"`, "non-terminal writers get JSON")

	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}
