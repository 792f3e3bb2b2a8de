package archive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type linearModel struct {
	Weights []float64         `json:"weights" cbor:"weights"`
	Bias    float64           `json:"bias" cbor:"bias"`
	Labels  map[string]string `json:"labels" cbor:"labels"`
}

func TestArtifactRoundTrip(t *testing.T) {
	cbor, err := NewCBORSerializer()
	require.NoError(t, err)

	want := linearModel{Weights: []float64{0.5, -1.25, 3}, Bias: 0.1, Labels: map[string]string{"0": "cat", "1": "dog"}}

	for _, serializer := range []Serializer{cbor, JSONSerializer{}} {
		for _, c := range []Compression{CompressionNone, CompressionZstd, CompressionLZ4} {
			t.Run(serializer.Name()+"/"+c.String(), func(t *testing.T) {
				path := filepath.Join(t.TempDir(), "model")
				opts := ArtifactOptions{Serializer: serializer, Compression: c}

				digest, err := SaveArtifact(path, want, opts)
				require.NoError(t, err)
				assert.Len(t, digest, 64)

				var got linearModel
				opts.Digest = digest
				require.NoError(t, LoadArtifact(path, &got, opts))
				assert.Equal(t, want, got)
			})
		}
	}
}

func TestSaveArtifactDoesNotOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model")
	opts := ArtifactOptions{Serializer: JSONSerializer{}}

	first, err := SaveArtifact(path, map[string]any{"v": 1}, opts)
	require.NoError(t, err)
	second, err := SaveArtifact(path, map[string]any{"v": 2}, opts)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	var got map[string]any
	require.NoError(t, LoadArtifact(path, &got, opts))
	assert.Equal(t, float64(1), got["v"])
}

func TestLoadArtifactDigestMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model")
	opts := ArtifactOptions{Serializer: JSONSerializer{}}
	_, err := SaveArtifact(path, []int{1, 2, 3}, opts)
	require.NoError(t, err)

	opts.Digest = Digest([]byte("something else"))
	var got []int
	assert.ErrorIs(t, LoadArtifact(path, &got, opts), ErrDigestMismatch)
}

func TestLoadArtifactRawPayload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model")
	require.NoError(t, os.WriteFile(path, []byte(`{"bias": 2}`), 0644))

	var got linearModel
	require.NoError(t, LoadArtifact(path, &got, ArtifactOptions{Serializer: JSONSerializer{}}))
	assert.Equal(t, 2.0, got.Bias)
}

func TestCBORDecodesStringMaps(t *testing.T) {
	s, err := NewCBORSerializer()
	require.NoError(t, err)

	data, err := s.Marshal(map[string]any{"outer": map[string]any{"inner": "x"}})
	require.NoError(t, err)

	var got any
	require.NoError(t, s.Unmarshal(data, &got))
	outer, ok := got.(map[string]any)["outer"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "x", outer["inner"])
}

func TestParseCompression(t *testing.T) {
	for _, name := range []string{"none", "zstd", "lz4"} {
		c, err := ParseCompression(name)
		require.NoError(t, err)
		assert.Equal(t, name, c.String())
	}
	_, err := ParseCompression("gzip")
	assert.Error(t, err)
}
