package archive

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"
)

// ErrDigestMismatch is returned when an artifact file no longer matches
// the digest recorded at save time.
var ErrDigestMismatch = errors.New("artifact digest mismatch")

// artifactMagic prefixes every artifact written by this package. Files
// without it are read as raw, uncompressed serializer output.
var artifactMagic = []byte("GMLA")

// ArtifactOptions configures how a model blob is written and read.
type ArtifactOptions struct {
	Serializer  Serializer
	Compression Compression
	// Digest, when set on load, must equal the digest of the file.
	Digest string
}

// Digest returns the hex BLAKE3-256 digest of data.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// fileDigest hashes the file at path.
func fileDigest(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return Digest(data), nil
}

// SaveArtifact serializes value to path and returns the digest of the
// written file. An existing file is left untouched and its digest returned.
func SaveArtifact(path string, value any, opts ArtifactOptions) (string, error) {
	if _, err := os.Stat(path); err == nil {
		return fileDigest(path)
	}
	if opts.Serializer == nil {
		return "", fmt.Errorf("failed to save artifact %s: no serializer", path)
	}

	payload, err := opts.Serializer.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("failed to serialize model: %w", err)
	}
	payload, err = compress(payload, opts.Compression)
	if err != nil {
		return "", err
	}

	data := make([]byte, 0, len(artifactMagic)+1+len(payload))
	data = append(data, artifactMagic...)
	data = append(data, byte(opts.Compression))
	data = append(data, payload...)

	if err := writeFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("failed to write artifact %s: %w", path, err)
	}
	return Digest(data), nil
}

// LoadArtifact reads the artifact at path and decodes it into v, which
// must be a pointer.
func LoadArtifact(path string, v any, opts ArtifactOptions) error {
	if opts.Serializer == nil {
		return fmt.Errorf("failed to load artifact %s: no serializer", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read artifact %s: %w", path, err)
	}
	if opts.Digest != "" && Digest(data) != opts.Digest {
		return fmt.Errorf("%w: %s", ErrDigestMismatch, path)
	}

	payload := data
	if bytes.HasPrefix(data, artifactMagic) && len(data) > len(artifactMagic) {
		tag := Compression(data[len(artifactMagic)])
		payload, err = decompress(data[len(artifactMagic)+1:], tag)
		if err != nil {
			return fmt.Errorf("failed to read artifact %s: %w", path, err)
		}
	}
	if err := opts.Serializer.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("failed to deserialize model %s: %w", path, err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
