package books

import (
	"fmt"
	"path"
	"strings"

	"github.com/bookableu/core/internal/pkg/textindex"
)

// artifactKeys groups the object store keys derived from one uploaded file.
// All four derived keys share the raw key's base so a book's artifacts sit
// next to each other under the owner's prefix.
type artifactKeys struct {
	Raw        string
	Text       string
	Index      string
	Vectorizer string
	Chunks     string
}

// rawFileKey places an upload under the owner's prefix.
func rawFileKey(userID, filename string) string {
	return path.Join("users", userID, path.Base(filename))
}

// deriveArtifactKeys computes the sidecar keys for a raw file key.
func deriveArtifactKeys(rawKey string) artifactKeys {
	base := strings.TrimSuffix(rawKey, path.Ext(rawKey))
	return artifactKeys{
		Raw:        rawKey,
		Text:       base + "_text.txt",
		Index:      base + "_index.gob",
		Vectorizer: base + "_vectorizer.gob",
		Chunks:     base + "_chunks.gob",
	}
}

// withCollisionCounter renames the raw key to {base}{n}{ext} for n >= 1.
func withCollisionCounter(rawKey string, n int) string {
	ext := path.Ext(rawKey)
	return fmt.Sprintf("%s%d%s", strings.TrimSuffix(rawKey, ext), n, ext)
}

// allKeys lists every object key belonging to a book, for deletion.
func (k artifactKeys) allKeys() []string {
	return []string{k.Raw, k.Text, k.Index, k.Vectorizer, k.Chunks}
}

func encodeVectorizer(v *textindex.Vectorizer) ([]byte, error) {
	data, err := textindex.EncodeVectorizer(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return data, nil
}

func decodeVectorizer(data []byte) (*textindex.Vectorizer, error) {
	v, err := textindex.DecodeVectorizer(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return v, nil
}

func encodeIndex(idx *textindex.FlatIndex) ([]byte, error) {
	data, err := textindex.EncodeIndex(idx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return data, nil
}

func decodeIndex(data []byte) (*textindex.FlatIndex, error) {
	idx, err := textindex.DecodeIndex(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return idx, nil
}

func encodeChunks(chunks []string) ([]byte, error) {
	data, err := textindex.EncodeChunks(chunks)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return data, nil
}

func decodeChunks(data []byte) ([]string, error) {
	chunks, err := textindex.DecodeChunks(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return chunks, nil
}
