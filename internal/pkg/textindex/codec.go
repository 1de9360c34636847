package textindex

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// Artifacts travel through the object store as gob blobs. Encoding and
// decoding stay symmetric here so the storage layer never touches the
// concrete types.

func EncodeVectorizer(v *Vectorizer) ([]byte, error) {
	return encode(v, "vectorizer")
}

func DecodeVectorizer(data []byte) (*Vectorizer, error) {
	var v Vectorizer
	if err := decode(data, &v, "vectorizer"); err != nil {
		return nil, err
	}
	return &v, nil
}

func EncodeIndex(f *FlatIndex) ([]byte, error) {
	return encode(f, "index")
}

func DecodeIndex(data []byte) (*FlatIndex, error) {
	var f FlatIndex
	if err := decode(data, &f, "index"); err != nil {
		return nil, err
	}
	return &f, nil
}

func EncodeChunks(chunks []string) ([]byte, error) {
	return encode(chunks, "chunks")
}

func DecodeChunks(data []byte) ([]string, error) {
	var chunks []string
	if err := decode(data, &chunks, "chunks"); err != nil {
		return nil, err
	}
	return chunks, nil
}

func encode(value any, kind string) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(value); err != nil {
		return nil, fmt.Errorf("encode %s: %w", kind, err)
	}
	return buf.Bytes(), nil
}

func decode(data []byte, target any, kind string) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(target); err != nil {
		return fmt.Errorf("decode %s: %w", kind, err)
	}
	return nil
}
