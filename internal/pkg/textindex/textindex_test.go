package textindex

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitWordsPreservesSequence(t *testing.T) {
	words := make([]string, 0, 1203)
	for i := 0; i < 1203; i++ {
		words = append(words, fmt.Sprintf("w%d", i))
	}
	text := strings.Join(words, " ")

	chunks := SplitWords(text, 500)
	require.Len(t, chunks, 3)
	assert.Len(t, strings.Fields(chunks[0]), 500)
	assert.Len(t, strings.Fields(chunks[1]), 500)
	assert.Len(t, strings.Fields(chunks[2]), 203)

	// joining the chunks reproduces the original word sequence
	assert.Equal(t, text, strings.Join(chunks, " "))
}

func TestSplitWordsEmptyAndWhitespace(t *testing.T) {
	assert.Empty(t, SplitWords("", 500))
	assert.Empty(t, SplitWords("   \n\t  ", 500))
}

func TestSplitWordsDefaultSize(t *testing.T) {
	text := strings.Repeat("word ", 501)
	chunks := SplitWords(text, 0)
	require.Len(t, chunks, 2)
	assert.Len(t, strings.Fields(chunks[1]), 1)
}

func TestFitVectorizerEmptyCorpus(t *testing.T) {
	_, err := FitVectorizer(nil, 1000)
	assert.ErrorIs(t, err, ErrEmptyDocument)

	_, err = FitVectorizer([]string{"", "  .,!  "}, 1000)
	assert.ErrorIs(t, err, ErrEmptyDocument)
}

func TestFitVectorizerCapsVocabulary(t *testing.T) {
	docs := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		docs = append(docs, fmt.Sprintf("term%02d appears here", i))
	}

	v, err := FitVectorizer(docs, 5)
	require.NoError(t, err)
	assert.Len(t, v.Vocabulary, 5)
	assert.Len(t, v.IDF, 5)

	// "appears" and "here" occur in every doc, so the cap must keep them
	assert.Contains(t, v.Vocabulary, "appears")
	assert.Contains(t, v.Vocabulary, "here")
}

func TestTransformNormalizedAndDeterministic(t *testing.T) {
	docs := []string{
		"the whale surfaced near the ship",
		"the captain watched the whale",
		"storms battered the ship all night",
	}
	v, err := FitVectorizer(docs, 1000)
	require.NoError(t, err)

	vec := v.Transform(docs[0])
	var norm float64
	for _, x := range vec {
		norm += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, norm, 1e-5)

	again := v.Transform(docs[0])
	assert.Equal(t, vec, again)

	// unknown-only text maps to the zero vector
	zero := v.Transform("xylophone zebra")
	for _, x := range zero {
		assert.Zero(t, x)
	}
}

func TestFitIndexSelfQuery(t *testing.T) {
	chunks := []string{
		"ishmael goes to sea aboard the pequod",
		"ahab reveals his hunt for the white whale",
		"queequeg and ishmael share a room in new bedford",
	}
	vectorizer, index, err := FitIndex(chunks, 1000)
	require.NoError(t, err)
	require.Equal(t, len(chunks), index.Len())

	for i, chunk := range chunks {
		hits, err := index.Search(vectorizer.Transform(chunk), 1)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, i, hits[0].Index)
		assert.InDelta(t, 0, hits[0].Distance, 1e-5)
	}
}

func TestSearchOrderingAndTies(t *testing.T) {
	index := NewFlatIndex(2)
	require.NoError(t, index.Add(
		[]float32{0, 1},  // distance 1 from origin
		[]float32{3, 4},  // distance 5
		[]float32{1, 0},  // distance 1, tie with index 0
		[]float32{0.5, 0}, // distance 0.5
	))

	hits, err := index.Search([]float32{0, 0}, 4)
	require.NoError(t, err)
	require.Len(t, hits, 4)

	assert.Equal(t, 3, hits[0].Index)
	assert.Equal(t, 0, hits[1].Index) // tie resolved toward the lower index
	assert.Equal(t, 2, hits[2].Index)
	assert.Equal(t, 1, hits[3].Index)
	for i := 1; i < len(hits); i++ {
		assert.LessOrEqual(t, hits[i-1].Distance, hits[i].Distance)
	}
}

func TestSearchClampsK(t *testing.T) {
	index := NewFlatIndex(1)
	require.NoError(t, index.Add([]float32{1}, []float32{2}))

	hits, err := index.Search([]float32{0}, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	hits, err = index.Search([]float32{0}, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestDimensionMismatch(t *testing.T) {
	index := NewFlatIndex(3)
	assert.Error(t, index.Add([]float32{1, 2}))

	_, err := index.Search([]float32{1, 2}, 1)
	assert.Error(t, err)
}

func TestCodecRoundTrip(t *testing.T) {
	chunks := []string{"first chunk of text", "second chunk of text"}
	vectorizer, index, err := FitIndex(chunks, 1000)
	require.NoError(t, err)

	vecData, err := EncodeVectorizer(vectorizer)
	require.NoError(t, err)
	idxData, err := EncodeIndex(index)
	require.NoError(t, err)
	chunkData, err := EncodeChunks(chunks)
	require.NoError(t, err)

	gotVec, err := DecodeVectorizer(vecData)
	require.NoError(t, err)
	assert.Equal(t, vectorizer.Vocabulary, gotVec.Vocabulary)
	assert.Equal(t, vectorizer.IDF, gotVec.IDF)

	gotIdx, err := DecodeIndex(idxData)
	require.NoError(t, err)
	assert.Equal(t, index.Dim, gotIdx.Dim)
	assert.Equal(t, index.Vectors, gotIdx.Vectors)

	gotChunks, err := DecodeChunks(chunkData)
	require.NoError(t, err)
	assert.Equal(t, chunks, gotChunks)
}

func TestCodecCorruptData(t *testing.T) {
	_, err := DecodeVectorizer([]byte("not gob"))
	assert.Error(t, err)
	_, err = DecodeIndex([]byte{0x01, 0x02})
	assert.Error(t, err)
	_, err = DecodeChunks(nil)
	assert.Error(t, err)
}
