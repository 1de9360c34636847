package textindex

import (
	"errors"
	"math"
	"sort"
	"strings"
	"unicode"
)

// ErrEmptyDocument is returned when fitting over a corpus that yields no
// usable tokens at all.
var ErrEmptyDocument = errors.New("document produced no indexable text")

// Vectorizer maps documents to L2-normalized TF-IDF vectors over a fixed
// vocabulary learned at fit time. Exported fields keep the type gob-friendly;
// treat a fitted vectorizer as read-only.
type Vectorizer struct {
	Vocabulary  map[string]int
	IDF         []float64
	MaxFeatures int
}

// FitVectorizer learns a vocabulary and IDF weights from docs. The
// vocabulary is capped at maxFeatures terms, keeping the terms that appear
// in the most documents and breaking ties alphabetically. IDF uses the
// smoothed form log((1+N)/(1+df)) + 1 so unseen terms stay finite.
func FitVectorizer(docs []string, maxFeatures int) (*Vectorizer, error) {
	if maxFeatures <= 0 {
		maxFeatures = 1000
	}

	docFreq := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{})
		for _, term := range tokenize(doc) {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			docFreq[term]++
		}
	}
	if len(docFreq) == 0 {
		return nil, ErrEmptyDocument
	}

	terms := make([]string, 0, len(docFreq))
	for term := range docFreq {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if docFreq[terms[i]] != docFreq[terms[j]] {
			return docFreq[terms[i]] > docFreq[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > maxFeatures {
		terms = terms[:maxFeatures]
	}
	// indices are assigned alphabetically so fitting is deterministic
	sort.Strings(terms)

	v := &Vectorizer{
		Vocabulary:  make(map[string]int, len(terms)),
		IDF:         make([]float64, len(terms)),
		MaxFeatures: maxFeatures,
	}
	total := float64(len(docs))
	for i, term := range terms {
		v.Vocabulary[term] = i
		v.IDF[i] = math.Log((1+total)/float64(1+docFreq[term])) + 1
	}
	return v, nil
}

// Transform produces the TF-IDF vector for doc. Terms outside the fitted
// vocabulary are ignored; a doc with no known terms maps to the zero vector.
func (v *Vectorizer) Transform(doc string) []float32 {
	vec := make([]float32, len(v.IDF))

	counts := make(map[int]int)
	for _, term := range tokenize(doc) {
		if idx, ok := v.Vocabulary[term]; ok {
			counts[idx]++
		}
	}
	if len(counts) == 0 {
		return vec
	}

	var norm float64
	for idx, count := range counts {
		w := float64(count) * v.IDF[idx]
		vec[idx] = float32(w)
		norm += w * w
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for idx := range counts {
			vec[idx] *= inv
		}
	}
	return vec
}

// Dim reports the width of vectors produced by Transform.
func (v *Vectorizer) Dim() int {
	return len(v.IDF)
}

// tokenize lowercases and splits on non-alphanumeric runes, dropping
// single-character tokens the same way the usual TF-IDF token pattern does.
func tokenize(doc string) []string {
	fields := strings.FieldsFunc(strings.ToLower(doc), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	terms := fields[:0]
	for _, f := range fields {
		if len(f) >= 2 {
			terms = append(terms, f)
		}
	}
	return terms
}
