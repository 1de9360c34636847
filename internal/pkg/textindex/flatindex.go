package textindex

import (
	"fmt"
	"math"
	"sort"
)

// Neighbor is one search hit: the position of the stored vector and its
// Euclidean distance from the query.
type Neighbor struct {
	Index    int
	Distance float32
}

// FlatIndex is an exact k-nearest-neighbor index over fixed-dimension
// vectors. Search scans every stored vector, so lookups are O(n*dim);
// fine at chapter-of-a-book scale.
type FlatIndex struct {
	Dim     int
	Vectors [][]float32
}

func NewFlatIndex(dim int) *FlatIndex {
	return &FlatIndex{Dim: dim}
}

// Add appends vectors to the index in order. Every vector must match the
// index dimension.
func (f *FlatIndex) Add(vectors ...[]float32) error {
	for _, vec := range vectors {
		if len(vec) != f.Dim {
			return fmt.Errorf("vector dimension %d does not match index dimension %d", len(vec), f.Dim)
		}
	}
	f.Vectors = append(f.Vectors, vectors...)
	return nil
}

// Len reports the number of stored vectors.
func (f *FlatIndex) Len() int {
	return len(f.Vectors)
}

// Search returns the k nearest stored vectors to query by Euclidean
// distance, ascending. Equal distances rank the lower stored index first.
// When k exceeds the stored count all vectors are returned.
func (f *FlatIndex) Search(query []float32, k int) ([]Neighbor, error) {
	if len(query) != f.Dim {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(query), f.Dim)
	}
	if k <= 0 || len(f.Vectors) == 0 {
		return nil, nil
	}
	if k > len(f.Vectors) {
		k = len(f.Vectors)
	}

	neighbors := make([]Neighbor, len(f.Vectors))
	for i, vec := range f.Vectors {
		neighbors[i] = Neighbor{Index: i, Distance: euclidean(query, vec)}
	}
	sort.SliceStable(neighbors, func(i, j int) bool {
		if neighbors[i].Distance != neighbors[j].Distance {
			return neighbors[i].Distance < neighbors[j].Distance
		}
		return neighbors[i].Index < neighbors[j].Index
	})
	return neighbors[:k], nil
}

func euclidean(a, b []float32) float32 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return float32(math.Sqrt(sum))
}

// FitIndex fits a vectorizer over chunks and builds a flat index holding
// one vector per chunk, in chunk order.
func FitIndex(chunks []string, maxFeatures int) (*Vectorizer, *FlatIndex, error) {
	if len(chunks) == 0 {
		return nil, nil, ErrEmptyDocument
	}
	vectorizer, err := FitVectorizer(chunks, maxFeatures)
	if err != nil {
		return nil, nil, err
	}

	index := NewFlatIndex(vectorizer.Dim())
	for _, chunk := range chunks {
		if err := index.Add(vectorizer.Transform(chunk)); err != nil {
			return nil, nil, err
		}
	}
	return vectorizer, index, nil
}
