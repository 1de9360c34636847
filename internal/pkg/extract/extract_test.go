package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCache struct {
	store map[string]Result
	gets  int
	sets  int
}

func newFakeCache() *fakeCache {
	return &fakeCache{store: make(map[string]Result)}
}

func (c *fakeCache) Get(_ context.Context, key string) (Result, bool, error) {
	c.gets++
	result, ok := c.store[key]
	return result, ok, nil
}

func (c *fakeCache) Set(_ context.Context, key string, result Result) error {
	c.sets++
	c.store[key] = result
	return nil
}

func buildEPUB(t *testing.T, chapters map[string]string, spine []string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	write := func(name, content string) {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}

	write("META-INF/container.xml", `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`)

	var manifest, spineRefs bytes.Buffer
	for id := range chapters {
		manifest.WriteString(`<item id="` + id + `" href="` + id + `.xhtml" media-type="application/xhtml+xml"/>`)
	}
	for _, id := range spine {
		spineRefs.WriteString(`<itemref idref="` + id + `"/>`)
	}
	write("OEBPS/content.opf", `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <manifest>`+manifest.String()+`</manifest>
  <spine>`+spineRefs.String()+`</spine>
</package>`)

	for id, text := range chapters {
		write("OEBPS/"+id+".xhtml", `<html><head><style>p{margin:0}</style></head><body><p>`+text+`</p></body></html>`)
	}

	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestExtractUnsupportedFormat(t *testing.T) {
	svc := NewService(nil, time.Minute, nil)

	_, err := svc.Extract(context.Background(), "notes.txt", []byte("plain text"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = svc.Extract(context.Background(), "archive.mobi", nil)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestExtractEPUBSpineOrder(t *testing.T) {
	data := buildEPUB(t, map[string]string{
		"ch1": "Call me Ishmael.",
		"ch2": "It was the best of times.",
	}, []string{"ch2", "ch1"})

	svc := NewService(nil, time.Minute, nil)
	result, err := svc.Extract(context.Background(), "book.epub", data)
	require.NoError(t, err)

	// spine order wins over manifest order
	assert.Equal(t, "It was the best of times.\nCall me Ishmael.", result.Text)
	assert.Zero(t, result.PageCount)
}

func TestExtractEPUBStripsStyle(t *testing.T) {
	data := buildEPUB(t, map[string]string{"ch1": "Visible text only."}, []string{"ch1"})

	svc := NewService(nil, time.Minute, nil)
	result, err := svc.Extract(context.Background(), "book.epub", data)
	require.NoError(t, err)
	assert.NotContains(t, result.Text, "margin")
	assert.Contains(t, result.Text, "Visible text only.")
}

func TestExtractCorruptEPUB(t *testing.T) {
	svc := NewService(nil, time.Minute, nil)
	_, err := svc.Extract(context.Background(), "book.epub", []byte("not a zip archive"))
	assert.ErrorIs(t, err, ErrExtractionFailed)
}

func TestExtractCorruptPDF(t *testing.T) {
	svc := NewService(nil, time.Minute, nil)
	_, err := svc.Extract(context.Background(), "book.pdf", []byte("%PDF-1.4 garbage"))
	assert.ErrorIs(t, err, ErrExtractionFailed)
}

func TestExtractCacheHit(t *testing.T) {
	data := buildEPUB(t, map[string]string{"ch1": "Cached chapter."}, []string{"ch1"})
	cache := newFakeCache()
	svc := NewService(cache, time.Minute, nil)

	first, err := svc.Extract(context.Background(), "book.epub", data)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)

	second, err := svc.Extract(context.Background(), "book.epub", data)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, cache.sets, "hit must not rewrite the cache")
	assert.Equal(t, 2, cache.gets)
}

func TestFingerprintSensitivity(t *testing.T) {
	base := Fingerprint("book.pdf", []byte("content"))
	assert.NotEqual(t, base, Fingerprint("other.pdf", []byte("content")))
	assert.NotEqual(t, base, Fingerprint("book.pdf", []byte("different")))
	assert.Equal(t, base, Fingerprint("book.pdf", []byte("content")))
}
