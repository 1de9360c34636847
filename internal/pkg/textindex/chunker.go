package textindex

import "strings"

// DefaultChunkWords is the chunk size used when a caller passes zero.
const DefaultChunkWords = 500

// SplitWords splits text into chunks of at most size whitespace-delimited
// words. Word order is preserved and no word is dropped, so joining the
// chunks back with spaces yields the original word sequence. Blank or
// whitespace-only input produces no chunks.
func SplitWords(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkWords
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	chunks := make([]string, 0, (len(words)+size-1)/size)
	for start := 0; start < len(words); start += size {
		end := start + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks
}
