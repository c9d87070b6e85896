package chat

// MaxChunkSize is the platform's message length ceiling.
const MaxChunkSize = 2000

// SplitChunks splits text into maximal chunks of at most size characters,
// preserving order. Splitting counts runes so a multi-byte character is
// never cut in half. The chunks concatenate back to the original text.
func SplitChunks(text string, size int) []string {
	if size <= 0 {
		size = MaxChunkSize
	}

	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}

	chunks := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}

	return chunks
}
