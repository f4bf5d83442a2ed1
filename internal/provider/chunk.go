package provider

import "strings"

// Chunk splits text into pieces each no larger than roughly 95% of
// maxChars, first along paragraph boundaries ("\n\n") and then, for any
// paragraph still too large, along sentence boundaries. A single sentence
// longer than the budget is not split further and becomes one oversized
// piece. Pieces are meant to be translated independently and rejoined
// with "\n\n".
func Chunk(text string, maxChars int) []string {
	if maxChars <= 0 || len(text) <= maxChars {
		return []string{text}
	}
	budget := int(float64(maxChars) * 0.95)
	if budget <= 0 {
		budget = maxChars
	}

	var chunks []string
	var cur strings.Builder

	flush := func() {
		if cur.Len() > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
	}

	for _, para := range strings.Split(text, "\n\n") {
		piece := para
		if len(piece) > budget {
			for _, sentence := range splitSentences(piece) {
				if cur.Len() > 0 && cur.Len()+2+len(sentence) > budget {
					flush()
				}
				if cur.Len() > 0 {
					cur.WriteString(" ")
				}
				cur.WriteString(sentence)
				if cur.Len() > budget {
					flush()
				}
			}
			continue
		}
		if cur.Len() > 0 && cur.Len()+2+len(piece) > budget {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteString("\n\n")
		}
		cur.WriteString(piece)
	}
	flush()
	if len(chunks) == 0 {
		return []string{text}
	}
	return chunks
}

func splitSentences(s string) []string {
	var out []string
	start := 0
	for i, r := range s {
		if r == '.' || r == '!' || r == '?' {
			end := i + 1
			if end > start {
				out = append(out, strings.TrimSpace(s[start:end]))
			}
			start = end
		}
	}
	if start < len(s) {
		rest := strings.TrimSpace(s[start:])
		if rest != "" {
			out = append(out, rest)
		}
	}
	if len(out) == 0 {
		return []string{s}
	}
	return out
}
