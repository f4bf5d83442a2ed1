package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"log/slog"
)

// Wire format for batched item translation/classification: NDJSON, one
// JSON object per line, e.g.:
//
//	{"idx":1,"text":"Hello"}
//	{"idx":2,"text":"Line 1\nLine 2"}
//
// The model is instructed to echo the same shape back.

const AbbreviationMax = 250

var errNoItemsParsed = errors.New("llm: no items parsed from model output")

type WireItem struct {
	Idx  int    `json:"idx"`
	Text string `json:"text"`
}

func FormatOneItem(idx int, text string) ([]byte, error) {
	item := WireItem{Idx: idx, Text: strings.ReplaceAll(text, "\r\n", "\n")}
	return json.Marshal(item)
}

func FormatItems(idxs []int, texts []string) (string, error) {
	if len(idxs) != len(texts) {
		return "", errors.New("llm: idxs and texts length mismatch")
	}
	var b strings.Builder
	for i := range idxs {
		if idxs[i] <= 0 {
			return "", errors.New("llm: idx must be positive")
		}
		if i > 0 {
			b.WriteByte('\n')
		}
		enc, err := FormatOneItem(idxs[i], texts[i])
		if err != nil {
			return "", err
		}
		b.Write(enc)
	}
	return b.String(), nil
}

type ParsedItem struct {
	Idx  int
	Text string
}

// ParseItems applies a cascading sequence of strategies to recover
// structured items from a model's reply, tolerating common malformed-LLM-
// output failure modes without ever silently discarding a parseable item.
func ParseItems(out string) ([]ParsedItem, error) {
	out = strings.ReplaceAll(out, "\r\n", "\n")
	out = stripCodeFences(out)
	out = strings.TrimSpace(out)
	if out == "" {
		return nil, errors.New("llm: empty model output")
	}

	if strings.HasPrefix(out, "[") {
		return parseItemsJSONArray(out)
	}

	if res, err := parseItemsByBraces(out); err == nil {
		return res, nil
	}

	if res, err := parseItemsByLines(out); err == nil {
		return res, nil
	}

	if res, salvaged, err := parseItemsByLinesWithRepair(out); err == nil {
		if salvaged > 0 {
			slog.Debug("salvaged invalid json lines in model output", "salvaged", salvaged)
		}
		return res, nil
	}

	if res, err := parseItemsByRepairingText(out); err == nil {
		slog.Debug("salvaged invalid json output by repairing extracted json objects")
		return res, nil
	}

	_, err := parseItemsByLines(out)
	return nil, err
}

func parseItemsJSONArray(trim string) ([]ParsedItem, error) {
	var items []WireItem
	if err := json.Unmarshal([]byte(trim), &items); err != nil {
		return nil, fmt.Errorf("llm: invalid json array: %w", err)
	}
	res := make([]ParsedItem, 0, len(items))
	for _, it := range items {
		if it.Idx <= 0 {
			return nil, fmt.Errorf("llm: invalid idx in item: %d", it.Idx)
		}
		res = append(res, ParsedItem{Idx: it.Idx, Text: it.Text})
	}
	if len(res) == 0 {
		return nil, errNoItemsParsed
	}
	return res, nil
}

func parseItemsByLines(trim string) ([]ParsedItem, error) {
	lines := strings.Split(trim, "\n")
	res := make([]ParsedItem, 0, len(lines))
	for lineNo, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var it WireItem
		if err := json.Unmarshal([]byte(line), &it); err != nil {
			return nil, fmt.Errorf("llm: invalid json line %d: %w (line=%q)", lineNo+1, err, abbreviate(line, AbbreviationMax))
		}
		if it.Idx <= 0 {
			return nil, fmt.Errorf("llm: invalid idx in item at line %d: %d (line=%q)", lineNo+1, it.Idx, abbreviate(line, AbbreviationMax))
		}
		res = append(res, ParsedItem{Idx: it.Idx, Text: it.Text})
	}
	if len(res) == 0 {
		return nil, errNoItemsParsed
	}
	return res, nil
}

func parseItemsByLinesWithRepair(trim string) ([]ParsedItem, int, error) {
	lines := strings.Split(trim, "\n")
	res := make([]ParsedItem, 0, len(lines))
	salvaged := 0
	for lineNo, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var it WireItem
		if err := json.Unmarshal([]byte(line), &it); err == nil {
			if it.Idx <= 0 {
				return nil, salvaged, fmt.Errorf("llm: invalid idx in item at line %d: %d (line=%q)", lineNo+1, it.Idx, abbreviate(line, AbbreviationMax))
			}
			res = append(res, ParsedItem{Idx: it.Idx, Text: it.Text})
			continue
		}
		strictErr := json.Unmarshal([]byte(line), &it)

		idx, text, ok, sErr := extractIdxAndTextBestEffort(line)
		if sErr != nil || !ok || idx <= 0 {
			return nil, salvaged, fmt.Errorf("llm: invalid json line %d: %w (line=%q)", lineNo+1, strictErr, abbreviate(line, AbbreviationMax))
		}
		res = append(res, ParsedItem{Idx: idx, Text: text})
		salvaged++
	}
	if len(res) == 0 {
		return nil, salvaged, errNoItemsParsed
	}
	return res, salvaged, nil
}

func parseItemsByBraces(s string) ([]ParsedItem, error) {
	objs := extractJSONObjectSegmentsWithOffsets(s)
	if len(objs) == 0 {
		return nil, errNoItemsParsed
	}
	res := make([]ParsedItem, 0, len(objs))
	for i, obj := range objs {
		var it WireItem
		if err := json.Unmarshal([]byte(obj.JSON), &it); err != nil {
			return nil, fmt.Errorf("llm: invalid json object #%d at offset %d: %w (obj=%q)", i+1, obj.Start, err, abbreviate(obj.JSON, AbbreviationMax))
		}
		if it.Idx <= 0 {
			return nil, fmt.Errorf("llm: invalid idx in object #%d at offset %d: %d", i+1, obj.Start, it.Idx)
		}
		res = append(res, ParsedItem{Idx: it.Idx, Text: it.Text})
	}
	return res, nil
}

type jsonSegment struct {
	Start int
	JSON  string
}

func extractJSONObjectSegmentsWithOffsets(s string) []jsonSegment {
	var res []jsonSegment
	inStr := false
	esc := false
	depth := 0
	start := -1
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inStr {
			if esc {
				esc = false
				continue
			}
			if c == '\\' {
				esc = true
				continue
			}
			if c == '"' {
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					seg := strings.TrimSpace(s[start : i+1])
					res = append(res, jsonSegment{Start: start, JSON: seg})
					start = -1
				}
			}
		}
	}
	return res
}

func abbreviate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	if strings.HasPrefix(s, "```") {
		if i := strings.Index(s, "\n"); i >= 0 {
			s = s[i+1:]
		}
		if j := strings.LastIndex(s, "```"); j >= 0 {
			s = s[:j]
		}
	}
	return s
}

func parseItemsByRepairingText(s string) ([]ParsedItem, error) {
	segs := extractJSONObjectSegmentsWithOffsets(s)
	if len(segs) == 0 {
		return nil, errNoItemsParsed
	}
	res := make([]ParsedItem, 0, len(segs))
	for i, seg := range segs {
		idx, text, ok, err := extractIdxAndTextBestEffort(seg.JSON)
		if err != nil {
			return nil, fmt.Errorf("llm: cannot salvage object #%d at offset %d: %w (obj=%q)", i+1, seg.Start, err, abbreviate(seg.JSON, AbbreviationMax))
		}
		if !ok {
			return nil, fmt.Errorf("llm: cannot salvage object #%d at offset %d (obj=%q)", i+1, seg.Start, abbreviate(seg.JSON, AbbreviationMax))
		}
		if idx <= 0 {
			return nil, fmt.Errorf("llm: invalid idx in salvaged item #%d at offset %d: %d", i+1, seg.Start, idx)
		}
		fixed, mErr := json.Marshal(WireItem{Idx: idx, Text: text})
		if mErr != nil {
			return nil, fmt.Errorf("llm: cannot marshal salvaged item #%d at offset %d: %w", i+1, seg.Start, mErr)
		}
		var it WireItem
		if uErr := json.Unmarshal(fixed, &it); uErr != nil {
			return nil, fmt.Errorf("llm: cannot unmarshal salvaged item #%d at offset %d: %w (fixed=%q)", i+1, seg.Start, uErr, abbreviate(string(fixed), AbbreviationMax))
		}
		res = append(res, ParsedItem{Idx: it.Idx, Text: it.Text})
	}
	if len(res) == 0 {
		return nil, errNoItemsParsed
	}
	return res, nil
}

// extractIdxAndTextBestEffort recovers idx/text from an object shaped like
// {"idx":119,"text":"..."} even when text contains unescaped quotes.
func extractIdxAndTextBestEffort(obj string) (idx int, text string, ok bool, err error) {
	obj = strings.TrimSpace(obj)
	if obj == "" {
		return 0, "", false, nil
	}

	idxPos := strings.Index(obj, "\"idx\"")
	if idxPos < 0 {
		return 0, "", false, nil
	}
	colon := strings.IndexByte(obj[idxPos:], ':')
	if colon < 0 {
		return 0, "", false, errors.New("missing ':' after idx")
	}
	p := idxPos + colon + 1
	for p < len(obj) && (obj[p] == ' ' || obj[p] == '\t' || obj[p] == '\n' || obj[p] == '\r') {
		p++
	}
	if p >= len(obj) {
		return 0, "", false, errors.New("missing idx value")
	}
	startNum := p
	if obj[p] == '-' {
		p++
	}
	for p < len(obj) && obj[p] >= '0' && obj[p] <= '9' {
		p++
	}
	if p == startNum || (obj[startNum] == '-' && p == startNum+1) {
		return 0, "", false, errors.New("invalid idx number")
	}
	parsedIdx, convErr := strconv.Atoi(strings.TrimSpace(obj[startNum:p]))
	if convErr != nil {
		return 0, "", false, fmt.Errorf("invalid idx: %w", convErr)
	}

	textKey := strings.Index(obj, "\"text\"")
	if textKey < 0 {
		return 0, "", false, nil
	}
	colon2 := strings.IndexByte(obj[textKey:], ':')
	if colon2 < 0 {
		return 0, "", false, errors.New("missing ':' after text")
	}
	q := textKey + colon2 + 1
	for q < len(obj) && (obj[q] == ' ' || obj[q] == '\t' || obj[q] == '\n' || obj[q] == '\r') {
		q++
	}
	if q >= len(obj) || obj[q] != '"' {
		return 0, "", false, errors.New("text value is not a string")
	}
	q++

	var raw strings.Builder
	for q < len(obj) {
		c := obj[q]
		if c == '"' {
			k := q + 1
			for k < len(obj) && (obj[k] == ' ' || obj[k] == '\t' || obj[k] == '\n' || obj[k] == '\r') {
				k++
			}
			if k < len(obj) {
				if obj[k] == '}' {
					break
				}
				if obj[k] == ',' {
					k2 := k + 1
					for k2 < len(obj) && (obj[k2] == ' ' || obj[k2] == '\t' || obj[k2] == '\n' || obj[k2] == '\r') {
						k2++
					}
					if k2 < len(obj) && obj[k2] == '"' {
						break
					}
				}
			}
			raw.WriteByte('\\')
			raw.WriteByte('"')
			q++
			continue
		}
		if c == '\\' {
			raw.WriteByte('\\')
			q++
			if q >= len(obj) {
				break
			}
			if obj[q] < utf8.RuneSelf {
				raw.WriteByte(obj[q])
				q++
				continue
			}
			r, size := utf8.DecodeRuneInString(obj[q:])
			if r == utf8.RuneError && size == 1 {
				raw.WriteByte(obj[q])
				q++
				continue
			}
			raw.WriteRune(r)
			q += size
			continue
		}
		if c < utf8.RuneSelf {
			raw.WriteByte(c)
			q++
			continue
		}
		r, size := utf8.DecodeRuneInString(obj[q:])
		if r == utf8.RuneError && size == 1 {
			raw.WriteByte(c)
			q++
			continue
		}
		raw.WriteRune(r)
		q += size
	}
	if q >= len(obj) {
		return 0, "", false, errors.New("unterminated text string")
	}

	wrapped := "\"" + raw.String() + "\""
	var decoded string
	if uErr := json.Unmarshal([]byte(wrapped), &decoded); uErr != nil {
		return 0, "", false, fmt.Errorf("cannot decode text: %w", uErr)
	}
	return parsedIdx, decoded, true, nil
}
