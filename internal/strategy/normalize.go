package strategy

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"viral-strategy-ai/internal/gemini"
)

var fencePattern = regexp.MustCompile("```[A-Za-z0-9_-]*")

// StripFences removes Markdown code-fence markers, keeping what they wrapped.
func StripFences(text string) string {
	return strings.TrimSpace(fencePattern.ReplaceAllString(text, ""))
}

// maxFailedScans bounds how many unbalanced or invalid spans ExtractJSON scans before giving up,
// keeping long runs of stray brackets linear.
const maxFailedScans = 256

// ExtractJSON returns the first balanced JSON object, or array of objects, in text that parses.
// Leading and trailing prose, stray brackets and citation markers like "[1]" are skipped. The raw
// text is scanned first so fences inside string values survive; fence-stripped text is the
// fallback for replies whose fences break the brackets apart.
func ExtractJSON(text string) (string, bool) {
	if candidate, ok := firstJSON(text); ok {
		return candidate, true
	}
	if stripped := StripFences(text); stripped != strings.TrimSpace(text) {
		return firstJSON(stripped)
	}
	return "", false
}

func firstJSON(text string) (string, bool) {
	failed := 0
	for i := 0; i < len(text) && failed < maxFailedScans; i++ {
		if text[i] != '{' && text[i] != '[' {
			continue
		}
		end, ok := balancedEnd(text, i)
		if !ok {
			failed++
			continue
		}
		candidate := text[i : end+1]
		if candidate[0] == '[' && !holdsObjects(candidate) {
			// citation markers are short; long arrays cost a real scan
			if len(candidate) > 16 {
				failed++
			}
			continue
		}
		if json.Valid([]byte(candidate)) {
			return candidate, true
		}
		failed++
	}
	return "", false
}

func holdsObjects(array string) bool {
	inner := strings.TrimSpace(array[1 : len(array)-1])
	return inner == "" || inner[0] == '{'
}

// balancedEnd scans from an opening bracket at start and returns the index of its matching
// closer. Brackets inside JSON strings are ignored.
func balancedEnd(text string, start int) (int, bool) {
	stack := make([]byte, 0, 16)
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != ch {
				return 0, false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// Normalize converts the raw reply of a mode into its typed result. Any parse failure is a
// *MalformedOutputError; there is no partial result.
func Normalize(mode Mode, text string, citations []gemini.Citation) (Result, error) {
	raw, ok := ExtractJSON(text)
	if !ok {
		return nil, malformed(text, errors.New("no JSON value found"))
	}
	data := []byte(raw)
	isArray := raw[0] == '['

	switch mode {
	case ModeSpy:
		rows, err := decodeSpyRows(data, isArray)
		if err != nil {
			return nil, malformed(text, err)
		}
		return SpyResult{
			CompetitorInsights: CompetitorInsights{SpyReport: rows},
			GroundingMetadata:  GroundingMetadata{Sources: citations},
		}, nil

	case ModeTrend:
		items, err := decodeTrends(data, isArray)
		if err != nil {
			return nil, malformed(text, err)
		}
		return TrendResult{Trends: items, GroundingMetadata: GroundingMetadata{Sources: citations}}, nil

	case ModeRefine:
		if isArray {
			return nil, malformed(text, errors.New("expected an object"))
		}
		var r RefineResult
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, malformed(text, err)
		}
		return r, nil

	default:
		if isArray {
			return nil, malformed(text, errors.New("expected an object"))
		}
		var r GenerationResult
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, malformed(text, err)
		}
		return r, nil
	}
}

func decodeSpyRows(data []byte, isArray bool) ([]SpyRow, error) {
	if isArray {
		var rows []SpyRow
		err := json.Unmarshal(data, &rows)
		return rows, err
	}

	var wrapped struct {
		SpyReport          []SpyRow            `json:"spyReport"`
		CompetitorInsights *CompetitorInsights `json:"competitorInsights"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, err
	}
	if len(wrapped.SpyReport) == 0 && wrapped.CompetitorInsights != nil {
		return wrapped.CompetitorInsights.SpyReport, nil
	}
	return wrapped.SpyReport, nil
}

func decodeTrends(data []byte, isArray bool) ([]TrendItem, error) {
	if isArray {
		var items []TrendItem
		err := json.Unmarshal(data, &items)
		return items, err
	}

	var wrapped struct {
		Trends []TrendItem `json:"trends"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Trends, nil
}
