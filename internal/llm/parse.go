package llm

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

// MatchEvaluation is the structured result scraped out of the evaluation
// call's output. Fields are pointers because the upstream schema is not
// guaranteed; absent or unparseable values stay nil.
type MatchEvaluation struct {
	MatchScore           *float64
	ShortlistProbability *float64
	Summary              string
}

// ParseMatchEvaluation digs a JSON object out of free-form generator output:
// code fences are stripped, the first balanced object substring is located,
// and known fields are coerced leniently. An error here means the caller
// should degrade to a partial result, never fail the job.
func ParseMatchEvaluation(raw string) (*MatchEvaluation, error) {
	cleaned := stripCodeFences(raw)
	obj := firstJSONObject(cleaned)
	if obj == "" {
		return nil, errors.New("no JSON object in generator output")
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(obj), &data); err != nil {
		return nil, err
	}

	eval := &MatchEvaluation{Summary: coerceString(data["summary"])}
	if v, ok := coerceFloat(data["matchScore"]); ok {
		eval.MatchScore = &v
	}
	if v, ok := coerceFloat(data["shortlistProbability"]); ok {
		eval.ShortlistProbability = &v
	}
	return eval, nil
}

func stripCodeFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	return strings.TrimSpace(strings.Trim(raw, "`"))
}

// firstJSONObject returns the first balanced {...} substring, tracking
// strings and escapes so braces inside values don't break the count.
func firstJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func coerceFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return 0, false
		}
		return val, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func coerceString(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}
