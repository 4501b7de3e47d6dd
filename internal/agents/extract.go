// Package agents wraps the text-generation port with task prompts and parses
// structured results out of free-form model output.
package agents

import (
	"encoding/json"
	"strings"
)

type Outcome int

const (
	Parsed Outcome = iota + 1
	Degraded
)

func (o Outcome) String() string {
	switch o {
	case Parsed:
		return "parsed"
	case Degraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// Result is either a parsed value or the raw text it could not be parsed from.
// Raw is always set.
type Result[T any] struct {
	Outcome Outcome
	Value   T
	Raw     string
}

func (r Result[T]) Ok() bool {
	return r.Outcome == Parsed
}

// ExtractJSON looks for the first top-level JSON object in raw. It first tries the
// greedy span from the first '{' to the last '}', then each balanced top-level object in turn.
func ExtractJSON[T any](raw string) Result[T] {
	res := Result[T]{Outcome: Degraded, Raw: raw}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return res
	}
	var v T
	if err := json.Unmarshal([]byte(raw[start:end+1]), &v); err == nil {
		res.Outcome, res.Value = Parsed, v
		return res
	}
	for i := start; i < len(raw); {
		span, ok := balancedObject(raw[i:])
		if !ok {
			break
		}
		var v T
		if err := json.Unmarshal([]byte(span), &v); err == nil {
			res.Outcome, res.Value = Parsed, v
			return res
		}
		i += len(span)
		next := strings.Index(raw[i:], "{")
		if next < 0 {
			break
		}
		i += next
	}
	return res
}

// balancedObject returns the object starting at s[0], honoring JSON string escapes.
func balancedObject(s string) (string, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
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
				return s[:i+1], true
			}
		}
	}
	return "", false
}
