package qgen

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"ai-edulab-be/pkg/store"
)

// Parser recovers structured question objects from free-form model
// output. It never returns an error: unusable text degrades to fewer
// or zero items, and the caller decides what zero items means.
//
// Tiers, each attempted only when the previous one fails:
//  1. strip a markdown fence
//  2. direct JSON parse (a bare object is wrapped in a list)
//  3. escape-sanitize the text and re-parse (repairs LaTeX like \frac)
//  4. scan for individual non-nested {...} objects and parse each
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

var objectPattern = regexp.MustCompile(`\{[^{}]*\}`)

// ParseQuestions extracts question records from raw model text.
// Missing fields get defaults so partially well-formed output still
// yields usable records; ids absent from the model output are
// synthesized as q1, q2, ...
func (p *Parser) ParseQuestions(raw string) []store.GeneratedQuestion {
	objects := p.parseObjects(raw)

	questions := make([]store.GeneratedQuestion, 0, len(objects))
	for i, obj := range objects {
		questions = append(questions, p.toQuestion(obj, i))
	}
	return questions
}

func (p *Parser) parseObjects(raw string) []map[string]interface{} {
	text := stripFence(raw)

	if objects, ok := tryParse(text); ok {
		return objects
	}

	sanitized := sanitizeEscapes(text)
	if objects, ok := tryParse(sanitized); ok {
		return objects
	}

	// Last resort: pick out individual object substrings
	var objects []map[string]interface{}
	for _, match := range objectPattern.FindAllString(text, -1) {
		var obj map[string]interface{}
		if err := json.Unmarshal([]byte(match), &obj); err == nil {
			objects = append(objects, obj)
			continue
		}
		if err := json.Unmarshal([]byte(sanitizeEscapes(match)), &obj); err == nil {
			objects = append(objects, obj)
		}
	}
	return objects
}

// tryParse accepts either a JSON array of objects or a single object.
func tryParse(text string) ([]map[string]interface{}, bool) {
	var list []map[string]interface{}
	if err := json.Unmarshal([]byte(text), &list); err == nil {
		return list, true
	}

	var single map[string]interface{}
	if err := json.Unmarshal([]byte(text), &single); err == nil {
		return []map[string]interface{}{single}, true
	}

	return nil, false
}

// stripFence removes a surrounding markdown code fence, preferring a
// json-tagged fence over a bare one.
func stripFence(text string) string {
	trimmed := strings.TrimSpace(text)

	start := strings.Index(trimmed, "```json")
	offset := len("```json")
	if start == -1 {
		start = strings.Index(trimmed, "```")
		offset = len("```")
	}
	if start == -1 {
		return trimmed
	}

	body := trimmed[start+offset:]
	if end := strings.Index(body, "```"); end != -1 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// sanitizeEscapes repairs invalid escape sequences inside quoted
// string literals. Model output frequently embeds raw LaTeX (\frac,
// \sqrt) which is illegal JSON; doubling the backslash makes it parse
// while preserving the visible text.
func sanitizeEscapes(text string) string {
	var out strings.Builder
	out.Grow(len(text))

	inString := false
	for i := 0; i < len(text); i++ {
		c := text[i]

		if !inString {
			out.WriteByte(c)
			if c == '"' {
				inString = true
			}
			continue
		}

		switch c {
		case '"':
			out.WriteByte(c)
			inString = false
		case '\\':
			if i+1 >= len(text) {
				// Trailing backslash at end of input
				out.WriteString(`\\`)
				continue
			}
			next := text[i+1]
			switch next {
			case '"', '\\', 'b', 'f', 'n', 'r', 't', 'u', '/':
				out.WriteByte(c)
				out.WriteByte(next)
				i++
			default:
				out.WriteString(`\\`)
			}
		default:
			out.WriteByte(c)
		}
	}

	return out.String()
}

// toQuestion maps a loose object into a GeneratedQuestion, filling
// field-level defaults.
func (p *Parser) toQuestion(obj map[string]interface{}, index int) store.GeneratedQuestion {
	var q store.GeneratedQuestion
	if data, err := json.Marshal(obj); err == nil {
		// Ignore the error: unknown shapes still fall through to defaults
		_ = json.Unmarshal(data, &q)
	}

	if q.Question == "" {
		if text, ok := obj["question_text"].(string); ok {
			q.Question = text
		}
	}
	if q.QuestionId == "" {
		if id, ok := obj["id"].(string); ok && id != "" {
			q.QuestionId = id
		} else {
			q.QuestionId = fmt.Sprintf("q%d", index+1)
		}
	}
	if q.Type == "" {
		q.Type = store.QuestionTypeMultipleChoice
	}
	if q.Difficulty == "" {
		q.Difficulty = store.DifficultyMedium
	}
	q.Valid = q.Question != ""

	return q
}
