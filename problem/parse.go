// Package problem turns raw problem records into normalized Problems.
package problem

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/CodeDeck/codedeck_backend/types"
)

const (
	DefaultDifficulty = "Medium"
	maxTitleLen       = 100
)

type record struct {
	ID          json.RawMessage `json:"id"`
	Question    string          `json:"question"`
	Difficulty  json.RawMessage `json:"difficulty"`
	InputOutput json.RawMessage `json:"input_output"`
}

// Parse converts one JSON problem record into a Problem.
// It fails with *MalformedRecordError when the record is not a JSON object
// or has no id coercible to a non-negative integer. Problems with the
// example or hidden test data never fail the record.
func Parse(raw []byte) (types.Problem, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return types.Problem{}, &MalformedRecordError{Reason: "record is not a JSON object"}
	}

	var rec record
	if err := json.Unmarshal(trimmed, &rec); err != nil {
		return types.Problem{}, &MalformedRecordError{Reason: "invalid JSON", Err: err}
	}

	id, err := parseID(rec.ID)
	if err != nil {
		return types.Problem{}, err
	}

	return types.Problem{
		ID:          id,
		Title:       DeriveTitle(id, rec.Question),
		Question:    rec.Question,
		Difficulty:  parseDifficulty(rec.Difficulty),
		PublicCases: ExtractExamples(rec.Question),
		HiddenCases: ExtractHidden(id, rec.InputOutput),
	}, nil
}

// parseID accepts integers, integral floats and decimal strings.
func parseID(raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return 0, &MalformedRecordError{Reason: "missing id"}
	}

	var id int
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, &MalformedRecordError{Reason: "invalid id", Err: err}
		}
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return 0, &MalformedRecordError{Reason: fmt.Sprintf("id %q is not an integer", s), Err: err}
		}
		id = n
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		n, err := strconv.Atoi(string(raw))
		if err != nil {
			f, ferr := strconv.ParseFloat(string(raw), 64)
			if ferr != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
				return 0, &MalformedRecordError{Reason: fmt.Sprintf("id %s is not an integer", raw)}
			}
			n = int(f)
		}
		id = n
	default:
		return 0, &MalformedRecordError{Reason: fmt.Sprintf("id %s is not an integer", raw)}
	}

	if id < 0 {
		return 0, &MalformedRecordError{Reason: fmt.Sprintf("id %d is negative", id)}
	}
	return id, nil
}

// parseDifficulty keeps any string label, including an empty one. Absent,
// null and non-string values get DefaultDifficulty.
func parseDifficulty(raw json.RawMessage) string {
	var label string
	if err := json.Unmarshal(raw, &label); err != nil || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return DefaultDifficulty
	}
	return label
}

// DeriveTitle uses the first line of the question, capped at 100 characters.
func DeriveTitle(id int, question string) string {
	first, _, _ := strings.Cut(strings.TrimSpace(question), "\n")
	title := strings.TrimSpace(first)
	if title == "" {
		return fmt.Sprintf("Problem %d", id)
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return string([]rune(title)[:maxTitleLen-3]) + "..."
	}
	return title
}
