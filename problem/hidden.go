package problem

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/CodeDeck/codedeck_backend/log"
	"github.com/CodeDeck/codedeck_backend/types"
	"github.com/CodeDeck/codedeck_backend/utils"
	"github.com/sirupsen/logrus"
)

type hiddenData struct {
	Inputs  []any `json:"inputs"`
	Outputs []any `json:"outputs"`
}

// ExtractHidden decodes the input_output field of a record. The field is
// normally a JSON string holding {"inputs": [...], "outputs": [...]}; an
// embedded object is accepted as well. Anything undecodable yields no cases.
func ExtractHidden(id int, raw json.RawMessage) []types.TestCase {
	cases := []types.TestCase{}

	payload := bytes.TrimSpace(raw)
	if len(payload) > 0 && payload[0] == '"' {
		var s string
		if err := json.Unmarshal(payload, &s); err != nil {
			return cases
		}
		payload = []byte(strings.TrimSpace(s))
	}

	switch string(payload) {
	case "", "null", "{}", `"{}"`:
		return cases
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var data hiddenData
	if err := dec.Decode(&data); err != nil {
		log.Logger.WithFields(logrus.Fields{
			"problem_id":   id,
			"input_output": utils.Prefix(string(payload), 50),
		}).WithError(err).Warn("Could not parse input_output field")
		return cases
	}

	n := min(len(data.Inputs), len(data.Outputs))
	for i := 0; i < n; i++ {
		in, out := Stringify(data.Inputs[i]), Stringify(data.Outputs[i])
		if in == "" && out == "" {
			continue
		}
		cases = append(cases, types.TestCase{
			Input:  strings.TrimSpace(in),
			Output: strings.TrimSpace(out),
		})
	}
	return cases
}

// Stringify flattens a decoded JSON value into judge stdin/stdout text.
// Integers keep their digits, other numbers use canonical float text (1.5,
// 100000.0, 1e+16) and booleans read True/False. Arrays are joined line by
// line, objects become compact JSON and null becomes the empty string.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return formatNumber(val)
	case float64:
		return formatFloat(val)
	case int:
		return strconv.Itoa(val)
	case bool:
		if val {
			return "True"
		}
		return "False"
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = Stringify(item)
		}
		return strings.Join(parts, "\n")
	case map[string]any:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(val); err != nil {
			return fmt.Sprint(val)
		}
		return strings.TrimSuffix(buf.String(), "\n")
	default:
		return fmt.Sprint(val)
	}
}

// formatNumber keeps integer literals of any size verbatim and canonicalizes
// the rest.
func formatNumber(n json.Number) string {
	text := n.String()
	if !strings.ContainsAny(text, ".eE") {
		return text
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return text
	}
	return formatFloat(f)
}

// formatFloat writes the shortest round-trip digits, in positional form for
// decimal exponents in [-4, 16) and in exponent form otherwise.
func formatFloat(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	sci := strconv.FormatFloat(f, 'e', -1, 64)
	exp, err := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	if err == nil && (exp < -4 || exp >= 16) {
		return sci
	}
	text := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(text, ".") {
		text += ".0"
	}
	return text
}
