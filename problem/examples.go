package problem

import (
	"regexp"
	"strings"

	"github.com/CodeDeck/codedeck_backend/types"
)

const exampleMarker = "-----Example-----"

var exampleHead = regexp.MustCompile(`(?s)Input\n(.*?)\nOutput\n`)

// blockTerminators end an example's output block.
var blockTerminators = []string{"\n\n", "\nInput", "\n-----"}

// ExtractExamples returns the Input/Output pairs following the first
// example marker of a question, in order of appearance.
func ExtractExamples(question string) []types.TestCase {
	cases := []types.TestCase{}

	_, section, found := strings.Cut(question, exampleMarker)
	if !found {
		return cases
	}

	for pos := 0; pos < len(section); {
		loc := exampleHead.FindStringSubmatchIndex(section[pos:])
		if loc == nil {
			break
		}
		input := section[pos+loc[2] : pos+loc[3]]
		outStart := pos + loc[1]
		outEnd := outStart + outputEnd(section[outStart:])

		cases = append(cases, types.TestCase{
			Input:  strings.TrimSpace(input),
			Output: strings.TrimSpace(section[outStart:outEnd]),
		})
		pos = outEnd
	}
	return cases
}

// outputEnd finds the first terminator in s, or len(s).
func outputEnd(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] != '\n' {
			continue
		}
		for _, term := range blockTerminators {
			if strings.HasPrefix(s[i:], term) {
				return i
			}
		}
	}
	return len(s)
}
