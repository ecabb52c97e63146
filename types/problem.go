package types

// TestCase is one (stdin, expected stdout) pair.
type TestCase struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// Problem is a normalized problem record. HiddenCases never leave the process.
type Problem struct {
	ID          int        `json:"id"`
	Title       string     `json:"title"`
	Question    string     `json:"question"`
	Difficulty  string     `json:"difficulty"`
	PublicCases []TestCase `json:"public_cases"`
	HiddenCases []TestCase `json:"-"`
}

type ProblemSummary struct {
	ID         int    `json:"id"`
	Title      string `json:"title"`
	Difficulty string `json:"difficulty"`
}

func (p Problem) Summary() ProblemSummary {
	return ProblemSummary{ID: p.ID, Title: p.Title, Difficulty: p.Difficulty}
}

// Subset selects which test cases of a problem a submission is judged against.
type Subset string

const (
	SubsetPublic Subset = "public"
	SubsetAll    Subset = "all"
)

// ParseSubset maps "public" to SubsetPublic and every other value to SubsetAll.
func ParseSubset(s string) Subset {
	if Subset(s) == SubsetPublic {
		return SubsetPublic
	}
	return SubsetAll
}

// Cases returns the test cases selected by subset, public first.
func (p Problem) Cases(subset Subset) []TestCase {
	if subset == SubsetPublic {
		return p.PublicCases
	}
	cases := make([]TestCase, 0, len(p.PublicCases)+len(p.HiddenCases))
	cases = append(cases, p.PublicCases...)
	return append(cases, p.HiddenCases...)
}
