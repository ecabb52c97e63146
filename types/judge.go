package types

import "github.com/CodeDeck/codedeck_backend/utils"

// Judge status ids. Anything above StatusProcessing is final.
const (
	StatusInQueue    = 1
	StatusProcessing = 2
	StatusAccepted   = 3
)

const (
	DefaultCPUTimeLimit = 5.0
	DefaultMemoryLimit  = 128000
)

type Status struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

// JudgeResult is the judge's report for one execution. Nullable fields stay
// pointers so they are passed through unchanged.
type JudgeResult struct {
	Token         string  `json:"token,omitempty"`
	Status        Status  `json:"status"`
	Stdout        *string `json:"stdout"`
	Stderr        *string `json:"stderr"`
	CompileOutput *string `json:"compile_output"`
	Time          *string `json:"time"`
	Memory        *int    `json:"memory"`
	Message       *string `json:"message,omitempty"`
}

func (r JudgeResult) Accepted() bool {
	return r.Status.ID == StatusAccepted
}

func (r JudgeResult) Finished() bool {
	return r.Status.ID > StatusProcessing
}

// ExecutionRequest is the body of a single judge execution.
type ExecutionRequest struct {
	SourceCode     string   `json:"source_code"`
	LanguageID     int      `json:"language_id"`
	Stdin          *string  `json:"stdin,omitempty"`
	ExpectedOutput *string  `json:"expected_output,omitempty"`
	CPUTimeLimit   *float64 `json:"cpu_time_limit,omitempty"`
	MemoryLimit    *int     `json:"memory_limit,omitempty"`
}

// WithDefaults fills absent resource limits.
func (r ExecutionRequest) WithDefaults() ExecutionRequest {
	if r.CPUTimeLimit == nil {
		r.CPUTimeLimit = utils.Ptr(float64(DefaultCPUTimeLimit))
	}
	if r.MemoryLimit == nil {
		r.MemoryLimit = utils.Ptr(DefaultMemoryLimit)
	}
	return r
}

// SubmitRequest is the body of a problem submission.
type SubmitRequest struct {
	SourceCode   string   `json:"source_code"`
	LanguageID   int      `json:"language_id"`
	CPUTimeLimit *float64 `json:"cpu_time_limit,omitempty"`
	MemoryLimit  *int     `json:"memory_limit,omitempty"`
}

// ForCase builds the execution request judging this submission against tc.
func (r SubmitRequest) ForCase(tc TestCase) ExecutionRequest {
	return ExecutionRequest{
		SourceCode:     r.SourceCode,
		LanguageID:     r.LanguageID,
		Stdin:          utils.Ptr(tc.Input),
		ExpectedOutput: utils.Ptr(tc.Output),
		CPUTimeLimit:   r.CPUTimeLimit,
		MemoryLimit:    r.MemoryLimit,
	}.WithDefaults()
}

type Language struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Judge0ID int    `json:"judge0_id"`
}
