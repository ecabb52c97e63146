package endpoints

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/CodeDeck/codedeck_backend/judge"
	"github.com/CodeDeck/codedeck_backend/log"
	"github.com/CodeDeck/codedeck_backend/submission"
	"github.com/CodeDeck/codedeck_backend/types"
)

const (
	defaultSkip  = 0
	defaultLimit = 50
)

type ProblemCatalog interface {
	List(skip, limit int) []types.ProblemSummary
	Get(id int) (types.Problem, bool)
}

type Submitter interface {
	Submit(ctx context.Context, problemID int, req types.SubmitRequest, subset types.Subset) (types.SubmissionTally, error)
}

type ResultCache interface {
	Get(token string) (types.JudgeResult, bool)
	Put(result types.JudgeResult)
}

// Services are the collaborators behind the HTTP API. Results and DebugInfo
// are optional.
type Services struct {
	Catalog   ProblemCatalog
	Submitter Submitter
	Judge     judge.Gateway
	Results   ResultCache
	DebugInfo func() map[string]any
}

func (s *HTTPServer) registerAPI(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /problems", s.handleListProblems)
	mux.HandleFunc("GET /problem/{id}", s.handleGetProblem)
	mux.HandleFunc("POST /submit/{id}", s.handleSubmit)
	mux.HandleFunc("GET /languages", s.handleLanguages)
	mux.HandleFunc("POST /execute", s.handleExecute)
	mux.HandleFunc("GET /submission/{token}", s.handleSubmission)
	mux.HandleFunc("GET /debug-env", s.handleDebugEnv)
}

func (s *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]string{"Application": "CodeDeck"})
}

func (s *HTTPServer) handleListProblems(w http.ResponseWriter, r *http.Request) {
	skip, err := queryInt(r, "skip", defaultSkip)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := queryInt(r, "limit", defaultLimit)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respond(w, http.StatusOK, s.services.Catalog.List(skip, limit))
}

func (s *HTTPServer) handleGetProblem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, found := s.services.Catalog.Get(id)
	if !found {
		respondError(w, http.StatusNotFound, "Problem not found")
		return
	}
	respond(w, http.StatusOK, p)
}

func (s *HTTPServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req types.SubmitRequest
	if !parseRequest(w, r, &req) {
		return
	}

	tally, err := s.services.Submitter.Submit(r.Context(), id, req, types.ParseSubset(r.URL.Query().Get("subset")))
	if errors.Is(err, submission.ErrProblemNotFound) {
		respondError(w, http.StatusNotFound, "Problem not found")
		return
	}
	if err != nil {
		log.Logger.WithError(err).WithField("problem_id", id).Error("Submission failed")
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respond(w, http.StatusOK, tally)
}

func (s *HTTPServer) handleLanguages(w http.ResponseWriter, r *http.Request) {
	languages, err := s.services.Judge.ListLanguages(r.Context())
	if err != nil {
		s.respondJudgeError(w, "Failed to fetch languages", err)
		return
	}
	respond(w, http.StatusOK, languages)
}

func (s *HTTPServer) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req types.ExecutionRequest
	if !parseRequest(w, r, &req) {
		return
	}
	result, err := s.services.Judge.Execute(r.Context(), req.WithDefaults())
	if err != nil {
		s.respondJudgeError(w, "Code execution failed", err)
		return
	}
	if s.services.Results != nil {
		s.services.Results.Put(result)
	}
	respond(w, http.StatusOK, result)
}

func (s *HTTPServer) handleSubmission(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if s.services.Results != nil {
		if result, ok := s.services.Results.Get(token); ok {
			respond(w, http.StatusOK, result)
			return
		}
	}

	result, err := s.services.Judge.FetchResult(r.Context(), token)
	if err != nil {
		s.respondJudgeError(w, "Failed to fetch submission", err)
		return
	}
	if s.services.Results != nil {
		s.services.Results.Put(result)
	}
	respond(w, http.StatusOK, result)
}

func (s *HTTPServer) handleDebugEnv(w http.ResponseWriter, r *http.Request) {
	if s.services.DebugInfo == nil {
		respondError(w, http.StatusNotFound, "")
		return
	}
	respond(w, http.StatusOK, s.services.DebugInfo())
}

// respondJudgeError keeps the judge's status for HTTP errors and answers 500
// otherwise.
func (s *HTTPServer) respondJudgeError(w http.ResponseWriter, what string, err error) {
	log.Logger.WithError(err).Error(what)

	var httpErr *judge.HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode >= 400 {
		respondError(w, httpErr.StatusCode, fmt.Sprintf("%s: %s", what, httpErr.Body))
		return
	}
	respondError(w, http.StatusInternalServerError, fmt.Sprintf("%s: %v", what, err))
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid problem id %q", r.PathValue("id")))
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("query parameter %s must be an integer", name)
	}
	return v, nil
}
