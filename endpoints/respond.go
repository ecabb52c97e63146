package endpoints

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/CodeDeck/codedeck_backend/log"
)

const maxBodySize = 1 << 20

type errorBody struct {
	Detail string `json:"detail"`
}

func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Logger.WithError(err).Error("Failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, detail string) {
	if detail == "" {
		detail = http.StatusText(status)
	}
	respond(w, status, errorBody{Detail: detail})
}

// parseRequest decodes a JSON body into req, answering 400 on failure.
func parseRequest(w http.ResponseWriter, r *http.Request, req any) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Could not read request body")
		return false
	}
	if err := json.Unmarshal(body, req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}
