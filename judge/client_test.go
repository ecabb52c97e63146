package judge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/CodeDeck/codedeck_backend/types"
	"github.com/CodeDeck/codedeck_backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu   sync.Mutex
	ops  []string
	errs []error
}

func (o *recordingObserver) ObserveJudgeCall(op string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ops = append(o.ops, op)
	o.errs = append(o.errs, err)
}

func TestExecute(t *testing.T) {
	var got types.ExecutionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/submissions", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("wait"))
		assert.Equal(t, "false", r.URL.Query().Get("base64_encoded"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"token":"abc","status":{"id":3,"description":"Accepted"},"stdout":"6\n","stderr":null,"compile_output":null,"time":"0.01","memory":1024}`))
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	c := NewClient(Config{BaseURL: srv.URL + "/"}, WithObserver(obs))
	res, err := c.Execute(context.Background(), types.ExecutionRequest{
		SourceCode: "print(6)",
		LanguageID: 71,
		Stdin:      utils.Ptr("3"),
	}.WithDefaults())
	require.NoError(t, err)

	assert.Equal(t, "abc", res.Token)
	assert.True(t, res.Accepted())
	assert.Equal(t, "6\n", *res.Stdout)
	assert.Nil(t, res.Stderr)
	assert.Equal(t, 1024, *res.Memory)

	assert.Equal(t, "print(6)", got.SourceCode)
	assert.Equal(t, 71, got.LanguageID)
	assert.Equal(t, 5.0, *got.CPUTimeLimit)
	assert.Equal(t, 128000, *got.MemoryLimit)
	assert.Nil(t, got.ExpectedOutput)

	assert.Equal(t, []string{"execute"}, obs.ops)
	assert.Nil(t, obs.errs[0])
}

func TestExecuteOmitsAbsentFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotContains(t, body, "stdin")
		assert.NotContains(t, body, "expected_output")
		w.Write([]byte(`{"status":{"id":3,"description":"Accepted"}}`))
	}))
	defer srv.Close()

	_, err := NewClient(Config{BaseURL: srv.URL}).Execute(context.Background(), types.ExecutionRequest{SourceCode: "x", LanguageID: 1})
	assert.NoError(t, err)
}

func TestFetchResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/submissions/tok-1", r.URL.Path)
		assert.Equal(t, "false", r.URL.Query().Get("base64_encoded"))
		w.Write([]byte(`{"status":{"id":4,"description":"Wrong Answer"}}`))
	}))
	defer srv.Close()

	res, err := NewClient(Config{BaseURL: srv.URL}).FetchResult(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", res.Token)
	assert.Equal(t, "Wrong Answer", res.Status.Description)
	assert.False(t, res.Accepted())
}

func TestListLanguages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/languages", r.URL.Path)
		w.Write([]byte(`[{"id":71,"name":"Python (3.8.1)"},{"id":54,"name":"C++ (GCC 9.2.0)"}]`))
	}))
	defer srv.Close()

	langs, err := NewClient(Config{BaseURL: srv.URL}).ListLanguages(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []types.Language{
		{ID: 71, Name: "Python (3.8.1)", Judge0ID: 71},
		{ID: 54, Name: "C++ (GCC 9.2.0)", Judge0ID: 54},
	}, langs)
}

func TestErrors(t *testing.T) {
	t.Run("HTTPError", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"language_id":["can't be blank"]}`))
		}))
		defer srv.Close()

		obs := &recordingObserver{}
		_, err := NewClient(Config{BaseURL: srv.URL}, WithObserver(obs)).Execute(context.Background(), types.ExecutionRequest{})
		var httpErr *HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusUnprocessableEntity, httpErr.StatusCode)
		assert.Contains(t, httpErr.Body, "can't be blank")
		assert.Error(t, obs.errs[0])
	})

	t.Run("Unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := NewClient(Config{BaseURL: url}).FetchResult(context.Background(), "x")
		var unavailable *UnavailableError
		assert.ErrorAs(t, err, &unavailable)
	})

	t.Run("Timeout", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-release
		}))
		defer srv.Close()
		defer close(release)

		_, err := NewClient(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}).ListLanguages(context.Background())
		var unavailable *UnavailableError
		assert.ErrorAs(t, err, &unavailable)
	})

	t.Run("UndecodableBody", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>gateway</html>`))
		}))
		defer srv.Close()

		_, err := NewClient(Config{BaseURL: srv.URL}).ListLanguages(context.Background())
		var unavailable *UnavailableError
		require.ErrorAs(t, err, &unavailable)
		assert.False(t, errors.Is(err, context.Canceled))
	})
}

func TestAuthHeaders(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		mode    AuthMode
		headers map[string]string
		absent  []string
	}{
		{
			name: "ManagedByURL",
			cfg:  Config{BaseURL: "https://judge0-ce.p.rapidapi.com", APIKey: "key"},
			mode: AuthManaged,
			headers: map[string]string{
				"X-RapidAPI-Key":  "key",
				"X-RapidAPI-Host": "judge0-ce.p.rapidapi.com",
			},
			absent: []string{"X-Auth-Token"},
		},
		{
			name: "ManagedByHost",
			cfg:  Config{BaseURL: "http://proxy.local", APIKey: "key", RapidAPIHost: "judge0.example"},
			mode: AuthManaged,
			headers: map[string]string{
				"X-RapidAPI-Key":  "key",
				"X-RapidAPI-Host": "judge0.example",
			},
		},
		{
			name:    "SelfHostedToken",
			cfg:     Config{BaseURL: "http://judge.local", AuthToken: "tok"},
			mode:    AuthSelfHosted,
			headers: map[string]string{"X-Auth-Token": "tok"},
			absent:  []string{"X-RapidAPI-Key"},
		},
		{
			name:    "SelfHostedKeyFallback",
			cfg:     Config{BaseURL: "http://judge.local", APIKey: "key"},
			mode:    AuthSelfHosted,
			headers: map[string]string{"X-Auth-Token": "key"},
		},
		{
			name:   "Anonymous",
			cfg:    Config{BaseURL: "http://judge.local"},
			mode:   AuthAnonymous,
			absent: []string{"X-Auth-Token", "X-RapidAPI-Key", "X-RapidAPI-Host"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(tt.cfg)
			assert.Equal(t, tt.mode, c.Auth())

			req, err := c.createRequest(context.Background(), http.MethodGet, "/languages", nil, nil)
			require.NoError(t, err)
			for k, v := range tt.headers {
				assert.Equal(t, v, req.Header.Get(k), k)
			}
			for _, k := range tt.absent {
				assert.Empty(t, req.Header.Get(k), k)
			}
			assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
		})
	}
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":1,"name":"Bash"}]`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "secret"})
	ok, msg := c.Ok()
	assert.True(t, ok)
	assert.Equal(t, "Judge reachable, 1 languages", msg)

	desc := c.Describe()
	assert.Equal(t, true, desc["JUDGE0_API_KEY_set"])
	for _, v := range desc {
		assert.NotEqual(t, "secret", v)
	}
}
