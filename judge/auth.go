package judge

import (
	"net/http"
	"net/url"
	"strings"
)

// AuthMode is the credential scheme of a judge deployment.
type AuthMode int

const (
	AuthAnonymous AuthMode = iota
	AuthSelfHosted
	AuthManaged
)

func (m AuthMode) String() string {
	switch m {
	case AuthManaged:
		return "managed"
	case AuthSelfHosted:
		return "self_hosted"
	default:
		return "anonymous"
	}
}

const rapidAPIDomain = "rapidapi.com"

// resolveAuth picks the credential scheme from whichever fields are set.
// A RapidAPI URL or host selects the managed scheme, a token (or bare key)
// selects the self-hosted one.
func resolveAuth(cfg Config) (AuthMode, http.Header) {
	headers := http.Header{}

	host := cfg.RapidAPIHost
	if host == "" && strings.Contains(cfg.BaseURL, rapidAPIDomain) {
		if u, err := url.Parse(cfg.BaseURL); err == nil {
			host = u.Host
		}
	}
	if host != "" {
		headers.Set("X-RapidAPI-Key", cfg.APIKey)
		headers.Set("X-RapidAPI-Host", host)
		return AuthManaged, headers
	}

	token := cfg.AuthToken
	if token == "" {
		token = cfg.APIKey
	}
	if token != "" {
		headers.Set("X-Auth-Token", token)
		return AuthSelfHosted, headers
	}
	return AuthAnonymous, headers
}
