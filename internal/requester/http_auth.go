package requester

import (
	"net/http"
	"os"

	"github.com/nirholas/specbridge/internal/ir"
)

// AuthManager attaches credentials to outgoing requests based on the
// tool's auth requirement.
type AuthManager interface {
	ApplyAuth(req *http.Request, auth *ir.AuthRequirement) error
}

// EnvAuthManager resolves credentials from environment variables. Each
// auth requirement carries the variable name synthesized during
// extraction; a missing variable means the request goes out without
// credentials rather than failing, so unauthenticated endpoints keep
// working.
type EnvAuthManager struct{}

// NewEnvAuthManager creates a new EnvAuthManager
func NewEnvAuthManager() *EnvAuthManager {
	return &EnvAuthManager{}
}

// ApplyAuth adds authentication to the request
func (a *EnvAuthManager) ApplyAuth(req *http.Request, auth *ir.AuthRequirement) error {
	if auth == nil {
		return nil
	}
	credential := ""
	if auth.EnvVar != "" {
		credential = os.Getenv(auth.EnvVar)
	}
	if credential == "" {
		return nil
	}

	switch auth.Type {
	case ir.AuthBasic:
		// Credential is "user:pass"; SetBasicAuth handles the encoding.
		if user, pass, ok := splitCredential(credential); ok {
			req.SetBasicAuth(user, pass)
		}
	case ir.AuthBearer, ir.AuthOAuth2:
		req.Header.Set("Authorization", "Bearer "+credential)
	case ir.AuthAPIKey:
		if auth.In == "query" && auth.Name != "" {
			q := req.URL.Query()
			q.Set(auth.Name, credential)
			req.URL.RawQuery = q.Encode()
			return nil
		}
		header := auth.Name
		if header == "" {
			header = "X-API-Key"
		}
		req.Header.Set(header, credential)
	}
	return nil
}

func splitCredential(credential string) (string, string, bool) {
	for i := 0; i < len(credential); i++ {
		if credential[i] == ':' {
			return credential[:i], credential[i+1:], true
		}
	}
	return credential, "", true
}
