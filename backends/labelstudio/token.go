package labelstudio

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	fastshot "github.com/opus-domini/fast-shot"

	"github.com/openlabel/openlabel/backends"
)

// refreshAhead is how long before access-token expiry a refresh is forced.
const refreshAhead = 30 * time.Second

// tokenSource produces the Authorization header value for requests.
//
// Label Studio has two auth schemes: legacy opaque API tokens sent as
// "Token <key>", and personal access tokens, which are JWT refresh tokens
// exchanged at /api/token/refresh for short-lived JWT access tokens sent as
// "Bearer <access>". The scheme is detected from the token shape: JWTs have
// two dots. The access token's exp claim is read without signature
// verification; the server owns the signature, the client only schedules
// refreshes from it.
type tokenSource struct {
	client fastshot.ClientHttpMethods
	token  string
	legacy bool

	mu     sync.Mutex
	access string
	expiry time.Time
}

func newTokenSource(client fastshot.ClientHttpMethods, token string) *tokenSource {
	return &tokenSource{
		client: client,
		token:  token,
		legacy: strings.Count(token, ".") != 2,
	}
}

// Header returns the Authorization header value, refreshing the access token
// when it is missing or about to expire.
func (s *tokenSource) Header(ctx context.Context) (string, error) {
	if s.legacy {
		return "Token " + s.token, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.access != "" && time.Until(s.expiry) > refreshAhead {
		return "Bearer " + s.access, nil
	}

	resp, err := s.client.POST("/api/token/refresh").
		Context().Set(ctx).
		Header().Add("Accept", "application/json").
		Body().AsJSON(map[string]string{"refresh": s.token}).
		Send()
	if err != nil {
		return "", backends.NewBackendError(backendName, backends.CodeTransport, "token refresh failed", 0, true, err)
	}
	defer resp.Body().Close()

	if resp.Status().IsError() {
		msg, _ := resp.Body().AsString()
		return "", backends.NewBackendError(backendName, backends.CodeAuth, "token refresh rejected: "+msg, resp.Status().Code(), false, nil)
	}

	var body struct {
		Access string `json:"access"`
	}
	if err := resp.Body().AsJSON(&body); err != nil {
		return "", backends.NewBackendError(backendName, backends.CodeDecode, "decode token refresh response", resp.Status().Code(), false, err)
	}
	if body.Access == "" {
		return "", backends.NewBackendError(backendName, backends.CodeAuth, "token refresh returned no access token", 0, false, nil)
	}

	s.access = body.Access
	s.expiry = accessExpiry(body.Access)
	return "Bearer " + s.access, nil
}

// accessExpiry reads the exp claim from an unverified JWT. Tokens that do not
// parse get a short fixed lifetime so they are refreshed aggressively.
func accessExpiry(access string) time.Time {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	claims := jwt.RegisteredClaims{}
	if _, _, err := parser.ParseUnverified(access, &claims); err != nil || claims.ExpiresAt == nil {
		return time.Now().Add(time.Minute)
	}
	return claims.ExpiresAt.Time
}
