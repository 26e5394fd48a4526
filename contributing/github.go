package contributing

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"github.com/syntopia/go-syntopia-client/api"
)

var NoGitHubClientIDErr = errors.New("github oauth client id not configured")

// DefaultGitHubScopes is what quest synchronization needs: issue access and
// the user's identity.
var DefaultGitHubScopes = []string{"repo", "user"}

// GitHubOAuth builds authorization URLs for the GitHub connect flow. The
// secret-bearing half of the exchange lives on the platform backend; the
// client only produces the URL the browser is sent to.
type GitHubOAuth struct {
	config oauth2.Config
}

func NewGitHubOAuth(clientID, redirectURI string, scopes ...string) (*GitHubOAuth, error) {
	if clientID == "" {
		return nil, errors.Wrap(NoGitHubClientIDErr, "[NewGitHubOAuth]")
	}
	if len(scopes) == 0 {
		scopes = DefaultGitHubScopes
	}
	return &GitHubOAuth{
		config: oauth2.Config{
			ClientID:    clientID,
			RedirectURL: redirectURI,
			Scopes:      scopes,
			Endpoint:    github.Endpoint,
		},
	}, nil
}

// AuthorizeURL returns the GitHub authorization URL and the random state the
// caller must verify on the redirect back.
func (g *GitHubOAuth) AuthorizeURL() (authURL, state string) {
	state = uuid.NewString()
	return g.config.AuthCodeURL(state), state
}

// GitHubCallbackResult is the backend's response to a code exchange.
type GitHubCallbackResult struct {
	Token string          `json:"token"`
	User  json.RawMessage `json:"user"`
}

// ExchangeCode hands the OAuth code and state to the backend, which performs
// the secret exchange and returns the GitHub token to attach.
func ExchangeCode(ctx context.Context, client *api.Client, code, state string) (*GitHubCallbackResult, error) {
	var result GitHubCallbackResult
	err := client.Post(ctx, "/auth/github/callback",
		map[string]string{"code": code, "state": state}, &result)
	if err != nil {
		return nil, errors.Wrap(err, "[ExchangeCode]")
	}
	return &result, nil
}
