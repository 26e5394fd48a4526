package config

const (
	githubClientIDVar    = "GITHUB_CLIENT_ID"
	githubRedirectURIVar = "GITHUB_REDIRECT_URI"
)

type GitHub struct{}

var _ GitHubConfig = GitHub{}

func (GitHub) GetGitHubClientID() string {
	return GetEnv(githubClientIDVar, "")
}

func (GitHub) GetGitHubRedirectURI() string {
	return GetEnv(githubRedirectURIVar, "http://localhost:5173/contributing/github/callback")
}
