package github

import (
	"net/url"
	"strings"
)

// ParseRepoPath extracts the owner and repository name from a GitHub URL.
// URLs without a scheme are assumed to be https, extra path segments such as
// /tree/main are dropped, and a trailing .git suffix is stripped. ok is
// false for anything that does not point at a GitHub repository.
func ParseRepoPath(rawURL string) (owner, repo string, ok bool) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return "", "", false
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", "", false
	}

	host := strings.ToLower(parsed.Hostname())
	if host != "github.com" && !strings.HasSuffix(host, ".github.com") {
		return "", "", false
	}

	parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}

	repo = strings.TrimSuffix(parts[1], ".git")
	if repo == "" {
		return "", "", false
	}

	return parts[0], repo, true
}
