package repository

import (
	"net/url"
	"strings"

	"github.com/temirov/distaudit/internal/gitrepo"
)

func normalizeTokenHosts(hosts []string) []string {
	var normalized []string
	for _, host := range hosts {
		trimmedHost := strings.ToLower(strings.TrimSpace(host))
		if len(trimmedHost) > 0 {
			normalized = append(normalized, trimmedHost)
		}
	}
	if len(normalized) == 0 {
		return []string{gitrepo.DefaultHost}
	}
	return normalized
}

func hostAllowed(allowedHosts []string, host string) bool {
	candidateHost := strings.ToLower(strings.TrimSpace(host))
	for _, allowedHost := range allowedHosts {
		if candidateHost == allowedHost {
			return true
		}
	}
	return false
}

// urlHostAllowed accepts only https URLs whose host is allowed.
func urlHostAllowed(allowedHosts []string, rawURL string) bool {
	parsedURL, parseError := url.Parse(rawURL)
	if parseError != nil || parsedURL.Scheme != "https" {
		return false
	}
	return hostAllowed(allowedHosts, parsedURL.Hostname())
}
