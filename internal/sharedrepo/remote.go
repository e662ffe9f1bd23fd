package sharedrepo

import (
	"net/url"
	"strings"

	"github.com/masmgr/commitrounds/internal/repokey"
)

// sshFailureSignatures are error fragments after which a clone over SSH is
// retried once over HTTPS.
var sshFailureSignatures = []string{
	"connection closed",
	"exit code(128)",
	"exit status 128",
	"ssh_auth_sock",
	"ssh: handshake failed",
	"unable to authenticate",
}

// httpsFallback rewrites an SSH remote to its HTTPS form. It returns "" when
// the URL is not an SSH remote.
//
//	git@github.com:owner/repo.git      -> https://github.com/owner/repo.git
//	ssh://git@github.com/owner/repo    -> https://github.com/owner/repo.git
func httpsFallback(raw string) string {
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "ssh://") {
		u, err := url.Parse(raw)
		if err != nil || u.Hostname() == "" {
			return ""
		}
		return "https://" + u.Hostname() + "/" + withGitSuffix(strings.TrimPrefix(u.Path, "/"))
	}

	if strings.Contains(raw, "://") {
		return ""
	}
	at := strings.IndexByte(raw, '@')
	colon := strings.IndexByte(raw, ':')
	if at == -1 || colon < at {
		return ""
	}
	host := raw[at+1 : colon]
	path := strings.TrimPrefix(raw[colon+1:], "/")
	if host == "" || path == "" {
		return ""
	}
	return "https://" + host + "/" + withGitSuffix(path)
}

func withGitSuffix(path string) string {
	path = strings.TrimRight(path, "/")
	if strings.HasSuffix(path, ".git") {
		return path
	}
	return path + ".git"
}

// retryOverHTTPS reports whether a clone error looks like an SSH transport
// problem rather than a missing repository.
func retryOverHTTPS(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range sshFailureSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

// cloneCandidates lists the URLs tried, in order, when cloning raw.
func cloneCandidates(raw string) []string {
	candidates := []string{raw}
	if fallback := httpsFallback(raw); fallback != "" {
		candidates = append(candidates, fallback)
	}
	return candidates
}

// remoteMatches reports whether an existing clone's origin serves the
// requested URL, including the case where it was cloned over the HTTPS
// fallback.
func remoteMatches(origin, requested string) bool {
	if repokey.SameRemote(origin, requested) {
		return true
	}
	if fallback := httpsFallback(requested); fallback != "" {
		return repokey.SameRemote(origin, fallback)
	}
	return false
}
