package sharedrepo

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPSFallback(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "git@github.com:owner/repo.git", want: "https://github.com/owner/repo.git"},
		{in: "git@github.com:owner/repo", want: "https://github.com/owner/repo.git"},
		{in: "ssh://git@gitlab.com/group/sub/repo.git", want: "https://gitlab.com/group/sub/repo.git"},
		{in: "ssh://git@example.com:2222/owner/repo", want: "https://example.com/owner/repo.git"},
		{in: "https://github.com/owner/repo.git", want: ""},
		{in: "/tmp/local/repo", want: ""},
		{in: "git@github.com:", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, httpsFallback(tt.in))
		})
	}
}

func TestRetryOverHTTPS(t *testing.T) {
	assert.True(t, retryOverHTTPS(errors.New("ssh: handshake failed: knownhosts: key mismatch")))
	assert.True(t, retryOverHTTPS(errors.New("remote: Connection closed by 1.2.3.4")))
	assert.True(t, retryOverHTTPS(errors.New("exit status 128")))
	assert.True(t, retryOverHTTPS(errors.New("error creating SSH agent: SSH_AUTH_SOCK not-specified")))
	assert.False(t, retryOverHTTPS(errors.New("repository not found")))
	assert.False(t, retryOverHTTPS(nil))
}

func TestCloneCandidates(t *testing.T) {
	assert.Equal(t,
		[]string{"git@host.dev:a/b.git", "https://host.dev/a/b.git"},
		cloneCandidates("git@host.dev:a/b.git"))
	assert.Equal(t,
		[]string{"https://host.dev/a/b"},
		cloneCandidates("https://host.dev/a/b"))
}

func TestRemoteMatches(t *testing.T) {
	assert.True(t, remoteMatches("https://host.dev/a/b.git", "https://host.dev/a/b"))
	assert.True(t, remoteMatches("https://host.dev/a/b.git", "git@host.dev:a/b.git"))
	assert.False(t, remoteMatches("https://host.dev/a/c.git", "git@host.dev:a/b.git"))
	assert.False(t, remoteMatches("https://host.dev/a/c", "https://host.dev/a/b"))
}
