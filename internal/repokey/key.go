// Package repokey derives stable identifiers for remote repositories.
package repokey

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"strings"
)

// Width is the number of hex characters kept from the URL digest.
const Width = 16

// DirPrefix prefixes every shared clone directory name.
const DirPrefix = "shared_repo_"

// Key identifies exactly one shared working directory.
type Key string

// String returns the key as a plain string.
func (k Key) String() string {
	return string(k)
}

// DirName returns the directory name used for the key's shared clone.
func (k Key) DirName() string {
	return DirPrefix + string(k)
}

// Derive returns the key for a repository URL.
// URLs that differ only in surrounding whitespace, a trailing slash or a
// trailing ".git" map to the same key.
func Derive(url string) Key {
	sum := sha256.Sum256([]byte(Normalize(url)))
	return Key(hex.EncodeToString(sum[:])[:Width])
}

// Normalize canonicalizes a repository URL for hashing and comparison.
func Normalize(url string) string {
	u := strings.TrimSpace(url)
	u = strings.TrimRight(u, "/")
	u = strings.TrimSuffix(u, ".git")
	return strings.TrimRight(u, "/")
}

// SameRemote reports whether two remote URLs point at the same repository,
// comparing exactly or ignoring a ".git" suffix.
func SameRemote(a, b string) bool {
	if strings.TrimSpace(a) == strings.TrimSpace(b) {
		return true
	}
	return Normalize(a) == Normalize(b)
}

// ProjectName returns the last path element of the URL without ".git".
// Both "git@host:owner/repo.git" and "https://host/owner/repo" yield "repo".
func ProjectName(url string) string {
	u := Normalize(url)
	if i := strings.LastIndex(u, ":"); i != -1 && !strings.Contains(u[i:], "/") {
		u = u[i+1:]
	}
	u = strings.ReplaceAll(u, ":", "/")
	name := path.Base(u)
	if name == "." || name == "/" {
		return ""
	}
	return name
}

// IsKeyDir reports whether a directory name belongs to a shared clone.
func IsKeyDir(name string) bool {
	return strings.HasPrefix(name, DirPrefix) && len(name) == len(DirPrefix)+Width
}
