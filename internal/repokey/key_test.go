package repokey

import (
	"testing"

	"pgregory.net/rapid"
)

func TestDerive_Stable(t *testing.T) {
	a := Derive("https://github.com/example/project.git")
	b := Derive("https://github.com/example/project.git")
	if a != b {
		t.Fatalf("Derive not stable: %q != %q", a, b)
	}
	if len(a) != Width {
		t.Fatalf("len(key) = %d, want %d", len(a), Width)
	}
}

func TestDerive_GitSuffixInsensitive(t *testing.T) {
	tests := []string{
		"https://github.com/example/project",
		"https://github.com/example/project.git",
		"https://github.com/example/project/",
		"  https://github.com/example/project.git  ",
	}
	want := Derive(tests[0])
	for _, url := range tests[1:] {
		if got := Derive(url); got != want {
			t.Errorf("Derive(%q) = %q, want %q", url, got, want)
		}
	}
}

func TestDerive_DifferentURLs(t *testing.T) {
	if Derive("https://github.com/a/one") == Derive("https://github.com/a/two") {
		t.Fatal("different repositories produced the same key")
	}
}

func TestKey_DirName(t *testing.T) {
	k := Derive("https://github.com/example/project")
	name := k.DirName()
	if name != "shared_repo_"+k.String() {
		t.Fatalf("DirName() = %q", name)
	}
	if !IsKeyDir(name) {
		t.Fatalf("IsKeyDir(%q) = false", name)
	}
	if IsKeyDir("shared_repo_short") {
		t.Fatal("IsKeyDir accepted a malformed name")
	}
}

func TestSameRemote(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"https://h/o/r.git", "https://h/o/r.git", true},
		{"https://h/o/r.git", "https://h/o/r", true},
		{"https://h/o/r", "https://h/o/other", false},
		{"git@h:o/r.git", "git@h:o/r", true},
	}
	for _, tt := range tests {
		if got := SameRemote(tt.a, tt.b); got != tt.want {
			t.Errorf("SameRemote(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestProjectName(t *testing.T) {
	tests := map[string]string{
		"https://github.com/example/project.git": "project",
		"https://github.com/example/project":     "project",
		"git@github.com:example/project.git":     "project",
		"git@github.com:project.git":             "project",
		"/tmp/remotes/demo":                      "demo",
	}
	for url, want := range tests {
		if got := ProjectName(url); got != want {
			t.Errorf("ProjectName(%q) = %q, want %q", url, got, want)
		}
	}
}

func TestRapidDerive_Deterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		url := rapid.String().Draw(t, "url")
		k1 := Derive(url)
		k2 := Derive(url)
		if k1 != k2 {
			t.Fatalf("Derive(%q) not deterministic", url)
		}
		if len(k1) != Width {
			t.Fatalf("len = %d", len(k1))
		}
	})
}

func TestRapidDerive_SuffixVariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		url := "https://" + rapid.StringMatching(`[a-z]{1,10}/[a-z]{1,10}/[a-z]{1,10}`).Draw(t, "path")
		k := Derive(url)
		for _, variant := range []string{url + ".git", url + "/", " " + url + ".git\n"} {
			if got := Derive(variant); got != k {
				t.Fatalf("Derive(%q) = %q, want %q", variant, got, k)
			}
		}
	})
}
