package buildinfo

import "testing"

func TestShort(t *testing.T) {
	oldV, oldC := Version, Commit
	defer func() { Version, Commit = oldV, oldC }()

	for _, tc := range []struct {
		version, commit, want string
	}{
		{"dev", "unknown", "dev"},
		{"dev", "abc123", "abc123"},
		{"v1.2.0", "abc123", "v1.2.0"},
		{"", "", "dev"},
	} {
		Version, Commit = tc.version, tc.commit
		if got := Short(); got != tc.want {
			t.Fatalf("Short() with version=%q commit=%q = %q, want %q", tc.version, tc.commit, got, tc.want)
		}
	}
}

func TestLong(t *testing.T) {
	oldV, oldC, oldD := Version, Commit, Date
	defer func() { Version, Commit, Date = oldV, oldC, oldD }()

	Version, Commit, Date = "v0.3.0", "f00d", "2026-01-02"
	if got, want := Long(), "v0.3.0 (commit f00d, built 2026-01-02)"; got != want {
		t.Fatalf("Long() = %q, want %q", got, want)
	}
}
