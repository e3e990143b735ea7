package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultDataDirOverrides(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "TALLY_DATA_DIR wins",
			env:  map[string]string{"TALLY_DATA_DIR": "/srv/tally", "XDG_DATA_HOME": "/custom/data"},
			want: "/srv/tally",
		},
		{
			name: "XDG_DATA_HOME",
			env:  map[string]string{"TALLY_DATA_DIR": "", "XDG_DATA_HOME": "/custom/data"},
			want: "/custom/data/tally",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if got := DefaultDataDir(); got != tt.want {
				t.Fatalf("DefaultDataDir() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDefaultDataDirNoHome(t *testing.T) {
	t.Setenv("TALLY_DATA_DIR", "")
	t.Setenv("HOME", "")
	if got := DefaultDataDir(); got != "./data" {
		t.Fatalf("expected ./data fallback without HOME, got %s", got)
	}
}

func TestDefaultDataDirShape(t *testing.T) {
	t.Setenv("TALLY_DATA_DIR", "")
	got := DefaultDataDir()
	if !filepath.IsAbs(got) && !strings.HasPrefix(got, "./") {
		t.Fatalf("expected absolute or ./ path, got %s", got)
	}
	if got != "./data" && !strings.HasSuffix(strings.ToLower(got), "tally") {
		t.Fatalf("expected a tally directory, got %s", got)
	}
	if again := DefaultDataDir(); again != got {
		t.Fatalf("DefaultDataDir not stable: %s vs %s", got, again)
	}
}

func TestIsDir(t *testing.T) {
	if !isDir(".") {
		t.Fatalf("current dir should be a dir")
	}
	if isDir("/non/existent/path/that/does/not/exist") {
		t.Fatalf("missing path reported as dir")
	}
	if isDir(os.Args[0]) {
		t.Fatalf("test binary reported as dir")
	}
}
