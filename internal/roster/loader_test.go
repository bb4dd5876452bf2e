package roster_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jflaig13/mise-core-sub000/internal/roster"
)

func TestLoadFromReader(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantErr string
		wantLen int
	}{
		{name: "valid roster", input: rosterYAML, wantLen: 7},
		{name: "unknown field", input: "employees:\n  - name: A B\n    nickname: x\n", wantErr: "decode yaml"},
		{name: "no employees", input: "employees: []\n", wantErr: "no employees"},
		{name: "invalid yaml", input: "employees: [", wantErr: "decode yaml"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			r, err := roster.LoadFromReader(strings.NewReader(tc.input))
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("error = %v, want containing %q", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if r.Len() != tc.wantLen {
				t.Errorf("Len = %d, want %d", r.Len(), tc.wantLen)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "roster.yaml")
	if err := os.WriteFile(path, []byte(rosterYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := roster.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := r.Resolve("danny").Canonical; got != "Dan Brown" {
		t.Errorf("Resolve(danny) = %q, want Dan Brown", got)
	}

	if _, err := roster.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
