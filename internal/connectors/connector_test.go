package connectors

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{"git add .", []string{"git", "add", "."}},
		{`git commit -m "feat: init dag sales"`, []string{"git", "commit", "-m", "feat: init dag sales"}},
		{`  cd   /home/jovyan/workspaces/x `, []string{"cd", "/home/jovyan/workspaces/x"}},
		{`git tag -a v1.0.0 -m "release: create deployment"`, []string{"git", "tag", "-a", "v1.0.0", "-m", "release: create deployment"}},
		{`git commit -m "say \"hi\""`, []string{"git", "commit", "-m", `say "hi"`}},
		{`git commit -m 'single quoted'`, []string{"git", "commit", "-m", "single quoted"}},
		{`cd /tmp/a\ b`, []string{"cd", "/tmp/a b"}},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := SplitCommand(tt.line)
			if err != nil {
				t.Fatalf("SplitCommand() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("SplitCommand(%q) mismatch (-want +got):\n%s", tt.line, diff)
			}
		})
	}
}

func TestSplitCommandUnterminatedQuote(t *testing.T) {
	if _, err := SplitCommand(`git commit -m "oops`); err == nil {
		t.Error("expected error for unterminated quote")
	}
}
