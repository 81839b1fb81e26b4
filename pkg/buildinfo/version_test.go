package buildinfo

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	s := String()
	for _, want := range []string{"version: " + Version, "commit: " + Commit, "built: " + Date} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q, missing %q", s, want)
		}
	}
}

func TestTemplate(t *testing.T) {
	if tpl := Template(); !strings.HasPrefix(tpl, "{{.Name}} version "+Version) {
		t.Errorf("Template() = %q", tpl)
	}
}

func TestCreator(t *testing.T) {
	old := Version
	defer func() { Version = old }()

	Version = "v1.2.3"
	if got, want := Creator(), "stipple v1.2.3"; got != want {
		t.Errorf("Creator() = %q, want %q", got, want)
	}
}
