package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/starford/vaultport/internal"
)

func TestConfirm(t *testing.T) {
	cfg := internal.NewDefaultConfig()
	cfg.FrontMatter.StripLocation = true

	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"  yes  \n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"sure\n", false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		if got := confirm(cfg, strings.NewReader(tt.input), &out); got != tt.want {
			t.Errorf("confirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
		if !strings.Contains(out.String(), "Do you want to continue? (y/N)") {
			t.Errorf("prompt missing from output: %q", out.String())
		}
		if !strings.Contains(out.String(), "4. Remove location data") {
			t.Errorf("planned operations missing: %q", out.String())
		}
	}
}

func TestCheckVault(t *testing.T) {
	if err := checkVault(t.TempDir()); err != nil {
		t.Errorf("existing dir: %v", err)
	}
	if err := checkVault("/definitely/not/here"); err == nil {
		t.Error("missing dir should fail")
	}
}
