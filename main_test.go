package main

import (
	"testing"

	"opskit/cmd"
)

func TestDefaultVersion(t *testing.T) {
	if version != "dev" {
		t.Errorf("expected default version to be 'dev', got %s", version)
	}
}

func TestSetVersionPropagates(t *testing.T) {
	defer cmd.SetVersion(version)

	for _, v := range []string{"1.0.0", "2.3.4-beta.1", "dev"} {
		cmd.SetVersion(v)
		if got := cmd.GetVersion(); got != v {
			t.Errorf("expected version %s, got %s", v, got)
		}
	}
}
