package main

import (
	"testing"

	"knowledgecore/cmd"
)

func TestVersion(t *testing.T) {
	if version != "dev" {
		t.Errorf("Expected default version to be 'dev', got %s", version)
	}

	cmd.SetVersion(version)
	if got := cmd.GetVersion(); got != version {
		t.Errorf("Expected command version %s, got %s", version, got)
	}
}
