//go:build mage

package main

import (
	"strings"
	"testing"
)

func TestExecuteCmd(t *testing.T) {
	out, err := executeCmd("go", withArgs("env", "GOOS"))
	if err != nil {
		t.Fatalf("executeCmd: %v", err)
	}
	if strings.TrimSpace(out) == "" {
		t.Error("go env GOOS printed nothing")
	}
	if _, err := executeCmd("vkbind-no-such-tool"); err == nil || !strings.Contains(err.Error(), "not installed") {
		t.Errorf("missing tool = %v", err)
	}
	if _, err := executeCmd("go", withArgs("no-such-subcommand")); err == nil {
		t.Error("failing command reported success")
	}
}
