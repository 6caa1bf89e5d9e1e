//go:build mage

package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/magefile/mage/mg"

	"github.com/spaghettifunk/vkbind/engine/core"
)

type cmdOptions struct {
	args   []string
	stream bool
}

type cmdOption func(*cmdOptions)

func withArgs(args ...string) cmdOption {
	return func(o *cmdOptions) {
		o.args = args
	}
}

func withStream() cmdOption {
	return func(o *cmdOptions) {
		o.stream = true
	}
}

// executeCmd runs command and returns its combined output. The output is
// streamed when asked for or when mage runs verbose, and logged on failure
// otherwise.
func executeCmd(command string, options ...cmdOption) (string, error) {
	opts := &cmdOptions{}
	for _, o := range options {
		o(opts)
	}
	path, err := exec.LookPath(command)
	if err != nil {
		return "", fmt.Errorf("%s is not installed: %w", command, err)
	}
	core.LogInfo("executing %s %s", command, strings.Join(opts.args, " "))

	var out bytes.Buffer
	cmd := exec.Command(path, opts.args...)
	cmd.Stdout, cmd.Stderr = &out, &out
	if mg.Verbose() || opts.stream {
		cmd.Stdout = io.MultiWriter(&out, os.Stdout)
		cmd.Stderr = io.MultiWriter(&out, os.Stderr)
	}
	if err := cmd.Run(); err != nil {
		if !mg.Verbose() && !opts.stream {
			core.LogError("%s failed:\n%s", command, out.String())
		}
		return "", fmt.Errorf("error executing %s: %w", command, err)
	}
	return out.String(), nil
}
