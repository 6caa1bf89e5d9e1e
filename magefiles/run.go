//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Runs the testbed in a window with the shaders/ directory watched.
func (Run) Testbed() error {
	mg.Deps(Build.Shaders)
	fmt.Println("Run testbed...")
	_, err := executeCmd("go", withArgs("run", "./cmd/testbed", "-shaders", "shaders"), withStream())
	return err
}

// Renders a few frames with the software driver and writes frame.bmp.
func (Run) Headless() error {
	_, err := executeCmd("go", withArgs("run", "./cmd/testbed", "-headless", "-frames", "120", "-out", "frame.bmp"), withStream())
	return err
}

// Prints the layers, extensions and devices the Vulkan loader reports.
func (Run) Info() error {
	_, err := executeCmd("go", withArgs("run", "./cmd/vkinfo"), withStream())
	return err
}
