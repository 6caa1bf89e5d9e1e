//go:build mage

package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Compiles every GLSL stage under shaders/ into a SPIR-V blob next to it.
func (Build) Shaders() error {
	return filepath.Walk("shaders", func(path string, fi os.FileInfo, err error) error {
		if err != nil || fi.IsDir() {
			return err
		}
		switch filepath.Ext(path) {
		case ".vert", ".frag", ".comp":
		default:
			return nil
		}
		_, err = executeCmd("glslc", withArgs(path, "-o", path+".spv"), withStream())
		return err
	})
}

// Builds every package and both commands.
func (Build) All() error {
	mg.Deps(Build.Shaders)
	_, err := executeCmd("go", withArgs("build", "./..."), withStream())
	return err
}

type Test mg.Namespace

// Runs the test suite with the race detector.
func (Test) All() error {
	if _, err := executeCmd("go", withArgs("test", "-race", "./..."), withStream()); err != nil {
		return err
	}
	_, err := executeCmd("go", withArgs("test", "-tags", "mage", "./magefiles"), withStream())
	return err
}
