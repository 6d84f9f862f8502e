//go:build mage

package main

import (
	"path/filepath"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

const shaderDir = "assets/shaders"

// shaderStages maps each entry point of triangle.hlsl to its stage and output.
var shaderStages = []struct {
	stage, entry, output string
}{
	{"vertex", "vertex_main", "triangle.vert.spv"},
	{"fragment", "fragment_main", "triangle.frag.spv"},
}

// Compiles assets/shaders/triangle.hlsl into one SPIR-V module per stage.
func (Build) Shaders() error {
	return buildShaders()
}

// Compiles the binary.
func (Build) App() error {
	mg.Deps(Build.Shaders)
	_, err := executeCmd("go", withArgs("build", "-o", "bin/hellotriangle", "."), withStream())
	return err
}

func buildShaders() error {
	src := filepath.Join(shaderDir, "triangle.hlsl")
	for _, s := range shaderStages {
		if _, err := executeCmd("glslc", withArgs(
			"-x", "hlsl",
			"-fshader-stage="+s.stage,
			"-fentry-point="+s.entry,
			src,
			"-o", filepath.Join(shaderDir, s.output),
		), withStream()); err != nil {
			return err
		}
	}
	return nil
}
