package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/born-ml/simdnn/internal/backend/webgpu"
	"github.com/born-ml/simdnn/internal/lane"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runArgs(args ...string) (code int, stdout, stderr string) {
	var out, errOut bytes.Buffer
	code = run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRun_Version(t *testing.T) {
	code, out, _ := runArgs("version")
	assert.Equal(t, 0, code)
	assert.Equal(t, "simdnn "+version+"\n", out)
}

func TestRun_UnknownCommand(t *testing.T) {
	code, _, errOut := runArgs("train")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, `unknown command "train"`)
}

func TestRun_NoArgsPrintsUsage(t *testing.T) {
	code, _, errOut := runArgs()
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "Commands:")
}

func TestRun_Targets(t *testing.T) {
	code, out, _ := runArgs("targets")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "lane target:   "+lane.TargetName)
	if !webgpu.Compiled {
		assert.Contains(t, out, "accelerator:   not compiled")
	}
}

func TestCheck_BadFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"layer", []string{"-layer", "pool"}, `-layer "pool"`},
		{"algo", []string{"-algo", "avx"}, `-algo: unknown algorithm: "avx"`},
		{"ref", []string{"-ref", "gpu"}, `-ref: unknown algorithm`},
		{"dtype", []string{"-dtype", "float16"}, `-dtype "float16"`},
		{"batch too large", []string{"-batch", "65"}, "-batch 65"},
		{"batch zero", []string{"-batch", "0"}, "-batch 0"},
		{"iters", []string{"-iters", "0"}, "-iters 0"},
		{"tol", []string{"-tol", "0"}, "-tol 0"},
		{"extra argument", []string{"conv"}, `unexpected argument "conv"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, errOut := runArgs(append([]string{"check"}, tt.args...)...)
			assert.Equal(t, 2, code)
			assert.Contains(t, errOut, tt.want)
		})
	}
}

func TestCheck_Help(t *testing.T) {
	code, _, errOut := runArgs("check", "-h")
	assert.Equal(t, 0, code)
	assert.Contains(t, errOut, "-layer")
}

func TestCheck_AcceleratorNotCompiledIsFatal(t *testing.T) {
	if webgpu.Compiled {
		t.Skip("accelerator compiled into this binary")
	}
	code, out, errOut := runArgs("check", "-algo", "accelerator", "-iters", "1", "-batch", "1")
	assert.Equal(t, 1, code)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "accelerator not available")
}

func TestCheck_Conv(t *testing.T) {
	for _, algo := range []string{"vectorized", "experimental"} {
		t.Run(algo, func(t *testing.T) {
			code, out, errOut := runArgs("check", "-layer", "conv", "-algo", algo,
				"-batch", "2", "-iters", "2", "-workers", "2")
			require.Equal(t, 0, code, errOut)
			assert.Contains(t, out, "==== 1 ====")
			assert.Contains(t, out, "max relative error = ")
			assert.Contains(t, out, "avg relative error = ")
			assert.Contains(t, out, "parity gx vs baseline")
		})
	}
}

func TestCheck_LinearFloat64(t *testing.T) {
	code, out, errOut := runArgs("check", "-layer", "linear", "-dtype", "float64",
		"-batch", "3", "-iters", "3", "-eps", "1e-3", "-tol", "1e-6", "-workers", "1")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "layer linear, algo vectorized (lanes")
	assert.Contains(t, out, "float64, batch 3/64")
}

func TestCheck_OverToleranceFails(t *testing.T) {
	// A float32 check cannot reach 1e-300.
	code, _, errOut := runArgs("check", "-layer", "linear", "-batch", "1", "-iters", "1", "-tol", "1e-300")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "relative error over tolerance")
}

func TestCheck_SaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "linear.safetensors")
	code, out, errOut := runArgs("check", "-layer", "linear", "-batch", "2", "-iters", "1", "-save", path)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "saved parameters to "+path)

	code, _, errOut = runArgs("check", "-layer", "linear", "-batch", "2", "-iters", "1", "-seed", "7", "-load", path)
	require.Equal(t, 0, code, errOut)

	code, _, errOut = runArgs("check", "-layer", "conv", "-batch", "1", "-iters", "1", "-load", path)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "tensor not found")
}
