// Package main provides the simdnn command: gradient checks and parity runs
// of the convolution and dense kernels.
package main

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/born-ml/simdnn/internal/backend/webgpu"
	"github.com/born-ml/simdnn/internal/lane"
)

const version = "v0.1.0-dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one command and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}

	switch args[0] {
	case "check":
		return runCheck(args[1:], stdout, stderr)
	case "targets":
		printTargets(stdout)
		return 0
	case "version":
		fmt.Fprintf(stdout, "simdnn %s\n", version)
		return 0
	case "help", "-h", "-help", "--help":
		usage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "simdnn: unknown command %q\n\n", args[0])
		usage(stderr)
		return 2
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "simdnn - vectorized Conv2D and Linear kernels")
	fmt.Fprintf(w, "Version: %s\n\n", version)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  check      Gradient check and parity run of one layer")
	fmt.Fprintln(w, "  targets    Show compiled lane target and host CPU support")
	fmt.Fprintln(w, "  version    Show version")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'simdnn check -h' for check flags.")
}

func printTargets(w io.Writer) {
	var other lane.Other[float32]
	host := lane.Host()

	fmt.Fprintf(w, "lane target:   %s (%d lanes)\n", lane.TargetName, lane.Width)
	fmt.Fprintf(w, "experimental:  %d lanes\n", other.Width())
	fmt.Fprintf(w, "host:          %s (%s/%s)\n", host, runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(w, "native:        %d lanes %s, %d lanes %s\n",
		lane.Width, supported(host.Supports(lane.Width)),
		other.Width(), supported(host.Supports(other.Width())))

	switch {
	case !webgpu.Compiled:
		fmt.Fprintln(w, "accelerator:   not compiled (rebuild with -tags webgpu on windows)")
	case webgpu.IsAvailable():
		fmt.Fprintln(w, "accelerator:   webgpu, available")
	default:
		fmt.Fprintln(w, "accelerator:   webgpu, no adapter")
	}
}

func supported(ok bool) string {
	if ok {
		return "native"
	}
	return "emulated"
}
