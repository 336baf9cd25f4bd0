package lane

import (
	"runtime"
	"strings"

	"golang.org/x/sys/cpu"
)

// Features describes which lane widths the host executes natively for
// float32. The kernels are portable Go and compute the same values whether or
// not the hardware matches; this is reported so a run can be labelled.
type Features struct {
	Arch   string
	Narrow bool // 128-bit vectors: SSE2 on amd64, ASIMD on arm64
	Wide   bool // 512-bit vectors: AVX-512F
	FMA    bool
}

var hostFeatures Features

func init() {
	detectCPUFeatures()
}

func detectCPUFeatures() {
	hostFeatures = Features{
		Arch:   runtime.GOARCH,
		Narrow: cpu.X86.HasSSE2 || cpu.ARM64.HasASIMD,
		Wide:   cpu.X86.HasAVX512F,
		FMA:    cpu.X86.HasFMA || cpu.ARM64.HasASIMD,
	}
}

// Host returns the detected host features.
func Host() Features {
	return hostFeatures
}

// Supports reports whether the host has native vectors of the given width.
func (f Features) Supports(width int) bool {
	switch width {
	case 4:
		return f.Narrow
	case 16:
		return f.Wide
	default:
		return false
	}
}

// String lists the detected features.
func (f Features) String() string {
	names := []string{f.Arch}
	if f.Narrow {
		names = append(names, "128-bit")
	}
	if f.Wide {
		names = append(names, "512-bit")
	}
	if f.FMA {
		names = append(names, "fma")
	}
	return strings.Join(names, " ")
}

// NativeSupported reports whether the compiled target maps onto host vectors.
func NativeSupported() bool {
	return hostFeatures.Supports(Width)
}
