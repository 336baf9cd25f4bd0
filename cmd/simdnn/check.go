package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"runtime"

	"github.com/born-ml/simdnn/internal/backend"
	"github.com/born-ml/simdnn/internal/gradcheck"
	"github.com/born-ml/simdnn/internal/nn"
	"github.com/born-ml/simdnn/internal/parallel"
	"github.com/born-ml/simdnn/internal/tensor"
)

// maxBatch is the batch capacity of the layers under test.
const maxBatch = 64

var (
	errOverTolerance = errors.New("relative error over tolerance")
	errBadFlag       = errors.New("invalid flag")
)

type checkConfig struct {
	layer   string
	algo    nn.Algo
	ref     nn.Algo
	dtype   string
	batch   int
	iters   int
	seed    int64
	tol     float64
	eps     float64
	workers int
	load    string
	save    string
	logger  *slog.Logger
}

func parseCheckFlags(args []string, stderr io.Writer) (checkConfig, error) {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(stderr)

	layer := fs.String("layer", "conv", "Layer to check: conv (1->32 channels, 3x3, 28x28) or linear (32x13x13 -> 10)")
	algo := fs.String("algo", "vectorized", "Implementation under test: baseline, vectorized, accelerator or experimental")
	ref := fs.String("ref", "baseline", "Reference implementation for the parity run")
	dtype := fs.String("dtype", "float32", "Element type: float32 or float64")
	batch := fs.Int("batch", maxBatch, fmt.Sprintf("Active batch size (1-%d)", maxBatch))
	iters := fs.Int("iters", 4, "Number of independent gradient checks")
	seed := fs.Int64("seed", 1, "Seed for weights, inputs and directions")
	tol := fs.Float64("tol", 1e-3, "Maximum accepted relative error")
	eps := fs.Float64("eps", 0.1, "Magnitude of the finite-difference direction")
	workers := fs.Int("workers", runtime.NumCPU(), "Gradient checks run in parallel")
	load := fs.String("load", "", "Initialize every layer from a SafeTensors checkpoint")
	save := fs.String("save", "", "Write the parameters of the layer under test to a SafeTensors file")
	verbose := fs.Bool("v", false, "Log per-pass timing to stderr")

	if err := fs.Parse(args); err != nil {
		return checkConfig{}, err
	}
	if fs.NArg() > 0 {
		return checkConfig{}, fmt.Errorf("%w: unexpected argument %q", errBadFlag, fs.Arg(0))
	}

	cfg := checkConfig{
		layer:   *layer,
		dtype:   *dtype,
		batch:   *batch,
		iters:   *iters,
		seed:    *seed,
		tol:     *tol,
		eps:     *eps,
		workers: *workers,
		load:    *load,
		save:    *save,
	}

	var err error
	if cfg.algo, err = nn.ParseAlgo(*algo); err != nil {
		return checkConfig{}, fmt.Errorf("-algo: %w", err)
	}
	if cfg.ref, err = nn.ParseAlgo(*ref); err != nil {
		return checkConfig{}, fmt.Errorf("-ref: %w", err)
	}

	switch {
	case cfg.layer != "conv" && cfg.layer != "linear":
		return checkConfig{}, fmt.Errorf("%w: -layer %q (want conv or linear)", errBadFlag, cfg.layer)
	case cfg.dtype != "float32" && cfg.dtype != "float64":
		return checkConfig{}, fmt.Errorf("%w: -dtype %q (want float32 or float64)", errBadFlag, cfg.dtype)
	case cfg.batch < 1 || cfg.batch > maxBatch:
		return checkConfig{}, fmt.Errorf("%w: -batch %d (want 1-%d)", errBadFlag, cfg.batch, maxBatch)
	case cfg.iters < 1:
		return checkConfig{}, fmt.Errorf("%w: -iters %d (want at least 1)", errBadFlag, cfg.iters)
	case !(cfg.tol > 0):
		return checkConfig{}, fmt.Errorf("%w: -tol %g (want > 0)", errBadFlag, cfg.tol)
	case !(cfg.eps > 0):
		return checkConfig{}, fmt.Errorf("%w: -eps %g (want > 0)", errBadFlag, cfg.eps)
	}

	if *verbose {
		cfg.logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return cfg, nil
}

func (c checkConfig) parallel() parallel.Config {
	if c.workers <= 1 {
		return parallel.Sequential()
	}
	p := parallel.DefaultConfig()
	p.Enabled = true
	p.NumWorkers = c.workers
	return p
}

func (c checkConfig) options(a nn.Algo, seed int64) nn.Options {
	opts := nn.DefaultOptions()
	opts.Algo = a
	opts.Seed = seed
	opts.Logger = c.logger
	return opts
}

func runCheck(args []string, stdout, stderr io.Writer) int {
	cfg, err := parseCheckFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "simdnn check: %v\n", err)
		return 2
	}

	if cfg.dtype == "float64" {
		err = check[float64](cfg, stdout)
	} else {
		err = check[float32](cfg, stdout)
	}
	if err != nil {
		fmt.Fprintf(stderr, "simdnn check: %v\n", err)
		return 1
	}
	return 0
}

func convGeometry() backend.Conv2DGeometry {
	return backend.Conv2DGeometry{MaxBatch: maxBatch, InChannels: 1, Height: 28, Width: 28, Kernel: 3, OutChannels: 32}
}

func linearGeometry() backend.LinearGeometry {
	return backend.LinearGeometry{MaxBatch: maxBatch, In: tensor.Shape{32, 13, 13}, Out: 10}
}

func check[T tensor.Float](cfg checkConfig, w io.Writer) error {
	if cfg.layer == "linear" {
		g := linearGeometry()
		return checkLayer[T, *nn.Linear[T]](cfg, w, g.InputShape(), func(opts nn.Options) (*nn.Linear[T], error) {
			return nn.NewLinear[T](g, opts)
		})
	}
	g := convGeometry()
	return checkLayer[T, *nn.Conv2D[T]](cfg, w, g.InputShape(), func(opts nn.Options) (*nn.Conv2D[T], error) {
		return nn.NewConv2D[T](g, opts)
	})
}

// checkable is what a layer under check exposes beyond gradcheck.Layer.
type checkable[T tensor.Float, L any] interface {
	gradcheck.Layer[T, L]
	WeightGrad() *tensor.Tensor[T]
	BiasGrad() *tensor.Tensor[T]
	KernelName() string
	Save(path string) error
	Load(path string) error
}

type namedDiff struct {
	name string
	diff gradcheck.Diff
}

func checkLayer[T tensor.Float, L checkable[T, L]](cfg checkConfig, w io.Writer, in tensor.Shape, build func(nn.Options) (L, error)) error {
	if cfg.load != "" {
		build = loading[T, L](build, cfg.load)
	}
	probe, err := build(cfg.options(cfg.algo, cfg.seed))
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "layer %s, algo %v (%s), %s, batch %d/%d\n",
		cfg.layer, cfg.algo, probe.KernelName(), tensor.TypeOf[T](), cfg.batch, maxBatch)
	if cfg.save != "" {
		if err := probe.Save(cfg.save); err != nil {
			return err
		}
		fmt.Fprintf(w, "saved parameters to %s\n", cfg.save)
	}

	results, err := parallel.Map(cfg.iters, func(i int) (gradcheck.Result, error) {
		seed := cfg.seed + int64(i)
		//nolint:gosec // Using math/rand for test data (not security-critical)
		rng := rand.New(rand.NewSource(seed))
		x := randomInput[T](in, cfg.batch, rng)
		return gradcheck.Check[T, L](func() (L, error) {
			return build(cfg.options(cfg.algo, seed))
		}, x, rng, T(cfg.eps))
	}, cfg.parallel())
	if err != nil {
		return err
	}

	var maxErr, sumErr float64
	for i, r := range results {
		fmt.Fprintf(w, "==== %d ====\n%v\n", i, r)
		maxErr = math.Max(maxErr, r.RelErr)
		sumErr += r.RelErr
	}
	fmt.Fprintf(w, "max relative error = %.9f\n", maxErr)
	fmt.Fprintf(w, "avg relative error = %.9f\n", sumErr/float64(len(results)))

	diffs, err := parity[T, L](cfg, in, build)
	if err != nil {
		return err
	}
	worst := 0.0
	for _, d := range diffs {
		fmt.Fprintf(w, "parity %-2s vs %v: %v\n", d.name, cfg.ref, d.diff)
		worst = math.Max(worst, d.diff.MaxRel)
	}

	if maxErr > cfg.tol || worst > cfg.tol || math.IsNaN(maxErr) || math.IsNaN(worst) {
		return fmt.Errorf("%w: gradient %.3g, parity %.3g, tolerance %.3g", errOverTolerance, maxErr, worst, cfg.tol)
	}
	return nil
}

// loading wraps build so every layer starts from the checkpoint at path.
func loading[T tensor.Float, L checkable[T, L]](build func(nn.Options) (L, error), path string) func(nn.Options) (L, error) {
	return func(opts nn.Options) (L, error) {
		l, err := build(opts)
		if err != nil {
			return l, err
		}
		return l, l.Load(path)
	}
}

// parity runs one forward and backward pass of the implementation under test
// and of the reference on the same weights and data.
func parity[T tensor.Float, L checkable[T, L]](cfg checkConfig, in tensor.Shape, build func(nn.Options) (L, error)) ([]namedDiff, error) {
	ref, err := build(cfg.options(cfg.ref, cfg.seed))
	if err != nil {
		return nil, fmt.Errorf("reference: %w", err)
	}
	got, err := build(cfg.options(cfg.algo, cfg.seed))
	if err != nil {
		return nil, err
	}

	//nolint:gosec // Using math/rand for test data (not security-critical)
	rng := rand.New(rand.NewSource(cfg.seed))
	x := randomInput[T](in, cfg.batch, rng)
	yRef := ref.Forward(x, true)
	yGot := got.Forward(x, true)

	gy := tensor.New[T](yRef.MaxShape())
	gy.SetBatch(yRef.Batch())
	gy.InitUniform(rng, -1, 1)
	gxRef := ref.Backward(gy)
	gxGot := got.Backward(gy)

	return []namedDiff{
		{"y", gradcheck.Compare(yRef, yGot)},
		{"gw", gradcheck.Compare(ref.WeightGrad(), got.WeightGrad())},
		{"gb", gradcheck.Compare(ref.BiasGrad(), got.BiasGrad())},
		{"gx", gradcheck.Compare(gxRef, gxGot)},
	}, nil
}

func randomInput[T tensor.Float](shape tensor.Shape, batch int, rng *rand.Rand) *tensor.Tensor[T] {
	x := tensor.New[T](shape)
	x.SetBatch(batch)
	x.InitUniform(rng, -1, 1)
	return x
}
