package sim

import (
	"runtime"

	"github.com/pkg/errors"
	"github.com/san-kum/gravsim/internal/gravity"
	"github.com/san-kum/gravsim/internal/merge"
	"github.com/san-kum/gravsim/internal/tree"
)

const (
	MethodBarnesHut = "barneshut"
	MethodMultipole = "multipole"
	MethodDirect    = "direct"
)

// Methods lists the accepted values of Config.Method.
var Methods = []string{MethodBarnesHut, MethodMultipole, MethodDirect}

// Config is threaded through every component of a simulation. Numeric
// ranges (positive dt, G and softening, non-negative theta) are the
// caller's responsibility; Validate only checks structure.
type Config struct {
	Dimensions  int
	G           float64
	Softening   float64
	NormEpsilon float64
	Dt          float64

	Method           string
	Theta            float64
	CollisionEpsilon float64
	Capacity         int
	MinCellSize      float64
	Padding          float64

	// MergeThreshold <= 0 disables merging.
	MergeThreshold float64
	MergeDamping   float64

	// Steps == 0 runs until the context passed to Run is done.
	Steps         int
	Workers       int
	ValidateState bool
	LogEvery      int
}

func DefaultConfig() Config {
	return Config{
		Dimensions:       2,
		G:                6.674e-11,
		Softening:        1,
		NormEpsilon:      1e-9,
		Dt:               1,
		Method:           MethodBarnesHut,
		Theta:            0.5,
		CollisionEpsilon: tree.DefaultCollisionEpsilon,
		Capacity:         tree.DefaultCapacity,
		MinCellSize:      tree.DefaultMinSize,
		Padding:          tree.DefaultPadding,
		MergeDamping:     merge.DefaultDamping,
		Workers:          runtime.GOMAXPROCS(0),
		ValidateState:    true,
		LogEvery:         100,
	}
}

func (c Config) Validate() error {
	if c.Dimensions != 2 && c.Dimensions != 3 {
		return errors.Wrapf(ErrDimension, "dimensions must be 2 or 3, got %d", c.Dimensions)
	}
	switch c.Method {
	case MethodBarnesHut, MethodMultipole, MethodDirect:
	default:
		return errors.Wrapf(ErrUnknownMethod, "%q", c.Method)
	}
	if c.Steps < 0 {
		return errors.Wrapf(ErrInvalidConfig, "steps must not be negative, got %d", c.Steps)
	}
	return nil
}

func (c Config) Law() gravity.Law {
	return gravity.Law{G: c.G, Softening: c.Softening, NormEpsilon: c.NormEpsilon}
}

func (c Config) Merge() merge.Config {
	return merge.Config{Threshold: c.MergeThreshold, Damping: c.MergeDamping, Workers: c.Workers}
}

func (c Config) Bucket() tree.BucketConfig {
	return tree.BucketConfig{Capacity: c.Capacity, MinSize: c.MinCellSize}
}

// NewEvaluator returns the force evaluator selected by c.Method.
func NewEvaluator(c Config) (gravity.Evaluator, error) {
	law := c.Law()
	switch c.Method {
	case MethodBarnesHut:
		return &tree.BarnesHut{
			Law:              law,
			Theta:            c.Theta,
			CollisionEpsilon: c.CollisionEpsilon,
			Padding:          c.Padding,
		}, nil
	case MethodMultipole:
		return &tree.Multipole{Law: law, Theta: c.Theta, Bucket: c.Bucket(), Padding: c.Padding}, nil
	case MethodDirect:
		return gravity.NewDirect(law), nil
	}
	return nil, errors.Wrapf(ErrUnknownMethod, "%q", c.Method)
}
