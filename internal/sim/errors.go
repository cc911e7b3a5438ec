package sim

import (
	"fmt"

	"github.com/pkg/errors"
)

// Domain errors for simulation operations.
var (
	// ErrNumericFault indicates a NaN in a body's position, velocity or force.
	ErrNumericFault = errors.New("sim: numeric fault (NaN detected)")

	// ErrInvalidConfig indicates a structurally invalid configuration.
	ErrInvalidConfig = errors.New("sim: invalid configuration")

	// ErrUnknownMethod indicates an unrecognised force evaluation method.
	ErrUnknownMethod = errors.New("sim: unknown force method")

	// ErrDimension indicates an unsupported dimension or a body whose vectors
	// do not match the configured dimension.
	ErrDimension = errors.New("sim: dimension mismatch")
)

// NumericFaultError identifies the body and step at which the simulation
// diverged. It is not recoverable.
type NumericFaultError struct {
	Step   int
	BodyID int
	Field  string
}

func (e *NumericFaultError) Error() string {
	return fmt.Sprintf("step %d: body %d: NaN in %s", e.Step, e.BodyID, e.Field)
}

func (e *NumericFaultError) Unwrap() error {
	return ErrNumericFault
}
