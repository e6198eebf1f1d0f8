package consensus

import (
	"errors"
	"fmt"
)

// Every error returned by this package wraps one of these sentinels, so
// callers can classify failures with errors.Is.
var (
	// ErrConfiguration reports an unsatisfiable setting: K outside [1, n],
	// a SOM grid smaller than 2x2, a final algorithm that cannot consume a
	// distance matrix, or an out-of-range fraction or threshold.
	ErrConfiguration = errors.New("consensus: invalid configuration")

	// ErrNumerical reports a numeric failure during training, such as a SOM
	// epoch where no grid node is at a finite distance from a sample.
	ErrNumerical = errors.New("consensus: numerical failure")

	// ErrData reports malformed input: no samples, ragged feature vectors or
	// duplicate sample identifiers.
	ErrData = errors.New("consensus: invalid data")
)

// NumericalError identifies the sample and epoch at which SOM training
// stopped making sense. Lowering the learning rate usually fixes it.
type NumericalError struct {
	Sample int
	Epoch  int
}

func (e *NumericalError) Error() string {
	return fmt.Sprintf("consensus: no finite best matching unit for sample %d in epoch %d (try lowering the learning rate)", e.Sample, e.Epoch)
}

func (e *NumericalError) Unwrap() error { return ErrNumerical }

func configErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrConfiguration}, args...)...)
}

func dataErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrData}, args...)...)
}
