package apperrors

import "fmt"

// Step names a transaction stage of a multi-step operation.
type Step string

const (
	StepApproval  Step = "approval"
	StepSwap      Step = "swap"
	StepLiquidity Step = "liquidity"
)

// StepError attributes a failure to the transaction stage that produced it,
// so callers can tell a failed approval from a failed swap.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s step: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Cause is implemented for compatibility with errors.Cause.
func (e *StepError) Cause() error {
	return e.Err
}

// AtStep wraps err as a StepError. A nil err stays nil.
func AtStep(step Step, err error) error {
	if err == nil {
		return nil
	}
	return &StepError{Step: step, Err: err}
}
