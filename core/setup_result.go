package core

// SetupStep identifies one hardware bring-up step of Stream.Configure
type SetupStep uint8

const (
	StepInstall SetupStep = iota
	StepPins
	StepSampleRate
	StepZeroBuffer
	StepMasterClock
)

func (s SetupStep) String() string {
	switch s {
	case StepInstall:
		return "install"
	case StepPins:
		return "set pins"
	case StepSampleRate:
		return "set sample rate"
	case StepZeroBuffer:
		return "zero dma buffer"
	case StepMasterClock:
		return "route master clock"
	default:
		return "step " + itoa(int(s))
	}
}

// StepOutcome is the result of a single setup step
type StepOutcome struct {
	Step SetupStep
	Err  error
}

// StepError reports which setup step failed
type StepError struct {
	Step SetupStep
	Err  error
}

func (e *StepError) Error() string {
	return "i2s setup: " + e.Step.String() + ": " + e.Err.Error()
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// SetupResult holds every step outcome of Configure in execution order.
// All steps run even after a failure, matching the hardware bring-up sequence.
type SetupResult struct {
	Steps []StepOutcome
}

func (r *SetupResult) record(step SetupStep, err error) {
	r.Steps = append(r.Steps, StepOutcome{Step: step, Err: err})
}

// Code returns the number of failed steps. Zero means success; any non-zero
// value only says that something failed.
func (r SetupResult) Code() int {
	n := 0
	for _, s := range r.Steps {
		if s.Err != nil {
			n++
		}
	}
	return n
}

// OK reports whether every step succeeded
func (r SetupResult) OK() bool {
	return r.Code() == 0
}

// Failed returns the failing steps in execution order
func (r SetupResult) Failed() []SetupStep {
	var failed []SetupStep
	for _, s := range r.Steps {
		if s.Err != nil {
			failed = append(failed, s.Step)
		}
	}
	return failed
}

// Err returns the first failure as a *StepError, or nil
func (r SetupResult) Err() error {
	for _, s := range r.Steps {
		if s.Err != nil {
			return &StepError{Step: s.Step, Err: s.Err}
		}
	}
	return nil
}
