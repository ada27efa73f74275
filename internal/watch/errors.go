package watch

import "fmt"

// Stage names a step of the regeneration pipeline.
type Stage string

// Pipeline stages, in execution order.
const (
	StageGenerate Stage = "generate"
	StageRender   Stage = "render"
	StagePackage  Stage = "package"
)

// SetupError is a failure that prevents the session from starting: invalid
// paths, unwritable outputs, bind failures or a watch that cannot be
// established.
type SetupError struct {
	Op  string
	Err error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("setup: %s: %v", e.Op, e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

func setupErr(op string, err error) error {
	return &SetupError{Op: op, Err: err}
}

// CycleError is a stage failure inside one regeneration cycle. The cycle is
// abandoned and the session keeps running.
type CycleError struct {
	Stage Stage
	Err   error
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *CycleError) Unwrap() error {
	return e.Err
}
