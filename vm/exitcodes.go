package vm

import "fmt"

// ExitCode values for the process driver (§6: "Exit codes. 0: returned
// normally from the initial method. Non-zero: unrecoverable error").
type ExitCode int

const (
	ExitOK             ExitCode = 0
	ExitRuntimeError   ExitCode = 1
	ExitImageLoadError ExitCode = 2
)

// SetInitialMethod records the method RunInitialMethod should execute.
// The image loader does not call it: Globals.InitialMethod is a heap
// ObjID and nothing maps it to a *CompiledMethod, so a VM booted from an
// image (as cmd/llst does) has no initial method unless a caller sets
// one here.
func (vm *VM) SetInitialMethod(m *CompiledMethod) { vm.initialMethod = m }

// RunInitialMethod executes the recorded initial method as a top-level
// activation with a nil receiver and no arguments, mirroring the
// source's image-provided "doit" entry point.
func (vm *VM) RunInitialMethod() error {
	if vm.initialMethod == nil {
		return fmt.Errorf("vm: no initial method installed")
	}
	_, err := vm.Execute(vm.initialMethod, vm.Globals.Nil, nil)
	return err
}
