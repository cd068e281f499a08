package vm

import "errors"

// Fatal VM errors (§7). These are sentinel values wrapped with context via
// fmt.Errorf("%w", ...) at the call site, following the same pattern the
// image reader uses for its own sentinel errors.
var (
	// ErrFatalAllocation is returned when the heap cannot satisfy an
	// allocation even after a collection and a growth attempt.
	ErrFatalAllocation = errors.New("vm: out of memory")

	// ErrDoesNotUnderstand is returned by sendMessage when lookup fails
	// and no doesNotUnderstand: handler is installed either.
	ErrDoesNotUnderstand = errors.New("vm: does not understand")

	// ErrNonLocalReturnEscaped is returned when a block's non-local
	// return targets a home context that has already returned
	// (PerformNonLocalReturn checks Context.Dead), or when the signal
	// reaches VM.Execute without finding its home context on the sender
	// chain (§4.5.3: "home context already unwound").
	ErrNonLocalReturnEscaped = errors.New("vm: non-local return from a dead context")

	// ErrBadBytecode is returned when the interpreter decodes an opcode
	// it does not recognize.
	ErrBadBytecode = errors.New("vm: unrecognized bytecode")

	// ErrStackUnderflow is returned when a context's operand stack is
	// popped while empty, indicating a malformed compiled method.
	ErrStackUnderflow = errors.New("vm: operand stack underflow")
)
