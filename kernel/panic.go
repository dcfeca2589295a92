package kernel

// PanicInfo contains details about a recovered task panic.
type PanicInfo struct {
	TaskID TaskID
	Value  any
	Stack  []byte
}

// SetPanicHandler installs the handler called after a task panics.
//
// The panicking task has already been terminated, and its priority-inheritance
// locks released, when the handler runs. It must not panic.
func (k *Kernel) SetPanicHandler(fn func(PanicInfo)) {
	k.mu.Lock()
	k.panicHandler = fn
	k.mu.Unlock()
}

// Panics returns the number of task panics recovered so far.
func (k *Kernel) Panics() uint32 {
	return k.panics.Load()
}
