package kernel

// Status is the completion code returned by kernel services.
//
// StatusSuccess is the only value that means "done as asked". StatusOwnerDead
// also grants the semaphore, but tells the caller the previous owner was
// terminated while holding it.
type Status uint8

const (
	StatusSuccess Status = iota
	StatusInvalidSemaphore
	StatusInvalidSuspend
	StatusInvalidCount
	StatusUnavailable
	StatusTimeout
	StatusDeleted
	StatusReset
	StatusOwnerDead
	StatusAlreadyOwned
	StatusInvalidOwner
	StatusCountRollover
	StatusInvalidTimer
	StatusInvalidFunction
	StatusInvalidTime
	StatusNotDisabled
	StatusInvalidOperation
	StatusInvalidTask
	StatusInvalidEntry
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusInvalidSemaphore:
		return "invalid semaphore"
	case StatusInvalidSuspend:
		return "invalid suspend"
	case StatusInvalidCount:
		return "invalid count"
	case StatusUnavailable:
		return "unavailable"
	case StatusTimeout:
		return "timeout"
	case StatusDeleted:
		return "deleted"
	case StatusReset:
		return "reset"
	case StatusOwnerDead:
		return "semaphore owner dead"
	case StatusAlreadyOwned:
		return "semaphore already owned"
	case StatusInvalidOwner:
		return "invalid semaphore owner"
	case StatusCountRollover:
		return "semaphore count rollover"
	case StatusInvalidTimer:
		return "invalid timer"
	case StatusInvalidFunction:
		return "invalid function"
	case StatusInvalidTime:
		return "invalid time"
	case StatusNotDisabled:
		return "timer not disabled"
	case StatusInvalidOperation:
		return "invalid operation"
	case StatusInvalidTask:
		return "invalid task"
	case StatusInvalidEntry:
		return "invalid entry"
	default:
		return "unknown"
	}
}

// Error implements error so a Status can travel through error-returning code.
func (s Status) Error() string { return s.String() }

// Err returns nil for StatusSuccess and the status itself otherwise.
//
// StatusOwnerDead is returned as an error even though the semaphore was
// obtained; callers that care must check for it with errors.Is.
func (s Status) Err() error {
	if s == StatusSuccess {
		return nil
	}
	return s
}

// Granted reports whether an Obtain with this status holds the semaphore.
func (s Status) Granted() bool {
	return s == StatusSuccess || s == StatusOwnerDead
}
