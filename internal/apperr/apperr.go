package apperr

import "errors"

// Engine error taxonomy. Callers classify failures with errors.Is; every
// concrete error wraps exactly one of these sentinels. None of them is
// fatal to the process: a record or alarm that trips one is temporarily
// unavailable, nothing more.
var (
	// ErrInvalidRule marks a malformed recurrence rule. Rules are rejected
	// at construction, never at iteration time.
	ErrInvalidRule = errors.New("invalid recurrence rule")

	// ErrZoneResolution marks an unresolvable named timezone. It is
	// propagated to the caller; the engine never defaults silently to UTC.
	ErrZoneResolution = errors.New("timezone resolution failed")

	// ErrStoreUnavailable marks an open/read/write failure on a calendar
	// store. A rebuild or migration pass that hits it aborts whole and
	// leaves prior state intact.
	ErrStoreUnavailable = errors.New("calendar store unavailable")

	// ErrCorruptAlarm marks a malformed persisted alarm snapshot entry.
	// Loading skips the entry and continues.
	ErrCorruptAlarm = errors.New("corrupt persisted alarm")
)
