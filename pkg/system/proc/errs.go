package proc

import "errors"

var (
	// ErrEnumerate indicates that the process list could not be read at all.
	ErrEnumerate = errors.New("proc: enumerate processes")

	// ErrBufferLimit indicates that a kernel buffer would have to grow beyond the
	// hard limit to hold the result.
	ErrBufferLimit = errors.New("proc: buffer limit exceeded")

	// ErrNoStat indicates that /proc/<pid>/stat was empty or malformed.
	ErrNoStat = errors.New("proc: malformed or empty stat")

	// ErrShortStat indicates that /proc/<pid>/stat had fewer fields than expected.
	ErrShortStat = errors.New("proc: short stat")

	// ErrPermission indicates that a per-process query was refused by the kernel.
	ErrPermission = errors.New("proc: permission denied")

	// ErrNoProcess indicates that the process exited before it could be queried.
	ErrNoProcess = errors.New("proc: no such process")
)
