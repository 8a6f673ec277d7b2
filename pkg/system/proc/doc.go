// Package proc reads process state from a Linux procfs mount.
//
// # Enumeration
//
// Enumerator lists every process once per call:
//
//   - getdents64 over the proc root into a reused buffer; every entry whose
//     name is all digits is a PID.
//   - /proc/<pid>/stat is opened relative to the root fd, the owner uid comes
//     from fstat of that fd, and the contents are read into a second reused
//     buffer and decoded in place into a Record.
//
// Both buffers double when the kernel signals they are too small (EINVAL from
// getdents, or a read that fills the buffer) and never shrink. Growth beyond a
// hard limit fails the call with ErrBufferLimit. A PID that disappears between
// listing and reading is skipped silently.
//
// # Introspection
//
// Introspector answers the per-process questions that are too costly or too
// privileged to ask for every record on every cycle:
//
//	TaskInfo       /proc/<pid>/schedstat (ns on CPU) + stat (rss, threads)
//	ResourceUsage  /proc/<pid>/io (read_bytes, write_bytes, wchar)
//	Identity       /proc/<pid>/exe, cmdline, cgroup
//
// /proc/<pid>/io is mode 0400, so unprivileged callers get ErrPermission for
// processes of other users. Callers are expected to degrade, not fail.
//
// # Identity helpers
//
// DecodeArgs understands the packed argc-prefixed argument block some kernels
// export and JoinArgs renders an argument vector. UserResolver turns uids into
// names with a bounded cache.
//
// # Errors (errs.go)
//
//	ErrEnumerate   : the proc root could not be listed
//	ErrBufferLimit : a buffer would exceed its hard limit
//	ErrNoStat      : stat file malformed
//	ErrShortStat   : stat file truncated
//	ErrPermission  : the kernel refused a per-process query
//	ErrNoProcess   : the process exited
package proc
