package proc

import (
	"encoding/binary"
	"path/filepath"
	"strings"
)

// DecodeArgs decodes a packed argument buffer: a native-endian int32 argc followed
// by NUL-separated strings. The executable path and any padding NULs that
// precede the first argument are skipped. A zero, negative or oversized argc, or
// a buffer without any argument, yields fallback.
func DecodeArgs(buf []byte, fallback string) string {
	if len(buf) < 4 {
		return fallback
	}
	argc := int32(binary.NativeEndian.Uint32(buf))
	if argc <= 0 || int(argc) > len(buf) {
		return fallback
	}
	rest := buf[4:]

	// An exec path may precede the arguments; it ends at the first NUL run.
	if hasExecPath(rest, int(argc)) {
		i := indexNUL(rest)
		rest = rest[i:]
	}

	args := make([]string, 0, argc)
	for len(args) < int(argc) {
		for len(rest) > 0 && rest[0] == 0 {
			rest = rest[1:]
		}
		if len(rest) == 0 {
			break
		}
		i := indexNUL(rest)
		args = append(args, string(rest[:i]))
		rest = rest[i:]
	}
	if len(args) == 0 {
		return fallback
	}
	return strings.Join(args, " ")
}

// hasExecPath reports whether the buffer holds one more NUL-terminated string
// than argc, meaning the first one is the exec path.
func hasExecPath(b []byte, argc int) bool {
	n := 0
	for len(b) > 0 {
		for len(b) > 0 && b[0] == 0 {
			b = b[1:]
		}
		if len(b) == 0 {
			break
		}
		b = b[indexNUL(b):]
		n++
	}
	return n > argc
}

func indexNUL(b []byte) int {
	for i, c := range b {
		if c == 0 {
			return i
		}
	}
	return len(b)
}

// JoinArgs joins args with spaces, skipping empty ones, or returns fallback.
func JoinArgs(args []string, fallback string) string {
	var sb strings.Builder
	for _, a := range args {
		if a == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(a)
	}
	if sb.Len() == 0 {
		return fallback
	}
	return sb.String()
}

// ExecutableName is the base name of an exe link target, without the
// " (deleted)" suffix the kernel adds for replaced binaries.
func ExecutableName(exe string) string {
	exe = strings.TrimSuffix(exe, " (deleted)")
	if exe == "" {
		return ""
	}
	return filepath.Base(exe)
}
