package proc

import "encoding/binary"

// linux_dirent64 layout: d_ino u64, d_off s64, d_reclen u16, d_type u8, d_name.
const (
	direntReclenOff = 16
	direntNameOff   = 19
)

// appendDirentPIDs walks a getdents64 buffer and appends every entry whose name
// is all digits.
func appendDirentPIDs(buf []byte, pids []int) []int {
	for len(buf) >= direntNameOff {
		reclen := int(binary.NativeEndian.Uint16(buf[direntReclenOff:]))
		if reclen <= direntNameOff || reclen > len(buf) {
			break
		}
		if pid, ok := parsePID(buf[direntNameOff:reclen]); ok {
			pids = append(pids, pid)
		}
		buf = buf[reclen:]
	}
	return pids
}

// parsePID reads a NUL-terminated decimal name.
func parsePID(name []byte) (int, bool) {
	n, digits := 0, 0
	for _, c := range name {
		if c == 0 {
			break
		}
		if c < '0' || c > '9' || digits == 10 {
			return 0, false
		}
		n = n*10 + int(c-'0')
		digits++
	}
	return n, digits > 0 && n > 0
}

// Field positions counted from the state field, i.e. after "pid (comm) ".
const (
	statState      = 0
	statPPID       = 1
	statUTime      = 11
	statSTime      = 12
	statNumThreads = 17
	statStartTime  = 19
	statRSS        = 21
)

// decodeStat fills r from the contents of /proc/<pid>/stat without allocating.
// The comm field may contain spaces and parentheses, so it is delimited by the
// first '(' and the last ')'.
func decodeStat(buf []byte, r *Record) error {
	open, closing := -1, -1
	for i, c := range buf {
		if c == '(' && open < 0 {
			open = i
		}
		if c == ')' {
			closing = i
		}
	}
	if open < 1 || closing < open {
		return ErrNoStat
	}

	pid, ok := parseUint(trimSpace(buf[:open]))
	if !ok {
		return ErrNoStat
	}
	r.PID = int(pid)
	r.CommLen = uint8(copy(r.Comm[:], buf[open+1:closing]))

	rest := buf[closing+1:]
	for field := 0; field <= statRSS; field++ {
		for len(rest) > 0 && rest[0] == ' ' {
			rest = rest[1:]
		}
		end := 0
		for end < len(rest) && rest[end] != ' ' && rest[end] != '\n' {
			end++
		}
		if end == 0 {
			return ErrShortStat
		}
		tok := rest[:end]
		rest = rest[end:]

		switch field {
		case statState:
			r.State = tok[0]
		case statPPID:
			v, _ := parseUint(tok)
			r.PPID = int(v)
		case statUTime:
			r.UTime, _ = parseUint(tok)
		case statSTime:
			r.STime, _ = parseUint(tok)
		case statNumThreads:
			v, _ := parseUint(tok)
			r.Threads = int(v)
		case statStartTime:
			r.StartTicks, _ = parseUint(tok)
		case statRSS:
			r.RSSPages, _ = parseUint(tok)
		}
	}
	return nil
}

func parseUint(b []byte) (uint64, bool) {
	if len(b) == 0 {
		return 0, false
	}
	var v uint64
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, false
		}
		v = v*10 + uint64(c-'0')
	}
	return v, true
}

func trimSpace(b []byte) []byte {
	for len(b) > 0 && (b[0] == ' ' || b[0] == '\n') {
		b = b[1:]
	}
	for len(b) > 0 && (b[len(b)-1] == ' ' || b[len(b)-1] == '\n') {
		b = b[:len(b)-1]
	}
	return b
}

// StateName maps the one-letter scheduler state to a word.
func StateName(s byte) string {
	switch s {
	case 'R':
		return "running"
	case 'S':
		return "sleeping"
	case 'D':
		return "disk-sleep"
	case 'Z':
		return "zombie"
	case 'T':
		return "stopped"
	case 't':
		return "tracing-stop"
	case 'X', 'x':
		return "dead"
	case 'I':
		return "idle"
	case 'P':
		return "parked"
	case 'W':
		return "waking"
	case 'K':
		return "wakekill"
	default:
		return "unknown"
	}
}
