package netusage

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ja7ad/procmetrics/pkg/usage"
)

type columns struct {
	pid      int // -1 when pids come from the name column
	name     int
	bytesIn  int
	bytesOut int
}

func (c columns) maxIndex() int {
	return max(c.pid, c.name, c.bytesIn, c.bytesOut)
}

// Parse decodes tool output into per-PID byte totals. The first record is the
// header; columns are found by name. Rows that are short or whose pid or byte
// fields do not parse are skipped. A PID seen twice keeps the last row.
func Parse(data []byte) (map[int]usage.Traffic, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.ReuseRecord = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoHeader, err)
	}
	cols, err := locate(header)
	if err != nil {
		return nil, err
	}

	out := make(map[int]usage.Traffic)
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if len(rec) <= cols.maxIndex() {
			continue
		}

		pid, ok := rowPID(rec, cols)
		if !ok {
			continue
		}
		in, err1 := strconv.ParseUint(strings.TrimSpace(rec[cols.bytesIn]), 10, 64)
		outB, err2 := strconv.ParseUint(strings.TrimSpace(rec[cols.bytesOut]), 10, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		out[pid] = usage.Traffic{BytesIn: in, BytesOut: outB}
	}
	return out, nil
}

func locate(header []string) (columns, error) {
	cols := columns{pid: -1, name: -1, bytesIn: -1, bytesOut: -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "pid":
			cols.pid = i
		case "bytes_in":
			cols.bytesIn = i
		case "bytes_out":
			cols.bytesOut = i
		case "":
			if cols.name < 0 {
				cols.name = i
			}
		}
	}
	if cols.bytesIn < 0 {
		return cols, fmt.Errorf("%w: bytes_in", ErrMissingColumn)
	}
	if cols.bytesOut < 0 {
		return cols, fmt.Errorf("%w: bytes_out", ErrMissingColumn)
	}
	if cols.pid < 0 && cols.name < 0 {
		return cols, fmt.Errorf("%w: pid", ErrMissingColumn)
	}
	if cols.pid >= 0 {
		cols.name = -1
	}
	return cols, nil
}

func rowPID(rec []string, cols columns) (int, bool) {
	field := ""
	if cols.pid >= 0 {
		field = rec[cols.pid]
	} else {
		// "process name.1234"
		name := rec[cols.name]
		i := strings.LastIndexByte(name, '.')
		if i < 0 {
			return 0, false
		}
		field = name[i+1:]
	}
	pid, err := strconv.Atoi(strings.TrimSpace(field))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}
