package netusage

import "time"

const (
	defaultCommand  = "nettop"
	defaultInterval = 5 * time.Second
	defaultTimeout  = 3 * time.Second
)

// nettop: per-process rows, one sample, CSV with only the byte columns.
var defaultArgs = []string{"-P", "-L", "1", "-J", "bytes_in,bytes_out", "-x"}

// Config selects the accounting tool and how often it may run.
type Config struct {
	// Command prints CSV with a header row. The header must name "bytes_in" and
	// "bytes_out" columns and either a "pid" column or an unnamed column holding
	// "name.pid" values.
	Command string
	Args    []string
	// Interval is the minimum time between two invocations.
	Interval time.Duration
	// Timeout bounds one invocation; the child is killed when it expires.
	Timeout time.Duration
}

func normalizeConfig(cfg Config) Config {
	normalized := cfg

	if normalized.Command == "" {
		normalized.Command = defaultCommand
		if len(normalized.Args) == 0 {
			normalized.Args = append([]string{}, defaultArgs...)
		}
	} else {
		normalized.Args = append([]string{}, normalized.Args...)
	}
	if normalized.Interval <= 0 {
		normalized.Interval = defaultInterval
	}
	if normalized.Timeout <= 0 {
		normalized.Timeout = defaultTimeout
	}
	return normalized
}

// DefaultConfig runs nettop every five seconds.
func DefaultConfig() Config { return normalizeConfig(Config{}) }
