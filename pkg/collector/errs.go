package collector

import "errors"

// ErrStopped is returned by Service.Snapshot when the service is not running.
var ErrStopped = errors.New("collector: service stopped")
