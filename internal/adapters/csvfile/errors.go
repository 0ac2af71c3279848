package csvfile

import "errors"

// Sentinel kinds for CSV file errors.
var (
	ErrWrite = errors.New("csv write failed")
	ErrRead  = errors.New("csv read failed")
)
