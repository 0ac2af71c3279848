package htmltable

import "errors"

// Sentinel kinds for table extraction errors.
var (
	ErrParse         = errors.New("html parse failed")
	ErrNoTable       = errors.New("no table in document")
	ErrNoHeader      = errors.New("table has no rows")
	ErrMissingColumn = errors.New("table lacks column")
)
