package progress

import "errors"

// ErrAppend reports that an entry could not be written.
var ErrAppend = errors.New("progress log append failed")
