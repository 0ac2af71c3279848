package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrOpen             = errors.New("store unavailable")
	ErrWrite            = errors.New("store write failed")
	ErrQuery            = errors.New("query failed")
	ErrInvalidTableName = errors.New("invalid table name")
)
