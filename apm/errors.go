package apm

import "errors"

var (
	// ErrTransactionEnded is returned by End when the transaction already ended.
	ErrTransactionEnded = errors.New("transaction already ended")

	// ErrForeignSegment is returned when a parent segment belongs to another transaction.
	ErrForeignSegment = errors.New("segment belongs to another transaction")
)
