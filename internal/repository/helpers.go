package repository

import (
	"errors"

	"github.com/lib/pq"
)

const (
	uniqueViolation           = pq.ErrorCode("23505")
	invalidTextRepresentation = pq.ErrorCode("22P02")
)

func isUniqueViolation(err error) bool {
	return hasCode(err, uniqueViolation)
}

// isMalformedID reports a value Postgres could not cast to the column
// type, such as a ticket id that is not a UUID. No row can match it.
func isMalformedID(err error) bool {
	return hasCode(err, invalidTextRepresentation)
}

func hasCode(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == code
}
