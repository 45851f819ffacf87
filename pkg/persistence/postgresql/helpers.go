package postgresql

import (
	"errors"

	"github.com/lib/pq"
)

// isUniqueViolation reports whether an error is a unique-constraint failure.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error

	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
