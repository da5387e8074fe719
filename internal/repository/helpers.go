package repository

import (
	"database/sql"
	"errors"
)

// HandleNotFound processes a database query result, converting sql.ErrNoRows
// to a nil result without error. Find* operations use it so that a missing
// principal or link reads as "none" rather than a storage failure.
//
// Usage:
//
//	var link model.DeviceLink
//	err := r.db.GetContext(ctx, &link, query, args...)
//	return HandleNotFound(&link, err)
func HandleNotFound[T any](result *T, err error) (*T, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}
