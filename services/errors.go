package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/cppla/bloghub/apperror"
)

// isDuplicateKey reports unique constraint violations across the supported drivers.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint failed")
}

const msgDuplicate = "Duplicate field value entered"

// dbError maps persistence errors onto the application taxonomy. An empty duplicate falls back to a generic message.
func dbError(err error, notFound, duplicate string) error {
	if duplicate == "" {
		duplicate = msgDuplicate
	}
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperror.NewNotFound(notFound)
	case isDuplicateKey(err):
		return apperror.NewDuplicate(duplicate, err)
	default:
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return apperror.NewInternal("Server Error", err)
	}
}

// escapeLike escapes LIKE wildcards using '!' as the escape character.
func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}
