package repo

import (
	"charity/internal/domain"
	"charity/internal/infra"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func toStrings[S ~string](values []S) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

// mapErr translates driver errors into domain kinds.
func mapErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case infra.IsNoRows(err):
		return domain.ErrNotFound
	case infra.IsUniqueViolation(err, ""):
		return domain.ErrConflict
	default:
		return domain.Internal(op, err)
	}
}
