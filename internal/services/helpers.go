package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/yukikurage/timesheet-api/internal/repository"
)

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// staleOr translates a failed conditional update into ErrConcurrentUpdate
func staleOr(err error) error {
	if errors.Is(err, repository.ErrStaleRecord) {
		return ErrConcurrentUpdate
	}
	return err
}

// uniqueUint64 removes duplicate values from a slice of uint64
func uniqueUint64(values []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(values))
	result := make([]uint64, 0, len(values))

	for _, v := range values {
		if _, exists := seen[v]; exists {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}

	return result
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
