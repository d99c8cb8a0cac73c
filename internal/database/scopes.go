package database

import (
	"gorm.io/gorm"
)

// Paginate limits a query to one page. It leaves the query untouched when
// page or pageSize is not positive, so callers can ask for every row.
func Paginate(page, pageSize int) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if page <= 0 || pageSize <= 0 {
			return db
		}
		return db.Offset((page - 1) * pageSize).Limit(pageSize)
	}
}
