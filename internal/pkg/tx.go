package pkg

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// WithTx runs fn in a transaction bound to ctx. The transaction commits when
// fn returns nil and rolls back on error or panic; a panic is re-raised.
func WithTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return db.WithContext(ctx).Transaction(fn)
}

// CompareAndSet applies updates to the row of model identified by id, but only
// while column still equals want. It reports whether the row was changed, so
// callers can tell a lost race from a successful write.
func CompareAndSet(tx *gorm.DB, model any, id uint, column string, want any, updates map[string]any) (bool, error) {
	if !validFieldName.MatchString(column) {
		return false, fmt.Errorf("compare-and-set: invalid column %q", column)
	}
	result := tx.Model(model).
		Where("id = ?", id).
		Where(column+" = ?", want).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
