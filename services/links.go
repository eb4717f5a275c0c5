package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// link inserts a join-table row and reports whether a row was inserted. The
// insert runs in a savepoint so a concurrent duplicate leaves the outer
// transaction usable and counts as already linked.
func link(tx *gorm.DB, table, colA string, a uint, colB string, b uint) (bool, error) {
	err := tx.Transaction(func(sp *gorm.DB) error {
		return sp.Table(table).Create(map[string]interface{}{colA: a, colB: b}).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	return true, nil
}

// unlink deletes a join-table row and reports whether one existed
func unlink(tx *gorm.DB, table, colA string, a uint, colB string, b uint) (bool, error) {
	res := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE %s = ? AND %s = ?", table, colA, colB), a, b)
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete from %s: %w", table, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func isLinked(tx *gorm.DB, table, colA string, a uint, colB string, b uint) (bool, error) {
	var n int64
	err := tx.Table(table).Where(fmt.Sprintf("%s = ? AND %s = ?", colA, colB), a, b).Count(&n).Error
	return n > 0, err
}
