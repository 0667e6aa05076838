// Package service implements the operation surface of the backend: ticket
// lifecycle, machine registry, preventive schedules and daily checklist
// submissions. All state-changing ticket transitions re-read the row under an
// exclusive lock inside a transaction before validating preconditions.
package service

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// forUpdate adds SELECT ... FOR UPDATE on dialects that support it. SQLite
// (used in tests) serializes writers on its own.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

const timeLayout = "2006-01-02 15:04"
