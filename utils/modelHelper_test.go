package utils

import (
	"strings"
	"testing"

	"gorm.io/gorm"
	"gorm.io/gorm/utils/tests"
)

type lockedRow struct {
	ID       int
	TenantId string
}

// The row getters rely on LockForUpdate emitting a real locking clause; a
// silently ignored option would leave concurrent recomputes unserialized.
func TestLockForUpdate_EmitsForUpdateClause(t *testing.T) {
	db, err := gorm.Open(tests.DummyDialector{}, &gorm.Config{DryRun: true, SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open dry-run session: %v", err)
	}

	var row lockedRow
	stmt := LockForUpdate(db).
		Where("id = ? AND tenant_id = ?", 1, "tenant-1").
		Find(&row).Statement

	sql := stmt.SQL.String()
	if !strings.Contains(sql, "FOR UPDATE") {
		t.Fatalf("expected FOR UPDATE in generated SQL, got %q", sql)
	}
}

func TestLockForUpdate_PlainQueryHasNoLock(t *testing.T) {
	db, err := gorm.Open(tests.DummyDialector{}, &gorm.Config{DryRun: true, SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open dry-run session: %v", err)
	}

	var row lockedRow
	stmt := db.Where("id = ?", 1).Find(&row).Statement
	if sql := stmt.SQL.String(); strings.Contains(sql, "FOR UPDATE") {
		t.Fatalf("unlocked query must not emit FOR UPDATE, got %q", sql)
	}
}
