package mysql

import (
	"context"
	"strings"
	"testing"
)

func TestMigrationDSN(t *testing.T) {
	dsn, err := MigrationDSN("root:root@tcp(localhost:3306)/hotel?charset=utf8mb4")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !strings.Contains(dsn, "multiStatements=true") || !strings.Contains(dsn, "parseTime=true") {
		t.Fatalf("flags missing: %s", dsn)
	}
	if _, err := MigrationDSN("::not a dsn"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestApplyMigrations_MissingDir(t *testing.T) {
	if _, err := ApplyMigrations(context.Background(), nil, t.TempDir()+"/nope"); err == nil {
		t.Fatalf("expected error for missing dir")
	}
	if _, err := ApplyMigrations(context.Background(), nil, t.TempDir()); err == nil {
		t.Fatalf("expected error for dir without .sql files")
	}
}
