package repo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/parleyhq/go-messenger-backend/internal/domain"
)

func newIdemRepoDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("idem_repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := db.AutoMigrate(&domain.Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestIdempotency_CreateThenGet(t *testing.T) {
	db := newIdemRepoDB(t)
	ctx := context.Background()

	rec, err := CreateIdempotency(ctx, db, "u1", "dm:u2", "key-1", 42, 201, time.Hour)
	if err != nil {
		t.Fatalf("CreateIdempotency: %v", err)
	}
	if rec.MessageID != 42 || rec.Status != 201 {
		t.Fatalf("unexpected record: %+v", rec)
	}

	got, err := GetIdempotency(ctx, db, "u1", "dm:u2", "key-1", time.Now().UTC())
	if err != nil || got == nil || got.MessageID != 42 {
		t.Fatalf("GetIdempotency: got %+v err %v", got, err)
	}
}

func TestIdempotency_ScopeSeparatesKeyspaces(t *testing.T) {
	db := newIdemRepoDB(t)
	ctx := context.Background()

	if _, err := CreateIdempotency(ctx, db, "u1", "dm:u2", "key-1", 1, 201, time.Hour); err != nil {
		t.Fatalf("create dm record: %v", err)
	}
	// Same key in a different scope is a different operation.
	if _, err := CreateIdempotency(ctx, db, "u1", "group:g1", "key-1", 2, 201, time.Hour); err != nil {
		t.Fatalf("create group record: %v", err)
	}

	if _, err := GetIdempotency(ctx, db, "u1", "group:g2", "key-1", time.Now().UTC()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unseen scope, got %v", err)
	}
}

func TestIdempotency_DuplicateKey(t *testing.T) {
	db := newIdemRepoDB(t)
	ctx := context.Background()

	if _, err := CreateIdempotency(ctx, db, "u1", "dm:u2", "key-1", 1, 201, time.Hour); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := CreateIdempotency(ctx, db, "u1", "dm:u2", "key-1", 9, 201, time.Hour); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestIdempotency_ExpiredRecordIsInvisible(t *testing.T) {
	db := newIdemRepoDB(t)
	ctx := context.Background()

	if _, err := CreateIdempotency(ctx, db, "u1", "dm:u2", "key-1", 1, 201, time.Millisecond); err != nil {
		t.Fatalf("create: %v", err)
	}
	later := time.Now().UTC().Add(time.Second)
	if _, err := GetIdempotency(ctx, db, "u1", "dm:u2", "key-1", later); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}
}

func TestIdempotency_BlankScopeNeverMatches(t *testing.T) {
	db := newIdemRepoDB(t)
	if _, err := GetIdempotency(context.Background(), db, "u1", "  ", "key-1", time.Now().UTC()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for blank scope, got %v", err)
	}
}
