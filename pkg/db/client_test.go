package db

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/quotecart/pkg/config"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testModel struct {
	ID   int
	Name string
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&testModel{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return conn
}

func TestWithTx_CommitsAndRollbacks(t *testing.T) {
	db := newTestDB(t)
	client := &Client{conn: db}

	ctx := context.Background()
	if err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&testModel{Name: "committed"}).Error
	}); err != nil {
		t.Fatalf("WithTx commit failed: %v", err)
	}

	var count int64
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 record, got %d", count)
	}

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&testModel{Name: "rolled"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected WithTx to return an error")
	}
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed after rollback: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected rollback to leave 1 record, got %d", count)
	}
}

func TestPing(t *testing.T) {
	db := newTestDB(t)
	client := &Client{conn: db}
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}

func TestDialectorFor(t *testing.T) {
	cases := []struct {
		driver  string
		name    string
		wantErr bool
	}{
		{driver: "", name: "postgres"},
		{driver: config.DriverPostgres, name: "postgres"},
		{driver: config.DriverSQLite, name: "sqlite"},
		{driver: "oracle", wantErr: true},
	}
	for _, tc := range cases {
		dialector, err := dialectorFor(config.DBConfig{Driver: tc.driver, DSN: "file::memory:"})
		if tc.wantErr {
			if err == nil {
				t.Fatalf("driver %q: expected error", tc.driver)
			}
			continue
		}
		if err != nil {
			t.Fatalf("driver %q: unexpected error %v", tc.driver, err)
		}
		if dialector.Name() != tc.name {
			t.Fatalf("driver %q: expected dialector %s got %s", tc.driver, tc.name, dialector.Name())
		}
	}
}

func TestIsUniqueViolation(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "pgx", err: &pgconn.PgError{Code: "23505", ConstraintName: "cart_lines_pkey"}, want: true},
		{name: "pgx constraint mismatch", err: &pgconn.PgError{Code: "23505", ConstraintName: "other"}, constraint: "cart_lines_pkey", want: false},
		{name: "pq", err: &pq.Error{Code: "23505"}, want: true},
		{name: "pq other code", err: &pq.Error{Code: "23503"}, want: false},
		{name: "sqlite", err: errors.New("UNIQUE constraint failed: cart_lines.id"), want: true},
		{name: "other", err: errors.New("connection refused"), want: false},
	}
	for _, tc := range cases {
		if got := IsUniqueViolation(tc.err, tc.constraint); got != tc.want {
			t.Fatalf("%s: expected %v got %v", tc.name, tc.want, got)
		}
	}
}
