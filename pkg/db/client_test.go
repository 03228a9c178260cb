package db

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/OmarEhab007/cargoparts-sub002/pkg/config"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/logger"
)

type stockRow struct {
	ID       int
	Listing  string
	Quantity int
}

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Discard,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&stockRow{}); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return conn
}

func countRows(t *testing.T, conn *gorm.DB) int64 {
	t.Helper()
	var n int64
	if err := conn.Model(&stockRow{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestWithTxCommitsWork(t *testing.T) {
	conn := openSQLite(t)
	client := FromConn(conn)

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return tx.Create(&stockRow{Listing: "brake-pad", Quantity: 4}).Error
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if got := countRows(t, conn); got != 1 {
		t.Fatalf("expected 1 row, got %d", got)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	conn := openSQLite(t)
	client := FromConn(conn)

	workErr := errors.New("insufficient stock")
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		if err := tx.Create(&stockRow{Listing: "alternator", Quantity: 1}).Error; err != nil {
			return err
		}
		return workErr
	})
	if !errors.Is(err, workErr) {
		t.Fatalf("expected work error, got %v", err)
	}
	if errors.Is(err, ErrTx) {
		t.Fatalf("work errors must not be reported as transaction failures: %v", err)
	}
	if got := countRows(t, conn); got != 0 {
		t.Fatalf("expected rollback, found %d rows", got)
	}
}

func TestWithTxRollsBackAndRepanics(t *testing.T) {
	conn := openSQLite(t)
	client := FromConn(conn)

	defer func() {
		if r := recover(); r != "ledger bug" {
			t.Fatalf("expected panic to propagate, got %v", r)
		}
		if got := countRows(t, conn); got != 0 {
			t.Fatalf("expected rollback after panic, found %d rows", got)
		}
	}()
	_ = client.WithTx(context.Background(), func(tx *gorm.DB) error {
		tx.Create(&stockRow{Listing: "radiator", Quantity: 2})
		panic("ledger bug")
	})
}

func TestPing(t *testing.T) {
	if err := FromConn(openSQLite(t)).Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestQueryLoggerDisabledWithoutThreshold(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	if got := queryLogger(config.DBConfig{}, logg); got != gormlogger.Discard {
		t.Fatalf("expected discard logger without a threshold")
	}
	if got := queryLogger(config.DBConfig{SlowQueryThreshold: time.Millisecond}, nil); got != gormlogger.Discard {
		t.Fatalf("expected discard logger without a service logger")
	}
	if got := queryLogger(config.DBConfig{SlowQueryThreshold: time.Millisecond}, logg); got == gormlogger.Discard {
		t.Fatalf("expected slow query logger")
	}
}

func TestNewRequiresDSN(t *testing.T) {
	if _, err := New(context.Background(), config.DBConfig{}, nil); err == nil {
		t.Fatalf("expected DSN error")
	}
}
