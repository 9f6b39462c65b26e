package db

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/yungbote/vedablog/internal/data/repos/testutil"
	"github.com/yungbote/vedablog/internal/domain/travel"
	"github.com/yungbote/vedablog/internal/pkg/dbctx"
)

func countDestinations(t *testing.T, gdb *gorm.DB) int64 {
	t.Helper()
	var n int64
	if err := gdb.Model(&travel.Destination{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestWithTxCommitsOnSuccess(t *testing.T) {
	gdb := testutil.DB(t)
	err := WithTx(dbctx.New(context.Background()), gdb, func(dbc dbctx.Context) error {
		return dbc.DB(gdb).Create(&travel.Destination{Slug: "kyoto", Title: "Kyoto"}).Error
	})
	if err != nil {
		t.Fatalf("WithTx: %v", err)
	}
	n := countDestinations(t, gdb)
	if n != 1 {
		t.Fatalf("expected committed row, got %d", n)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	gdb := testutil.DB(t)
	boom := errors.New("boom")
	err := WithTx(dbctx.New(context.Background()), gdb, func(dbc dbctx.Context) error {
		if err := dbc.DB(gdb).Create(&travel.Destination{Slug: "kyoto", Title: "Kyoto"}).Error; err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	n := countDestinations(t, gdb)
	if n != 0 {
		t.Fatalf("expected rollback, got %d rows", n)
	}
}

func TestWithTxRollsBackAndRepanics(t *testing.T) {
	gdb := testutil.DB(t)
	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("expected panic to propagate")
			}
		}()
		_ = WithTx(dbctx.New(context.Background()), gdb, func(dbc dbctx.Context) error {
			_ = dbc.DB(gdb).Create(&travel.Destination{Slug: "kyoto", Title: "Kyoto"}).Error
			panic("kaboom")
		})
	}()
	// the single test connection must be back in the pool for this to return
	n := countDestinations(t, gdb)
	if n != 0 {
		t.Fatalf("expected rollback after panic, got %d rows", n)
	}
}

func TestWithTxJoinsOuterTransaction(t *testing.T) {
	gdb := testutil.DB(t)
	outer := testutil.Tx(t, gdb)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: outer}
	err := WithTx(dbc, gdb, func(inner dbctx.Context) error {
		if inner.Tx != outer {
			t.Fatalf("expected inner scope to reuse outer tx")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTx: %v", err)
	}
}
