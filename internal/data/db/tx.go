package db

import (
	"context"

	"gorm.io/gorm"

	"github.com/yungbote/vedablog/internal/pkg/dbctx"
)

// WithTx runs fn inside a transaction. It commits when fn returns nil and
// rolls back on error or panic (the panic is re-raised); either way the
// connection goes back to the pool. If dbc already carries a transaction fn
// joins it and the outer scope decides the outcome.
func WithTx(dbc dbctx.Context, gdb *gorm.DB, fn func(dbctx.Context) error) (err error) {
	if dbc.Tx != nil {
		return fn(dbc)
	}
	ctx := dbc.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	tx := gdb.WithContext(ctx).Begin()
	if tx.Error != nil {
		return MapError("db.WithTx begin", tx.Error)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback().Error
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback().Error
			return
		}
		if cerr := tx.Commit().Error; cerr != nil {
			err = MapError("db.WithTx commit", cerr)
		}
	}()
	return fn(dbctx.Context{Ctx: ctx, Tx: tx})
}
