package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context bundles a request context with an optional GORM transaction.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

// New builds a plain (non-transactional) Context.
func New(ctx context.Context) Context {
	return Context{Ctx: ctx}
}

// WithTx builds a Context bound to an open transaction.
func WithTx(ctx context.Context, tx *gorm.DB) Context {
	return Context{Ctx: ctx, Tx: tx}
}
