// Package pgstore implements the messaging and notifications stores on
// PostgreSQL through pgx. Every read filters on deleted_at IS NULL; rows are
// only ever soft-deleted.
//
// The schema ships with the package; apply it with
//
//	pg.Migrate(ctx, pool, cfg, pgstore.Migrations(), log)
package pgstore
