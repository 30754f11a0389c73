package repository

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
)

// qb builds MySQL statements with '?' placeholders.
var qb = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// execAffected runs an UPDATE/DELETE and maps zero affected rows to
// ErrNotFound.
func execAffected(ctx context.Context, db *sql.DB, q sq.Sqlizer) error {
	query, args, err := q.ToSql()
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// count runs a SELECT COUNT(*) built from q.
func count(ctx context.Context, db *sql.DB, q sq.SelectBuilder) (int, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
