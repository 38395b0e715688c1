package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/pastie/internal/apperror"
	"github.com/sakif/pastie/internal/model"
	"github.com/sakif/pastie/internal/paginate"
	"github.com/sakif/pastie/internal/repository"
)

// COMPILE-TIME INTERFACE CHECK: the build fails here if *DB stops
// implementing the repository interface.
var _ repository.PasteRepository = (*DB)(nil)

// Create inserts a paste together with its tags in ONE transaction.
//
// TRANSACTIONS:
// Either the paste row, the tag rows and the association rows are all
// committed, or none of them is. `defer tx.Rollback()` is the safety net: after
// a successful Commit it is a no-op, on any early return it undoes the
// partial work.
//
// On success paste.ID and paste.Tags are filled in.
func (db *DB) Create(ctx context.Context, paste *model.Paste, tagNames []string) error {
	if paste.Date.IsZero() {
		paste.Date = time.Now()
	}
	paste.Date = paste.Date.UTC()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var parent sql.NullInt64
	if paste.ParentID != nil {
		parent = sql.NullInt64{Int64: *paste.ParentID, Valid: true}
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO pastes (author, title, date, language, code, parent_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		paste.Author,
		paste.Title,
		paste.Date,
		paste.Language,
		paste.Code,
		parent,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating paste: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading paste id: %w", err)
	}

	resolved, err := resolveTags(ctx, tx, tagNames)
	if err != nil {
		return err
	}
	for _, tag := range resolved {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO paste_tags (tag_id, paste_id) VALUES (?, ?)`,
			tag.ID, id,
		); err != nil {
			return fmt.Errorf("sqlite: tagging paste %d with %q: %w", id, tag.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing paste: %w", err)
	}

	paste.ID = id
	model.SortTags(resolved)
	paste.Tags = resolved
	return nil
}

// GetByID returns the paste with the given id, or apperror.ErrNotFound.
func (db *DB) GetByID(ctx context.Context, id int64) (*model.Paste, error) {
	var paste model.Paste
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+pasteColumns+` FROM pastes p WHERE p.id = ?`, id)
	if err := scanPaste(row, &paste); err != nil {
		// sql.ErrNoRows just means "no such row": translate it to the
		// domain's not-found error so callers can branch on it.
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("paste", id)
		}
		return nil, fmt.Errorf("sqlite: getting paste %d: %w", id, err)
	}

	pastes := []model.Paste{paste}
	if err := loadTags(ctx, db.conn, pastes); err != nil {
		return nil, err
	}
	return &pastes[0], nil
}

// Pastes returns the newest-first listing, optionally restricted to a date window.
func (db *DB) Pastes(filter repository.ListFilter) paginate.Collection[model.Paste] {
	q := &pasteQuery{db: db, from: `FROM pastes p`}
	if !filter.Since.IsZero() {
		q.where = append(q.where, `p.date >= ?`)
		q.args = append(q.args, filter.Since.UTC())
	}
	if !filter.Until.IsZero() {
		q.where = append(q.where, `p.date < ?`)
		q.args = append(q.args, filter.Until.UTC())
	}
	return q
}

// Children returns the direct replies to a paste, newest first.
func (db *DB) Children(ctx context.Context, id int64) ([]model.Paste, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+pasteColumns+` FROM pastes p
		 WHERE p.parent_id = ?
		 ORDER BY p.date DESC, p.id DESC`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing replies to %d: %w", id, err)
	}
	children, err := scanPastes(rows, 0)
	if err != nil {
		return nil, err
	}
	if err := loadTags(ctx, db.conn, children); err != nil {
		return nil, err
	}
	return children, nil
}

// Recent returns the newest pastes.
func (db *DB) Recent(ctx context.Context, limit int) ([]model.Paste, error) {
	return db.Pastes(repository.ListFilter{}).Slice(ctx, 0, limit)
}
