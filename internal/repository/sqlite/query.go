package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sakif/pastie/internal/model"
	"github.com/sakif/pastie/internal/paginate"
)

const pasteColumns = `p.id, p.author, p.title, p.language, p.code, p.date, p.parent_id`

// pasteQuery is a paginate.Collection over a filtered SELECT.
//
// Count runs SELECT COUNT(*) with the same FROM/WHERE; Slice adds
// ORDER BY/LIMIT/OFFSET, so only one page of rows is ever read.
type pasteQuery struct {
	db    *DB
	from  string
	where []string
	args  []any
}

var _ paginate.Collection[model.Paste] = (*pasteQuery)(nil)

func (q *pasteQuery) clause() string {
	if len(q.where) == 0 {
		return q.from
	}
	return q.from + " WHERE " + strings.Join(q.where, " AND ")
}

func (q *pasteQuery) Count(ctx context.Context) (int, error) {
	var n int
	err := q.db.conn.QueryRowContext(ctx, `SELECT COUNT(*) `+q.clause(), q.args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting pastes: %w", err)
	}
	return n, nil
}

func (q *pasteQuery) Slice(ctx context.Context, offset, limit int) ([]model.Paste, error) {
	args := append(append([]any{}, q.args...), limit, offset)
	rows, err := q.db.conn.QueryContext(ctx,
		`SELECT `+pasteColumns+` `+q.clause()+`
		 ORDER BY p.date DESC, p.id DESC
		 LIMIT ? OFFSET ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing pastes: %w", err)
	}

	pastes, err := scanPastes(rows, limit)
	if err != nil {
		return nil, err
	}
	if err := loadTags(ctx, q.db.conn, pastes); err != nil {
		return nil, err
	}
	return pastes, nil
}

// scanner is the part of *sql.Row and *sql.Rows that scanPaste needs.
type scanner interface {
	Scan(dest ...any) error
}

func scanPaste(s scanner, p *model.Paste) error {
	var parent sql.NullInt64
	if err := s.Scan(&p.ID, &p.Author, &p.Title, &p.Language, &p.Code, &p.Date, &parent); err != nil {
		return err
	}
	if parent.Valid {
		id := parent.Int64
		p.ParentID = &id
	}
	p.Date = p.Date.UTC()
	p.Tags = []model.Tag{}
	return nil
}

// scanPastes drains and closes rows.
func scanPastes(rows *sql.Rows, capacity int) ([]model.Paste, error) {
	defer rows.Close()

	pastes := make([]model.Paste, 0, max(capacity, 0))
	for rows.Next() {
		var p model.Paste
		if err := scanPaste(rows, &p); err != nil {
			return nil, fmt.Errorf("sqlite: scanning paste row: %w", err)
		}
		pastes = append(pastes, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating pastes: %w", err)
	}
	return pastes, nil
}

// loadTags fills in the Tags of every paste with one query.
func loadTags(ctx context.Context, q querier, pastes []model.Paste) error {
	if len(pastes) == 0 {
		return nil
	}

	index := make(map[int64]int, len(pastes))
	placeholders := make([]string, len(pastes))
	args := make([]any, len(pastes))
	for i, p := range pastes {
		index[p.ID] = i
		placeholders[i] = "?"
		args[i] = p.ID
	}

	rows, err := q.QueryContext(ctx,
		`SELECT pt.paste_id, t.id, t.name
		 FROM paste_tags pt
		 JOIN tags t ON t.id = pt.tag_id
		 WHERE pt.paste_id IN (`+strings.Join(placeholders, ",")+`)`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("sqlite: loading tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pasteID int64
		var tag model.Tag
		if err := rows.Scan(&pasteID, &tag.ID, &tag.Name); err != nil {
			return fmt.Errorf("sqlite: scanning tag row: %w", err)
		}
		i := index[pasteID]
		pastes[i].Tags = append(pastes[i].Tags, tag)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sqlite: iterating tags: %w", err)
	}

	for i := range pastes {
		model.SortTags(pastes[i].Tags)
	}
	return nil
}
