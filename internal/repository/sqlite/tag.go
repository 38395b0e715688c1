package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sakif/pastie/internal/apperror"
	"github.com/sakif/pastie/internal/model"
	"github.com/sakif/pastie/internal/paginate"
	"github.com/sakif/pastie/internal/repository"
	"github.com/sakif/pastie/internal/tags"
)

var _ repository.TagRepository = (*DB)(nil)

// resolveTags looks up or creates a tag for every name, inside Create's transaction.
//
// UPSERT:
// The INSERT is a no-op when a tag with the same name (ignoring case) already
// exists, and the SELECT then returns whichever row owns the name. Two
// concurrent writers therefore always agree on a single row instead of one of
// them failing on the UNIQUE constraint.
func resolveTags(ctx context.Context, q querier, names []string) ([]model.Tag, error) {
	resolved := make([]model.Tag, 0, len(names))
	seen := make(map[int64]bool, len(names))

	for _, name := range names {
		if name == "" {
			continue
		}
		if _, err := q.ExecContext(ctx,
			`INSERT INTO tags (name) VALUES (?) ON CONFLICT DO NOTHING`, name,
		); err != nil {
			return nil, fmt.Errorf("sqlite: creating tag %q: %w", name, err)
		}

		var tag model.Tag
		if err := q.QueryRowContext(ctx,
			`SELECT id, name FROM tags WHERE name = ?`, name,
		).Scan(&tag.ID, &tag.Name); err != nil {
			return nil, fmt.Errorf("sqlite: looking up tag %q: %w", name, err)
		}

		if seen[tag.ID] {
			continue
		}
		seen[tag.ID] = true
		resolved = append(resolved, tag)
	}
	return resolved, nil
}

// GetByName finds a tag by name, ignoring ASCII case.
func (db *DB) GetByName(ctx context.Context, name string) (*model.Tag, error) {
	var tag model.Tag
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name FROM tags WHERE name = ?`, name,
	).Scan(&tag.ID, &tag.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("tag", name)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting tag %q: %w", name, err)
	}
	return &tag, nil
}

// Names returns every tag name, sorted without regard to case.
func (db *DB) Names(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT name FROM tags ORDER BY name COLLATE NOCASE, name`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing tag names: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("sqlite: scanning tag name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating tag names: %w", err)
	}
	return names, nil
}

// Counts returns usage counts for the tags carried by at least one paste.
// A tag no paste references is left out (inner join).
func (db *DB) Counts(ctx context.Context) ([]tags.Count, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT t.name, COUNT(DISTINCT pt.paste_id)
		 FROM tags t
		 JOIN paste_tags pt ON pt.tag_id = t.id
		 GROUP BY t.id, t.name
		 ORDER BY t.name`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: counting tags: %w", err)
	}
	defer rows.Close()

	counts := []tags.Count{}
	for rows.Next() {
		var c tags.Count
		if err := rows.Scan(&c.Name, &c.Count); err != nil {
			return nil, fmt.Errorf("sqlite: scanning tag count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating tag counts: %w", err)
	}
	return counts, nil
}

// Tagged returns the pastes carrying the named tag, newest first.
func (db *DB) Tagged(name string) paginate.Collection[model.Paste] {
	return &pasteQuery{
		db: db,
		from: `FROM pastes p
		 JOIN paste_tags pt ON pt.paste_id = p.id
		 JOIN tags t ON t.id = pt.tag_id`,
		where: []string{`t.name = ?`},
		args:  []any{name},
	}
}
