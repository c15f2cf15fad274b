package store

import (
	"context"
	"database/sql"
)

// GetProject looks up a project by slug.
func (s *Store) GetProject(ctx context.Context, slug string) (Project, error) {
	var p Project
	var description, ghq sql.NullString
	row := s.reader.QueryRowContext(ctx, `SELECT slug, name, color, description, ghq_path FROM projects WHERE slug = ?`, slug)
	if err := row.Scan(&p.Slug, &p.Name, &p.Color, &description, &ghq); err != nil {
		return Project{}, err
	}
	p.Description = description.String
	p.GhqPath = ghq.String
	return p, nil
}

// UpsertProject creates or updates a project row.
func (s *Store) UpsertProject(ctx context.Context, p Project) error {
	_, err := s.writer.ExecContext(ctx, `INSERT INTO projects (slug, name, color, description, ghq_path)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET name=excluded.name, color=excluded.color,
			description=excluded.description, ghq_path=excluded.ghq_path`,
		p.Slug, p.Name, p.Color, nullableString(p.Description), nullableString(p.GhqPath))
	return err
}

// ListProjects returns every known project.
func (s *Store) ListProjects(ctx context.Context) ([]Project, error) {
	rows, err := s.reader.QueryContext(ctx, `SELECT slug, name, color, description, ghq_path FROM projects ORDER BY slug`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		var p Project
		var description, ghq sql.NullString
		if err := rows.Scan(&p.Slug, &p.Name, &p.Color, &description, &ghq); err != nil {
			return nil, err
		}
		p.Description = description.String
		p.GhqPath = ghq.String
		out = append(out, p)
	}
	return out, rows.Err()
}
