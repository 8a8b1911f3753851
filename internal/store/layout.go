package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"
)

// LayoutKey identifies a prepared text layout. The same key always yields
// the same points.
type LayoutKey struct {
	Text          string
	ParticleCount int
	Width         float64
	Seed          uint64
}

// Layout is a cached text formation.
type Layout struct {
	ID        string
	Key       LayoutKey
	Points    []r3.Vec
	CreatedAt time.Time
}

// LayoutRepository caches text layouts.
type LayoutRepository struct {
	db *sql.DB
}

// Layouts returns the text layout repository for this store.
func (s *Store) Layouts() *LayoutRepository {
	return &LayoutRepository{db: s.db}
}

// Save stores points under key, replacing any layout with the same key.
// It returns the new layout ID.
func (r *LayoutRepository) Save(key LayoutKey, points []r3.Vec) (string, error) {
	if len(points) != key.ParticleCount {
		return "", fmt.Errorf("layout has %d points, key expects %d", len(points), key.ParticleCount)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`DELETE FROM text_layouts WHERE text = ? AND particle_count = ? AND width = ? AND seed = ?`,
		key.Text, key.ParticleCount, key.Width, int64(key.Seed),
	); err != nil {
		return "", err
	}

	id := uuid.New().String()
	if _, err := tx.Exec(
		`INSERT INTO text_layouts (id, text, particle_count, width, seed, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, key.Text, key.ParticleCount, key.Width, int64(key.Seed), time.Now(),
	); err != nil {
		return "", err
	}

	stmt, err := tx.Prepare(`INSERT INTO text_layout_points (layout_id, sequence, x, y, z) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer stmt.Close()

	for i, p := range points {
		if _, err := stmt.Exec(id, i, p.X, p.Y, p.Z); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

// Find returns the layout stored under key.
func (r *LayoutRepository) Find(key LayoutKey) (*Layout, error) {
	l := &Layout{Key: key}
	err := r.db.QueryRow(
		`SELECT id, created_at FROM text_layouts
		 WHERE text = ? AND particle_count = ? AND width = ? AND seed = ?`,
		key.Text, key.ParticleCount, key.Width, int64(key.Seed),
	).Scan(&l.ID, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	points, err := r.points(l.ID)
	if err != nil {
		return nil, err
	}
	l.Points = points
	return l, nil
}

func (r *LayoutRepository) points(id string) ([]r3.Vec, error) {
	rows, err := r.db.Query(
		`SELECT x, y, z FROM text_layout_points WHERE layout_id = ? ORDER BY sequence`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []r3.Vec
	for rows.Next() {
		var p r3.Vec
		if err := rows.Scan(&p.X, &p.Y, &p.Z); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// List returns every cached layout without points, newest first.
func (r *LayoutRepository) List() ([]*Layout, error) {
	rows, err := r.db.Query(
		`SELECT id, text, particle_count, width, seed, created_at
		 FROM text_layouts ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var layouts []*Layout
	for rows.Next() {
		l := &Layout{}
		var seed int64
		if err := rows.Scan(&l.ID, &l.Key.Text, &l.Key.ParticleCount, &l.Key.Width, &seed, &l.CreatedAt); err != nil {
			return nil, err
		}
		l.Key.Seed = uint64(seed)
		layouts = append(layouts, l)
	}
	return layouts, rows.Err()
}

// Delete removes a layout and its points.
func (r *LayoutRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM text_layouts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
