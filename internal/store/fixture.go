package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/evergreen/internal/detector"
	"github.com/ayusman/evergreen/internal/gesture"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Fixture is one recorded hand labelled with the gesture it should classify as.
type Fixture struct {
	ID        string                 `json:"id"`
	Label     gesture.Gesture        `json:"label"`
	Hand      detector.HandLandmarks `json:"hand"`
	Note      string                 `json:"note,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// FixtureRepository provides CRUD operations for landmark fixtures.
type FixtureRepository struct {
	db *sql.DB
}

// Fixtures returns the fixture repository for this store.
func (s *Store) Fixtures() *FixtureRepository {
	return &FixtureRepository{db: s.db}
}

// Create inserts a fixture. An empty ID is filled with a new UUID.
func (r *FixtureRepository) Create(f *Fixture) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	f.CreatedAt = time.Now()

	data, err := json.Marshal(f.Hand.Points)
	if err != nil {
		return fmt.Errorf("encode landmarks: %w", err)
	}

	_, err = r.db.Exec(
		`INSERT INTO landmark_fixtures (id, label, handedness, note, data, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		f.ID, f.Label.String(), f.Hand.Handedness, f.Note, string(data), f.CreatedAt,
	)
	return err
}

// GetByID retrieves a fixture by its ID.
func (r *FixtureRepository) GetByID(id string) (*Fixture, error) {
	row := r.db.QueryRow(
		`SELECT id, label, handedness, note, data, created_at
		 FROM landmark_fixtures WHERE id = ?`,
		id,
	)

	f, err := scanFixture(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

// List retrieves all fixtures, oldest first.
func (r *FixtureRepository) List() ([]*Fixture, error) {
	return r.query(
		`SELECT id, label, handedness, note, data, created_at
		 FROM landmark_fixtures ORDER BY created_at, id`,
	)
}

// ListByLabel retrieves the fixtures recorded for one gesture.
func (r *FixtureRepository) ListByLabel(label gesture.Gesture) ([]*Fixture, error) {
	return r.query(
		`SELECT id, label, handedness, note, data, created_at
		 FROM landmark_fixtures WHERE label = ? ORDER BY created_at, id`,
		label.String(),
	)
}

// Count returns the number of stored fixtures.
func (r *FixtureRepository) Count() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM landmark_fixtures`).Scan(&n)
	return n, err
}

// Delete removes a fixture by its ID.
func (r *FixtureRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM landmark_fixtures WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *FixtureRepository) query(q string, args ...any) ([]*Fixture, error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fixtures []*Fixture
	for rows.Next() {
		f, err := scanFixture(rows)
		if err != nil {
			return nil, err
		}
		fixtures = append(fixtures, f)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return fixtures, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFixture(s scanner) (*Fixture, error) {
	f := &Fixture{}
	var label, data string

	if err := s.Scan(&f.ID, &label, &f.Hand.Handedness, &f.Note, &data, &f.CreatedAt); err != nil {
		return nil, err
	}

	g, err := gesture.Parse(label)
	if err != nil {
		return nil, fmt.Errorf("fixture %s: %w", f.ID, err)
	}
	f.Label = g

	if err := json.Unmarshal([]byte(data), &f.Hand.Points); err != nil {
		return nil, fmt.Errorf("fixture %s: decode landmarks: %w", f.ID, err)
	}

	return f, nil
}
