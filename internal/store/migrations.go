package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// One recorded hand per row, labelled with the gesture it should classify as
		`CREATE TABLE IF NOT EXISTS landmark_fixtures (
			id TEXT PRIMARY KEY,
			label TEXT NOT NULL CHECK(label IN ('NONE', 'OPEN', 'FIST', 'GUN')),
			handedness TEXT NOT NULL DEFAULT '',
			note TEXT NOT NULL DEFAULT '',
			data TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_landmark_fixtures_label ON landmark_fixtures(label)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
