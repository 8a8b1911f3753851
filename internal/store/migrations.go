package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Settings table - host settings editable at runtime, as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Text layouts table - one row per prepared text formation
		`CREATE TABLE IF NOT EXISTS text_layouts (
			id TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			particle_count INTEGER NOT NULL,
			width REAL NOT NULL,
			seed INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(text, particle_count, width, seed)
		)`,

		// Text layout points table - one target per particle, in particle order
		`CREATE TABLE IF NOT EXISTS text_layout_points (
			layout_id TEXT NOT NULL REFERENCES text_layouts(id) ON DELETE CASCADE,
			sequence INTEGER NOT NULL,
			x REAL NOT NULL,
			y REAL NOT NULL,
			z REAL NOT NULL,
			PRIMARY KEY (layout_id, sequence)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_text_layouts_text ON text_layouts(text)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
