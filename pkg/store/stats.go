package store

import (
	"context"
	"database/sql"
)

// Stats holds aggregated statistics for every stored model.
type Stats struct {
	Models []ModelInfo            `json:"models"`
	Tables map[string]ModelTables `json:"tables"` // keyed by model name
}

// ModelTables counts the stored entries of one model per table.
type ModelTables struct {
	Characters  int `json:"characters"`   // distinct characters seen in training
	Depths      int `json:"depths"`       // distinct label counts
	WordLengths int `json:"word_lengths"` // length entries over all levels
	FirstChars  int `json:"first_chars"`  // first-character entries over all levels
	Transitions int `json:"transitions"`  // bigram entries over all levels
}

// Stats returns a snapshot of the entry counts of every stored model.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	models, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{Models: models, Tables: make(map[string]ModelTables, len(models))}
	for _, m := range models {
		tables, err := s.countKinds(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		stats.Tables[m.Name] = tables
	}
	return stats, nil
}

func (s *Store) countKinds(ctx context.Context, id int64) (ModelTables, error) {
	rows, err := s.stmtCountKinds.QueryContext(ctx, id)
	if err != nil {
		return ModelTables{}, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var t ModelTables
	for rows.Next() {
		var kind string
		var n int
		if err = rows.Scan(&kind, &n); err != nil {
			return ModelTables{}, err
		}
		switch kind {
		case KindChar:
			t.Characters = n
		case KindDepth:
			t.Depths = n
		case KindWordLength:
			t.WordLengths = n
		case KindFirst:
			t.FirstChars = n
		case KindTransition:
			t.Transitions = n
		}
	}
	return t, rows.Err()
}
