package spectate

import (
	"context"
	"database/sql"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
)

// MatchSummary is one row of the archive index.
type MatchSummary struct {
	MatchID string `json:"match_id"`
	Turns   int    `json:"turns"`
	Over    bool   `json:"game_over"`
	Winner  int    `json:"winner"`
	Rows    int64  `json:"rows"`
	File    string `json:"file"`
}

// Index answers queries over every Parquet archive under a directory with an
// in-memory DuckDB. Files still in a tmp/ directory are skipped.
type Index struct {
	root string
}

func NewIndex(root string) *Index { return &Index{root: root} }

func (ix *Index) files() ([]string, error) {
	var out []string
	err := filepath.WalkDir(ix.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == ix.root {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() {
			if d.Name() == "tmp" {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".parquet") {
			out = append(out, path)
		}
		return nil
	})
	return out, err
}

// Matches lists every archived match, ordered by file then match id.
func (ix *Index) Matches(ctx context.Context) ([]MatchSummary, error) {
	files, err := ix.files()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return []MatchSummary{}, nil
	}

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, err
	}
	defer db.Close()

	quoted := make([]string, len(files))
	for i, f := range files {
		quoted[i] = "'" + escapeSQLString(f) + "'"
	}
	query := `SELECT match_id,
			MAX(turn) AS turns,
			BOOL_OR(game_over) AS is_over,
			MAX(winner) AS winner,
			COUNT(*) AS row_count,
			ANY_VALUE(filename) AS file_name
		FROM read_parquet([` + strings.Join(quoted, ",") + `], filename=true, union_by_name=true)
		GROUP BY match_id
		ORDER BY file_name, match_id`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]MatchSummary, 0, 64)
	for rows.Next() {
		var m MatchSummary
		if err := rows.Scan(&m.MatchID, &m.Turns, &m.Over, &m.Winner, &m.Rows, &m.File); err != nil {
			return nil, err
		}
		if rel, err := filepath.Rel(ix.root, m.File); err == nil {
			m.File = rel
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func escapeSQLString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
