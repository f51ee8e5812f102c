package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// WriteJSON writes rep as indented {metadata, states} JSON, atomically.
func WriteJSON(outPath string, rep Replay) error {
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("encode replay: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, b, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write replay: %w", err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename replay: %w", err)
	}
	return nil
}

func ReadJSON(path string) (Replay, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Replay{}, err
	}
	var rep Replay
	if err := json.Unmarshal(b, &rep); err != nil {
		return Replay{}, fmt.Errorf("decode replay %s: %w", path, err)
	}
	return rep, nil
}

// Load reads a replay file by extension: .json holds one match, .parquet any
// number.
func Load(path string) ([]Replay, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		rep, err := ReadJSON(path)
		if err != nil {
			return nil, err
		}
		return []Replay{rep}, nil
	case ".parquet":
		return ReadParquet(path)
	}
	return nil, fmt.Errorf("unknown replay format %q", filepath.Ext(path))
}

// FileName is the default name for a replay started at t. The first eight
// characters of matchID keep matches started in the same second apart. A
// non-negative batch index is appended.
func FileName(t time.Time, matchID string, batchIndex int, ext string) string {
	base := "replay_" + t.Format("20060102_150405")
	if short := shortID(matchID); short != "" {
		base += "_" + short
	}
	if batchIndex >= 0 {
		base += fmt.Sprintf("_batch%03d", batchIndex)
	}
	return base + ext
}

func shortID(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 8 {
		id = id[:8]
	}
	return id
}

// List returns the replay files in dir, sorted by name. A missing dir is
// empty.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".json", ".parquet":
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}
