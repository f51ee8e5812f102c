package replay

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LedgerEntry records where one finished batch match was written. Key is
// chosen by the batch runner and must change whenever anything that shapes
// the match changes.
type LedgerEntry struct {
	Key     string `json:"key"`
	MatchID string `json:"match_id"`
	File    string `json:"file"`
}

// Ledger is the resume log of a batch: one JSON entry per line, appended as
// matches are persisted. A torn or garbled line is skipped on open and counted
// in Skipped, so a crash mid-append costs one match at most.
type Ledger struct {
	mu      sync.Mutex
	file    *os.File
	entries map[string]LedgerEntry
	skipped int
}

func OpenLedger(path string) (*Ledger, error) {
	if path == "" {
		return nil, errors.New("ledger path is required")
	}
	l := &Ledger{entries: make(map[string]LedgerEntry)}
	if err := l.load(path); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	l.file = f
	return l, nil
}

func (l *Ledger) load(path string) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read ledger: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var e LedgerEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil || e.Key == "" {
			l.skipped++
			continue
		}
		l.entries[e.Key] = e
	}
	return sc.Err()
}

// Lookup returns the entry recorded for key.
func (l *Ledger) Lookup(key string) (LedgerEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	return e, ok
}

func (l *Ledger) Has(key string) bool {
	_, ok := l.Lookup(key)
	return ok
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Skipped counts unreadable lines found on open.
func (l *Ledger) Skipped() int { return l.skipped }

// Record appends entries and syncs once. Entries with a known or empty key are
// ignored.
func (l *Ledger) Record(entries ...LedgerEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return errors.New("ledger is closed")
	}

	var buf []byte
	fresh := make(map[string]LedgerEntry, len(entries))
	for _, e := range entries {
		if e.Key == "" {
			continue
		}
		if _, ok := l.entries[e.Key]; ok {
			continue
		}
		if _, ok := fresh[e.Key]; ok {
			continue
		}
		line, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode ledger entry %s: %w", e.Key, err)
		}
		buf = append(append(buf, line...), '\n')
		fresh[e.Key] = e
	}
	if len(fresh) == 0 {
		return nil
	}
	if _, err := l.file.Write(buf); err != nil {
		return fmt.Errorf("append ledger: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("sync ledger: %w", err)
	}
	for k, e := range fresh {
		l.entries[k] = e
	}
	return nil
}

func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
