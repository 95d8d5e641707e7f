package logging

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Kind selects between the access/application log and the exception log
type Kind string

const (
	KindLog       Kind = "log"
	KindException Kind = "exception"
)

var (
	ErrNotFound    = errors.New("log file not found")
	ErrInvalidDate = errors.New("date must be formatted as YYYY-MM-DD")
	ErrCurrentDay  = errors.New("cannot delete logs for current day")
)

// Metadata counts entries per level
type Metadata struct {
	ErrorCount   int `json:"error_count"`
	InfoCount    int `json:"info_count"`
	WarningCount int `json:"warning_count"`
	DebugCount   int `json:"debug_count"`
}

// Content is the parsed content of one day's file
type Content struct {
	Status       string           `json:"status"`
	Date         string           `json:"date"`
	TotalEntries int              `json:"total_entries"`
	Entries      []map[string]any `json:"entries"`
	Metadata     Metadata         `json:"metadata"`
}

// Store reads and deletes daily log files in a directory
type Store struct {
	dir string
	now func() time.Time
}

func NewStore(dir string) *Store {
	return &Store{dir: dir, now: time.Now}
}

func (s *Store) path(kind Kind, date string) (string, error) {
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		return "", ErrInvalidDate
	}
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s.log", kind, date)), nil
}

// Dates lists the days that have a file of the given kind, newest first
func (s *Store) Dates(kind Kind) ([]string, error) {
	prefix := string(kind) + "_"
	matches, err := filepath.Glob(filepath.Join(s.dir, prefix+"*.log"))
	if err != nil {
		return nil, fmt.Errorf("logging: failed to list %s files: %w", kind, err)
	}
	dates := make([]string, 0, len(matches))
	for _, m := range matches {
		date := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(m), prefix), ".log")
		if _, err := time.Parse(time.DateOnly, date); err != nil {
			continue
		}
		dates = append(dates, date)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates, nil
}

// Content parses one day's file. Lines that are not JSON are kept as raw
// entries with level UNKNOWN.
func (s *Store) Content(kind Kind, date string) (Content, error) {
	p, err := s.path(kind, date)
	if err != nil {
		return Content{}, err
	}
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return Content{}, ErrNotFound
	}
	if err != nil {
		return Content{}, fmt.Errorf("logging: failed to open %s: %w", p, err)
	}
	defer f.Close()

	c := Content{Status: "success", Date: date, Entries: []map[string]any{}}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			entry = map[string]any{"level": "UNKNOWN", "msg": line}
		}
		c.Entries = append(c.Entries, entry)
		switch entry["level"] {
		case "ERROR":
			c.Metadata.ErrorCount++
		case "INFO":
			c.Metadata.InfoCount++
		case "WARN":
			c.Metadata.WarningCount++
		case "DEBUG":
			c.Metadata.DebugCount++
		}
	}
	if err := sc.Err(); err != nil {
		return Content{}, fmt.Errorf("logging: failed to read %s: %w", p, err)
	}
	c.TotalEntries = len(c.Entries)
	return c, nil
}

// Delete removes one day's file. Today's file is still being written and
// cannot be deleted.
func (s *Store) Delete(kind Kind, date string) error {
	p, err := s.path(kind, date)
	if err != nil {
		return err
	}
	if date == s.now().Format(time.DateOnly) {
		return ErrCurrentDay
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("logging: failed to delete %s: %w", p, err)
	}
	return nil
}

// Prune deletes files of both kinds older than keep days and returns the
// number removed
func (s *Store) Prune(keep int) (int, error) {
	cutoff := s.now().AddDate(0, 0, -keep).Format(time.DateOnly)
	removed := 0
	for _, kind := range []Kind{KindLog, KindException} {
		dates, err := s.Dates(kind)
		if err != nil {
			return removed, err
		}
		for _, d := range dates {
			if d >= cutoff {
				continue
			}
			if err := s.Delete(kind, d); err != nil && !errors.Is(err, ErrNotFound) {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}
