package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DailyFile is an io.Writer appending to <dir>/<prefix>_<YYYY-MM-DD>.log,
// switching files when the date changes.
type DailyFile struct {
	dir    string
	prefix string
	now    func() time.Time

	mu   sync.Mutex
	date string
	f    *os.File
}

// NewDailyFile creates the directory if needed
func NewDailyFile(dir, prefix string) (*DailyFile, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("logging: failed to create %s: %w", dir, err)
	}
	return &DailyFile{dir: dir, prefix: prefix, now: time.Now}, nil
}

func (d *DailyFile) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	date := d.now().Format(time.DateOnly)
	if d.f == nil || date != d.date {
		if d.f != nil {
			_ = d.f.Close()
		}
		path := filepath.Join(d.dir, fmt.Sprintf("%s_%s.log", d.prefix, date))
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			d.f = nil
			return 0, err
		}
		d.f = f
		d.date = date
	}
	return d.f.Write(p)
}

// Close closes the current file
func (d *DailyFile) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return nil
	}
	err := d.f.Close()
	d.f = nil
	return err
}
