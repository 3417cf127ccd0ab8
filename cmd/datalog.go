// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/SpencerGraffunder/NuclearDash/pkg/dash"
	"github.com/SpencerGraffunder/NuclearDash/pkg/haltech"
)

const (
	datalogHeader        = "micros,can_id,value"
	datalogFlushInterval = time.Second
)

var logFileName = regexp.MustCompile(`^log_(\d+)\.csv$`)

// csvDataLogger writes one row per decoded channel value to log_N.csv. The
// file is created on the first row, so a session that never decodes anything
// leaves the directory untouched.
type csvDataLogger struct {
	dir    string
	logger *log.Logger
	now    func() time.Time

	mu        sync.Mutex
	file      *os.File
	w         *bufio.Writer
	lastFlush time.Time
	failed    bool
	rows      uint64
}

var _ dash.DataLogger = (*csvDataLogger)(nil)

func newCSVDataLogger(dir string, logger *log.Logger) *csvDataLogger {
	return &csvDataLogger{dir: dir, logger: logger, now: time.Now}
}

// nextLogPath returns log_N.csv with N one above the highest index in dir.
func nextLogPath(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("scan %s: %w", dir, err)
	}
	next := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := logFileName.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n+1 > next {
			next = n + 1
		}
	}
	return filepath.Join(dir, fmt.Sprintf("log_%d.csv", next)), nil
}

func (l *csvDataLogger) open() error {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	path, err := nextLogPath(l.dir)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	l.file = f
	l.w = bufio.NewWriter(f)
	l.lastFlush = l.now()
	if _, err := l.w.WriteString(datalogHeader + "\n"); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if l.logger != nil {
		l.logger.Printf("datalog: logging to %s", path)
	}
	return nil
}

// Log implements dash.DataLogger. After the first failure it stops trying.
func (l *csvDataLogger) Log(timestampMicros uint64, busID uint32, _ haltech.ChannelID, value float32) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.failed {
		return
	}
	if l.file == nil {
		if err := l.open(); err != nil {
			l.fail(err)
			return
		}
	}

	if _, err := fmt.Fprintf(l.w, "%d,0x%03X,%.3f\n", timestampMicros, busID, value); err != nil {
		l.fail(err)
		return
	}
	l.rows++

	if now := l.now(); now.Sub(l.lastFlush) >= datalogFlushInterval {
		l.lastFlush = now
		if err := l.w.Flush(); err != nil {
			l.fail(err)
		}
	}
}

func (l *csvDataLogger) fail(err error) {
	l.failed = true
	if l.logger != nil {
		l.logger.Printf("datalog: disabled: %v", err)
	}
}

// Rows returns the number of rows written so far.
func (l *csvDataLogger) Rows() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rows
}

// Close flushes buffered rows and closes the file.
func (l *csvDataLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	flushErr := l.w.Flush()
	closeErr := l.file.Close()
	l.file = nil
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}
