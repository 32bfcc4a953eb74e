package logging

import (
	"os"
	"sync"
)

// rollingFile caps a log file at maxBytes. When a write would cross the cap
// the current file moves to "<path>.1" (replacing any older backup) and a
// fresh file is started, so at most two files of history exist on disk.
type rollingFile struct {
	mu      sync.Mutex
	path    string
	limit   int64
	out     *os.File
	written int64
}

const defaultLogFileMB = 10

func newRollingFile(path string, maxMB int) (*rollingFile, error) {
	if maxMB <= 0 {
		maxMB = defaultLogFileMB
	}
	rf := &rollingFile{path: path, limit: int64(maxMB) << 20}
	if err := rf.open(); err != nil {
		return nil, err
	}
	return rf, nil
}

func (rf *rollingFile) Write(p []byte) (int, error) {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	if rf.out == nil {
		if err := rf.open(); err != nil {
			return 0, err
		}
	}
	if rf.written > 0 && rf.written+int64(len(p)) > rf.limit {
		if err := rf.roll(); err != nil {
			return 0, err
		}
	}
	n, err := rf.out.Write(p)
	rf.written += int64(n)
	return n, err
}

func (rf *rollingFile) Close() error {
	rf.mu.Lock()
	defer rf.mu.Unlock()
	if rf.out == nil {
		return nil
	}
	err := rf.out.Close()
	rf.out = nil
	return err
}

func (rf *rollingFile) backupPath() string { return rf.path + ".1" }

func (rf *rollingFile) roll() error {
	if rf.out != nil {
		_ = rf.out.Close()
		rf.out = nil
	}
	if err := os.Rename(rf.path, rf.backupPath()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return rf.open()
}

func (rf *rollingFile) open() error {
	f, err := os.OpenFile(rf.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return err
	}
	rf.out = f
	rf.written = info.Size()
	return nil
}
