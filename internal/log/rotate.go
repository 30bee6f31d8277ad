package log

import (
	"io"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation limits for log files opened with OpenLogFile.
const (
	// MaxLogSizeMB is the size at which a log file is rotated.
	MaxLogSizeMB = 10

	// MaxLogBackups is the number of rotated files kept.
	MaxLogBackups = 3

	// MaxLogAgeDays is the age after which rotated files are removed.
	MaxLogAgeDays = 28
)

// OpenLogFile returns a writer that appends to path and rotates it once it
// grows past MaxLogSizeMB. Rotated files are gzip compressed.
// The parent directory is created if needed.
func OpenLogFile(path string) (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, err
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    MaxLogSizeMB,
		MaxBackups: MaxLogBackups,
		MaxAge:     MaxLogAgeDays,
		Compress:   true,
	}, nil
}
