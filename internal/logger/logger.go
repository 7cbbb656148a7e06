// Package logger points the standard logger at a file for processes whose
// stdout and stderr belong to someone else.
package logger

import (
	"io"
	"log"
	"os"
	"path/filepath"
)

// Flags used for file logging.
const Flags = log.Ldate | log.Ltime | log.Lshortfile

// Setup appends standard log output to <logDir>/<name>.log. If the file
// cannot be opened, logging is discarded and the error returned. The caller
// closes the returned file.
func Setup(logDir, name string) (io.Closer, error) {
	f, err := Open(logDir, name)
	if err != nil {
		log.SetOutput(io.Discard)
		return nopCloser{}, err
	}
	log.SetOutput(f)
	log.SetFlags(Flags)
	log.SetPrefix("[" + name + "] ")
	return f, nil
}

// Open opens <logDir>/<name>.log for appending, creating the directory.
func Open(logDir, name string) (*os.File, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(filepath.Join(logDir, name+".log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
