package main

import (
	"io"
	"log"

	"gopkg.in/natefinch/lumberjack.v2"
)

const logPrefix = "[discsector] "

// newLogger returns a logger writing to stderr and, when a log file is
// configured, to a size-rotated file. The returned closer releases the file.
func newLogger(stderr io.Writer, cfg logConfig) (*log.Logger, io.Closer) {
	flags := log.LstdFlags | log.Lmicroseconds
	if cfg.File == "" {
		return log.New(stderr, logPrefix, flags), io.NopCloser(nil)
	}
	rotator := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxAge:     cfg.MaxAgeDays,
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
	}
	return log.New(io.MultiWriter(stderr, rotator), logPrefix, flags), rotator
}
