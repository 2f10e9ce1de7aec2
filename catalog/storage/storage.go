package storage

import (
	"errors"
	"io"
)

var (
	ErrFileNotFound       = errors.New("file not found")
	ErrUsageNotSupported  = errors.New("usage stats are not supported by this storage backend")
	ErrInvalidStoragePath = errors.New("invalid storage path")
)

type UsageStats struct {
	TotalBytes uint64
	FreeBytes  uint64
}

// Storage holds uploaded documents. Paths are relative to the storage root.
type Storage interface {
	Read(path string) (io.ReadCloser, error)

	Write(path string, data io.Reader) error

	Delete(path string) error

	Exists(path string) (bool, error)

	Usage() (UsageStats, error)

	Location() string
}
