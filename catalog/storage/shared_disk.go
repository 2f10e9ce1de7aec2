package storage

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

type SharedDiskStorage struct {
	basepath string
}

func NewSharedDisk(basepath string) (Storage, error) {
	slog.Info("creating new shared disk storage", "basepath", basepath)
	if err := os.MkdirAll(basepath, 0755); err != nil {
		return nil, fmt.Errorf("error creating storage directory %v: %w", basepath, err)
	}
	return &SharedDiskStorage{basepath: basepath}, nil
}

func (s *SharedDiskStorage) fullpath(path string) (string, error) {
	fullpath := filepath.Join(s.basepath, path)
	rel, err := filepath.Rel(s.basepath, fullpath)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %v", ErrInvalidStoragePath, path)
	}
	return fullpath, nil
}

func (s *SharedDiskStorage) Read(path string) (io.ReadCloser, error) {
	fullpath, err := s.fullpath(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullpath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %v", ErrFileNotFound, path)
		}
		slog.Error("error opening file for read", "path", fullpath, "error", err)
		return nil, fmt.Errorf("error reading file %v: %w", path, err)
	}

	return file, nil
}

func (s *SharedDiskStorage) Write(path string, data io.Reader) error {
	fullpath, err := s.fullpath(path)
	if err != nil {
		return err
	}

	err = os.MkdirAll(filepath.Dir(fullpath), 0755)
	if err != nil {
		slog.Error("error creating parent directory", "path", fullpath, "error", err)
		return fmt.Errorf("error creating parent directory %v: %w", path, err)
	}

	file, err := os.OpenFile(fullpath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		slog.Error("error opening file for writing", "path", fullpath, "error", err)
		return fmt.Errorf("error opening file %v: %w", path, err)
	}
	defer file.Close()

	_, err = io.Copy(file, data)
	if err != nil {
		slog.Error("error writing to file", "path", fullpath, "error", err)
		return fmt.Errorf("error writing to file %v: %w", path, err)
	}

	return nil
}

// Delete removes the file. Deleting a file that does not exist is not an error.
func (s *SharedDiskStorage) Delete(path string) error {
	fullpath, err := s.fullpath(path)
	if err != nil {
		return err
	}

	err = os.Remove(fullpath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Error("error deleting file", "path", fullpath, "error", err)
		return fmt.Errorf("error deleting file %v: %w", path, err)
	}
	return nil
}

func (s *SharedDiskStorage) Exists(path string) (bool, error) {
	fullpath, err := s.fullpath(path)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(fullpath)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	slog.Error("error checking if file exists", "path", fullpath, "error", err)
	return false, fmt.Errorf("error checking if file %v exists: %w", fullpath, err)
}

func (s *SharedDiskStorage) Usage() (UsageStats, error) {
	var stat unix.Statfs_t

	err := unix.Statfs(s.basepath, &stat)
	if err != nil {
		slog.Error("error getting disk usage for shared storage", "path", s.basepath, "error", err)
		return UsageStats{}, fmt.Errorf("error getting disk usage stats: %w", err)
	}

	return UsageStats{
		TotalBytes: stat.Blocks * uint64(stat.Bsize),
		FreeBytes:  stat.Bavail * uint64(stat.Bsize),
	}, nil
}

func (s *SharedDiskStorage) Location() string {
	return s.basepath
}
