package service

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// ErrInvalidFileName is returned for download names that leave the working directory
var ErrInvalidFileName = errors.New("invalid file name")

// ArchiveService zips the experiment store and serves files for download
type ArchiveService struct {
	storeDir    string
	archiveName string
	baseDir     string
	logger      *zap.Logger
}

// NewArchiveService creates a new archive service. Archives are written to and served from baseDir.
func NewArchiveService(storeDir, archiveName, baseDir string, logger *zap.Logger) *ArchiveService {
	return &ArchiveService{
		storeDir:    storeDir,
		archiveName: archiveName,
		baseDir:     baseDir,
		logger:      logger,
	}
}

// ZipStore writes <archiveName>.zip with the contents of the experiment store and returns its file name
func (s *ArchiveService) ZipStore() (string, error) {
	info, err := os.Stat(s.storeDir)
	if err != nil {
		return "", fmt.Errorf("experiment store unavailable: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("experiment store %s is not a directory", s.storeDir)
	}

	name := s.archiveName + ".zip"
	path := filepath.Join(s.baseDir, name)
	tmp := path + ".tmp"

	if err := s.writeZip(tmp); err != nil {
		os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to finalise archive: %w", err)
	}

	s.logger.Info("Experiment store archived", zap.String("file", name))
	return name, nil
}

func (s *ArchiveService) writeZip(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}

	zw := zip.NewWriter(f)
	walkErr := filepath.WalkDir(s.storeDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.storeDir, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		name := filepath.ToSlash(rel)
		if d.IsDir() {
			_, err := zw.Create(name + "/")
			return err
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = name
		header.Method = zip.Deflate

		w, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}
		src, err := os.Open(p)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(w, src)
		return err
	})

	if err := zw.Close(); err != nil && walkErr == nil {
		walkErr = err
	}
	if err := f.Close(); err != nil && walkErr == nil {
		walkErr = err
	}
	if walkErr != nil {
		return fmt.Errorf("failed to write archive: %w", walkErr)
	}
	return nil
}

// ResolveDownload returns the path of a plain file name inside the base directory
func (s *ArchiveService) ResolveDownload(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return "", ErrInvalidFileName
	}
	path := filepath.Join(s.baseDir, name)
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s: %w", name, fs.ErrNotExist)
	}
	return path, nil
}
