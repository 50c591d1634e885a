package storage

// Package storage gets finished prediction trees off the box, into a blob
// store, so downstream consumers don't need access to the machine that ran
// the inference.

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cyclopcam/logs"
)

// Storage is an abstraction of a blob store (eg GCS)
type Storage interface {
	// When finished, you must close the WriteCloser
	WriteFile(name string) (io.WriteCloser, error)
}

// WriteFile copies content into the store under name
func WriteFile(s Storage, name string, content io.Reader) error {
	f, err := s.WriteFile(name)
	if err != nil {
		return err
	}
	_, err = io.Copy(f, content)
	errClose := f.Close()
	if err != nil {
		return err
	}
	return errClose
}

// UploadTree uploads every file under root, keyed by its path relative to
// root, joined under prefix. Used to mirror <outRoot> (rasters, previews,
// meta.json) into the store after a run.
func UploadTree(logger logs.Log, s Storage, root, prefix string) error {
	nFiles := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(filepath.Join(prefix, rel))
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := WriteFile(s, name, f); err != nil {
			return fmt.Errorf("Failed to upload %v: %w", name, err)
		}
		nFiles++
		return nil
	})
	if err != nil {
		return err
	}
	logger.Infof("Uploaded %v files from %v", nFiles, root)
	return nil
}
