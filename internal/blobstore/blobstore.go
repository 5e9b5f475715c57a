// Package blobstore implements the external blob-storage interface:
// copying local artifacts into a public-facing prefix and downloading
// named objects back out of it, as a plain local-filesystem store served
// over HTTP.
package blobstore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Store copies local files into dated prefixes under root and rewrites
// their paths to public HTTPS URIs under baseURL.
type Store struct {
	root    string
	baseURL string
}

func New(root, baseURL string) *Store {
	return &Store{root: root, baseURL: strings.TrimRight(baseURL, "/")}
}

// CopyFile copies localPath into destPrefix (e.g. "notifications",
// "probables") under today's date and returns its public URI.
func (s *Store) CopyFile(localPath, destPrefix string) (string, error) {
	day := time.Now().UTC().Format("2006-01-02")
	relDir := filepath.Join(destPrefix, day)
	destDir := filepath.Join(s.root, relDir)
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("blobstore: mkdir %s: %w", destDir, err)
	}

	name := filepath.Base(localPath)
	destPath := filepath.Join(destDir, name)
	if err := copyFile(localPath, destPath); err != nil {
		return "", fmt.Errorf("blobstore: copy %s: %w", localPath, err)
	}

	uri := fmt.Sprintf("%s/%s/%s/%s", s.baseURL, destPrefix, day, name)
	return uri, nil
}

// DownloadBucketFile retrieves a named object back to a local path.
func (s *Store) DownloadBucketFile(bucket, name, localPath string) error {
	srcPath := filepath.Join(s.root, bucket, name)
	if err := copyFile(srcPath, localPath); err != nil {
		return fmt.Errorf("blobstore: download %s/%s: %w", bucket, name, err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
