// Package documents stores uploaded source documents (invoices, receipts)
// and returns a URL that is kept on the transaction.
package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

var ErrInvalidName = errors.New("invalid document name")

type Store interface {
	Put(ctx context.Context, admin, name, contentType string, r io.Reader) (string, error)
}

// cleanName strips directories and characters that do not belong in a
// file or object name.
func cleanName(name string) (string, error) {
	name = filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r < 32, r == '/', r == ':', r == '*', r == '?', r == '"', r == '<', r == '>', r == '|':
			return -1
		}
		return r
	}, name)
	if name == "" || name == "." || name == ".." {
		return "", ErrInvalidName
	}
	return name, nil
}

func objectName(name string) (string, error) {
	clean, err := cleanName(name)
	if err != nil {
		return "", err
	}
	return uuid.NewString() + "-" + clean, nil
}

type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{dir: dir}
}

func (s *LocalStore) Put(ctx context.Context, admin, name, _ string, r io.Reader) (string, error) {
	tenant, err := cleanName(admin)
	if err != nil {
		return "", fmt.Errorf("administration: %w", err)
	}
	obj, err := objectName(name)
	if err != nil {
		return "", err
	}
	dir := filepath.Join(s.dir, tenant)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create document dir: %w", err)
	}
	path := filepath.Join(dir, obj)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create document: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write document: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}

// DriveStore uploads into a Google Drive folder using a service account.
type DriveStore struct {
	files  *drive.FilesService
	folder string
}

// NewDriveStore authenticates with the service account in credentialsFile.
// Extra options are passed to the Drive client, e.g. another endpoint.
func NewDriveStore(ctx context.Context, credentialsFile, folder string, opts ...option.ClientOption) (*DriveStore, error) {
	clientOpts := []option.ClientOption{option.WithScopes(drive.DriveFileScope)}
	if credentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(credentialsFile))
	}
	svc, err := drive.NewService(ctx, append(clientOpts, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create drive client: %w", err)
	}
	return &DriveStore{files: svc.Files, folder: folder}, nil
}

func (s *DriveStore) Put(ctx context.Context, admin, name, contentType string, r io.Reader) (string, error) {
	obj, err := objectName(name)
	if err != nil {
		return "", err
	}
	meta := &drive.File{
		Name:        obj,
		Description: "administration " + admin,
		Properties:  map[string]string{"administration": admin},
	}
	if s.folder != "" {
		meta.Parents = []string{s.folder}
	}
	media := []googleapi.MediaOption{}
	if contentType != "" {
		media = append(media, googleapi.ContentType(contentType))
	}
	f, err := s.files.Create(meta).Media(r, media...).Fields("id", "webViewLink").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("upload to drive: %w", err)
	}
	return f.WebViewLink, nil
}
