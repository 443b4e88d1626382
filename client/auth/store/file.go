package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/viant/afs"
)

// FileBackend persists the credential pair as a JSON document at URL. Any
// afs supported location works; a plain path is a local file. It is the
// default durable backend for CLI and single-host use.
type FileBackend struct {
	mu  sync.Mutex
	URL string
	fs  afs.Service
}

// NewFileBackend creates a backend storing credentials at URL. A nil fs uses afs.New().
func NewFileBackend(URL string, fs afs.Service) *FileBackend {
	if fs == nil {
		fs = afs.New()
	}
	return &FileBackend{URL: URL, fs: fs}
}

func (f *FileBackend) Load(ctx context.Context) (*Credentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	exists, err := f.fs.Exists(ctx, f.URL)
	if err != nil || !exists {
		return nil, err
	}
	data, err := f.fs.DownloadWithURL(ctx, f.URL)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	credentials := &Credentials{}
	if err = json.Unmarshal(data, credentials); err != nil {
		return nil, fmt.Errorf("failed to decode %v: %w", f.URL, err)
	}
	if credentials.IsEmpty() {
		return nil, nil
	}
	return credentials, nil
}

func (f *FileBackend) Save(ctx context.Context, credentials *Credentials) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := json.MarshalIndent(credentials, "", "  ")
	if err != nil {
		return err
	}
	if err = f.ensureParent(ctx); err != nil {
		return err
	}
	// Upload replaces an existing document in place
	return f.fs.Upload(ctx, f.URL, 0o600, bytes.NewReader(data))
}

func (f *FileBackend) Delete(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	exists, err := f.fs.Exists(ctx, f.URL)
	if err != nil || !exists {
		return err
	}
	return f.fs.Delete(ctx, f.URL)
}

func (f *FileBackend) ensureParent(ctx context.Context) error {
	index := strings.LastIndex(strings.TrimRight(f.URL, "/"), "/")
	if index <= 0 {
		return nil
	}
	parent := f.URL[:index]
	if strings.HasSuffix(parent, ":/") || strings.HasSuffix(parent, ":") {
		return nil
	}
	exists, err := f.fs.Exists(ctx, parent)
	if err != nil || exists {
		return err
	}
	return f.fs.Create(ctx, parent, os.ModeDir|0o700, true)
}
