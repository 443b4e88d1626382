package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	neturl "net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/viant/afs"
	"go.uber.org/zap"
)

// FileJar is a cookie jar persisted as JSON at an afs URL. Every SetCookies
// rewrites the snapshot; NewFileJar rehydrates it.
type FileJar struct {
	mu     sync.Mutex
	inner  *cookiejar.Jar
	index  map[string]persistedCookie
	URL    string
	fs     afs.Service
	logger *zap.Logger
}

type persistedCookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Host     string    `json:"host"`
	Domain   string    `json:"domain,omitempty"`
	Path     string    `json:"path"`
	Expires  time.Time `json:"expires,omitempty"`
	Secure   bool      `json:"secure,omitempty"`
	HttpOnly bool      `json:"httpOnly,omitempty"`
}

func (p *persistedCookie) key() string {
	return p.Host + "|" + p.Domain + "|" + p.Path + "|" + p.Name
}

func (p *persistedCookie) expired(now time.Time) bool {
	return !p.Expires.IsZero() && now.After(p.Expires)
}

type cookieSnapshot struct {
	Cookies []persistedCookie `json:"cookies"`
}

// NewFileJar creates a cookie jar persisted at URL. A failed snapshot write is
// logged; cookies stay usable in memory.
func NewFileJar(ctx context.Context, URL string, fs afs.Service, logger *zap.Logger) (*FileJar, error) {
	inner, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	if fs == nil {
		fs = afs.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	j := &FileJar{inner: inner, URL: URL, fs: fs, logger: logger, index: map[string]persistedCookie{}}
	if err = j.load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load cookies from %v: %w", URL, err)
	}
	return j, nil
}

func (j *FileJar) Cookies(u *neturl.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.inner.Cookies(u)
}

func (j *FileJar) SetCookies(u *neturl.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.inner.SetCookies(u, cookies)
	host := hostname(u)
	now := time.Now()
	for _, c := range cookies {
		path := c.Path
		if path == "" {
			path = "/"
		}
		pc := persistedCookie{Name: c.Name, Value: c.Value, Host: host, Domain: strings.TrimPrefix(c.Domain, "."), Path: path, Secure: c.Secure, HttpOnly: c.HttpOnly}
		switch {
		case c.MaxAge > 0:
			pc.Expires = now.Add(time.Duration(c.MaxAge) * time.Second)
		case c.MaxAge < 0:
			pc.Expires = now.Add(-time.Second)
		default:
			pc.Expires = c.Expires
		}
		if pc.expired(now) {
			delete(j.index, pc.key())
			continue
		}
		j.index[pc.key()] = pc
	}
	if err := j.save(context.Background()); err != nil {
		j.logger.Warn("failed to persist cookies", zap.String("URL", j.URL), zap.Error(err))
	}
}

// Clear drops every cookie and removes the snapshot.
func (j *FileJar) Clear(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	inner, err := cookiejar.New(nil)
	if err != nil {
		return err
	}
	j.inner = inner
	j.index = map[string]persistedCookie{}
	if ok, _ := j.fs.Exists(ctx, j.URL); ok {
		return j.fs.Delete(ctx, j.URL)
	}
	return nil
}

func (j *FileJar) save(ctx context.Context) error {
	snap := cookieSnapshot{Cookies: make([]persistedCookie, 0, len(j.index))}
	for _, pc := range j.index {
		snap.Cookies = append(snap.Cookies, pc)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	if index := strings.LastIndex(j.URL, "/"); index > 0 {
		parent := j.URL[:index]
		if ok, _ := j.fs.Exists(ctx, parent); !ok {
			if err = j.fs.Create(ctx, parent, os.ModeDir|0o700, true); err != nil {
				return err
			}
		}
	}
	return j.fs.Upload(ctx, j.URL, os.FileMode(0o600), bytes.NewReader(data))
}

func (j *FileJar) load(ctx context.Context) error {
	if ok, _ := j.fs.Exists(ctx, j.URL); !ok {
		return nil
	}
	data, err := j.fs.DownloadWithURL(ctx, j.URL)
	if err != nil {
		return err
	}
	var snap cookieSnapshot
	if err = json.Unmarshal(data, &snap); err != nil {
		return err
	}
	now := time.Now()
	for _, pc := range snap.Cookies {
		if pc.expired(now) {
			continue
		}
		scheme := "http"
		if pc.Secure {
			scheme = "https"
		}
		u := &neturl.URL{Scheme: scheme, Host: pc.Host, Path: pc.Path}
		j.inner.SetCookies(u, []*http.Cookie{{
			Name:     pc.Name,
			Value:    pc.Value,
			Domain:   pc.Domain,
			Path:     pc.Path,
			Expires:  pc.Expires,
			Secure:   pc.Secure,
			HttpOnly: pc.HttpOnly,
		}})
		j.index[pc.key()] = pc
	}
	return nil
}

func hostname(u *neturl.URL) string {
	host := u.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return host
}
