// Package filestore keeps every link in a single JSON document on disk.
//
// The document maps short codes to link fields. Each mutation writes the
// complete document to a temporary file in the same directory and renames
// it over the previous one, so readers of the file never see a partial write.
// Documents holding bare strings ({"code": "https://..."}) load as
// anonymous links with zero clicks.
package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/wadjakorntonsri/shortlink/pkg/core/domain"
	"github.com/wadjakorntonsri/shortlink/pkg/ports"
)

type record struct {
	OriginalURL string       `json:"original_url"`
	Owner       domain.Owner `json:"owner,omitempty"`
	Clicks      int64        `json:"clicks"`
	Expiry      *time.Time   `json:"expiry,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

func (rec *record) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		*rec = record{}
		return json.Unmarshal(b, &rec.OriginalURL)
	}

	type plain record
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*rec = record(p)
	return nil
}

func (rec record) link(code string) domain.Link {
	l := domain.Link{
		ShortCode:   code,
		OriginalURL: rec.OriginalURL,
		Owner:       rec.Owner,
		Clicks:      rec.Clicks,
		CreatedAt:   rec.CreatedAt,
	}
	if rec.Expiry != nil {
		e := *rec.Expiry
		l.Expiry = &e
	}
	return l
}

func fromLink(l *domain.Link) record {
	rec := record{
		OriginalURL: l.OriginalURL,
		Owner:       l.Owner,
		Clicks:      l.Clicks,
		CreatedAt:   l.CreatedAt.UTC(),
	}
	if l.Expiry != nil {
		e := l.Expiry.UTC()
		rec.Expiry = &e
	}
	return rec
}

type Store struct {
	path string

	mu    sync.RWMutex
	links map[string]record
}

// Open loads the document at path, creating an empty one when missing.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, domain.NewStorageError("open", errors.New("empty path"))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, domain.NewStorageError("open", err)
	}

	s := &Store{path: path, links: map[string]record{}}

	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := s.persist(s.links); err != nil {
			return nil, err
		}
		return s, nil
	case err != nil:
		return nil, domain.NewStorageError("open", err)
	}

	if len(bytes.TrimSpace(b)) > 0 {
		if err := json.Unmarshal(b, &s.links); err != nil {
			return nil, domain.NewStorageError("decode", err)
		}
	}
	if s.links == nil {
		s.links = map[string]record{}
	}
	return s, nil
}

func (s *Store) Insert(ctx context.Context, link *domain.Link) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.links[link.ShortCode]; ok {
		return domain.ErrCodeAlreadyExists
	}

	next := s.clone()
	next[link.ShortCode] = fromLink(link)
	return s.commit(next)
}

func (s *Store) GetByShortCode(ctx context.Context, code string) (*domain.Link, error) {
	s.mu.RLock()
	rec, ok := s.links[code]
	s.mu.RUnlock()

	if !ok {
		return nil, domain.ErrNotFound
	}
	l := rec.link(code)
	return &l, nil
}

func (s *Store) List(ctx context.Context, owner domain.Owner) ([]domain.Link, error) {
	s.mu.RLock()
	links := make([]domain.Link, 0, len(s.links))
	for code, rec := range s.links {
		if owner != "" && rec.Owner != owner {
			continue
		}
		links = append(links, rec.link(code))
	}
	s.mu.RUnlock()

	sortNewestFirst(links)
	return links, nil
}

func (s *Store) DeleteOwned(ctx context.Context, code string, owner domain.Owner) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.links[code]
	if !ok || (owner != "" && rec.Owner != owner) {
		return domain.ErrNotFound
	}

	next := s.clone()
	delete(next, code)
	return s.commit(next)
}

func (s *Store) IncrementClicks(ctx context.Context, code string) (*domain.Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.links[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	rec.Clicks++

	next := s.clone()
	next[code] = rec
	if err := s.commit(next); err != nil {
		return nil, err
	}

	l := rec.link(code)
	return &l, nil
}

func (s *Store) Dump(ctx context.Context) ([]domain.Link, error) {
	return s.List(ctx, "")
}

func (s *Store) Close() error { return nil }

// clone copies the current map; callers hold s.mu.
func (s *Store) clone() map[string]record {
	next := make(map[string]record, len(s.links)+1)
	for k, v := range s.links {
		next[k] = v
	}
	return next
}

// commit persists next and swaps it in only once it is on disk.
func (s *Store) commit(next map[string]record) error {
	if err := s.persist(next); err != nil {
		return err
	}
	s.links = next
	return nil
}

func (s *Store) persist(links map[string]record) error {
	b, err := json.MarshalIndent(links, "", "  ")
	if err != nil {
		return domain.NewStorageError("encode", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return domain.NewStorageError("write", err)
	}
	tmpName := tmp.Name()

	cleanup := func(err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return domain.NewStorageError("write", err)
	}

	if _, err := tmp.Write(b); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return domain.NewStorageError("write", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return domain.NewStorageError("rename", err)
	}
	return nil
}

func sortNewestFirst(links []domain.Link) {
	sort.SliceStable(links, func(i, j int) bool {
		if !links[i].CreatedAt.Equal(links[j].CreatedAt) {
			return links[i].CreatedAt.After(links[j].CreatedAt)
		}
		return links[i].ShortCode < links[j].ShortCode
	})
}

// Ensure interface compliance
var _ ports.LinkRepository = (*Store)(nil)
