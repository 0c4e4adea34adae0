package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/wadjakorntonsri/shortlink/pkg/core/codegen"
	"github.com/wadjakorntonsri/shortlink/pkg/core/domain"
	"github.com/wadjakorntonsri/shortlink/pkg/ports"
)

// maxGenerateAttempts bounds the collision retry loop of Create.
const maxGenerateAttempts = 16

// Mode selects whether ownership is enforced.
type Mode int

const (
	// Scoped links carry an owner; list and delete are filtered by it.
	Scoped Mode = iota
	// Open links are anonymous; list returns everything.
	Open
)

// ParseMode maps "open" to Open; anything else is Scoped.
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), "open") {
		return Open
	}
	return Scoped
}

func (m Mode) String() string {
	if m == Open {
		return "open"
	}
	return "scoped"
}

// LinkRegistry owns the mapping of short codes to links.
//
// Create, DeleteOwned and RecordVisit run under a single registry-wide lock.
// Lookup and ListByOwner read straight from the repository.
type LinkRegistry struct {
	repo ports.LinkRepository
	gen  codegen.Generator
	mode Mode
	now  func() time.Time
	log  *slog.Logger

	mu sync.Mutex
}

// RegistryOption configures a LinkRegistry at construction.
type RegistryOption func(*LinkRegistry)

// WithGenerator replaces the default 4-byte hex generator.
func WithGenerator(g codegen.Generator) RegistryOption {
	return func(r *LinkRegistry) { r.gen = g }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *LinkRegistry) { r.now = now }
}

func WithLogger(l *slog.Logger) RegistryOption {
	return func(r *LinkRegistry) { r.log = l }
}

func NewScopedRegistry(repo ports.LinkRepository, opts ...RegistryOption) *LinkRegistry {
	return NewLinkRegistry(repo, Scoped, opts...)
}

func NewOpenRegistry(repo ports.LinkRepository, opts ...RegistryOption) *LinkRegistry {
	return NewLinkRegistry(repo, Open, opts...)
}

// NewLinkRegistry creates a registry in the given mode.
func NewLinkRegistry(repo ports.LinkRepository, mode Mode, opts ...RegistryOption) *LinkRegistry {
	r := &LinkRegistry{
		repo: repo,
		gen:  codegen.NewHex(codegen.DefaultBytes),
		mode: mode,
		now:  time.Now,
		log:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *LinkRegistry) Mode() Mode { return r.mode }

// Now returns the registry's notion of the current time.
func (r *LinkRegistry) Now() time.Time { return r.now() }

func (r *LinkRegistry) Create(ctx context.Context, p ports.CreateLinkParams) (*domain.Link, error) {
	if strings.TrimSpace(p.OriginalURL) == "" {
		return nil, fmt.Errorf("%w: original URL is required", domain.ErrInvalidInput)
	}
	owner, err := r.scope(p.Owner)
	if err != nil {
		return nil, err
	}

	now := r.now()
	link := &domain.Link{
		OriginalURL: p.OriginalURL,
		Owner:       owner,
		CreatedAt:   now,
	}
	if p.ExpiresIn != 0 {
		expiry := now.Add(p.ExpiresIn)
		link.Expiry = &expiry
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if p.ShortCode != "" {
		link.ShortCode = p.ShortCode
		if err := r.repo.Insert(ctx, link); err != nil {
			return nil, err
		}
		r.log.Debug("link created", "short_code", link.ShortCode, "owner", link.Owner)
		return link, nil
	}

	for attempt := 1; attempt <= maxGenerateAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		code, err := r.gen.Generate()
		if err != nil {
			return nil, fmt.Errorf("generate short code: %w", err)
		}
		link.ShortCode = code

		err = r.repo.Insert(ctx, link)
		if errors.Is(err, domain.ErrCodeAlreadyExists) {
			r.log.Debug("short code collision", "short_code", code, "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, err
		}

		r.log.Debug("link created", "short_code", link.ShortCode, "owner", link.Owner)
		return link, nil
	}

	return nil, domain.ErrCodeSpaceExhausted
}

func (r *LinkRegistry) Lookup(ctx context.Context, code string) (*domain.Link, error) {
	if code == "" {
		return nil, domain.ErrNotFound
	}
	return r.repo.GetByShortCode(ctx, code)
}

func (r *LinkRegistry) ListByOwner(ctx context.Context, owner domain.Owner) ([]domain.Link, error) {
	owner, err := r.scope(owner)
	if err != nil {
		return nil, err
	}

	links, err := r.repo.List(ctx, owner)
	if err != nil {
		return nil, err
	}
	if links == nil {
		links = []domain.Link{}
	}
	return links, nil
}

// DeleteOwned removes a link. A link owned by someone else
// is reported as domain.ErrNotFound.
func (r *LinkRegistry) DeleteOwned(ctx context.Context, code string, owner domain.Owner) error {
	owner, err := r.scope(owner)
	if err != nil {
		return err
	}
	if code == "" {
		return domain.ErrNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.repo.DeleteOwned(ctx, code, owner); err != nil {
		return err
	}
	r.log.Debug("link deleted", "short_code", code, "owner", owner)
	return nil
}

// RecordVisit counts one click. Expired links are left untouched
// and reported as domain.ErrExpired.
func (r *LinkRegistry) RecordVisit(ctx context.Context, code string) (*domain.Link, error) {
	if code == "" {
		return nil, domain.ErrNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	link, err := r.repo.GetByShortCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if link.ExpiredAt(r.now()) {
		return nil, domain.ErrExpired
	}
	return r.repo.IncrementClicks(ctx, code)
}

// scope normalizes the owner for the registry's mode.
func (r *LinkRegistry) scope(owner domain.Owner) (domain.Owner, error) {
	if r.mode == Open {
		return "", nil
	}
	if owner == "" {
		return "", fmt.Errorf("%w: owner is required", domain.ErrInvalidInput)
	}
	return owner, nil
}

// Ensure interface compliance
var _ ports.LinkRegistry = (*LinkRegistry)(nil)
