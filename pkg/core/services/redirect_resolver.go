package services

import (
	"context"
	"time"

	"github.com/wadjakorntonsri/shortlink/pkg/core/domain"
	"github.com/wadjakorntonsri/shortlink/pkg/ports"
)

// RedirectResolver resolves each redirect exactly once:
// lookup, expiry check, visit, redirect.
type RedirectResolver struct {
	registry ports.LinkRegistry
	now      func() time.Time
}

// NewRedirectResolver uses time.Now when now is nil.
func NewRedirectResolver(registry ports.LinkRegistry, now func() time.Time) *RedirectResolver {
	if now == nil {
		now = time.Now
	}
	return &RedirectResolver{registry: registry, now: now}
}

// Resolve returns the visited link, whose OriginalURL is the redirect target.
// It fails with domain.ErrNotFound or domain.ErrExpired.
func (s *RedirectResolver) Resolve(ctx context.Context, code string) (*domain.Link, error) {
	link, err := s.registry.Lookup(ctx, code)
	if err != nil {
		return nil, err
	}
	if link.ExpiredAt(s.now()) {
		return nil, domain.ErrExpired
	}
	return s.registry.RecordVisit(ctx, code)
}

var _ ports.Resolver = (*RedirectResolver)(nil)
