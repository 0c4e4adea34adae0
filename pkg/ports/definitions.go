package ports

import (
	"context"
	"net/http"
	"time"

	"github.com/wadjakorntonsri/shortlink/pkg/core/domain"
)

// LinkRepository defines storage operations for links.
// Failures other than the domain errors below are returned as *domain.StorageError.
type LinkRepository interface {
	// Insert stores a new link. A taken short code yields domain.ErrCodeAlreadyExists.
	Insert(ctx context.Context, link *domain.Link) error
	// GetByShortCode yields domain.ErrNotFound for unknown codes.
	GetByShortCode(ctx context.Context, code string) (*domain.Link, error)
	// List returns the owner's links newest first; an empty owner lists all.
	List(ctx context.Context, owner domain.Owner) ([]domain.Link, error)
	// DeleteOwned removes the link when owner matches; an empty owner matches any.
	DeleteOwned(ctx context.Context, code string, owner domain.Owner) error
	// IncrementClicks adds one click and returns the updated link.
	IncrementClicks(ctx context.Context, code string) (*domain.Link, error)
	Dump(ctx context.Context) ([]domain.Link, error) // For migration
	Close() error
}

// CreateLinkParams carries the inputs of LinkRegistry.Create.
type CreateLinkParams struct {
	OriginalURL string
	ShortCode   string // generated when empty
	Owner       domain.Owner
	ExpiresIn   time.Duration // zero means never
}

// LinkRegistry defines the business logic operations
type LinkRegistry interface {
	Create(ctx context.Context, p CreateLinkParams) (*domain.Link, error)
	Lookup(ctx context.Context, code string) (*domain.Link, error)
	ListByOwner(ctx context.Context, owner domain.Owner) ([]domain.Link, error)
	DeleteOwned(ctx context.Context, code string, owner domain.Owner) error
	RecordVisit(ctx context.Context, code string) (*domain.Link, error)
}

// Resolver turns a short code into a redirect target.
type Resolver interface {
	Resolve(ctx context.Context, code string) (*domain.Link, error)
}

// IdentityProvider resolves the caller of a request,
// failing with domain.ErrUnauthenticated.
type IdentityProvider interface {
	Identify(r *http.Request) (domain.Owner, error)
}
