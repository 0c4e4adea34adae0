package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/wadjakorntonsri/shortlink/pkg/core/domain"
	"github.com/wadjakorntonsri/shortlink/pkg/ports"
)

// reservedCodes would be shadowed by fixed routes.
var reservedCodes = map[string]bool{
	"api":     true,
	"auth":    true,
	"healthz": true,
}

type HTTPHandler struct {
	registry ports.LinkRegistry
	resolver ports.Resolver
	baseURL  string
	validate *validator.Validate
	log      *slog.Logger
}

func NewHTTPHandler(registry ports.LinkRegistry, resolver ports.Resolver, baseURL string, l *slog.Logger) *HTTPHandler {
	return &HTTPHandler{
		registry: registry,
		resolver: resolver,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		validate: validator.New(),
		log:      l,
	}
}

// maxExpiryDays is the largest day count a time.Duration can hold.
const maxExpiryDays = float64(math.MaxInt64 / int64(24*time.Hour))

// Days is a day count sent either as a JSON number or a numeric string.
type Days float64

func (d *Days) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*d = 0
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("expiryDays: %w", err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("expiryDays: %q is not a finite number", b)
	}
	*d = Days(f)
	return nil
}

// CreateLinkRequest payload
type CreateLinkRequest struct {
	URL        string `json:"url" validate:"required"`
	ShortCode  string `json:"shortCode,omitempty" validate:"omitempty,max=64,excludesall=/?#"`
	ExpiryDays Days   `json:"expiryDays,omitempty"`
}

// CreateLinkResponse payload
type CreateLinkResponse struct {
	Message      string     `json:"message"`
	ShortCode    string     `json:"shortCode"`
	FullShortURL string     `json:"fullShortUrl"`
	Expiry       *time.Time `json:"expiry,omitempty"`
}

// Create Link
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}
	if reservedCodes[strings.ToLower(req.ShortCode)] {
		writeError(w, http.StatusBadRequest, "Short code is reserved, choose another")
		return
	}
	if float64(req.ExpiryDays) > maxExpiryDays {
		writeError(w, http.StatusBadRequest, "expiryDays is too large")
		return
	}

	// Only positive day counts set an expiry.
	var expiresIn time.Duration
	if req.ExpiryDays > 0 {
		expiresIn = time.Duration(float64(req.ExpiryDays) * float64(24*time.Hour))
	}

	link, err := h.registry.Create(r.Context(), ports.CreateLinkParams{
		OriginalURL: req.URL,
		ShortCode:   req.ShortCode,
		Owner:       OwnerFromContext(r.Context()),
		ExpiresIn:   expiresIn,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.log.InfoContext(r.Context(), "short URL created", "short_code", link.ShortCode, "owner", link.Owner)
	writeJSON(w, http.StatusCreated, CreateLinkResponse{
		Message:      "Short URL created",
		ShortCode:    link.ShortCode,
		FullShortURL: h.shortURL(r, link.ShortCode),
		Expiry:       link.Expiry,
	})
}

// List Links
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	links, err := h.registry.ListByOwner(r.Context(), OwnerFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":  links,
		"total": len(links),
	})
}

// Delete Link
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("short_code")

	if err := h.registry.DeleteOwned(r.Context(), code, OwnerFromContext(r.Context())); err != nil {
		h.fail(w, r, err)
		return
	}

	h.log.InfoContext(r.Context(), "short URL deleted", "short_code", code)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Deleted"})
}

// Redirect to original URL
func (h *HTTPHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("short_code")

	link, err := h.resolver.Resolve(r.Context(), code)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "Short URL not found", http.StatusNotFound)
		return
	case errors.Is(err, domain.ErrExpired):
		http.Error(w, "This short URL has expired", http.StatusGone)
		return
	case err != nil:
		h.log.ErrorContext(r.Context(), "redirect failed", "short_code", code, "error", err)
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, link.OriginalURL, http.StatusFound)
}

// Health check
func (h *HTTPHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
}

func (h *HTTPHandler) shortURL(r *http.Request, code string) string {
	base := h.baseURL
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		base = scheme + "://" + r.Host
	}
	return base + "/" + code
}

// fail maps a registry error onto a status code.
func (h *HTTPHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrCodeAlreadyExists):
		writeError(w, http.StatusConflict, "Short code already exists, choose another")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "Link not found")
	case errors.Is(err, domain.ErrExpired):
		writeError(w, http.StatusGone, "Link has expired")
	case errors.Is(err, domain.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "Unauthorized")
	default:
		h.log.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "Server error")
	}
}

func validationMessage(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return "Invalid request body"
	}
	switch fe := errs[0]; fe.Field() {
	case "URL":
		return "URL is required"
	case "ShortCode":
		return "Short code must be at most 64 characters without / ? #"
	default:
		return fe.Error()
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
