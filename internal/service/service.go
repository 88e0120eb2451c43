// Package service implements the URL shortening business logic: short code
// allocation, destination validation, resolution with click accounting and
// the paginated listing query.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/polinetwork/url-shortener/internal/database"
	"github.com/polinetwork/url-shortener/internal/models"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// ErrMaxRetriesExceeded is returned when the maximum number of retries for generating a short code is exceeded.
var ErrMaxRetriesExceeded = errors.New("maximum retries exceeded for generating short code")

const (
	// maxCreateRetries bounds how often a colliding generated code is retried.
	// Collisions are statistically negligible at 8 random characters, but the
	// store stays authoritative and retries must stay bounded.
	maxCreateRetries = 5

	// incrementTimeout bounds the detached click accounting write.
	incrementTimeout = 5 * time.Second

	// Pagination bounds for list queries.
	minPageLimit = 1
	maxPageLimit = 100
)

// URLRepository defines the interface for working with URLs at the business logic layer.
type URLRepository interface {
	// Create inserts a new shortened URL into the repository.
	// Returns database.ErrShortCodeExists if the short code is already taken.
	Create(ctx context.Context, shortCode, originalURL string, isCustom bool) (*models.URL, error)

	// GetByShortCode retrieves a URL by its short code without side effects.
	GetByShortCode(ctx context.Context, shortCode string) (*models.URL, error)

	// Update modifies the original URL for a given short code.
	Update(ctx context.Context, shortCode, originalURL string) (*models.URL, error)

	// Delete removes a URL by its short code.
	Delete(ctx context.Context, shortCode string) error

	// IncrementClicks atomically adds one click to a URL record.
	IncrementClicks(ctx context.Context, shortCode string) error

	// List returns one page of records matching the filters and the total
	// match count, both computed against the same snapshot.
	List(ctx context.Context, params models.ListParams) ([]models.URL, int64, error)
}

// URLService provides methods to manage URL shortening operations.
// The service uses a URLRepository interface to interact with the underlying database.
type URLService struct {
	logger          *slog.Logger
	repo            URLRepository
	shortCodeLength int
	allowedDomains  []string
}

// NewURLService creates a new URLService. Generated codes are shortCodeLength
// characters long; destination URLs must match allowedDomains (empty list
// permits any destination).
func NewURLService(logger *slog.Logger, repo URLRepository, shortCodeLength int, allowedDomains []string) *URLService {
	return &URLService{
		logger:          logger,
		repo:            repo,
		shortCodeLength: shortCodeLength,
		allowedDomains:  allowedDomains,
	}
}

// CreateURL stores a new shortened URL. When customCode is non-empty it is
// validated against the code policy and used as-is; otherwise a random code is
// generated, retrying a bounded number of times on the unlikely collision.
func (s *URLService) CreateURL(ctx context.Context, originalURL, customCode string) (*models.URL, error) {
	const op = "service.URLService.CreateURL"

	if err := validateOriginalURL(originalURL, s.allowedDomains); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if customCode != "" {
		if err := validateCustomCode(customCode); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		url, err := s.repo.Create(ctx, customCode, originalURL, true)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to create url: %w", op, err)
		}

		return url, nil
	}

	for i := 0; i < maxCreateRetries; i++ {
		shortCode, err := gonanoid.New(s.shortCodeLength)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to generate short code: %w", op, err)
		}

		url, err := s.repo.Create(ctx, shortCode, originalURL, false)
		if err != nil {
			if errors.Is(err, database.ErrShortCodeExists) {
				continue
			}

			return nil, fmt.Errorf("%s: failed to create url: %w", op, err)
		}

		return url, nil
	}

	return nil, fmt.Errorf("%s: %w", op, ErrMaxRetriesExceeded)
}

// Resolve retrieves the original URL for the redirect path. On success the
// click counter is incremented exactly once in a detached goroutine so the
// redirect is never delayed or failed by accounting; an increment failure is
// logged and swallowed.
func (s *URLService) Resolve(ctx context.Context, shortCode string) (*models.URL, error) {
	const op = "service.URLService.Resolve"

	url, err := s.repo.GetByShortCode(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to resolve short code: %w", op, err)
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), incrementTimeout)
		defer cancel()

		if err := s.repo.IncrementClicks(ctx, url.ShortCode); err != nil {
			s.logger.Error(
				"failed to record click",
				slog.String("op", op),
				slog.String("short_code", url.ShortCode),
				slog.Any("err", err),
			)
		}
	}()

	return url, nil
}

// GetURL retrieves the URL associated with the provided short code without
// touching its click count.
func (s *URLService) GetURL(ctx context.Context, shortCode string) (*models.URL, error) {
	const op = "service.URLService.GetURL"

	url, err := s.repo.GetByShortCode(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get url: %w", op, err)
	}

	return url, nil
}

// ModifyURL updates the original URL associated with a given short code after
// validating the new destination.
func (s *URLService) ModifyURL(ctx context.Context, shortCode, originalURL string) (*models.URL, error) {
	const op = "service.URLService.ModifyURL"

	if err := validateOriginalURL(originalURL, s.allowedDomains); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	url, err := s.repo.Update(ctx, shortCode, originalURL)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to modify url: %w", op, err)
	}

	return url, nil
}

// DeactivateURL deletes the URL associated with the provided short code.
func (s *URLService) DeactivateURL(ctx context.Context, shortCode string) error {
	const op = "service.URLService.DeactivateURL"

	err := s.repo.Delete(ctx, shortCode)
	if err != nil {
		return fmt.Errorf("%s: failed to deactivate url: %w", op, err)
	}

	return nil
}

// ListURLs executes the paginated listing query. Page and limit outside the
// declared bounds are rejected with a ValidationError rather than clamped;
// unknown sort keys fall back to created_at and unknown sort orders to desc.
func (s *URLService) ListURLs(ctx context.Context, params models.ListParams) (*models.Page, error) {
	const op = "service.URLService.ListURLs"

	if params.Page < 1 {
		return nil, fmt.Errorf("%s: %w", op, &ValidationError{
			Field:   "page",
			Rule:    RuleOutOfRange,
			Message: "page must be a positive integer",
		})
	}
	if params.Limit < minPageLimit || params.Limit > maxPageLimit {
		return nil, fmt.Errorf("%s: %w", op, &ValidationError{
			Field:   "limit",
			Rule:    RuleOutOfRange,
			Message: fmt.Sprintf("limit must be between %d and %d", minPageLimit, maxPageLimit),
		})
	}

	switch params.SortBy {
	case models.SortByCreatedAt, models.SortByUpdatedAt, models.SortByClickCount, models.SortByShortCode:
	default:
		params.SortBy = models.SortByCreatedAt
	}

	switch params.SortOrder {
	case models.OrderAsc, models.OrderDesc:
	default:
		params.SortOrder = models.OrderDesc
	}

	urls, total, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list urls: %w", op, err)
	}

	return &models.Page{
		URLs:       urls,
		Page:       params.Page,
		Limit:      params.Limit,
		Total:      total,
		TotalPages: (total + int64(params.Limit) - 1) / int64(params.Limit),
	}, nil
}
