// Package http exposes the URL shortening service over HTTP: the JSON API
// under /api/v1 and the public redirect path at the root.
package http

import (
	"context"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"
	"github.com/polinetwork/url-shortener/internal/models"
)

// URLService defines the interface for the core URL shortening business logic.
type URLService interface {
	// CreateURL stores a new shortened URL. A non-empty customCode is used
	// as the short code after validation; otherwise a random code is generated.
	CreateURL(ctx context.Context, originalURL, customCode string) (*models.URL, error)

	// GetURL retrieves the URL record for a short code without side effects.
	GetURL(ctx context.Context, shortCode string) (*models.URL, error)

	// Resolve retrieves the record for the redirect path and fires the
	// click-count increment without blocking the caller.
	Resolve(ctx context.Context, shortCode string) (*models.URL, error)

	// ModifyURL updates the original URL linked to the provided short code.
	ModifyURL(ctx context.Context, shortCode, originalURL string) (*models.URL, error)

	// DeactivateURL deletes the URL, making the short code no longer resolvable.
	DeactivateURL(ctx context.Context, shortCode string) error

	// ListURLs executes the paginated search/filter/sort query.
	ListURLs(ctx context.Context, params models.ListParams) (*models.Page, error)
}

// getValidate initializes a new validator instance for validating incoming request payloads.
// It customizes tag name extraction from struct fields to match JSON tags.
func getValidate() *validator.Validate {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return validate
}

// NewRouter initializes and returns a new HTTP router with all routes and middleware configured.
// baseURL is the public prefix short URLs are built from.
func NewRouter(logger *httplog.Logger, urlSvc URLService, baseURL string) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*"},
		AllowedMethods:   []string{"POST", "GET", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		validate := getValidate()

		r.Use(middleware.AllowContentType("application/json"))

		r.Get("/ping", handlePing)

		r.Route("/urls", func(r chi.Router) {
			r.Get("/", handleListURLs(urlSvc, baseURL))
			r.Post("/", handleCreateURL(urlSvc, validate, baseURL))

			r.Route("/{shortCode}", func(r chi.Router) {
				r.Get("/", handleGetURL(urlSvc, baseURL))
				r.Put("/", handleModifyURL(urlSvc, validate, baseURL))
				r.Delete("/", handleDeactivateURL(urlSvc))
				r.Get("/stats", handleGetURLStats(urlSvc, baseURL))
				r.Get("/qr.{ext}", handleURLQRCode(urlSvc, baseURL))
			})
		})
	})

	r.Get("/{shortCode}", handleRedirect(urlSvc))

	return r
}
