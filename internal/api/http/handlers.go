package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/polinetwork/url-shortener/internal/database"
	"github.com/polinetwork/url-shortener/internal/models"
	"github.com/polinetwork/url-shortener/internal/service"
	"github.com/polinetwork/url-shortener/pkg/qr"
	"github.com/polinetwork/url-shortener/pkg/response"
)

// handlePing handles health check requests to ensure the server is running.
func handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "pong")
}

// createURLRequest is the payload for creating a shortened URL. ShortCode is
// optional; when present it becomes the custom code after service validation.
type createURLRequest struct {
	URL       string `json:"url" validate:"required,url"`
	ShortCode string `json:"short_code,omitempty"`
}

// updateURLRequest is the payload for replacing the destination of a short code.
type updateURLRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// urlResponse represents the response payload for a shortened URL operation.
type urlResponse struct {
	ID         int64     `json:"id"`
	ShortCode  string    `json:"short_code"`
	ShortURL   string    `json:"short_url"`
	URL        string    `json:"url"`
	IsCustom   bool      `json:"is_custom"`
	ClickCount int64     `json:"click_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// paginationResponse carries the page metadata of a list call. Total counts
// matches before pagination.
type paginationResponse struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

type listURLsResponse struct {
	URLs       []urlResponse      `json:"urls"`
	Pagination paginationResponse `json:"pagination"`
}

func makeShortURL(baseURL, shortCode string) string {
	return strings.TrimRight(baseURL, "/") + "/" + shortCode
}

// toURLResponse converts a URL model from the business layer into a response payload.
func toURLResponse(baseURL string, url *models.URL) urlResponse {
	return urlResponse{
		ID:         url.ID,
		ShortCode:  url.ShortCode,
		ShortURL:   makeShortURL(baseURL, url.ShortCode),
		URL:        url.OriginalURL,
		IsCustom:   url.IsCustom,
		ClickCount: url.ClickCount,
		CreatedAt:  url.CreatedAt,
		UpdatedAt:  url.UpdatedAt,
	}
}

// renderServiceError maps service and storage errors onto the response
// envelope: validation failures to 400 with the violated rule, duplicate codes
// to 409, missing records to 404 and everything else to a logged 500.
func renderServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var vErr *service.ValidationError

	switch {
	case errors.As(err, &vErr):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.RuleViolationResponse(vErr.Field, vErr.Rule, vErr.Message))
	case errors.Is(err, database.ErrShortCodeExists):
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, response.DuplicateShortCodeResponse)
	case errors.Is(err, database.ErrURLNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.ResourceNotFoundResponse)
	default:
		httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.ServerErrorResponse)
	}
}

// handleCreateURL handles POST requests to create a shortened URL.
//
// The request must contain a valid URL and may carry a custom short code. The
// handler validates the payload shape, delegates code policy and allow-list
// checks to the service, and returns the created record.
func handleCreateURL(svc URLService, validate *validator.Validate, baseURL string) http.HandlerFunc {
	const op = "api.http.handleCreateURL"
	const successMsg = "The URL has been shortened successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		var req createURLRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			if errors.Is(err, io.EOF) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.EmptyRequestBodyResponse)
				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationErrorResponse(err))
			return
		}

		url, err := svc.CreateURL(r.Context(), req.URL, req.ShortCode)
		if err != nil {
			renderServiceError(w, r, op, err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.SuccessResponse(successMsg, toURLResponse(baseURL, url)))
	}
}

// handleGetURL handles GET requests for a single URL record. Reading a record
// does not touch its click count.
func handleGetURL(svc URLService, baseURL string) http.HandlerFunc {
	const op = "api.http.handleGetURL"
	const successMsg = "The URL was successfully retrieved."

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		url, err := svc.GetURL(r.Context(), shortCode)
		if err != nil {
			renderServiceError(w, r, op, err)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, toURLResponse(baseURL, url)))
	}
}

// handleGetURLStats handles GET requests for the statistics of a URL.
func handleGetURLStats(svc URLService, baseURL string) http.HandlerFunc {
	const op = "api.http.handleGetURLStats"
	const successMsg = "The URL statistics retrieved successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		url, err := svc.GetURL(r.Context(), shortCode)
		if err != nil {
			renderServiceError(w, r, op, err)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, toURLResponse(baseURL, url)))
	}
}

// handleModifyURL handles PUT requests to replace the destination of a short code.
func handleModifyURL(svc URLService, validate *validator.Validate, baseURL string) http.HandlerFunc {
	const op = "api.http.handleModifyURL"
	const successMsg = "The URL was successfully modified."

	return func(w http.ResponseWriter, r *http.Request) {
		var req updateURLRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			if errors.Is(err, io.EOF) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.EmptyRequestBodyResponse)
				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationErrorResponse(err))
			return
		}

		shortCode := chi.URLParam(r, "shortCode")

		url, err := svc.ModifyURL(r.Context(), shortCode, req.URL)
		if err != nil {
			renderServiceError(w, r, op, err)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, toURLResponse(baseURL, url)))
	}
}

// handleDeactivateURL handles DELETE requests. Deleting an unknown short code
// yields a plain 404; a repeated delete is indistinguishable from it.
func handleDeactivateURL(svc URLService) http.HandlerFunc {
	const op = "api.http.handleDeactivateURL"

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		err := svc.DeactivateURL(r.Context(), shortCode)
		if err != nil {
			renderServiceError(w, r, op, err)
			return
		}

		render.NoContent(w, r)
	}
}

// parseListParams reads the list query parameters, applying the documented
// defaults for absent values. Malformed values are rejected, not coerced.
func parseListParams(r *http.Request) (models.ListParams, error) {
	q := r.URL.Query()

	params := models.ListParams{
		Page:      1,
		Limit:     10,
		SortBy:    models.SortByCreatedAt,
		SortOrder: models.OrderDesc,
	}

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return params, &service.ValidationError{
				Field:   "page",
				Rule:    service.RuleOutOfRange,
				Message: "page must be a positive integer",
			}
		}
		params.Page = n
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return params, &service.ValidationError{
				Field:   "limit",
				Rule:    service.RuleOutOfRange,
				Message: "limit must be a positive integer",
			}
		}
		params.Limit = n
	}

	params.Search = q.Get("search")

	if v := q.Get("sortBy"); v != "" {
		params.SortBy = v
	}
	if v := q.Get("sortOrder"); v != "" {
		params.SortOrder = v
	}

	if v := q.Get("customOnly"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return params, &service.ValidationError{
				Field:   "customOnly",
				Rule:    service.RuleOutOfRange,
				Message: "customOnly must be a boolean",
			}
		}
		params.CustomOnly = b
	}

	return params, nil
}

// handleListURLs handles GET requests for the paginated, searchable, sortable
// URL listing.
func handleListURLs(svc URLService, baseURL string) http.HandlerFunc {
	const op = "api.http.handleListURLs"
	const successMsg = "The URLs were successfully listed."

	return func(w http.ResponseWriter, r *http.Request) {
		params, err := parseListParams(r)
		if err != nil {
			renderServiceError(w, r, op, err)
			return
		}

		page, err := svc.ListURLs(r.Context(), params)
		if err != nil {
			renderServiceError(w, r, op, err)
			return
		}

		resp := listURLsResponse{
			URLs: make([]urlResponse, 0, len(page.URLs)),
			Pagination: paginationResponse{
				Page:       page.Page,
				Limit:      page.Limit,
				Total:      page.Total,
				TotalPages: page.TotalPages,
			},
		}
		for i := range page.URLs {
			resp.URLs = append(resp.URLs, toURLResponse(baseURL, &page.URLs[i]))
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, resp))
	}
}

// handleURLQRCode handles GET requests for a QR code image of the public short
// URL. The extension selects the image format; style and background come from
// the query string.
func handleURLQRCode(svc URLService, baseURL string) http.HandlerFunc {
	const op = "api.http.handleURLQRCode"

	return func(w http.ResponseWriter, r *http.Request) {
		opts, err := qr.ParseOptions(
			chi.URLParam(r, "ext"),
			r.URL.Query().Get("style"),
			r.URL.Query().Get("background"),
		)
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.RuleViolationResponse("qr", service.RuleOutOfRange, err.Error()))
			return
		}

		url, err := svc.GetURL(r.Context(), chi.URLParam(r, "shortCode"))
		if err != nil {
			renderServiceError(w, r, op, err)
			return
		}

		img, err := qr.Render(makeShortURL(baseURL, url.ShortCode), opts)
		if err != nil {
			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		w.Header().Set("Content-Type", opts.ContentType())
		w.WriteHeader(http.StatusOK)
		w.Write(img) //nolint:errcheck
	}
}

// handleRedirect handles the public redirect path. A successful resolution
// issues a 302 so clients keep coming back and clicks keep being counted; an
// unknown code renders the HTML not-found page.
func handleRedirect(svc URLService) http.HandlerFunc {
	const op = "api.http.handleRedirect"

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		url, err := svc.Resolve(r.Context(), shortCode)
		if err != nil {
			if errors.Is(err, database.ErrURLNotFound) {
				renderNotFoundPage(w, shortCode)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			http.Error(w, "Something went wrong. Please try again later.", http.StatusInternalServerError)
			return
		}

		http.Redirect(w, r, url.OriginalURL, http.StatusFound)
	}
}
