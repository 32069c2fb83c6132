// Package studio is the HTTP client for the studio backend's tablo
// workflow endpoints.
package studio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/proofsheet/tablo/internal/domain"
)

const (
	defaultTimeout = 15 * time.Second
	userAgent      = "Tablo/1.0"
	apiPrefix      = "/tablo"
)

// Client implements domain.WorkflowRepository over HTTP
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request transport timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// NewClient creates a studio API client
func NewClient(baseURL, token string, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// doRequest performs an authenticated JSON request and returns the body of
// a 2xx response. Transport failures map to ErrServerOffline, deadline
// expiry to ErrTimeout and other statuses to *domain.APIError.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, payload any) ([]byte, error) {
	reqURL := c.baseURL + apiPrefix + path
	if len(query) > 0 {
		reqURL = fmt.Sprintf("%s?%s", reqURL, query.Encode())
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if key, ok := domain.IdempotencyKey(ctx); ok {
		req.Header.Set("Idempotency-Key", key)
	}

	c.logger.Debug("studio request", "method", method, "url", reqURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.transportError(ctx, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &domain.APIError{Status: resp.StatusCode, Message: serverMessage(respBody)}
		c.logger.Error("studio request error", "status", resp.StatusCode, "path", path, "message", apiErr.Message)
		return nil, apiErr
	}

	return respBody, nil
}

func (c *Client) transportError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(context.Cause(ctx), context.DeadlineExceeded) {
			c.logger.Warn("studio request timed out", "error", err)
			return domain.ErrTimeout
		}
		return ctx.Err()
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		c.logger.Warn("studio request timed out", "error", err)
		return domain.ErrTimeout
	}
	c.logger.Error("studio request failed", "error", err)
	return fmt.Errorf("%w: %v", domain.ErrServerOffline, err)
}

func serverMessage(body []byte) string {
	var e ErrorResponse
	if len(body) == 0 || json.Unmarshal(body, &e) != nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

func decode[T any](body []byte) (*T, error) {
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &v, nil
}

func (c *Client) stepData(body []byte) (*domain.StepData, error) {
	resp, err := decode[StepDataResponse](body)
	if err != nil {
		c.logger.Error("JSON parse error", "error", err, "bodyLen", len(body))
		return nil, err
	}
	return MapStepData(*resp)
}

func (c *Client) saveResult(body []byte) (*domain.SaveResult, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return &domain.SaveResult{}, nil
	}
	resp, err := decode[AutoSaveResponse](body)
	if err != nil {
		return nil, err
	}
	return MapSaveResult(*resp), nil
}

// LoadStepData returns the current step's snapshot, or step's when non-empty
func (c *Client) LoadStepData(ctx context.Context, galleryID int, step domain.Step) (*domain.StepData, error) {
	var query url.Values
	if step != "" {
		query = url.Values{"step": {string(step)}}
	}
	body, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/step-data/%d", galleryID), query, nil)
	if err != nil {
		return nil, err
	}
	return c.stepData(body)
}

// LoadStepDataReadonly returns step's data of a finalized workflow
func (c *Client) LoadStepDataReadonly(ctx context.Context, galleryID int, step domain.Step) (*domain.StepData, error) {
	query := url.Values{"step": {string(step)}, "readonly": {"true"}}
	body, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/step-data/%d", galleryID), query, nil)
	if err != nil {
		return nil, err
	}
	return c.stepData(body)
}

// SaveClaiming replaces the claimed photo set
func (c *Client) SaveClaiming(ctx context.Context, galleryID int, photoIDs []int) (*domain.SaveResult, error) {
	body, err := c.doRequest(ctx, http.MethodPost, "/claiming", nil, photoIDsRequest{
		GallerySessionID: galleryID,
		PhotoIDs:         nonNil(photoIDs),
	})
	if err != nil {
		return nil, err
	}
	return c.saveResult(body)
}

// SaveRetouch replaces the retouch photo set
func (c *Client) SaveRetouch(ctx context.Context, galleryID int, photoIDs []int) (*domain.SaveResult, error) {
	body, err := c.doRequest(ctx, http.MethodPost, "/retouch/auto-save", nil, photoIDsRequest{
		GallerySessionID: galleryID,
		PhotoIDs:         nonNil(photoIDs),
	})
	if err != nil {
		return nil, err
	}
	return c.saveResult(body)
}

// SaveTablo sets the tablo photo
func (c *Client) SaveTablo(ctx context.Context, galleryID int, photoID int) (*domain.SaveResult, error) {
	body, err := c.doRequest(ctx, http.MethodPost, "/tablo/auto-save", nil, photoRequest{
		GallerySessionID: galleryID,
		PhotoID:          photoID,
	})
	if err != nil {
		return nil, err
	}
	return c.saveResult(body)
}

// ClearTablo removes the tablo photo
func (c *Client) ClearTablo(ctx context.Context, galleryID int) (*domain.SaveResult, error) {
	body, err := c.doRequest(ctx, http.MethodPost, "/tablo/clear", nil, galleryRequest{GallerySessionID: galleryID})
	if err != nil {
		return nil, err
	}
	return c.saveResult(body)
}

// NextStep advances the workflow
func (c *Client) NextStep(ctx context.Context, galleryID int) (*domain.StepData, error) {
	return c.transition(ctx, "/next-step", galleryRequest{GallerySessionID: galleryID})
}

// PreviousStep moves the workflow one step back
func (c *Client) PreviousStep(ctx context.Context, galleryID int) (*domain.StepData, error) {
	return c.transition(ctx, "/previous-step", galleryRequest{GallerySessionID: galleryID})
}

// MoveToStep jumps back to target
func (c *Client) MoveToStep(ctx context.Context, galleryID int, target domain.Step) (*domain.StepData, error) {
	return c.transition(ctx, "/move-to-step", moveRequest{GallerySessionID: galleryID, TargetStep: string(target)})
}

func (c *Client) transition(ctx context.Context, path string, payload any) (*domain.StepData, error) {
	body, err := c.doRequest(ctx, http.MethodPost, path, nil, payload)
	if err != nil {
		return nil, err
	}
	return c.stepData(body)
}

// Finalize completes the workflow. A response without a step-data payload
// yields a nil snapshot.
func (c *Client) Finalize(ctx context.Context, galleryID int) (*domain.StepData, error) {
	body, err := c.doRequest(ctx, http.MethodPost, "/workflow/finalize", nil, galleryRequest{GallerySessionID: galleryID})
	if err != nil {
		return nil, err
	}
	var resp StepDataResponse
	if json.Unmarshal(body, &resp) != nil || resp.CurrentStep == "" {
		c.logger.Debug("finalize returned no snapshot")
		return nil, nil
	}
	return MapStepData(resp)
}

// RequestModification reopens a finalized workflow
func (c *Client) RequestModification(ctx context.Context, galleryID int) (*domain.ModificationResult, error) {
	body, err := c.doRequest(ctx, http.MethodPost, "/workflow/request-modification", nil, galleryRequest{GallerySessionID: galleryID})
	if err != nil {
		return nil, err
	}
	resp, err := decode[ModificationResponse](body)
	if err != nil {
		return nil, err
	}
	return &domain.ModificationResult{
		Success: resp.Success,
		WasFree: resp.WasFree,
		Message: resp.Message,
	}, nil
}

func nonNil(ids []int) []int {
	if ids == nil {
		return []int{}
	}
	return ids
}

var _ domain.WorkflowRepository = (*Client)(nil)
