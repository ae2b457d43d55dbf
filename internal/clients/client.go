package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"foodhub-gateway/internal/observability"
	"foodhub-gateway/internal/session"
	"foodhub-gateway/pkg/apperrors"

	"go.opentelemetry.io/otel/attribute"
)

// StatusError is returned when a backend answers outside the 2xx range
type StatusError struct {
	Service    string
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s %s returned status %d", e.Service, e.Method, e.Path, e.StatusCode)
}

// Client is bound to one backend's base URL and attaches the caller's bearer token to every request
type Client struct {
	name       string
	baseURL    string
	httpClient *http.Client
}

// New creates a resource client for one backend
func New(name, baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		name:       name,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Name returns the backend name used in logs and errors
func (c *Client) Name() string {
	return c.name
}

// GetJSON issues a GET and decodes the response into out
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, query, nil, "", out)
}

// PostJSON issues a POST with a JSON body
func (c *Client) PostJSON(ctx context.Context, path string, query url.Values, in, out interface{}) error {
	body, err := encodeJSON(in)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, query, body, "application/json", out)
}

// PutJSON issues a PUT with a JSON body
func (c *Client) PutJSON(ctx context.Context, path string, in, out interface{}) error {
	body, err := encodeJSON(in)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPut, path, nil, body, "application/json", out)
}

// Delete issues a DELETE
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, "", nil)
}

// Part is one part of a multipart request
type Part struct {
	Field       string
	Filename    string
	ContentType string
	Data        []byte
}

// JSONPart encodes v as an application/json part
func JSONPart(field string, v interface{}) (Part, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Part{}, fmt.Errorf("failed to encode %s part: %w", field, err)
	}
	return Part{Field: field, ContentType: "application/json", Data: data}, nil
}

// Multipart issues a multipart/form-data request built from parts
func (c *Client) Multipart(ctx context.Context, method, path string, parts []Part, out interface{}) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for _, p := range parts {
		header := make(textproto.MIMEHeader)
		disposition := fmt.Sprintf(`form-data; name="%s"`, escapeQuotes(p.Field))
		if p.Filename != "" {
			disposition += fmt.Sprintf(`; filename="%s"`, escapeQuotes(p.Filename))
		}
		header.Set("Content-Disposition", disposition)
		contentType := p.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header.Set("Content-Type", contentType)

		w, err := mw.CreatePart(header)
		if err != nil {
			return fmt.Errorf("failed to create %s part: %w", p.Field, err)
		}
		if _, err := w.Write(p.Data); err != nil {
			return fmt.Errorf("failed to write %s part: %w", p.Field, err)
		}
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("failed to close multipart body: %w", err)
	}

	return c.do(ctx, method, path, nil, &buf, mw.FormDataContentType(), out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string, out interface{}) error {
	ctx, span := observability.StartSpan(ctx, c.name+" "+method)
	defer span.End()
	span.SetAttributes(attribute.String("http.path", path))

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	token, err := session.FromContext(ctx).Token(ctx)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		observability.RecordError(span, err)
		return fmt.Errorf("%s %s %s: %w", c.name, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		statusErr := &StatusError{
			Service:    c.name,
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       string(snippet),
		}
		observability.RecordError(span, statusErr)
		return statusErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%s %s %s: failed to decode response: %w", c.name, method, path, err)
	}
	return nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// escapeQuotes makes s safe inside a quoted Content-Disposition parameter
func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

func encodeJSON(in interface{}) (io.Reader, error) {
	if in == nil {
		return nil, nil
	}
	data, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}
	return bytes.NewReader(data), nil
}

// IsNotFound reports whether err is a 404 from a backend
func IsNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}

// Wrap converts a backend failure into an application error carrying message
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, session.ErrSessionExpired) {
		return &apperrors.AppError{Type: apperrors.ErrorTypeUnauthorized, Message: "session expired", Err: err}
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusNotFound:
			return &apperrors.AppError{Type: apperrors.ErrorTypeNotFound, Message: message, Err: err}
		case http.StatusUnauthorized, http.StatusForbidden:
			return &apperrors.AppError{Type: apperrors.ErrorTypeUnauthorized, Message: message, Err: err}
		case http.StatusBadRequest:
			return &apperrors.AppError{Type: apperrors.ErrorTypeValidation, Message: message, Err: err}
		}
	}
	return apperrors.NewExternalError(message, err)
}
