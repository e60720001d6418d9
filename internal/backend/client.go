package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/google/uuid"

	"github.com/ryom080502-dev/OnseiGijiroku/internal/session"
)

// Client provides HTTP client functionality for the minutes backend API.
// Session-protected calls go through the guard; the raw storage write goes
// through a plain client because signed URLs are pre-authorized.
type Client struct {
	config  Config
	guard   session.Doer
	storage session.Doer
	logger  *slog.Logger
}

// Config contains backend client configuration
type Config struct {
	BaseURL   string
	UserAgent string
}

// NewClient creates a new minutes backend client
func NewClient(config Config, guard session.Doer, logger *slog.Logger) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}

	if guard == nil {
		return nil, fmt.Errorf("session guard cannot be nil")
	}

	if config.UserAgent == "" {
		config.UserAgent = "onsei-gijiroku-client/1.0"
	}

	if logger == nil {
		logger = slog.Default()
	}

	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	return &Client{
		config:  config,
		guard:   guard,
		storage: &http.Client{},
		logger:  logger,
	}, nil
}

// UploadMedia sends one complete payload (the whole file or a single encoded
// segment) plus its metadata fields in a multipart request and returns the
// generated minutes for that unit.
func (c *Client) UploadMedia(ctx context.Context, filename, contentType string, payload io.Reader, meta Metadata) (*MinutesResult, error) {
	body, formContentType, err := buildUploadForm(filename, contentType, payload, "", meta)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/upload", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", formContentType)

	return c.doMinutesRequest(req)
}

// GenerateUploadURL requests a short-lived write handle for a direct storage
// upload.
func (c *Client) GenerateUploadURL(ctx context.Context, filename, contentType string) (*UploadTicket, error) {
	payload := map[string]string{
		"filename":     filename,
		"content_type": contentType,
	}

	req, err := c.newJSONRequest(ctx, "/api/generate-upload-url", payload)
	if err != nil {
		return nil, err
	}

	resp, err := c.guard.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var ticket UploadTicket
	if err := json.NewDecoder(resp.Body).Decode(&ticket); err != nil {
		return nil, fmt.Errorf("failed to parse upload ticket: %w", err)
	}

	c.logger.Debug("Upload ticket issued",
		slog.String("blob_name", ticket.BlobName),
	)

	return &ticket, nil
}

// UploadToStorage transfers the raw file bytes straight to the signed write
// URL. The storage endpoint is not session-protected and the transfer is not
// retried: a single failure is terminal.
func (c *Client) UploadToStorage(ctx context.Context, uploadURL, contentType string, payload io.Reader, sizeBytes int64) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, payload)
	if err != nil {
		return fmt.Errorf("failed to create storage request: %w", err)
	}

	req.Header.Set("Content-Type", contentType)
	req.ContentLength = sizeBytes

	resp, err := c.storage.Do(req)
	if err != nil {
		return fmt.Errorf("storage upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return &StorageTransferError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	return nil
}

// ProcessBlob tells the backend to process a blob already resident in
// storage, passing the blob name and the metadata fields.
func (c *Client) ProcessBlob(ctx context.Context, blobName string, meta Metadata) (*MinutesResult, error) {
	body, formContentType, err := buildUploadForm("", "", nil, blobName, meta)
	if err != nil {
		return nil, fmt.Errorf("failed to build process form: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/upload", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", formContentType)

	return c.doMinutesRequest(req)
}

// MergeSummaries submits the ordered partial summaries for reconciliation
// and returns the reconciled text.
func (c *Client) MergeSummaries(ctx context.Context, summaries []string) (string, error) {
	payload := map[string][]string{"summaries": summaries}

	req, err := c.newJSONRequest(ctx, "/api/merge", payload)
	if err != nil {
		return "", err
	}

	resp, err := c.guard.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return "", err
	}

	var merged struct {
		Summary string `json:"summary"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&merged); err != nil {
		return "", fmt.Errorf("failed to parse merge response: %w", err)
	}

	return merged.Summary, nil
}

// Export renders the final minutes as a Word or PDF document and returns the
// document bytes.
func (c *Client) Export(ctx context.Context, summary string, meta Metadata, format string) ([]byte, error) {
	payload := map[string]any{
		"summary": summary,
		"metadata": map[string]string{
			"created_date":  meta.CreatedDate,
			"creator":       meta.Creator,
			"customer_name": meta.CustomerName,
			"meeting_place": meta.MeetingPlace,
		},
		"format": format,
	}

	req, err := c.newJSONRequest(ctx, "/api/export", payload)
	if err != nil {
		return nil, err
	}

	resp, err := c.guard.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	document, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read exported document: %w", err)
	}

	return document, nil
}

// newRequest builds a request against the backend base URL with the common
// headers every call carries.
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", path, err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())

	return req, nil
}

func (c *Client) newJSONRequest(ctx context.Context, path string, payload any) (*http.Request, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request for %s: %w", path, err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	return req, nil
}

// doMinutesRequest issues a guarded request whose success body is a minutes
// result.
func (c *Client) doMinutesRequest(req *http.Request) (*MinutesResult, error) {
	resp, err := c.guard.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var result MinutesResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse minutes response: %w", err)
	}

	return &result, nil
}

// checkStatus maps a non-2xx response to its processing error class.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(resp.Body)
	return newProcessingError(resp.StatusCode, resp.Header.Get("Content-Type"), body)
}

// buildUploadForm creates the multipart body for /api/upload. Either a file
// payload or a blob name is present, never both.
func buildUploadForm(filename, contentType string, payload io.Reader, blobName string, meta Metadata) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if payload != nil {
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		partHeader := textproto.MIMEHeader{}
		partHeader.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
		partHeader.Set("Content-Type", contentType)

		fileWriter, err := writer.CreatePart(partHeader)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create form file: %w", err)
		}

		if _, err := io.Copy(fileWriter, payload); err != nil {
			return nil, "", fmt.Errorf("failed to write file payload: %w", err)
		}
	}

	if blobName != "" {
		if err := writer.WriteField("blob_name", blobName); err != nil {
			return nil, "", fmt.Errorf("failed to write field blob_name: %w", err)
		}
	}

	fields := map[string]string{
		"created_date":  meta.CreatedDate,
		"creator":       meta.Creator,
		"customer_name": meta.CustomerName,
		"meeting_place": meta.MeetingPlace,
	}

	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", key, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	return &buf, writer.FormDataContentType(), nil
}
