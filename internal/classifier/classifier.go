// Package classifier is the client for the remote plant disease
// classification service.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"plantmart/internal/metrics"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/tidwall/gjson"
)

// MaxImageSize is the largest accepted upload.
const MaxImageSize = 10 << 20

// User-facing failure messages.
const (
	MsgTooLarge    = "Image size must be less than 10MB"
	MsgNotImage    = "Please select a valid image file"
	MsgServerError = "An error occurred while communicating with the server."
	MsgUnreachable = "Failed to analyze image. Please ensure the classifier service is running."
)

// LowConfidenceThreshold is the confidence below which a diagnosis should be
// double-checked.
const LowConfidenceThreshold = 70

// Image is an upload to diagnose.
type Image struct {
	Filename    string
	ContentType string // as declared by the uploader; sniffed when empty
	Data        []byte
}

// Diagnosis is the classifier's answer.
type Diagnosis struct {
	Condition   string   `json:"condition" validate:"required"`
	Severity    string   `json:"severity" validate:"oneof=low medium high"`
	Confidence  int      `json:"confidence" validate:"gte=0,lte=100"`
	Description string   `json:"description"`
	Causes      []string `json:"causes"`
	Solutions   []string `json:"solutions"`
	Prevention  []string `json:"prevention"`
}

// LowConfidence reports whether the diagnosis should be confirmed by an expert.
func (d Diagnosis) LowConfidence() bool {
	return d.Confidence < LowConfidenceThreshold
}

// Urgent reports whether the condition needs immediate action.
func (d Diagnosis) Urgent() bool {
	return d.Severity == "high"
}

// Error is any classifier failure. Message is fit to show to a user.
type Error struct {
	Message string
	// Invalid is set when the image was rejected before any request was made.
	Invalid bool
	// Status is the service's HTTP status, 0 if no response was received.
	Status int
	Cause  error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Config configures a Client.
type Config struct {
	URL        string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client posts images to the classification service.
type Client struct {
	url        string
	httpClient *http.Client
	validate   *validator.Validate
}

// New creates a Client.
func New(cfg Config, validate *validator.Validate) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		url:        cfg.URL,
		httpClient: httpClient,
		validate:   validate,
	}
}

// Validate checks an upload locally: it must be at most MaxImageSize bytes
// and of an image/* type.
func Validate(img Image) error {
	if len(img.Data) > MaxImageSize {
		return &Error{Message: MsgTooLarge, Invalid: true}
	}
	if !strings.HasPrefix(contentType(img), "image/") {
		return &Error{Message: MsgNotImage, Invalid: true}
	}
	return nil
}

func contentType(img Image) string {
	declared := strings.ToLower(strings.TrimSpace(img.ContentType))
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	return mimetype.Detect(img.Data).String()
}

// Diagnose validates img and sends it to the classification service as the
// multipart field "file".
func (c *Client) Diagnose(ctx context.Context, img Image) (*Diagnosis, error) {
	if err := Validate(img); err != nil {
		metrics.RecordDiagnosis("rejected")
		return nil, err
	}

	diagnosis, err := c.post(ctx, img)
	if err != nil {
		metrics.RecordDiagnosis("error")
		return nil, err
	}
	metrics.RecordDiagnosis("ok")
	return diagnosis, nil
}

func (c *Client) post(ctx context.Context, img Image) (*Diagnosis, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	filename := img.Filename
	if filename == "" {
		filename = "upload"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(filename)))
	header.Set("Content-Type", contentType(img))
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, &Error{Message: MsgServerError, Cause: err}
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, &Error{Message: MsgServerError, Cause: err}
	}
	if err := writer.Close(); err != nil {
		return nil, &Error{Message: MsgServerError, Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return nil, &Error{Message: MsgUnreachable, Cause: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Message: MsgUnreachable, Cause: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Message: MsgUnreachable, Status: resp.StatusCode, Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := MsgServerError
		if gjson.ValidBytes(payload) {
			if v := gjson.GetBytes(payload, "error"); v.Type == gjson.String && v.String() != "" {
				msg = v.String()
			}
		}
		return nil, &Error{
			Message: msg,
			Status:  resp.StatusCode,
			Cause:   fmt.Errorf("classifier answered %d", resp.StatusCode),
		}
	}

	var diagnosis Diagnosis
	if err := json.Unmarshal(payload, &diagnosis); err != nil {
		return nil, &Error{Message: MsgServerError, Status: resp.StatusCode, Cause: fmt.Errorf("decode diagnosis: %w", err)}
	}
	if err := c.validate.Struct(diagnosis); err != nil {
		return nil, &Error{Message: MsgServerError, Status: resp.StatusCode, Cause: fmt.Errorf("invalid diagnosis: %w", err)}
	}
	return &diagnosis, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
