package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"oceanwatch/pkg/types"
)

// Client talks to the ingestion endpoints of an oceanwatch server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for serverURL. timeout bounds every request.
func New(serverURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(serverURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type response struct {
	Success       bool            `json:"success"`
	Message       string          `json:"message"`
	MissingFields []string        `json:"missingFields"`
	InvalidFields []string        `json:"invalidFields"`
	Data          json.RawMessage `json:"data"`
}

// Submit uploads draft to POST /api/reports/upload and returns the stored
// report. Failures are mapped onto the types error taxonomy so callers can
// decide with types.IsRetryable whether to queue the draft.
func (c *Client) Submit(ctx context.Context, draft types.ReportDraft) (*types.IncidentReport, error) {
	body, contentType, err := encodeDraft(draft)
	if err != nil {
		return nil, fmt.Errorf("encode draft: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/reports/upload", body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return acknowledgedReport(resp.Body), nil
	}

	parsed, err := decodeResponse(resp)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusBadRequest:
		return nil, &types.ValidationError{
			MissingFields: parsed.MissingFields,
			InvalidFields: parsed.InvalidFields,
		}
	case http.StatusRequestEntityTooLarge:
		return nil, &types.PayloadTooLargeError{Limit: types.MaxMediaBytes}
	case http.StatusUnsupportedMediaType:
		contentType := ""
		if draft.Media != nil {
			contentType = draft.Media.ContentType
		}
		return nil, &types.UnsupportedMediaError{ContentType: contentType}
	default:
		return nil, statusError("submit report", resp.StatusCode, parsed.Message)
	}
}

// List fetches every stored report, newest first.
func (c *Client) List(ctx context.Context) ([]*types.IncidentReport, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/reports/get", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	parsed, err := decodeResponse(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError("list reports", resp.StatusCode, parsed.Message)
	}

	var reports []*types.IncidentReport
	if err := json.Unmarshal(parsed.Data, &reports); err != nil {
		return nil, fmt.Errorf("decode reports: %w", err)
	}
	return reports, nil
}

// acknowledgedReport reads the stored report from a 2xx body. The server has
// already kept the draft at that point, so a body that cannot be decoded
// still counts as an acknowledgment and yields whatever could be recovered.
func acknowledgedReport(body io.Reader) *types.IncidentReport {
	data, err := io.ReadAll(body)
	if err != nil {
		return &types.IncidentReport{}
	}

	var parsed response
	if err := json.Unmarshal(data, &parsed); err != nil || len(parsed.Data) == 0 {
		return &types.IncidentReport{}
	}

	var report types.IncidentReport
	if err := json.Unmarshal(parsed.Data, &report); err != nil {
		var ref struct {
			ID string `json:"id"`
		}
		_ = json.Unmarshal(parsed.Data, &ref)
		return &types.IncidentReport{ID: ref.ID}
	}
	return &report
}

func decodeResponse(resp *http.Response) (response, error) {
	var parsed response

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return parsed, transportError(err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return parsed, nil
	}

	// Error pages from proxies are not JSON; the status code still decides.
	if err := json.Unmarshal(data, &parsed); err != nil && resp.StatusCode < 300 {
		return parsed, fmt.Errorf("decode response: %w", err)
	}
	return parsed, nil
}

func statusError(op string, status int, message string) error {
	err := fmt.Errorf("server returned status %d", status)
	if message != "" {
		err = fmt.Errorf("server returned status %d: %s", status, message)
	}
	return &types.IngestionError{Op: op, Err: err}
}

func transportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &types.TimeoutError{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &types.TimeoutError{Err: err}
	}
	return &types.NetworkError{Err: err}
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func encodeDraft(draft types.ReportDraft) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fields := []struct{ name, value string }{
		{"hazardType", string(draft.HazardType)},
		{"severity", string(draft.Severity)},
		{"description", draft.Description},
		{"locationDescription", draft.LocationDescription},
		{"latitude", draft.Latitude},
		{"longitude", draft.Longitude},
		{"timeOfObservation", draft.TimeOfObservation},
	}
	for _, f := range fields {
		if err := mw.WriteField(f.name, f.value); err != nil {
			return nil, "", err
		}
	}

	deviceInfo, err := json.Marshal(draft.DeviceInfo)
	if err != nil {
		return nil, "", err
	}
	if err := mw.WriteField("deviceInfo", string(deviceInfo)); err != nil {
		return nil, "", err
	}

	if draft.Media != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="media"; filename="%s"`, quoteEscaper.Replace(draft.Media.Filename)))
		h.Set("Content-Type", draft.Media.ContentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(draft.Media.Data); err != nil {
			return nil, "", err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", err
	}

	return &buf, mw.FormDataContentType(), nil
}
