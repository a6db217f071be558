// Package client provides the HTTP client for the tax-authority billing API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pos_invoicing_backend/internal/invoicing/domain"
	"pos_invoicing_backend/internal/invoicing/ports"
	"pos_invoicing_backend/platform/apperr"
	"pos_invoicing_backend/platform/config"
	"pos_invoicing_backend/platform/logger"
)

const (
	defaultTimeout = 10 * time.Second
	// maxBodyBytes bounds what is read from the API, receipts included.
	maxBodyBytes = 1 << 20
)

// Client is the HTTP client for the billing API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	log        *logger.Logger
}

var _ ports.RemoteInvoicingClient = (*Client)(nil)

// New creates a new billing API client.
func New(cfg config.InvoicingConfig, log *logger.Logger) *Client {
	timeout := cfg.GetInvoicingTimeout()
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.GetInvoicingAPIURL(), "/"),
		apiKey:     cfg.GetInvoicingAPIKey(),
		log:        log,
	}
}

// CreateVoucher submits a sale for electronic invoicing.
func (c *Client) CreateVoucher(ctx context.Context, payload ports.VoucherPayload) (ports.CreatedVoucher, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return ports.CreatedVoucher{}, fmt.Errorf("encode voucher payload: %w", err)
	}

	raw, err := c.do(ctx, "create_voucher", http.MethodPost, c.baseURL+"/vouchers", body)
	if err != nil {
		return ports.CreatedVoucher{}, err
	}

	var resp apiVoucher
	if err := json.Unmarshal(raw, &resp); err != nil {
		return ports.CreatedVoucher{}, apperr.Upstream("decode create voucher response", err)
	}
	return ports.CreatedVoucher{
		RemoteVoucherID: resp.id(),
		State:           resp.state(),
		AccessKey:       resp.accessKey(),
	}, nil
}

// GetVoucherStatus fetches the authority's current view of a voucher. The raw
// response body is returned for archiving.
func (c *Client) GetVoucherStatus(ctx context.Context, remoteVoucherID string) (domain.RemoteStatus, error) {
	reqURL := fmt.Sprintf("%s/vouchers/%s", c.baseURL, url.PathEscape(remoteVoucherID))

	raw, err := c.do(ctx, "get_voucher_status", http.MethodGet, reqURL, nil)
	if err != nil {
		return domain.RemoteStatus{}, err
	}

	var resp apiVoucher
	if err := json.Unmarshal(raw, &resp); err != nil {
		return domain.RemoteStatus{}, apperr.Upstream("decode voucher status response", err)
	}
	return domain.RemoteStatus{
		State:     resp.state(),
		AccessKey: resp.accessKey(),
		Raw:       raw,
	}, nil
}

func (c *Client) do(ctx context.Context, operation, method, reqURL string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.RemoteCall(operation, 0, time.Since(start), err)
		return nil, apperr.Upstream("billing API unreachable", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		c.log.RemoteCall(operation, resp.StatusCode, time.Since(start), err)
		return nil, apperr.Upstream("read billing API response", err)
	}

	callErr := statusError(resp.StatusCode, raw)
	c.log.RemoteCall(operation, resp.StatusCode, time.Since(start), callErr)
	if callErr != nil {
		return nil, callErr
	}
	return raw, nil
}

// statusError classifies non-2xx answers: 4xx are permanent, 5xx transient.
func statusError(status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}

	detail := apiErrorMessage(body)
	cause := fmt.Errorf("status %d: %s", status, detail)
	if status >= 400 && status < 500 && status != http.StatusTooManyRequests && status != http.StatusRequestTimeout {
		return apperr.Wrap(apperr.KindValidation, "billing API rejected the request", cause).
			WithDetails(map[string]any{"status": status, "message": detail}).
			AsPermanent()
	}
	return apperr.Upstream("billing API error", cause)
}

func apiErrorMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Mensaje string `json:"mensaje"`
	}
	if err := json.Unmarshal(body, &e); err == nil {
		for _, m := range []string{e.Message, e.Mensaje, e.Error} {
			if strings.TrimSpace(m) != "" {
				return strings.TrimSpace(m)
			}
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200]
	}
	if text == "" {
		return "empty response"
	}
	return text
}

// apiVoucher is the raw voucher representation. The API has answered with
// both Spanish and English field names across versions.
type apiVoucher struct {
	ID            string `json:"id"`
	ComprobanteID string `json:"comprobanteId"`
	Estado        string `json:"estado"`
	Status        string `json:"status"`
	ClaveAcceso   string `json:"claveAcceso"`
	AccessKey     string `json:"accessKey"`
}

func (a apiVoucher) id() string {
	return firstNonEmpty(a.ComprobanteID, a.ID)
}

func (a apiVoucher) state() string {
	return firstNonEmpty(a.Estado, a.Status)
}

func (a apiVoucher) accessKey() string {
	return firstNonEmpty(a.ClaveAcceso, a.AccessKey)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
