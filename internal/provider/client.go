// internal/provider/client.go
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"consignment-api/internal/model"
)

// SignerPhone is the phone triple sent on consult creation.
type SignerPhone struct {
	CountryCode string `json:"countryCode"`
	AreaCode    string `json:"areaCode"`
	PhoneNumber string `json:"phoneNumber"`
}

// Options configures the BFF client.
type Options struct {
	BaseURL            string
	Provider           string
	HTTPTimeout        time.Duration
	DefaultSignerPhone SignerPhone
}

// Client talks to the V8 BFF. Every call returns the HTTP status alongside
// the decoded body; a non-nil error means the request never produced a
// status at all (transport failure).
type Client struct {
	baseURL            string
	provider           string
	defaultSignerPhone SignerPhone
	http               *http.Client
}

func NewClient(opts Options) *Client {
	return &Client{
		baseURL:            opts.BaseURL,
		provider:           opts.Provider,
		defaultSignerPhone: opts.DefaultSignerPhone,
		http:               &http.Client{Timeout: opts.HTTPTimeout},
	}
}

// ConsultResponse is the create/authorize reply. Only ID is read.
type ConsultResponse struct {
	StatusCode int
	ID         string
}

// ResultEntry is one element of the consult result array. Fields are
// pointers so "absent" and "empty" stay distinguishable; the pipeline falls
// back to the second entry for any field missing on the first.
type ResultEntry struct {
	DocumentNumber       *string    `json:"documentNumber"`
	AvailableMarginValue *FlexValue `json:"availableMarginValue"`
	Status               *string    `json:"status"`
	Description          *string    `json:"description"`
}

// FlexValue accepts a JSON number or string and keeps its textual form.
type FlexValue string

func (f *FlexValue) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexValue(s)
		return nil
	}
	*f = FlexValue(bytes.TrimSpace(data))
	return nil
}

func (f FlexValue) String() string { return string(f) }

// ResultResponse is the fetch-result reply.
type ResultResponse struct {
	StatusCode int
	Data       []ResultEntry
}

type consultRequest struct {
	BorrowerDocumentNumber string      `json:"borrowerDocumentNumber"`
	Gender                 string      `json:"gender"`
	BirthDate              string      `json:"birthDate"`
	SignerName             string      `json:"signerName"`
	SignerEmail            string      `json:"signerEmail"`
	SignerPhone            SignerPhone `json:"signerPhone"`
	Provider               string      `json:"provider"`
}

// CreateConsult opens a consultation for the client.
func (c *Client) CreateConsult(ctx context.Context, accessToken string, client model.Client) (*ConsultResponse, error) {
	body := consultRequest{
		BorrowerDocumentNumber: client.CPF,
		Gender:                 client.Sexo,
		BirthDate:              formatBirthDate(client.Nascimento),
		SignerName:             client.Nome,
		SignerEmail:            client.Email,
		SignerPhone:            ParseSignerPhone(client.Telefone, c.defaultSignerPhone),
		Provider:               c.provider,
	}

	status, raw, err := c.do(ctx, http.MethodPost, "/private-consignment/consult", accessToken, body, nil)
	if err != nil {
		return nil, err
	}

	resp := &ConsultResponse{StatusCode: status}
	var decoded struct {
		ID string `json:"id"`
	}
	if json.Unmarshal(raw, &decoded) == nil {
		resp.ID = decoded.ID
	}
	return resp, nil
}

// AuthorizeConsult authorizes a previously created consultation.
func (c *Client) AuthorizeConsult(ctx context.Context, accessToken, consultID string) (*ConsultResponse, error) {
	path := fmt.Sprintf("/private-consignment/consult/%s/authorize", url.PathEscape(consultID))
	status, _, err := c.do(ctx, http.MethodPost, path, accessToken, struct{}{}, nil)
	if err != nil {
		return nil, err
	}
	return &ConsultResponse{StatusCode: status}, nil
}

// GetConsultResult fetches the first page of results for the CPF over the
// current UTC calendar day.
func (c *Client) GetConsultResult(ctx context.Context, accessToken, cpf string) (*ResultResponse, error) {
	start, end := utcDayRange(time.Now())
	params := url.Values{}
	params.Set("startDate", start)
	params.Set("endDate", end)
	params.Set("limit", strconv.Itoa(50))
	params.Set("page", strconv.Itoa(1))
	params.Set("search", cpf)
	params.Set("provider", c.provider)

	status, raw, err := c.do(ctx, http.MethodGet, "/private-consignment/consult", accessToken, nil, params)
	if err != nil {
		return nil, err
	}

	resp := &ResultResponse{StatusCode: status}
	var decoded struct {
		Data []ResultEntry `json:"data"`
	}
	if json.Unmarshal(raw, &decoded) == nil {
		resp.Data = decoded.Data
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, method, path, accessToken string, body any, params url.Values) (int, []byte, error) {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response body: %w", err)
	}
	return res.StatusCode, raw, nil
}

// formatBirthDate renders YYYY-MM-DD, or empty when the date is unknown.
func formatBirthDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

// utcDayRange returns the current UTC day as [00:00:00, 23:59:59] in
// RFC 3339 without sub-second precision.
func utcDayRange(now time.Time) (string, string) {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24*time.Hour - time.Second)
	const layout = "2006-01-02T15:04:05Z"
	return start.Format(layout), end.Format(layout)
}

// ParseSignerPhone interprets a free-form phone using a best-effort
// heuristic, falling back entirely to the configured default when the
// digits cannot be split into area code + number.
func ParseSignerPhone(raw string, fallback SignerPhone) SignerPhone {
	digits := onlyDigits(raw)
	if digits == "" {
		return fallback
	}

	countryCode := fallback.CountryCode
	if countryCode == "" {
		countryCode = "55"
	}

	if len(digits) >= 12 && digits[:2] == "55" {
		countryCode = "55"
		digits = digits[2:]
	}
	if len(digits) > 11 {
		digits = digits[len(digits)-11:]
	}

	switch len(digits) {
	case 11, 10:
		return SignerPhone{
			CountryCode: countryCode,
			AreaCode:    digits[:2],
			PhoneNumber: digits[2:],
		}
	case 9, 8:
		return SignerPhone{
			CountryCode: countryCode,
			AreaCode:    fallback.AreaCode,
			PhoneNumber: digits,
		}
	}
	return fallback
}

func onlyDigits(s string) string {
	var b []byte
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b = append(b, s[i])
		}
	}
	return string(b)
}
