package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	appErrors "github.com/slugzin/leadflow-backend/internal/errors"
)

// HTTPClient is the production gateway client.
type HTTPClient struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *HTTPClient) do(ctx context.Context, op, method, path string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.APIKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return appErrors.NewGatewayUnreachable(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return appErrors.NewGatewayUnreachable(op, fmt.Errorf("gateway returned %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s: gateway rejected request with %d", op, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%s: decoding gateway response: %w", op, err)
		}
	}
	return nil
}

func (c *HTTPClient) IssuePairingCode(ctx context.Context, technicalName string) (PairingCode, error) {
	var body struct {
		Code   string `json:"code"`
		Base64 string `json:"base64"`
	}
	err := c.do(ctx, "issue pairing code", http.MethodGet, "/instance/connect/"+url.PathEscape(technicalName), nil, &body)
	if err != nil {
		return PairingCode{}, err
	}

	code := body.Base64
	if code == "" {
		code = body.Code
	}
	return PairingCode{Code: code, IssuedAt: time.Now()}, nil
}

func (c *HTTPClient) ConnectionState(ctx context.Context, technicalName string) (StateReport, error) {
	var body struct {
		Instance struct {
			State         string `json:"state"`
			ProfileName   string `json:"profileName"`
			ProfilePicURL string `json:"profilePictureUrl"`
			Owner         string `json:"owner"`
		} `json:"instance"`
	}
	err := c.do(ctx, "query connection state", http.MethodGet, "/instance/connectionState/"+url.PathEscape(technicalName), nil, &body)
	if err != nil {
		return StateReport{}, err
	}
	return StateReport{
		Status:        body.Instance.State,
		ProfileName:   body.Instance.ProfileName,
		ProfilePicURL: body.Instance.ProfilePicURL,
		OwnerPhone:    body.Instance.Owner,
	}, nil
}

func (c *HTTPClient) SendText(ctx context.Context, technicalName, phone, text, clientID string) error {
	payload := map[string]interface{}{
		"number": phone,
		"text":   text,
		"options": map[string]interface{}{
			"externalId": clientID,
		},
	}
	return c.do(ctx, "send text", http.MethodPost, "/message/sendText/"+url.PathEscape(technicalName), payload, nil)
}

func (c *HTTPClient) MessageOutcomes(ctx context.Context, technicalName string, since time.Time) ([]MessageOutcome, error) {
	var body struct {
		Outcomes []struct {
			ExternalID string `json:"externalId"`
			Status     string `json:"status"`
			Error      string `json:"error"`
			Responded  bool   `json:"responded"`
		} `json:"outcomes"`
	}
	path := fmt.Sprintf("/message/outcomes/%s?since=%d", url.PathEscape(technicalName), since.Unix())
	if err := c.do(ctx, "query message outcomes", http.MethodGet, path, nil, &body); err != nil {
		return nil, err
	}

	outcomes := make([]MessageOutcome, 0, len(body.Outcomes))
	for _, o := range body.Outcomes {
		outcomes = append(outcomes, MessageOutcome{
			ClientID:  o.ExternalID,
			Status:    o.Status,
			Error:     o.Error,
			Responded: o.Responded,
		})
	}
	return outcomes, nil
}

func (c *HTTPClient) Logout(ctx context.Context, technicalName string) error {
	return c.do(ctx, "logout instance", http.MethodDelete, "/instance/logout/"+url.PathEscape(technicalName), nil, nil)
}

func (c *HTTPClient) DeleteInstance(ctx context.Context, technicalName string) error {
	return c.do(ctx, "delete instance", http.MethodDelete, "/instance/delete/"+url.PathEscape(technicalName), nil, nil)
}

var _ Client = (*HTTPClient)(nil)
