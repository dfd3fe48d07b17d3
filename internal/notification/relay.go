package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Relay delivers one email through the external mail relay
type Relay interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// HTTPRelay posts messages to the relay's internal send endpoint
type HTTPRelay struct {
	baseURL    string
	secret     string
	httpClient *http.Client
}

func NewHTTPRelay(baseURL, secret string) *HTTPRelay {
	return &HTTPRelay{
		baseURL: baseURL,
		secret:  secret,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

type sendRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (r *HTTPRelay) Send(ctx context.Context, recipient, subject, body string) error {
	url := fmt.Sprintf("%s/internal/mail/send", r.baseURL)

	payload, err := json.Marshal(sendRequest{
		To:      recipient,
		Subject: subject,
		Body:    body,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		url,
		bytes.NewReader(payload),
	)
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.secret)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf(
			"mail relay error: status=%d body=%s",
			resp.StatusCode,
			string(b),
		)
	}

	return nil
}
