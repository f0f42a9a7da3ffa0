package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Sender delivers one payload to the external ledger.
type Sender interface {
	Send(ctx context.Context, p Payload) (Receipt, error)
}

// #region http-sender

// HTTPSender posts payloads as JSON with an optional bearer token.
type HTTPSender struct {
	endpoint string
	token    string
	client   *http.Client
}

// NewHTTPSender creates a sender. A nil client gets a 30s-timeout default.
func NewHTTPSender(endpoint, token string, client *http.Client) *HTTPSender {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPSender{endpoint: endpoint, token: token, client: client}
}

// Send posts the payload. Any transport error or non-2xx status is
// ErrDelivery. A 2xx with an unreadable or empty body is still delivered.
func (s *HTTPSender) Send(ctx context.Context, p Payload) (Receipt, error) {
	body, err := EncodePayload(p)
	if err != nil {
		return Receipt{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: build request: %v", ErrDelivery, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: post: %v", ErrDelivery, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Receipt{}, fmt.Errorf("%w: status %d: %s", ErrDelivery, resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var receipt Receipt
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&receipt); err != nil && err != io.EOF {
		log.Printf("[EXPORT] mission %s delivered, response not decodable: %v", p.MissionID, err)
	}
	if receipt.ReplayID == "" {
		log.Printf("[EXPORT] mission %s delivered without replayId", p.MissionID)
	}
	return receipt, nil
}

// #endregion http-sender
