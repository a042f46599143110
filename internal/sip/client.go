// Package sip places outbound phone calls into a LiveKit room through the
// LiveKit SIP service API.
package sip

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	createParticipantPath = "/twirp/livekit.SIP/CreateSIPParticipant"
	requestTimeout        = 90 * time.Second
	maxBodySize           = 1 << 20 // 1 MB
)

var (
	// ErrUnauthorized indicates the API key or secret was rejected.
	ErrUnauthorized = errors.New("sip: unauthorized (check LiveKit API key and secret)")
	// ErrNotFound indicates the trunk or room does not exist.
	ErrNotFound = errors.New("sip: not found (check SIP trunk id)")
)

// CreateParticipantRequest describes one outbound call.
type CreateParticipantRequest struct {
	SIPTrunkID          string `json:"sip_trunk_id"`
	SIPCallTo           string `json:"sip_call_to"`
	RoomName            string `json:"room_name"`
	ParticipantIdentity string `json:"participant_identity,omitempty"`
	ParticipantName     string `json:"participant_name,omitempty"`
	KrispEnabled        bool   `json:"krisp_enabled,omitempty"`
	WaitUntilAnswered   bool   `json:"wait_until_answered,omitempty"`
}

// Validate reports the first missing required field.
func (r CreateParticipantRequest) Validate() error {
	switch {
	case r.SIPTrunkID == "":
		return errors.New("sip: trunk id is required")
	case r.SIPCallTo == "":
		return errors.New("sip: phone number is required")
	case !strings.HasPrefix(r.SIPCallTo, "+"):
		return fmt.Errorf("sip: phone number %q must be in E.164 format (+<country><number>)", r.SIPCallTo)
	case r.RoomName == "":
		return errors.New("sip: room name is required")
	}
	return nil
}

// ParticipantInfo is the server's view of the created SIP participant.
type ParticipantInfo struct {
	ParticipantID       string `json:"participant_id"`
	ParticipantIdentity string `json:"participant_identity"`
	RoomName            string `json:"room_name"`
	SIPCallID           string `json:"sip_call_id"`
}

// APIError is a non-success Twirp response.
type APIError struct {
	Status int
	Code   string `json:"code"`
	Msg    string `json:"msg"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("sip: unexpected status %d", e.Status)
	}
	return fmt.Sprintf("sip: %s: %s", e.Code, e.Msg)
}

// Client calls the LiveKit SIP service.
type Client struct {
	baseURL   string
	apiKey    string
	apiSecret string
	http      *http.Client
	now       func() time.Time
}

// NewClient creates a client for the LiveKit server at serverURL.
// WebSocket URLs (ws://, wss://) are mapped to their HTTP equivalents.
func NewClient(serverURL, apiKey, apiSecret string) (*Client, error) {
	base, err := httpURL(serverURL)
	if err != nil {
		return nil, err
	}
	if apiKey == "" || apiSecret == "" {
		return nil, errors.New("sip: LIVEKIT_API_KEY and LIVEKIT_API_SECRET must be set")
	}
	return &Client{
		baseURL:   base,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		http:      &http.Client{},
		now:       time.Now,
	}, nil
}

func httpURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("sip: LIVEKIT_URL must be set")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("sip: parsing server url: %w", err)
	}
	switch u.Scheme {
	case "wss":
		u.Scheme = "https"
	case "ws":
		u.Scheme = "http"
	case "http", "https":
	default:
		return "", fmt.Errorf("sip: unsupported server url scheme %q", u.Scheme)
	}
	return strings.TrimRight(u.String(), "/"), nil
}

// CreateSIPParticipant dials req.SIPCallTo and joins the callee to the room.
// With WaitUntilAnswered it returns once the call is picked up.
func (c *Client) CreateSIPParticipant(ctx context.Context, req CreateParticipantRequest) (*ParticipantInfo, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	token, err := AccessToken(c.apiKey, c.apiSecret, req.RoomName, DefaultTokenTTL, c.now())
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("sip: encoding request: %w", err)
	}

	body, err := c.post(ctx, createParticipantPath, token, payload)
	if err != nil {
		return nil, err
	}

	var info ParticipantInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("sip: parsing participant: %w", err)
	}
	return &info, nil
}

func (c *Client) post(ctx context.Context, path, token string, payload []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("sip: creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "github.com/AmarBackInField/proPAL-AI/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sip: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("sip: reading response: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}

	apiErr := &APIError{Status: resp.StatusCode}
	_ = json.Unmarshal(body, apiErr)

	switch {
	case resp.StatusCode == http.StatusUnauthorized,
		apiErr.Code == "unauthenticated", apiErr.Code == "permission_denied":
		return nil, fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Msg)
	case resp.StatusCode == http.StatusNotFound, apiErr.Code == "not_found":
		return nil, fmt.Errorf("%w: %s", ErrNotFound, apiErr.Msg)
	}
	return nil, apiErr
}
