// Package chatstore provides a client for the chat storage HTTP API.
package chatstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client is a chat storage API client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a new client. baseURL must point at a running server,
// e.g. "http://localhost:8080".
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Message is one stored conversation message.
type Message struct {
	MsgID          string         `json:"msgId"`
	ConversationID string         `json:"conversationId"`
	Seq            int64          `json:"seq"`
	Role           string         `json:"role"`
	Body           any            `json:"body"`
	Meta           map[string]any `json:"meta,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// WriteMessageRequest is the append request body.
type WriteMessageRequest struct {
	Role      string         `json:"role"`
	Body      any            `json:"body"`
	Meta      map[string]any `json:"meta,omitempty"`
	ClientKey string         `json:"clientKey,omitempty"`
}

// WriteMessageResponse acknowledges a durable write. Status is "created"
// for a fresh write or "already_exists" for an idempotent replay.
type WriteMessageResponse struct {
	MsgID  string `json:"msgId"`
	Seq    int64  `json:"seq"`
	Status string `json:"status"`
}

// ReadMessagesResponse is one page of a conversation window.
type ReadMessagesResponse struct {
	Messages   []Message `json:"messages"`
	NextCursor *int64    `json:"nextCursor,omitempty"`
}

// WriteMessage appends a message to a conversation. Pass a clientKey to
// make the call safely retryable.
func (c *Client) WriteMessage(conversationID string, req WriteMessageRequest) (*WriteMessageResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	path := "/conversations/" + url.PathEscape(conversationID) + "/messages"
	respBody, err := c.doRequest("POST", path, body)
	if err != nil {
		return nil, err
	}

	var resp WriteMessageResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ReadMessages fetches a window of a conversation. cursor is the exclusive
// seq boundary (0 for the start), limit 0 uses the server default, order
// is "asc" or "desc" ("" for asc).
func (c *Client) ReadMessages(conversationID string, cursor int64, limit int, order string) (*ReadMessagesResponse, error) {
	q := url.Values{}
	if cursor != 0 {
		q.Set("cursor", strconv.FormatInt(cursor, 10))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if order != "" {
		q.Set("order", order)
	}

	path := "/conversations/" + url.PathEscape(conversationID) + "/messages"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	respBody, err := c.doRequest("GET", path, nil)
	if err != nil {
		return nil, err
	}

	var resp ReadMessagesResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// doRequest performs an HTTP request.
func (c *Client) doRequest(method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.Unmarshal(respBody, &errResp)
		return nil, fmt.Errorf("chatstore error %d: %s", resp.StatusCode, errResp.Error)
	}

	return respBody, nil
}
