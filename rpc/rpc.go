// Package rpc is the RemoteFetcher: synchronous reads of account
// basics, storage, code and block hashes from a JSON-RPC EVM endpoint,
// pinned to a single block height captured at construction time so
// every fetch a Fetcher performs sees a consistent world view.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Client is a bare JSON-RPC 2.0 transport. It knows nothing about the
// Ethereum method set; Fetcher builds the EVM-specific calls on top of
// it.
type Client struct {
	Endpoint string
	HTTP     *http.Client
}

// NewClient returns a Client posting requests to endpoint with
// http.DefaultClient.
func NewClient(endpoint string) *Client {
	return &Client{Endpoint: endpoint, HTTP: http.DefaultClient}
}

type request struct {
	ID      int           `json:"id"`
	JSONRpc string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type response struct {
	ID      int             `json:"id"`
	JSONRpc string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Err     *errResponse    `json:"error,omitempty"`
}

type errResponse struct {
	Code    int64  `json:"code"`
	Message string `json:"message"`
}

func (e *errResponse) Error() string {
	return fmt.Sprintf(`{"code": %d, "message": %q}`, e.Code, e.Message)
}

// call performs one JSON-RPC request and unmarshals the result into out.
func (c *Client) call(ctx context.Context, method string, params []interface{}, out interface{}) error {
	payload := request{ID: 1, JSONRpc: "2.0", Method: method, Params: params}
	data, err := json.Marshal(&payload)
	if err != nil {
		return fmt.Errorf("rpc: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("rpc: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpClt := c.HTTP
	if httpClt == nil {
		httpClt = http.DefaultClient
	}
	resp, err := httpClt.Do(req)
	if err != nil {
		return fmt.Errorf("rpc: %s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("rpc: read response: %w", err)
	}

	var result response
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("rpc: decode response: %w", err)
	}
	if result.Err != nil {
		return fmt.Errorf("rpc: %s: %w", method, result.Err)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(result.Result, out)
}
