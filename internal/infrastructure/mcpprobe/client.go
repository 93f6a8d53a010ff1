// Package mcpprobe dials an MCP endpoint directly over JSON-RPC to check
// reachability. The upstream provider remains the one that actually calls
// tools; this probe is a best-effort diagnostic used during server
// validation.
package mcpprobe

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client issues JSON-RPC calls against arbitrary MCP endpoints.
type Client struct {
	httpClient *resty.Client
}

// NewClient constructs the probe client.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: resty.New().
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json"),
	}
}

// ListTools fetches the endpoint's tool names via JSON-RPC tools/list.
func (c *Client) ListTools(ctx context.Context, serverURL string) ([]string, error) {
	payload := map[string]interface{}{
		"jsonrpc": "2.0",
		"method":  "tools/list",
		"params":  map[string]interface{}{},
		"id":      1,
	}

	var rpcResp rpcResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&rpcResp).
		// Some MCP endpoints answer JSON-RPC without a JSON content
		// type; unmarshal the body regardless.
		ForceContentType("application/json").
		Post(serverURL)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("mcp list tools error: %s", resp.String())
	}
	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}

	var result struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(rpcResp.Result, &result); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(result.Tools))
	for _, t := range result.Tools {
		names = append(names, t.Name)
	}
	return names, nil
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
	ID      interface{}     `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (r *rpcError) Error() string {
	return fmt.Sprintf("mcp error (%d): %s", r.Code, r.Message)
}
