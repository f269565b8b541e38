package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPToolInvoker calls an MCP tool gateway over plain JSON/HTTP, grounded
// a thin baseURL + *http.Client + doRequest shape.
// One POST per tool call: {"tool": name, "args": args} in, ToolResult out.
type HTTPToolInvoker struct {
	baseURL string
	client  *http.Client
}

// NewHTTPToolInvoker builds an invoker against an MCP gateway base URL.
func NewHTTPToolInvoker(baseURL string, timeout time.Duration) *HTTPToolInvoker {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPToolInvoker{baseURL: baseURL, client: &http.Client{Timeout: timeout}}
}

type toolRequest struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args"`
}

type toolResponse struct {
	Success bool           `json:"success"`
	Data    map[string]any `json:"data"`
	Error   string         `json:"error"`
}

// InvokeTool implements ToolInvoker.
func (h *HTTPToolInvoker) InvokeTool(ctx context.Context, toolName string, args map[string]any) (ToolResult, error) {
	payload, err := json.Marshal(toolRequest{Tool: toolName, Args: args})
	if err != nil {
		return ToolResult{}, fmt.Errorf("marshal tool request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, h.baseURL+"/tools/invoke", bytes.NewReader(payload),
	)
	if err != nil {
		return ToolResult{}, fmt.Errorf("build tool request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return ToolResult{}, fmt.Errorf("invoke tool %s: %w", toolName, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ToolResult{}, fmt.Errorf("read tool response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return ToolResult{}, fmt.Errorf("tool %s returned status %d: %s", toolName, resp.StatusCode, body)
	}

	var tr toolResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return ToolResult{}, fmt.Errorf("decode tool response: %w", err)
	}
	return ToolResult{Success: tr.Success, Data: tr.Data, Error: tr.Error}, nil
}

type toolListResponse struct {
	Tools []string `json:"tools"`
}

// ListTools implements ToolInvoker discovery: GET /tools on the gateway.
func (h *HTTPToolInvoker) ListTools(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/tools", nil)
	if err != nil {
		return nil, fmt.Errorf("build tool list request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read tool list response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("tool list returned status %d: %s", resp.StatusCode, body)
	}

	var tl toolListResponse
	if err := json.Unmarshal(body, &tl); err != nil {
		return nil, fmt.Errorf("decode tool list response: %w", err)
	}
	return tl.Tools, nil
}
