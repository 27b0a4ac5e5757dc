package codeplugin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/argus-sh/argus/internal/plugin/codeplugin/tools"
)

func mockResponse(stopReason string, content []map[string]any, inputTokens, outputTokens int64) map[string]any {
	return map[string]any{
		"id":            "msg_test123",
		"type":          "message",
		"role":          "assistant",
		"content":       content,
		"model":         "claude-sonnet-4-5-20250514",
		"stop_reason":   stopReason,
		"stop_sequence": nil,
		"usage": map[string]any{
			"input_tokens":               inputTokens,
			"output_tokens":              outputTokens,
			"cache_creation_input_tokens": int64(0),
			"cache_read_input_tokens":     int64(0),
		},
	}
}

func textContent(text string) map[string]any {
	return map[string]any{"type": "text", "text": text}
}

func toolUseContent(id, name string, input map[string]any) map[string]any {
	return map[string]any{"type": "tool_use", "id": id, "name": name, "input": input}
}

func mockServer(t *testing.T, responses []map[string]any) *httptest.Server {
	t.Helper()
	var callCount atomic.Int32

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		idx := int(callCount.Add(1)) - 1
		if idx >= len(responses) {
			t.Errorf("unexpected API call #%d (only %d responses configured)", idx+1, len(responses))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(responses[idx])
	}))
}

func mockErrorServer(t *testing.T, statusCode int, errorType, errorMessage string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		json.NewEncoder(w).Encode(map[string]any{
			"type":  "error",
			"error": map[string]any{"type": errorType, "message": errorMessage},
		})
	}))
}

func createTestClient(serverURL string) anthropic.Client {
	return anthropic.NewClient(
		option.WithBaseURL(serverURL),
		option.WithAPIKey("test-api-key"),
		option.WithMaxRetries(0),
	)
}

func emptyRegistry() *tools.Registry {
	return tools.NewRegistry(&tools.Context{Root: "/stage"})
}

type mockTool struct {
	name        string
	executeFunc func(ctx context.Context, input json.RawMessage) (tools.Result, error)
}

func (m *mockTool) Name() string                { return m.name }
func (m *mockTool) Description() string         { return "mock tool" }
func (m *mockTool) InputSchema() map[string]any { return map[string]any{"type": "object"} }
func (m *mockTool) Execute(ctx context.Context, input json.RawMessage) (tools.Result, error) {
	if m.executeFunc != nil {
		return m.executeFunc(ctx, input)
	}
	return tools.SuccessResult("mock result"), nil
}

func baseConfig() Config {
	return Config{
		Timeout:       time.Minute,
		Model:         anthropic.ModelClaudeSonnet4_5,
		BudgetUSD:     10.0,
		MaxIterations: 10,
	}
}

func TestRunSimpleTextResponse(t *testing.T) {
	response := mockResponse("end_turn", []map[string]any{
		textContent("Everything looks good."),
	}, 100, 50)

	server := mockServer(t, []map[string]any{response})
	defer server.Close()

	client := createTestClient(server.URL)
	loop := New(client, emptyRegistry(), baseConfig(), nil)
	result, err := loop.Run(context.Background(), "system prompt", "hello")

	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !result.Success {
		t.Error("expected Success to be true")
	}
	if result.Iterations != 1 {
		t.Errorf("expected 1 iteration, got %d", result.Iterations)
	}
	if result.ToolCalls != 0 {
		t.Errorf("expected 0 tool calls, got %d", result.ToolCalls)
	}
	if !strings.Contains(result.FinalMessage, "looks good") {
		t.Errorf("unexpected final message: %s", result.FinalMessage)
	}
}

func TestRunToolCallAndResponse(t *testing.T) {
	toolCallResponse := mockResponse("tool_use", []map[string]any{
		toolUseContent("toolu_123", "read_file", map[string]any{"path": "test.txt"}),
	}, 100, 50)
	finalResponse := mockResponse("end_turn", []map[string]any{
		textContent("The file contains test data."),
	}, 150, 30)

	server := mockServer(t, []map[string]any{toolCallResponse, finalResponse})
	defer server.Close()

	client := createTestClient(server.URL)
	registry := emptyRegistry()
	registry.Register(&mockTool{name: "read_file"})

	loop := New(client, registry, baseConfig(), nil)
	result, err := loop.Run(context.Background(), "system prompt", "read test.txt")

	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !result.Success {
		t.Error("expected Success to be true")
	}
	if result.Iterations != 2 {
		t.Errorf("expected 2 iterations, got %d", result.Iterations)
	}
	if result.ToolCalls != 1 {
		t.Errorf("expected 1 tool call, got %d", result.ToolCalls)
	}
}

func TestRunBudgetExceeded(t *testing.T) {
	response := mockResponse("tool_use", []map[string]any{
		toolUseContent("toolu_1", "read_file", map[string]any{"path": "test.txt"}),
	}, 100_000, 100_000)

	server := mockServer(t, []map[string]any{response})
	defer server.Close()

	client := createTestClient(server.URL)
	registry := emptyRegistry()
	registry.Register(&mockTool{name: "read_file"})

	config := baseConfig()
	config.BudgetUSD = 0.50

	loop := New(client, registry, config, nil)
	result, err := loop.Run(context.Background(), "system prompt", "test")

	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if result.Success {
		t.Error("expected Success to be false when budget exceeded")
	}
	if !result.BudgetExceeded {
		t.Error("expected BudgetExceeded to be true")
	}
	if result.CostUSD <= 0 {
		t.Error("expected CostUSD to be calculated")
	}
}

func TestRunBudgetUnlimited(t *testing.T) {
	response := mockResponse("end_turn", []map[string]any{
		textContent("Done!"),
	}, 1_000_000, 500_000)

	server := mockServer(t, []map[string]any{response})
	defer server.Close()

	client := createTestClient(server.URL)
	config := baseConfig()
	config.BudgetUSD = 0

	loop := New(client, emptyRegistry(), config, nil)
	result, err := loop.Run(context.Background(), "system prompt", "test")

	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !result.Success {
		t.Error("expected Success to be true with unlimited budget")
	}
	if result.BudgetExceeded {
		t.Error("expected BudgetExceeded to be false with unlimited budget")
	}
}

func TestRunAPIError(t *testing.T) {
	server := mockErrorServer(t, http.StatusInternalServerError, "api_error", "internal server error")
	defer server.Close()

	client := createTestClient(server.URL)
	loop := New(client, emptyRegistry(), baseConfig(), nil)
	result, err := loop.Run(context.Background(), "system prompt", "test")

	if err == nil {
		t.Fatal("expected an error for API failure")
	}
	if !strings.Contains(err.Error(), "API call failed") {
		t.Errorf("expected error to contain 'API call failed', got: %v", err)
	}
	if result.Success {
		t.Error("expected Success to be false on API error")
	}
}

func TestRunMaxIterationsExceeded(t *testing.T) {
	response := mockResponse("tool_use", []map[string]any{
		toolUseContent("toolu_1", "read_file", map[string]any{"path": "test.txt"}),
	}, 10, 10)

	responses := make([]map[string]any, 3)
	for i := range responses {
		responses[i] = response
	}
	server := mockServer(t, responses)
	defer server.Close()

	client := createTestClient(server.URL)
	registry := emptyRegistry()
	registry.Register(&mockTool{name: "read_file"})

	config := baseConfig()
	config.MaxIterations = 3

	loop := New(client, registry, config, nil)
	_, err := loop.Run(context.Background(), "system prompt", "test")

	if err == nil {
		t.Fatal("expected an error when max iterations are exceeded")
	}
	if !strings.Contains(err.Error(), "max iterations") {
		t.Errorf("expected max iterations error, got: %v", err)
	}
}

func TestRunUnknownTool(t *testing.T) {
	toolCallResponse := mockResponse("tool_use", []map[string]any{
		toolUseContent("toolu_1", "nonexistent_tool", map[string]any{}),
	}, 100, 50)
	finalResponse := mockResponse("end_turn", []map[string]any{
		textContent("That tool doesn't exist."),
	}, 150, 30)

	server := mockServer(t, []map[string]any{toolCallResponse, finalResponse})
	defer server.Close()

	client := createTestClient(server.URL)
	loop := New(client, emptyRegistry(), baseConfig(), nil)
	result, err := loop.Run(context.Background(), "system prompt", "use a tool")

	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !result.Success {
		t.Error("expected Success to be true (model recovers from unknown tool)")
	}
	if result.ToolCalls != 1 {
		t.Errorf("expected 1 tool call attempt, got %d", result.ToolCalls)
	}
}

func TestRunContextCancellation(t *testing.T) {
	response := mockResponse("end_turn", []map[string]any{textContent("done")}, 100, 50)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Second)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	client := createTestClient(server.URL)
	loop := New(client, emptyRegistry(), baseConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	_, err := loop.Run(ctx, "system prompt", "test")
	if err == nil {
		t.Fatal("expected an error due to context cancellation")
	}
}
