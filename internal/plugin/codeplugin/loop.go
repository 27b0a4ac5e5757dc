// Package codeplugin is the reference implementation of an opaque
// "code" stage plugin: an agentic tool-call loop over the Anthropic
// API, budget- and iteration-capped, operating only inside the stage's
// own storage.Backend directory.
package codeplugin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/argus-sh/argus/internal/plugin/codeplugin/tools"
)

const maxTokensPerResponse = 8192

// Config configures a single Loop run.
type Config struct {
	Timeout       time.Duration
	Model         anthropic.Model
	BudgetUSD     float64 // 0 = unlimited
	MaxIterations int
	Verbose       bool
}

// Result is the outcome of a Loop.Run call.
type Result struct {
	Success        bool
	Iterations     int
	FinalMessage   string
	ToolCalls      int
	Duration       time.Duration
	CostUSD        float64
	BudgetExceeded bool
}

// Loop orchestrates the agentic code-editing process for one
// dispatch of the code stage.
type Loop struct {
	client        anthropic.Client
	registry      *tools.Registry
	config        Config
	verboseWriter io.Writer
}

// New constructs a Loop.
func New(client anthropic.Client, registry *tools.Registry, config Config, verboseWriter io.Writer) *Loop {
	if !config.Verbose {
		verboseWriter = nil
	}
	return &Loop{client: client, registry: registry, config: config, verboseWriter: verboseWriter}
}

// Run drives the tool-call loop to completion, to a budget/iteration
// ceiling, or to the context's deadline, whichever comes first.
func (l *Loop) Run(ctx context.Context, systemPrompt, userPrompt string) (*Result, error) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, l.config.Timeout)
	defer cancel()

	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
	}

	result := &Result{}
	modelName := string(l.config.Model)
	var usage TokenUsage

	for iteration := 0; iteration < l.config.MaxIterations; iteration++ {
		result.Iterations = iteration + 1

		response, err := l.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     l.config.Model,
			MaxTokens: maxTokensPerResponse,
			System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
			Messages:  messages,
			Tools:     l.registry.ToAnthropicTools(),
		})
		if err != nil {
			result.Duration = time.Since(start)
			result.CostUSD = CalculateCostWithCache(modelName, usage)
			return result, fmt.Errorf("code plugin: API call failed: %w", err)
		}

		usage.InputTokens += response.Usage.InputTokens
		usage.OutputTokens += response.Usage.OutputTokens
		usage.CacheCreationInputTokens += response.Usage.CacheCreationInputTokens
		usage.CacheReadInputTokens += response.Usage.CacheReadInputTokens
		result.CostUSD = CalculateCostWithCache(modelName, usage)

		if l.config.BudgetUSD > 0 && result.CostUSD > l.config.BudgetUSD {
			result.BudgetExceeded = true
			result.Duration = time.Since(start)
			return result, nil
		}

		if response.StopReason == anthropic.StopReasonEndTurn {
			result.FinalMessage = extractTextContent(response)
			result.Success = true
			result.Duration = time.Since(start)
			return result, nil
		}

		var toolResults []anthropic.ContentBlockParamUnion
		hasToolUse := false

		for i := range response.Content {
			block := response.Content[i]
			if toolUse, ok := block.AsAny().(anthropic.ToolUseBlock); ok {
				hasToolUse = true
				result.ToolCalls++
				l.logToolCall(toolUse.Name, toolUse.JSON.Input.Raw())

				toolResult := l.registry.Dispatch(ctx, toolUse.Name, json.RawMessage(toolUse.JSON.Input.Raw()))
				toolResults = append(toolResults, anthropic.NewToolResultBlock(toolUse.ID, toolResult.Content, toolResult.IsError))
			}
		}

		if !hasToolUse {
			result.FinalMessage = extractTextContent(response)
			result.Success = true
			result.Duration = time.Since(start)
			return result, nil
		}

		messages = append(messages, response.ToParam(), anthropic.NewUserMessage(toolResults...))
	}

	result.Duration = time.Since(start)
	return result, fmt.Errorf("code plugin: max iterations (%d) exceeded", l.config.MaxIterations)
}

func extractTextContent(response *anthropic.Message) string {
	for i := range response.Content {
		if text, ok := response.Content[i].AsAny().(anthropic.TextBlock); ok {
			return text.Text
		}
	}
	return ""
}

func (l *Loop) logToolCall(name, inputRaw string) {
	if l.verboseWriter == nil {
		return
	}
	fmt.Fprintf(l.verboseWriter, "  -> %s: %s\n", name, inputRaw)
}
