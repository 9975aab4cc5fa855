// Package anthropic adapts the Anthropic Messages API to core.Capability.
// Each invocation is a single-shot message: the task is rendered as a system
// block and the step content as the user message.
package anthropic

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/SlowSpeedChase/selene-sub000/core"
)

// Options configure the Anthropic capability adapter (model id, temperature,
// max tokens, API key). Extend via functional options to preserve stability.
type Options struct {
	// Model is the message model used when the router passes an empty or
	// unrecognized model identifier.
	Model anthropic.Model

	// Temperature controls sampling randomness.
	Temperature float64

	// MaxTokens bounds the response length.
	MaxTokens int64

	// APIKey overrides ambient credentials when non-empty.
	APIKey string

	// Instructions maps task names to system instructions. Tasks without an
	// entry get a generic instruction naming the task.
	Instructions map[string]string
}

// Capability wraps the Anthropic Messages API behind core.Capability.
type Capability struct {
	client *anthropic.Client
	opts   Options
}

var _ core.Capability = (*Capability)(nil)

// New creates an Anthropic capability using the official client.
func New(optFns ...func(o *Options)) *Capability {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Capability{client: &client, opts: opts}
}

// NewFromClient creates an Anthropic capability from an existing client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Capability {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Capability{client: client, opts: opts}
}

func defaultOptions() Options {
	return Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
}

// Invoke implements core.Capability with a non-streaming message.
func (c *Capability) Invoke(ctx context.Context, task, content, model string, params map[string]any) (string, error) {
	modelID := c.opts.Model
	if model != "" {
		modelID = anthropic.Model(model)
	}

	temperature := c.opts.Temperature
	if t, ok := params["temperature"].(float64); ok {
		temperature = t
	}
	maxTokens := c.opts.MaxTokens
	if n, ok := params["max_tokens"].(int); ok {
		maxTokens = int64(n)
	}

	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       modelID,
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(temperature),
		System:      []anthropic.TextBlockParam{{Text: c.instruction(task)}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(content)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic api error: %w", err)
	}

	var out string
	for _, block := range resp.Content {
		if block.Type == "text" {
			out += block.AsText().Text
		}
	}
	if out == "" {
		return "", fmt.Errorf("no text content returned")
	}
	return out, nil
}

// instruction returns the system instruction configured for task, or a
// generic one naming the task.
func (c *Capability) instruction(task string) string {
	if inst, ok := c.opts.Instructions[task]; ok {
		return inst
	}
	return fmt.Sprintf("You are a note-processing assistant. Perform the %q task on the user's content and reply with the result only.", task)
}
