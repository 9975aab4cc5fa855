// Package openai adapts the OpenAI Chat Completions API to core.Capability.
// Each invocation is a single-shot completion: the task is rendered as a
// system instruction and the step content as the user message.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/SlowSpeedChase/selene-sub000/core"
)

// Options configure the OpenAI capability adapter. Fields mirror a subset of
// Chat Completion parameters intentionally kept minimal; extend via
// functional options without breaking callers.
type Options struct {
	// Model is the completion model used when the router passes an empty or
	// unrecognized model identifier.
	Model string

	// Temperature controls sampling randomness.
	Temperature float64

	// MaxCompletionTokens bounds the completion length.
	MaxCompletionTokens int64

	// Instructions maps task names to system instructions. Tasks without an
	// entry get a generic instruction naming the task.
	Instructions map[string]string
}

// Capability wraps the OpenAI Chat Completions API behind core.Capability.
type Capability struct {
	client *openai.Client
	opts   Options
}

var _ core.Capability = (*Capability)(nil)

// New creates an OpenAI capability using the official client with ambient
// credentials.
func New(optFns ...func(o *Options)) *Capability {
	client := openai.NewClient()
	return NewFromClient(&client, optFns...)
}

// NewFromClient creates an OpenAI capability from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Capability {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Capability{client: client, opts: opts}
}

// Invoke implements core.Capability with a non-streaming completion.
func (c *Capability) Invoke(ctx context.Context, task, content, model string, params map[string]any) (string, error) {
	if model == "" {
		model = c.opts.Model
	}

	temperature := c.opts.Temperature
	if t, ok := params["temperature"].(float64); ok {
		temperature = t
	}
	maxTokens := c.opts.MaxCompletionTokens
	if n, ok := params["max_tokens"].(int); ok {
		maxTokens = int64(n)
	}

	completion := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(c.instruction(task)),
			openai.UserMessage(content),
		},
		Model:               model,
		Temperature:         openai.Float(temperature),
		MaxCompletionTokens: openai.Int(maxTokens),
	}

	resp, err := c.client.Chat.Completions.New(ctx, completion)
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// instruction returns the system instruction configured for task, or a
// generic one naming the task.
func (c *Capability) instruction(task string) string {
	if inst, ok := c.opts.Instructions[task]; ok {
		return inst
	}
	return fmt.Sprintf("You are a note-processing assistant. Perform the %q task on the user's content and reply with the result only.", task)
}
