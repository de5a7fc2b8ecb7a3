// Package structured makes a chat model answer through exactly one forced
// tool call and decodes the call arguments into a Go value.
package structured

import (
	"context"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
)

var ErrNoToolCall = errors.New("structured: model did not call the tool")

type PromptBuilder[In any] func(ctx context.Context, input In) ([]*schema.Message, error)

// Chain builds a prompt from In, forces the model to call a tool whose
// parameters are derived from Out, and returns the decoded arguments.
type Chain[In, Out any] struct {
	prompt PromptBuilder[In]
	model  model.ToolCallingChatModel
	tool   *schema.ToolInfo
}

func NewChain[In, Out any](chatModel model.ToolCallingChatModel, prompt PromptBuilder[In], toolName, toolDesc string) (*Chain[In, Out], error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is required")
	}
	if prompt == nil {
		return nil, fmt.Errorf("prompt builder is required")
	}
	info, err := utils.GoStruct2ToolInfo[Out](toolName, toolDesc)
	if err != nil {
		return nil, fmt.Errorf("convert tool info failed: %w", err)
	}
	return &Chain[In, Out]{prompt: prompt, model: chatModel, tool: info}, nil
}

func (c *Chain[In, Out]) Tool() *schema.ToolInfo {
	return c.tool
}

func (c *Chain[In, Out]) Invoke(ctx context.Context, input In) (*Out, error) {
	messages, err := c.prompt(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("build prompt failed: %w", err)
	}
	resp, err := c.model.Generate(ctx, messages,
		model.WithTools([]*schema.ToolInfo{c.tool}),
		model.WithToolChoice(schema.ToolChoiceForced, c.tool.Name),
	)
	if err != nil {
		return nil, fmt.Errorf("call model failed: %w", err)
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: empty response", ErrNoToolCall)
	}
	args, ok := c.arguments(resp.ToolCalls)
	if !ok {
		return nil, fmt.Errorf("%w %s: %s", ErrNoToolCall, c.tool.Name, resp.Content)
	}

	var out Out
	if err := sonic.UnmarshalString(args, &out); err != nil {
		return nil, fmt.Errorf("parse %s arguments failed: %w", c.tool.Name, err)
	}
	return &out, nil
}

// arguments returns the arguments of the call to the chain's tool. Providers
// that omit the function name on forced calls get their first call accepted.
func (c *Chain[In, Out]) arguments(calls []schema.ToolCall) (string, bool) {
	for _, call := range calls {
		if call.Function.Name == c.tool.Name {
			return call.Function.Arguments, true
		}
	}
	if len(calls) > 0 && calls[0].Function.Name == "" {
		return calls[0].Function.Arguments, true
	}
	return "", false
}
