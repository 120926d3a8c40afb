// Package openai implements the completion provider against the OpenAI
// chat completions API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/HuyNguyen260398/bob/messages"
	"github.com/HuyNguyen260398/bob/pkg/jsonx"
	"github.com/HuyNguyen260398/bob/provider"
)

type Provider struct {
	client *openai.Client
}

// New creates a provider backed by the OpenAI API. The API key is read
// from OPENAI_API_KEY unless overridden through request options.
func New(options ...option.RequestOption) *Provider {
	return &Provider{client: openai.NewClient(options...)}
}

func (p *Provider) Completion(ctx context.Context, params provider.CompletionParams) (provider.Completion, error) {
	chatParams, err := buildRequest(&params)
	if err != nil {
		return provider.Completion{}, fmt.Errorf("failed to build request: %w", err)
	}

	chat, err := p.client.Chat.Completions.New(ctx, chatParams)
	if err != nil {
		return provider.Completion{}, classify(err)
	}
	return completionFromChat(chat), nil
}

func buildRequest(params *provider.CompletionParams) (openai.ChatCompletionNewParams, error) {
	result := messagesToOpenAI(params.Instructions, params.Messages)

	tools := make([]openai.ChatCompletionToolParam, len(params.Tools))
	for i, def := range params.Tools {
		if def.Func == nil {
			return openai.ChatCompletionNewParams{}, fmt.Errorf("tool %s has nil function", def.Name)
		}

		jv, err := jsonx.ToDynamicJSON(def.Schema)
		if err != nil {
			return openai.ChatCompletionNewParams{}, fmt.Errorf("failed to convert tool schema: %w", err)
		}

		fd := openai.FunctionDefinitionParam{
			Name:       openai.String(def.Name),
			Parameters: openai.F(shared.FunctionParameters(jv)),
		}
		if strings.TrimSpace(def.Description) != "" {
			fd.Description = openai.String(def.Description)
		}

		tools[i] = openai.ChatCompletionToolParam{
			Type:     openai.F(openai.ChatCompletionToolTypeFunction),
			Function: openai.F(fd),
		}
	}

	oaiParams := openai.ChatCompletionNewParams{
		Messages:    openai.F(result),
		Model:       openai.F(params.Model),
		N:           openai.Int(1),
		Temperature: openai.Float(params.Temperature),
	}
	if params.MaxTokens > 0 {
		oaiParams.MaxTokens = openai.Int(params.MaxTokens)
	}
	if len(tools) > 0 {
		oaiParams.Tools = openai.F(tools)
		oaiParams.ParallelToolCalls = openai.Bool(true)
	}

	return oaiParams, nil
}

func messagesToOpenAI(instructions string, history iter.Seq[messages.Message[messages.ModelMessage]]) []openai.ChatCompletionMessageParamUnion {
	result := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(instructions),
	}
	for message := range history {
		switch msg := message.Payload.(type) {
		case messages.UserMessage:
			result = append(result, openai.UserMessage(msg.Content))

		case messages.AssistantMessage:
			am := openai.ChatCompletionAssistantMessageParam{
				Role: openai.F(openai.ChatCompletionAssistantMessageParamRoleAssistant),
			}
			if msg.Content != "" {
				am.Content.Value = append(am.Content.Value, openai.TextPart(msg.Content))
			}
			if msg.Refusal != "" {
				am.Refusal = openai.String(msg.Refusal)
			}
			result = append(result, am)

		case messages.ToolCallMessage:
			tcd := make([]openai.ChatCompletionMessageToolCallParam, len(msg.ToolCalls))
			for i, tc := range msg.ToolCalls {
				tcd[i] = openai.ChatCompletionMessageToolCallParam{
					ID:   openai.String(tc.ID),
					Type: openai.F(openai.ChatCompletionMessageToolCallTypeFunction),
					Function: openai.F(openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      openai.String(tc.Name),
						Arguments: openai.String(tc.Arguments),
					}),
				}
			}
			result = append(result, openai.ChatCompletionMessageParam{
				Role:      openai.F(openai.ChatCompletionMessageParamRoleAssistant),
				ToolCalls: openai.F[any](tcd),
			})

		case messages.ToolResponse:
			result = append(result, openai.ToolMessage(msg.ToolCallID, msg.Content))
		}
	}
	return result
}

func completionFromChat(chat *openai.ChatCompletion) provider.Completion {
	completion := provider.Completion{
		Usage: provider.Usage{
			PromptTokens:     chat.Usage.PromptTokens,
			CompletionTokens: chat.Usage.CompletionTokens,
			TotalTokens:      chat.Usage.TotalTokens,
		},
	}
	if len(chat.Choices) == 0 {
		return completion
	}

	choice := chat.Choices[0].Message
	completion.Content = choice.Content
	completion.Refusal = choice.Refusal
	if len(choice.ToolCalls) > 0 {
		tcd := make([]messages.ToolCallData, len(choice.ToolCalls))
		for i, tc := range choice.ToolCalls {
			tcd[i] = messages.ToolCallData{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			}
		}
		completion.ToolCalls = tcd
	}
	return completion
}

// classify maps API failures onto the retry taxonomy. Rate limits,
// timeouts and server errors are worth retrying; auth and validation
// failures are not.
func classify(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		switch {
		case apierr.StatusCode == 408 || apierr.StatusCode == 429 || apierr.StatusCode >= 500:
			return provider.Transient(apierr.StatusCode, err)
		default:
			return provider.Permanent(apierr.StatusCode, err)
		}
	}
	if provider.IsTransient(err) {
		return provider.Transient(0, err)
	}
	return err
}
