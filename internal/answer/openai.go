package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
)

// DefaultChatModel is the chat model used for answer generation unless
// overridden by configuration.
const DefaultChatModel = openai.ChatModelGPT4oMini

// OpenAIGenerator is the production Generator backed by the OpenAI chat
// completions API.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

// NewOpenAIGenerator creates a generator using the given client. An empty
// model selects DefaultChatModel.
func NewOpenAIGenerator(client *openai.Client, model string) *OpenAIGenerator {
	if model == "" {
		model = DefaultChatModel
	}
	return &OpenAIGenerator{client: client, model: model}
}

// Generate renders the prompt as a chat conversation and returns the
// model's answer text.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt Prompt) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(prompt.History)*2+2)
	messages = append(messages, openai.SystemMessage(systemContent(prompt)))
	for _, turn := range prompt.History {
		messages = append(messages, openai.UserMessage(turn.Question))
		messages = append(messages, openai.AssistantMessage(turn.Answer))
	}
	messages = append(messages, openai.UserMessage(prompt.Question))

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    g.model,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: model returned no output", ErrGeneration)
	}

	return resp.Choices[0].Message.Content, nil
}

// systemContent combines the grounding instruction with the context block.
func systemContent(prompt Prompt) string {
	var b strings.Builder
	b.WriteString(prompt.Instruction)
	b.WriteString("\n\nContext from documents:\n")
	b.WriteString(prompt.Context)
	return b.String()
}
