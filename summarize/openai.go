package summarize

import (
	"context"
	"fmt"

	"ewintr.nl/tubedigest/model"
	"github.com/sashabaranov/go-openai"
)

// Placeholder is mailed instead of a summary when generation fails or no
// transcript could be obtained.
const Placeholder = `<p style="color: #999;">No transcript was available for this video, so no summary could be generated.</p>`

const summarizePrompt = `You are a professional financial content summarizer. Summarize the video transcript the user gives you in an objective, clear and readable way.

Output HTML with appropriate tags (<h3>, <p>, <ul>, <li>), never Markdown. Extract the core points, the market context and the chain of reasoning, and describe complex concepts in plain, non-technical language.

Use this structure:

<h3>Video summary</h3>
Core points:
Reasoning:
Data and facts cited:
Market context:
Risks and uncertainties:
Nature of the creator's personal opinions (optional):
`

type Summarizer interface {
	Summarize(ctx context.Context, title string, transcript model.TranscriptResult) (string, error)
}

type OpenAI struct {
	client *openai.Client
}

func NewOpenAI(client *openai.Client) *OpenAI {
	return &OpenAI{client: client}
}

func (o *OpenAI) Summarize(ctx context.Context, title string, transcript model.TranscriptResult) (string, error) {
	resp, err := o.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: openai.GPT4,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: summarizePrompt,
				},
				{
					Role: openai.ChatMessageRoleUser,
					Content: fmt.Sprintf("Video title: %s\nTranscript language: %s\nTranscript:\n\n%s",
						title, transcript.Language, transcript.Text),
				},
			},
		})
	if err != nil {
		return "", fmt.Errorf("failed to fetch summary: %w", err)
	}

	return resp.Choices[len(resp.Choices)-1].Message.Content, nil
}
