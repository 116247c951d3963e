package ollama

import (
	"context"
	"encoding/base64"

	"github.com/ollama/ollama/api"

	"github.com/strategraph/strategraph/pkg/loader"
)

// GenerateImageDescription sends a vision chat request with a base64
// image and returns the model's textual description.
func (c *GraphOllamaClient) GenerateImageDescription(
	ctx context.Context,
	prompt string,
	image loader.GraphBase64,
) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(image.Base64)
	if err != nil {
		return "", err
	}

	stream := false
	req := &api.ChatRequest{
		Model: c.visionModel,
		Messages: []api.Message{
			{Role: "system", Content: prompt},
			{
				Role:   "user",
				Images: []api.ImageData{raw},
			},
		},
		Stream: &stream,
	}

	var final api.ChatResponse
	if err := c.Client.Chat(ctx, req, func(cr api.ChatResponse) error {
		final.Message.Content += cr.Message.Content
		if cr.Done {
			final.Done = true
			final.Metrics = cr.Metrics
		}
		return nil
	}); err != nil {
		return "", err
	}

	c.recordMetrics(final.Metrics)

	return final.Message.Content, nil
}
