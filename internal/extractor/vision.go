package extractor

import (
	"context"
	"fmt"

	"studysync/internal/domain"
)

// VisionStrategy performs OCR by sending the image to a vision-capable
// generation model with a fixed extraction prompt.
type VisionStrategy struct {
	gen    domain.GenerationService
	model  string
	prompt string
}

func NewVisionStrategy(gen domain.GenerationService, model, prompt string) *VisionStrategy {
	return &VisionStrategy{gen: gen, model: model, prompt: prompt}
}

func (s *VisionStrategy) Extract(ctx context.Context, data []byte, mimeType string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty image")
	}
	out, err := s.gen.Generate(ctx, s.model, domain.Prompt{
		Text:  s.prompt,
		Image: &domain.Image{Data: data, MimeType: mimeType},
	})
	if err != nil {
		return "", fmt.Errorf("vision ocr: %w", err)
	}
	return out, nil
}
