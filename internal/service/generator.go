package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"studysync/internal/domain"
	"studysync/internal/logger"
	"studysync/internal/observability"
)

// DegradedReply is returned when the generation backend cannot answer.
const DegradedReply = "I'm experiencing technical difficulties with my AI capabilities right now. However, based on general RCPIT information, I can help with basic queries about exams, notices, and schedules. Please try rephrasing your question or check back later."

type Generation struct {
	Reply   string
	Outcome domain.Outcome
}

type GeneratorOptions struct {
	Model   string
	Persona string
	// Facts is the permanent institutional knowledge included in every prompt.
	Facts   string
	Timeout time.Duration
}

// Generator builds grounded prompts and asks the generation backend for a reply.
type Generator struct {
	gen  domain.GenerationService
	opts GeneratorOptions
	log  *logger.Logger
}

func NewGenerator(gen domain.GenerationService, opts GeneratorOptions, log *logger.Logger) *Generator {
	if log == nil {
		log = logger.Nop()
	}
	return &Generator{gen: gen, opts: opts, log: log.With("service", "Generator")}
}

func (g *Generator) BuildPrompt(question, retrieved string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(g.opts.Persona))
	b.WriteString("\n\nPERMANENT TRAINING:\n")
	b.WriteString(strings.TrimSpace(g.opts.Facts))
	b.WriteString("\n\nCONTEXT:\n---\n")
	b.WriteString(retrieved)
	b.WriteString("\n---\n\nUSER QUESTION:\n")
	b.WriteString(question)
	return b.String()
}

// Answer makes a single generation call. Errors, timeouts and empty
// completions all produce DegradedReply.
func (g *Generator) Answer(ctx context.Context, question, retrieved string) Generation {
	ctx, span := observability.Tracer().Start(ctx, "assistant.generate")
	defer span.End()
	ctx, cancel := withTimeout(ctx, g.opts.Timeout)
	defer cancel()

	reply, err := g.gen.Generate(ctx, g.opts.Model, domain.Prompt{Text: g.BuildPrompt(question, retrieved)})
	if err == nil && strings.TrimSpace(reply) == "" {
		err = errors.New("empty completion")
	}
	if err != nil {
		err = fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
		span.RecordError(err)
		g.log.Warn("generation degraded", "model", g.opts.Model, "error", err)
		return Generation{Reply: DegradedReply, Outcome: domain.Degraded("generation unavailable", err)}
	}
	return Generation{Reply: strings.TrimSpace(reply), Outcome: domain.OK()}
}
