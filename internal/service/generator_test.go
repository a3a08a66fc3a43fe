package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studysync/internal/domain"
	"studysync/internal/logger"
)

func newTestGenerator(gen *fakeGen) *Generator {
	return NewGenerator(gen, GeneratorOptions{Model: "chat-model", Persona: "You are StudySync AI.", Facts: "RCPIT is in Shirpur.\n"}, logger.Nop())
}

func TestBuildPrompt(t *testing.T) {
	got := newTestGenerator(&fakeGen{}).BuildPrompt("Who founded RCPIT?", "ctx one")
	want := "You are StudySync AI.\n\nPERMANENT TRAINING:\nRCPIT is in Shirpur.\n\nCONTEXT:\n---\nctx one\n---\n\nUSER QUESTION:\nWho founded RCPIT?"
	assert.Equal(t, want, got)
}

func TestAnswer(t *testing.T) {
	ctx := context.Background()

	t.Run("ok", func(t *testing.T) {
		gen := &fakeGen{reply: "  Shirpur.  "}
		got := newTestGenerator(gen).Answer(ctx, "where?", "ctx")
		assert.Equal(t, "Shirpur.", got.Reply)
		assert.True(t, got.Outcome.IsOK())
		require.Len(t, gen.prompts, 1)
		assert.Nil(t, gen.prompts[0].Image)
		assert.Equal(t, []string{"chat-model"}, gen.models)
	})

	t.Run("error", func(t *testing.T) {
		got := newTestGenerator(&fakeGen{err: errors.New("quota exceeded")}).Answer(ctx, "where?", "ctx")
		assert.Equal(t, DegradedReply, got.Reply)
		assert.Equal(t, domain.StatusDegraded, got.Outcome.Status)
		assert.ErrorIs(t, got.Outcome.Err, domain.ErrGenerationFailed)
	})

	t.Run("empty completion", func(t *testing.T) {
		got := newTestGenerator(&fakeGen{reply: " \n"}).Answer(ctx, "where?", "ctx")
		assert.Equal(t, DegradedReply, got.Reply)
		assert.Equal(t, domain.StatusDegraded, got.Outcome.Status)
	})
}
