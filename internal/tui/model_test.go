package tui

import (
	"context"
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studysync/internal/domain"
	"studysync/internal/service"
)

type stubAsker struct {
	reply string
	asked []string
}

func (s *stubAsker) Ask(_ context.Context, q string) (service.Answer, error) {
	s.asked = append(s.asked, q)
	return service.Answer{Reply: s.reply, Status: domain.OK()}, nil
}

func TestModel_AskFlow(t *testing.T) {
	a := &stubAsker{reply: "Exams start on Monday."}
	var m tea.Model = New(a, 0)
	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	assert.Contains(t, m.View(), "No questions yet.")

	for _, r := range "when are exams" {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, "Thinking...", m.(Model).status)

	msg := cmd()
	m, _ = m.Update(msg)
	got := m.(Model)
	assert.Equal(t, []string{"when are exams"}, a.asked)
	require.Len(t, got.turns, 1)
	assert.Equal(t, "Exams start on Monday.", got.turns[0].answer.Reply)
	assert.Empty(t, got.pending)
	assert.Contains(t, got.status, "Answered")
}

func TestModel_EnterOnEmptyInputDoesNothing(t *testing.T) {
	var m tea.Model = New(&stubAsker{}, 0)
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Empty(t, m.(Model).pending)
}

func TestStatusLine(t *testing.T) {
	assert.Equal(t, "Please type a question.", statusLine(service.Answer{}, fmt.Errorf("%w", domain.ErrInvalidInput)))
	assert.Contains(t, statusLine(service.Answer{Status: domain.Degraded("no matches", nil)}, nil), "degraded(no matches)")
}

func TestHighlightBestSentence(t *testing.T) {
	assert.Equal(t, "One sentence only.", highlightBestSentence("One sentence only.", "sentence"))
	out := highlightBestSentence("The canteen opens at noon. Exams begin Monday.", "when do exams begin")
	assert.Contains(t, out, "The canteen opens at noon.")
	assert.Contains(t, out, "Exams begin Monday.")
}
