package service

import (
	"context"
	"errors"
	"fmt"

	"studysync/internal/domain"
)

const (
	IntentTimetable   = "timetable"
	timetableCategory = "timetable"

	timetableMissingReply = "I'm sorry, it looks like a timetable has not been uploaded by a teacher with the 'timetable' category yet. Please check back later."
)

// TimetableHandler links the most recently uploaded timetable document.
type TimetableHandler struct {
	store domain.MetadataStore
}

func NewTimetableHandler(store domain.MetadataStore) *TimetableHandler {
	return &TimetableHandler{store: store}
}

func (h *TimetableHandler) Handle(ctx context.Context, _ string) (string, error) {
	doc, err := h.store.FindOne(ctx, domain.DocumentFilter{Category: timetableCategory}, domain.NewestFirst)
	if errors.Is(err, domain.ErrNotFound) {
		return timetableMissingReply, nil
	}
	if err != nil {
		return "", fmt.Errorf("latest timetable: %w", err)
	}
	if doc.SourceURL == "" {
		return timetableMissingReply, nil
	}
	return fmt.Sprintf("I found the latest timetable: **%s**.\n\nYou can view or download the file directly using this link:\n[Click here to download %s](%s)",
		doc.Name, doc.Name, doc.SourceURL), nil
}
