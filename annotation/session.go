// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package annotation

import (
	"sync"
	"time"

	"github.com/timecoding/portal/models"
)

// Saver persists a committed classification and returns its generated id.
type Saver interface {
	SaveClassification(c models.Classification) (string, error)
}

// SaverFunc adapts a function to the Saver interface.
type SaverFunc func(c models.Classification) (string, error)

func (f SaverFunc) SaveClassification(c models.Classification) (string, error) {
	return f(c)
}

// Session is one coder's stateful walk through their assigned batch.
//
// The item list is a full snapshot that can be replaced at any time by a
// store update, including mid-draft. The draft is keyed to the position
// index, not to an item id, so a reordered snapshot can reassign an
// in-progress draft to a different text. That is the intended behavior.
type Session struct {
	mu       sync.Mutex
	userID   string
	batchID  string
	items    []models.TextItem
	position int
	draft    models.Draft
	prior    int
}

// NewSession creates an empty session for a user. With no items loaded the
// session reports a waiting state, which is not an error.
func NewSession(userID, batchID string) *Session {
	return &Session{userID: userID, batchID: batchID}
}

// BatchID returns the batch this session is walking.
func (s *Session) BatchID() string {
	return s.batchID
}

// ReplaceItems installs a full snapshot of the batch. Always a replacement,
// never a diff. The position is clamped into the new bounds; the draft is
// left alone.
func (s *Session) ReplaceItems(items []models.TextItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = items
	if s.position >= len(items) {
		s.position = len(items) - 1
	}
	if s.position < 0 {
		s.position = 0
	}
}

// SetPrior records how many classifications the user has already submitted.
// Display only; it never blocks re-submission.
func (s *Session) SetPrior(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prior = n
}

// SelectCategory sets the draft category. Ids outside the fixed set are
// rejected and the draft is unchanged. No store side effect.
func (s *Session) SelectCategory(id int) bool {
	if !models.ValidCategory(id) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.Category = id
	return true
}

// ToggleFlag flips the draft flag and returns the new state. Notes are kept
// in the draft when the flag is turned off; they only reach storage if the
// flag is set at commit time.
func (s *Session) ToggleFlag() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.Flagged = !s.draft.Flagged
	return s.draft.Flagged
}

// SetFlagNotes replaces the draft notes.
func (s *Session) SetFlagNotes(notes string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.FlagNotes = notes
}

// Advance moves forward one item. A no-op at the last item. The draft is
// reset only when the position actually moves.
func (s *Session) Advance() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advanceLocked()
	return s.position
}

// Retreat moves back one item. A no-op at position zero.
func (s *Session) Retreat() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.position > 0 {
		s.position--
		s.draft = models.Draft{}
	}
	return s.position
}

func (s *Session) advanceLocked() {
	if s.position < len(s.items)-1 {
		s.position++
		s.draft = models.Draft{}
	}
}

// Commit persists the current draft as a classification and advances.
//
// With no category selected, or no item at the current position, Commit is
// a no-op: committed is false and no write happens. On a save error the
// error is returned, the position does not move and the draft survives, so
// the coder can retry. On success the position advances (clamped) and the
// draft resets.
func (s *Session) Commit(saver Saver, now time.Time) (c models.Classification, committed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.draft.Category == 0 || s.position >= len(s.items) || len(s.items) == 0 {
		return models.Classification{}, false, nil
	}

	c = models.Classification{
		TextID:    s.items[s.position].ID,
		UserID:    s.userID,
		Category:  s.draft.Category,
		Timestamp: now,
		Flagged:   s.draft.Flagged,
	}
	if s.draft.Flagged {
		notes := s.draft.FlagNotes
		c.FlagNotes = &notes
	}

	id, err := saver.SaveClassification(c)
	if err != nil {
		return models.Classification{}, false, err
	}
	c.ID = id

	s.prior++
	s.advanceLocked()
	// At the last item the position stays put; the draft still resets so
	// the item reads as freshly unclassified.
	s.draft = models.Draft{}

	return c, true, nil
}

// HandleKey drives the session from a keyboard shortcut. Digit keys 1-4
// select a category, arrows navigate, "f" toggles the flag and "Enter"
// commits (only effective once a category is selected). Unknown keys are
// ignored. This is a convenience layer over the same operations and carries
// no state of its own.
func (s *Session) HandleKey(key string, saver Saver, now time.Time) (models.Classification, bool, error) {
	switch key {
	case "1", "2", "3", "4":
		s.SelectCategory(int(key[0] - '0'))
	case "ArrowLeft":
		s.Retreat()
	case "ArrowRight":
		s.Advance()
	case "f":
		s.ToggleFlag()
	case "Enter":
		return s.Commit(saver, now)
	}
	return models.Classification{}, false, nil
}

// State returns a point-in-time view of the session for display.
func (s *Session) State() models.AnnotationState {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := models.AnnotationState{
		Waiting:          len(s.items) == 0,
		Position:         s.position,
		Total:            len(s.items),
		Draft:            s.draft,
		PriorSubmissions: s.prior,
	}
	if s.position < len(s.items) {
		item := s.items[s.position]
		state.Item = &item
	}
	return state
}
