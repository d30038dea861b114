package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/artic-browser/pkg/artwork"
	"github.com/google/uuid"
)

// DefaultPageSize is the row count of a new view.
const DefaultPageSize = 12

// DefaultPendingCount is the value the auto-select input starts from.
const DefaultPendingCount = 1

var (
	// ErrInvalidPageChange is returned for a negative offset or a row count below 1.
	ErrInvalidPageChange = errors.New("invalid page change")

	// ErrInvalidPendingCount is returned for a pending count below 1.
	ErrInvalidPendingCount = errors.New("invalid pending count")
)

// Session is the state of one browsing view.
type Session struct {
	ID string `json:"id"`

	// PageIndex is the zero-based page shown.
	PageIndex int `json:"page_index"`

	// PageSize is the number of rows per page.
	PageSize int `json:"page_size"`

	// Total is the collection size reported by the last successful fetch.
	Total int `json:"total"`

	Selection artwork.Selection `json:"selection"`

	// PendingCount is the target the next auto-select run uses when none is given.
	PendingCount int `json:"pending_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates a session on page 0 with an empty selection.
// A pageSize below 1 falls back to DefaultPageSize.
func New(pageSize int) *Session {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	now := time.Now().UTC()
	return &Session{
		ID:           uuid.NewString(),
		PageSize:     pageSize,
		Selection:    artwork.Selection{},
		PendingCount: DefaultPendingCount,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Reset clears the selection, rewinds to the first page and resets the
// pending count. The page size is kept.
func (s *Session) Reset() {
	s.PageIndex = 0
	s.Total = 0
	s.Selection = artwork.Selection{}
	s.PendingCount = DefaultPendingCount
	s.touch()
}

// ApplyPageChange applies a paginator event. first is the offset of the
// first row shown and rows the rows per page.
func (s *Session) ApplyPageChange(first, rows int) error {
	if first < 0 || rows < 1 {
		return fmt.Errorf("%w: first %d, rows %d", ErrInvalidPageChange, first, rows)
	}
	s.PageIndex = first / rows
	s.PageSize = rows
	s.touch()
	return nil
}

// ApplySelectionChange replaces the selection with a copy of sel.
func (s *Session) ApplySelectionChange(sel artwork.Selection) {
	s.Selection = sel.Clone()
	s.touch()
}

// SetPendingCount sets the auto-select target input.
func (s *Session) SetPendingCount(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidPendingCount, n)
	}
	s.PendingCount = n
	s.touch()
	return nil
}

// First returns the offset of the first row on the current page.
func (s *Session) First() int {
	return s.PageIndex * s.PageSize
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	out := *s
	out.Selection = s.Selection.Clone()
	return &out
}

func (s *Session) touch() {
	s.UpdatedAt = time.Now().UTC()
}
