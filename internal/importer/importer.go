// Package importer reads decks of cards, checklist items and interview
// questions from JSON, TOML and XLSX files.
package importer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/abhisek/rehearse/internal/deck"
	"github.com/abhisek/rehearse/internal/readiness"
)

var (
	// ErrUnsupportedFormat is returned for file extensions without a reader.
	ErrUnsupportedFormat = errors.New("importer: unsupported format")

	// ErrInvalidDeck is returned when a document fails structural validation.
	ErrInvalidDeck = errors.New("importer: invalid deck")
)

// Section names used in row errors.
const (
	SectionCards     = "cards"
	SectionChecklist = "checklist"
	SectionQuestions = "questions"
)

// Deck is the importable content of one file.
type Deck struct {
	Cards     []deck.Card               `json:"cards" toml:"cards"`
	Checklist []readiness.ChecklistItem `json:"checklist" toml:"checklist"`
	Questions []readiness.Question      `json:"questions" toml:"questions"`
}

// Len returns the number of entries in the deck.
func (d Deck) Len() int {
	return len(d.Cards) + len(d.Checklist) + len(d.Questions)
}

// RowError describes one rejected entry. Row is 1-based within its section
// (or the spreadsheet row for XLSX files).
type RowError struct {
	Section string
	Row     int
	Err     error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s row %d: %v", e.Section, e.Row, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// Result holds the accepted entries and the rejected rows.
type Result struct {
	Deck   Deck
	Errors []*RowError
}

// LoadFile reads a deck, choosing the reader by file extension.
func LoadFile(path string) (*Result, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		return ReadJSON(f)
	case ".toml":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		return ReadTOML(f)
	case ".xlsx":
		return ReadXLSXFile(path, DefaultSheetConfig())
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// normalize validates every entry, fills derived ids and splits the rows
// into accepted entries and row errors.
func normalize(raw Deck, rowOf func(section string, i int) int) *Result {
	res := &Result{}
	reject := func(section string, i int, err error) {
		res.Errors = append(res.Errors, &RowError{Section: section, Row: rowOf(section, i), Err: err})
	}

	for i, c := range raw.Cards {
		if strings.TrimSpace(c.ID) == "" && strings.TrimSpace(c.Front) != "" {
			c.ID = derivedID(SectionCards, c.ApplicationID, c.Front)
		}
		c.ApplicationID = strings.TrimSpace(c.ApplicationID)
		if err := c.Validate(); err != nil {
			reject(SectionCards, i, err)
			continue
		}
		res.Deck.Cards = append(res.Deck.Cards, c)
	}

	for i, it := range raw.Checklist {
		it.ApplicationID = strings.TrimSpace(it.ApplicationID)
		it.Label = strings.TrimSpace(it.Label)
		switch {
		case it.ApplicationID == "":
			reject(SectionChecklist, i, errors.New("missing application_id"))
			continue
		case it.Label == "":
			reject(SectionChecklist, i, errors.New("missing label"))
			continue
		}
		if strings.TrimSpace(it.ID) == "" {
			it.ID = derivedID(SectionChecklist, it.ApplicationID, it.Label)
		}
		res.Deck.Checklist = append(res.Deck.Checklist, it)
	}

	for i, q := range raw.Questions {
		q.ApplicationID = strings.TrimSpace(q.ApplicationID)
		q.Text = strings.TrimSpace(q.Text)
		switch {
		case q.ApplicationID == "":
			reject(SectionQuestions, i, errors.New("missing application_id"))
			continue
		case q.Text == "":
			reject(SectionQuestions, i, errors.New("missing text"))
			continue
		case q.PracticeCount < 0:
			reject(SectionQuestions, i, fmt.Errorf("negative practice_count %d", q.PracticeCount))
			continue
		}
		l, err := readiness.ParseLikelihood(string(q.Likelihood))
		if err != nil {
			reject(SectionQuestions, i, err)
			continue
		}
		q.Likelihood = l
		if strings.TrimSpace(q.ID) == "" {
			q.ID = derivedID(SectionQuestions, q.ApplicationID, q.Text)
		}
		res.Deck.Questions = append(res.Deck.Questions, q)
	}
	return res
}

// derivedID returns a stable id so re-importing a file without explicit ids
// updates the same rows.
func derivedID(section, applicationID, text string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(section+"\x00"+applicationID+"\x00"+text)).String()
}

func indexRow(_ string, i int) int { return i + 1 }
