package importer

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/xuri/excelize/v2"

	"github.com/abhisek/rehearse/internal/deck"
	"github.com/abhisek/rehearse/internal/readiness"
)

// SheetConfig names the worksheets read from a workbook. Each sheet starts
// with a header row; a missing sheet is skipped.
//
//	Cards:     id | application_id | kind | front | back
//	Checklist: id | application_id | label | required | completed
//	Questions: id | application_id | text | likelihood | practice_count
type SheetConfig struct {
	CardsSheet     string
	ChecklistSheet string
	QuestionsSheet string
	StartRow       int // first data row, 1-based
}

// DefaultSheetConfig returns the standard sheet names with one header row.
func DefaultSheetConfig() SheetConfig {
	return SheetConfig{
		CardsSheet:     "Cards",
		ChecklistSheet: "Checklist",
		QuestionsSheet: "Questions",
		StartRow:       2,
	}
}

// ReadXLSXFile reads a workbook from disk.
func ReadXLSXFile(path string, cfg SheetConfig) (*Result, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return readWorkbook(f, cfg)
}

// ReadXLSX reads a workbook from r.
func ReadXLSX(r io.Reader, cfg SheetConfig) (*Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return readWorkbook(f, cfg)
}

func readWorkbook(f *excelize.File, cfg SheetConfig) (*Result, error) {
	if cfg.StartRow < 1 {
		cfg.StartRow = 1
	}
	sheets := f.GetSheetList()

	// Spreadsheet row numbers per section, so errors point at the cell row.
	rowNums := map[string][]int{}
	var raw Deck
	var parseErrs []*RowError

	read := func(sheet, section string, each func(cells []string) error) error {
		if sheet == "" || !lo.Contains(sheets, sheet) {
			return nil
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		for i, row := range rows {
			if i < cfg.StartRow-1 || blank(row) {
				continue
			}
			if err := each(row); err != nil {
				parseErrs = append(parseErrs, &RowError{Section: section, Row: i + 1, Err: err})
				continue
			}
			rowNums[section] = append(rowNums[section], i+1)
		}
		return nil
	}

	if err := read(cfg.CardsSheet, SectionCards, func(c []string) error {
		raw.Cards = append(raw.Cards, deck.Card{
			ID:            cell(c, 0),
			ApplicationID: cell(c, 1),
			Kind:          cell(c, 2),
			Front:         cell(c, 3),
			Back:          cell(c, 4),
		})
		return nil
	}); err != nil {
		return nil, err
	}

	if err := read(cfg.ChecklistSheet, SectionChecklist, func(c []string) error {
		required, err := parseBool(cell(c, 3))
		if err != nil {
			return fmt.Errorf("required: %w", err)
		}
		completed, err := parseBool(cell(c, 4))
		if err != nil {
			return fmt.Errorf("completed: %w", err)
		}
		raw.Checklist = append(raw.Checklist, readiness.ChecklistItem{
			ID:            cell(c, 0),
			ApplicationID: cell(c, 1),
			Label:         cell(c, 2),
			Required:      required,
			Completed:     completed,
		})
		return nil
	}); err != nil {
		return nil, err
	}

	if err := read(cfg.QuestionsSheet, SectionQuestions, func(c []string) error {
		count := 0
		if s := cell(c, 4); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil {
				return fmt.Errorf("practice_count: %w", err)
			}
			count = n
		}
		raw.Questions = append(raw.Questions, readiness.Question{
			ID:            cell(c, 0),
			ApplicationID: cell(c, 1),
			Text:          cell(c, 2),
			Likelihood:    readiness.Likelihood(cell(c, 3)),
			PracticeCount: count,
		})
		return nil
	}); err != nil {
		return nil, err
	}

	res := normalize(raw, func(section string, i int) int { return rowNums[section][i] })
	res.Errors = append(parseErrs, res.Errors...)
	return res, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blank(row []string) bool {
	return lo.EveryBy(row, func(s string) bool { return strings.TrimSpace(s) == "" })
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "no", "n", "false", "0":
		return false, nil
	case "yes", "y", "true", "1", "x":
		return true, nil
	default:
		return false, fmt.Errorf("not a yes/no value: %q", s)
	}
}
