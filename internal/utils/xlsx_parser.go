package utils

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"course-eligibility-engine/internal/models"
)

// ErrNoSheets is returned for a workbook without worksheets.
var ErrNoSheets = errors.New("workbook has no sheets")

// RequirementSheetName is preferred over the first sheet when present.
const RequirementSheetName = "requirements"

// ParseXLSX parses the requirement sheet of an Excel workbook.
// The sheet named "requirements" is used when present, else the first sheet.
func (p *RequirementParser) ParseXLSX(r io.Reader) ([]*models.RequirementRecord, []error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, []error{fmt.Errorf("failed to open workbook: %w", err)}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, []error{ErrNoSheets}
	}

	sheet := sheets[0]
	for _, name := range sheets {
		if strings.EqualFold(strings.TrimSpace(name), RequirementSheetName) {
			sheet = name
			break
		}
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, []error{fmt.Errorf("failed to read sheet %s: %w", sheet, err)}
	}

	return p.parseRows(rows)
}
