package student

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
)

// import sheet columns, in order
var importColumns = []string{
	"Name", "Nickname", "Grade", "School", "Program",
	"Guardian Name", "Guardian Phone", "Guardian Email", "Address",
}

type ImportRowError struct {
	Row   int    `json:"row"` // 1-based sheet row
	Error string `json:"error"`
}

type ImportResult struct {
	Created []Student        `json:"created"`
	Skipped []ImportRowError `json:"skipped"`
}

// Import creates active students from the first sheet of an xlsx workbook.
// The header row is skipped. Rows that cannot be created are reported in ImportResult.Skipped.
func (svc *Service) Import(ctx context.Context, r io.Reader, validate *validator.Validate) (ImportResult, error) {
	var res ImportResult

	f, err := excelize.OpenReader(r)
	if err != nil {
		return res, core.NewValidationError(errors.Wrap(err, "invalid xlsx file"))
	}
	defer func() {
		if err := f.Close(); err != nil {
			svc.logger.Warn(fmt.Sprintf("student.Import: closing workbook: %v", err))
		}
	}()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return res, core.NewValidationError(errors.New("the workbook does not contain any sheet"))
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return res, errors.Wrapf(err, "reading rows of %s", sheet)
	}

	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		cell := func(col int) string {
			if col < len(row) {
				return strings.TrimSpace(row[col])
			}
			return ""
		}
		if isBlankRow(row) {
			continue
		}

		ns := NewStudent{
			Name:          cell(0),
			Nickname:      cell(1),
			Grade:         cell(2),
			School:        cell(3),
			Program:       cell(4),
			GuardianName:  cell(5),
			GuardianPhone: cell(6),
			GuardianEmail: cell(7),
			Address:       cell(8),
			Status:        StatusActive,
			Source:        "import",
		}
		if ns.Name == "" {
			res.Skipped = append(res.Skipped, ImportRowError{Row: i + 1, Error: "name: this field is required"})
			continue
		}
		if err := ns.Validate(validate); err != nil {
			res.Skipped = append(res.Skipped, ImportRowError{Row: i + 1, Error: describeErr(err)})
			continue
		}

		s, err := svc.Create(ctx, ns)
		if err != nil {
			if core.IsValidation(err) {
				res.Skipped = append(res.Skipped, ImportRowError{Row: i + 1, Error: err.Error()})
				continue
			}
			return res, errors.Wrapf(err, "creating student from row %d", i+1)
		}
		res.Created = append(res.Created, s)
	}
	return res, nil
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// describeErr flattens validator errors into "field: tag" pairs.
func describeErr(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		parts := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			parts = append(parts, fe.Field()+": "+fe.Tag())
		}
		return strings.Join(parts, ", ")
	}
	return err.Error()
}

// WriteImportTemplate writes an empty workbook holding the import header row.
func WriteImportTemplate(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	sheet := f.GetSheetName(0)
	for i, col := range importColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, col); err != nil {
			return err
		}
	}
	return f.Write(w)
}
