package ledger

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

var exportHeader = []interface{}{"Date", "Kind", "Category", "Description", "Reference", "Income", "Expense", "Balance"}

// ExportCashBook writes book as an xlsx workbook.
func ExportCashBook(book CashBook, title string, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	sheet := "Cash Book"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return errors.Wrap(err, "naming sheet")
	}

	period := fmt.Sprintf("%s to %s", orDash(book.From.String()), orDash(book.To.String()))
	rows := [][]interface{}{
		{title},
		{"Period", period},
		{"Opening balance", "", "", "", "", "", "", money(book.OpeningBalance)},
		{},
		exportHeader,
	}
	for _, l := range book.Lines {
		var income, expense interface{}
		if l.Kind == KindExpense {
			expense = money(l.Amount)
		} else {
			income = money(l.Amount)
		}
		ref := l.RefType
		if l.RefID != "" {
			ref += " " + l.RefID
		}
		rows = append(rows, []interface{}{
			l.EntryDate.String(), l.Kind, l.Category, l.Description, ref, income, expense, money(l.Balance),
		})
	}
	rows = append(rows,
		[]interface{}{},
		[]interface{}{"Totals", "", "", "", "", money(book.TotalIncome), money(book.TotalExpense), ""},
		[]interface{}{"Closing balance", "", "", "", "", "", "", money(book.ClosingBalance)},
	)

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return errors.Wrapf(err, "writing row %d", i+1)
		}
	}
	if err := f.SetColWidth(sheet, "A", "A", 14); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "D", "D", 40); err != nil {
		return err
	}
	return errors.Wrap(f.Write(w), "writing workbook")
}

func money(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
