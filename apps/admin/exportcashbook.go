package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/ledger"
)

func parseOptionalDate(name, value string) (core.Date, error) {
	if value == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(value)
	if err != nil {
		return core.Date{}, fmt.Errorf("-%s: expected YYYY-MM-DD (got '%s')", name, value)
	}
	return d, nil
}

func (cli *commandLine) exportCashBook(from, to, out string) error {
	fromDate, err := parseOptionalDate("from", from)
	if err != nil {
		return err
	}
	toDate, err := parseOptionalDate("to", to)
	if err != nil {
		return err
	}

	book, err := cli.ledgerSvc.CashBook(context.Background(), fromDate, toDate)
	if err != nil {
		return err
	}

	f, err := os.Create(out)
	if err != nil {
		return errors.Wrap(err, "creating output file")
	}
	if err := ledger.ExportCashBook(book, cli.conf.Academy.Name+" Cash Book", f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "closing output file")
	}
	_, _ = fmt.Fprintf(cli.out, "%d lines written to %s, closing balance %s\n",
		len(book.Lines), out, core.FormatMoney(book.ClosingBalance, cli.conf.Academy.Currency))
	return nil
}
