package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
)

func (cli *commandLine) importStudents(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening workbook")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer f.Close()

	res, err := cli.studentSvc.Import(context.Background(), f, cli.validate)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "%d students created, %d rows skipped\n", len(res.Created), len(res.Skipped))
	for _, skipped := range res.Skipped {
		_, _ = fmt.Fprintf(cli.out, "  row %d: %s\n", skipped.Row, skipped.Error)
	}
	return nil
}
