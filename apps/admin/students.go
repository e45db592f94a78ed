package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

func (cli *commandLine) importStudents(path, branchID string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening workbook")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer f.Close()

	res, err := cli.svcs.Importer.Import(context.Background(), cliActor, branchID, f)
	if err != nil {
		return err
	}

	fmt.Fprintf(cli.out, "created: %d, rejected: %d\n", len(res.Created), len(res.Errors))
	for _, rowErr := range res.Errors {
		if len(rowErr.Fields) == 0 {
			fmt.Fprintf(cli.out, "  row %d: %s\n", rowErr.Row, rowErr.Error)
			continue
		}
		flds := make([]string, 0, len(rowErr.Fields))
		for fld, msg := range rowErr.Fields {
			flds = append(flds, fld+": "+msg)
		}
		sort.Strings(flds)
		fmt.Fprintf(cli.out, "  row %d: %s\n", rowErr.Row, strings.Join(flds, "; "))
	}
	return nil
}

func (cli *commandLine) orphans() error {
	orphans, err := cli.svcs.Reports.Orphans(context.Background())
	if err != nil {
		return err
	}
	if len(orphans) == 0 {
		fmt.Fprintln(cli.out, "no orphans")
		return nil
	}
	for _, o := range orphans {
		fmt.Fprintf(cli.out, "%s: %d without branch, %d with an unknown branch\n", o.Collection, o.MissingBranch, o.UnknownBranch)
	}
	return nil
}
