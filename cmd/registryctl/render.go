package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/nulzo/model-registry/internal/cli"
	"github.com/nulzo/model-registry/internal/registry"
	"github.com/nulzo/model-registry/internal/workflow"
)

func renderRows(out io.Writer, rows []workflow.Row) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(out, cli.Dim("no registrations"))
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPROVIDER\tMODEL\tSTATUS\tREGISTERED")
	for _, r := range rows {
		registered := "-"
		if !r.Model.RegisteredAt.IsZero() {
			registered = r.Model.RegisteredAt.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Model.ID, r.Model.Name, r.Model.Provider, r.Label, cli.Status(string(r.Model.Status)), registered)
	}
	return w.Flush()
}

func renderCatalog(out io.Writer, c registry.Catalog) error {
	providers := make([]string, 0, len(c))
	for p := range c {
		providers = append(providers, string(p))
	}
	sort.Strings(providers)

	for _, p := range providers {
		entries := c[registry.Provider(p)]
		if _, err := fmt.Fprintf(out, "%s %s\n", cli.Arrow(), cli.Bold(p)); err != nil {
			return err
		}
		if registry.Provider(p).IsCustom() {
			fmt.Fprintf(out, "    %s\n", cli.Dim("any endpoint, supplied at registration"))
			continue
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Label())
		}
		fmt.Fprintf(out, "    %s\n", strings.Join(names, ", "))
	}
	return nil
}
