package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/rubiojr/unstream/pipeline"
)

func (e *env) opsAction(ctx context.Context, cmd *cli.Command) error {
	tw := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "GROUP\tNAME\tARGS\tCATEGORY\tLOWERED AS")
	for _, op := range pipeline.Catalog() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", op.Group, op.Name, arities(op.Arity), op.Category, op.Template)
	}
	return tw.Flush()
}

func arities(as []int) string {
	parts := make([]string, len(as))
	for i, a := range as {
		parts[i] = strconv.Itoa(a)
	}
	return strings.Join(parts, ",")
}
