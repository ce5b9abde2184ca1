// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jblav/mactl/pkg/jbl"
)

var catalogCmd = &cobra.Command{
	Use:       "catalog [commands|inputs|surround|models|ir|ids]",
	Short:     "Print the protocol catalogs with model availability",
	Long:      `Print the command catalog, input sources, surround modes, models, IR keys or raw command ids.`,
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"commands", "inputs", "surround", "models", "ir", "ids"},
	RunE:      runCatalog,
}

func init() {
	rootCmd.AddCommand(catalogCmd)
}

func runCatalog(cmd *cobra.Command, args []string) error {
	which := "commands"
	if len(args) > 0 {
		which = args[0]
	}
	return printCatalog(os.Stdout, which)
}

func printCatalog(out io.Writer, which string) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	defer w.Flush()

	switch which {
	case "commands":
		fmt.Fprintln(w, "OPERATION\tCMD\tARG\tMODELS\tDESCRIPTION")
		for _, op := range jbl.Operations() {
			fmt.Fprintf(w, "%s\t0x%02X\t%s\t%s\t%s\n", op.Name, uint8(op.Command), argName(op.Arg), op.Models, op.Help)
		}

	case "inputs":
		fmt.Fprintln(w, "ID\tINPUT\tMODELS")
		for _, e := range jbl.InputSources() {
			fmt.Fprintf(w, "0x%02X\t%s\t%s\n", e.Value, e.Name, e.Models)
		}

	case "surround":
		fmt.Fprintln(w, "ID\tMODE\tMODELS")
		for _, e := range jbl.SurroundModes() {
			fmt.Fprintf(w, "0x%02X\t%s\t%s\n", e.Value, e.Name, e.Models)
		}

	case "models":
		fmt.Fprintln(w, "ID\tMODEL")
		for _, m := range jbl.Models() {
			fmt.Fprintf(w, "0x%02X\t%s\n", uint8(m), m)
		}

	case "ir":
		fmt.Fprintln(w, "KEY\tCODE\tGROUP\tMODELS\tALIASES")
		for _, k := range jbl.IRKeys() {
			aliases := "-"
			if len(k.Aliases) > 0 {
				aliases = fmt.Sprint(k.Aliases)
			}
			fmt.Fprintf(w, "%s\t0x%06X\t%s\t%s\t%s\n", k.Name, uint32(k.Code), k.Group, k.Models, aliases)
		}

	case "ids":
		fmt.Fprintln(w, "ID\tCOMMAND")
		for _, id := range jbl.CommandIDs() {
			fmt.Fprintf(w, "0x%02X\t%s\n", uint8(id), id)
		}

	default:
		return fmt.Errorf("unknown catalog %q", which)
	}
	return nil
}

func argName(k jbl.ArgKind) string {
	switch k {
	case jbl.ArgNumber:
		return "number"
	case jbl.ArgInput:
		return "input"
	case jbl.ArgSurround:
		return "surround"
	case jbl.ArgVersion:
		return "version"
	case jbl.ArgIRCode:
		return "ir-key"
	}
	return "-"
}
