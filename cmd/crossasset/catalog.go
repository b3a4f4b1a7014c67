package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/seenimoa/crossasset/pkg/models"
)

// --- Catalog Command ---

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the macro series and assets that can be compared",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := loadCatalog()
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "KIND\tNAME\tCODE")
		for _, e := range cat.Macro {
			fmt.Fprintf(w, "%s\t%s\t%s\n", models.Macro, e.Name, e.Code)
		}
		for _, e := range cat.Assets {
			fmt.Fprintf(w, "%s\t%s\t%s\n", models.Asset, e.Name, e.Code)
		}
		return w.Flush()
	},
}

var describeCmd = &cobra.Command{
	Use:   "describe [name]",
	Short: "Show FRED metadata for a macro series",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		ref, err := a.runner.Catalog().Resolve(args[0])
		if err != nil {
			return err
		}
		if ref.Kind != models.Macro {
			return fmt.Errorf("%s is an asset; describe only covers FRED series", ref.Name)
		}
		info, err := a.sources.FRED.Describe(cmd.Context(), ref.Code)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s (%s)\n", info.Title, info.Code)
		if info.Units != "" {
			fmt.Fprintf(out, "  Units:      %s\n", info.Units)
		}
		if info.Frequency != "" {
			fmt.Fprintf(out, "  Frequency:  %s\n", info.Frequency)
		}
		if info.Updated != "" {
			fmt.Fprintf(out, "  Updated:    %s\n", info.Updated)
		}
		fmt.Fprintf(out, "  Source:     %s\n", info.URL)
		if info.Description != "" {
			fmt.Fprintf(out, "\n%s\n", info.Description)
		}
		return nil
	},
}

func init() {
	catalogCmd.AddCommand(describeCmd)
}

// --- Stories Command ---

var storiesCmd = &cobra.Command{
	Use:   "stories",
	Short: "List preset views",
	Long:  "List preset views. Apply one with --story on compare, insights and the other analysis commands.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := loadCatalog()
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "STORY\tRANGE\tMODE\tDENOMINATOR\tDESCRIPTION")
		for _, s := range cat.Stories {
			rng := s.Range
			if rng == "custom" {
				rng = fmt.Sprintf("%s..%s", s.Start, s.End)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.Name, rng, orDash(s.Mode), orDash(s.Denominator), s.Description)
		}
		return w.Flush()
	},
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
