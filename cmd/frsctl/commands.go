package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"frs/profile-service/internal/app"
	"frs/profile-service/internal/importer"
)

type importOptions struct {
	file   string
	match  string
	mode   string
	apply  bool
	images bool
}

func newImportCmd(root *rootOptions) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Preview or apply a profile CSV (dry-run unless --apply)",
		RunE: func(cmd *cobra.Command, args []string) error {
			matchMode, err := importer.ParseMatchMode(opts.match)
			if err != nil {
				return err
			}
			mode, err := importer.ParseImportMode(opts.mode)
			if err != nil {
				return err
			}
			iopts := importer.Options{
				MatchMode:    matchMode,
				Mode:         mode,
				ImportImages: opts.images,
				Actor:        root.actor,
			}

			f, err := os.Open(opts.file)
			if err != nil {
				return err
			}
			defer f.Close()

			return withApp(cmd.Context(), root, func(a *app.App) error {
				out := cmd.OutOrStdout()
				if !opts.apply {
					p, err := a.Importer.Preview(cmd.Context(), f, iopts)
					if err != nil {
						return err
					}
					printRows(out, p.Rows)
					fmt.Fprintf(out, "\n%d rows: %d new, %d update, %d skip (dry run, pass --apply to write)\n",
						p.Summary.Total, p.Summary.New, p.Summary.Update, p.Summary.Skip)
					return nil
				}

				res, err := a.Importer.Process(cmd.Context(), f, iopts)
				if err != nil {
					return err
				}
				for _, line := range res.Log {
					fmt.Fprintln(out, line)
				}
				fmt.Fprintf(out, "\nrun %s: created=%d updated=%d skipped=%d errors=%d\n",
					res.RunID, res.Created, res.Updated, res.Skipped, res.Errors)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&opts.file, "file", "", "CSV file to import (required)")
	cmd.Flags().StringVar(&opts.match, "match", string(importer.MatchEmail), "Match mode: email, nmls or fuzzy")
	cmd.Flags().StringVar(&opts.mode, "mode", string(importer.ModeUpdate), "Import mode: update, update_only or create_only")
	cmd.Flags().BoolVar(&opts.apply, "apply", false, "Write changes (default is a dry-run preview)")
	cmd.Flags().BoolVar(&opts.images, "images", false, "Fetch headshot URLs into blob storage")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func printRows(w io.Writer, rows []importer.Row) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LINE\tNAME\tACTION\tMATCH\tMETHOD")
	for _, r := range rows {
		match, method := "-", "-"
		if r.Match != nil {
			match = fmt.Sprintf("%d %s", r.Match.ProfileID, r.Match.Name)
			method = string(r.Match.Method)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", r.Line, r.Name, r.Action, match, method)
	}
	tw.Flush()
}

func newExportCmd(root *rootOptions) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write active profiles as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), root, func(a *app.App) error {
				w := cmd.OutOrStdout()
				if out != "" && out != "-" {
					f, err := os.Create(out)
					if err != nil {
						return err
					}
					defer f.Close()
					w = f
				}
				n, err := a.Profiles.ExportCSV(cmd.Context(), w)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "exported %d profiles\n", n)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&out, "out", "-", "Output file (- for stdout)")
	return cmd
}

func newMergeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "merge <primary-id> <secondary-id>",
		Short: "Fold the secondary profile into the primary and delete it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			primary, err1 := strconv.ParseInt(args[0], 10, 64)
			secondary, err2 := strconv.ParseInt(args[1], 10, 64)
			if err1 != nil || err2 != nil {
				return fmt.Errorf("%w: profile ids must be integers", errUsage)
			}
			return withApp(cmd.Context(), root, func(a *app.App) error {
				p, err := a.Profiles.Merge(cmd.Context(), primary, secondary, root.actor)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "merged %d into %d (%s)\n", secondary, p.ID, p.Name())
				return nil
			})
		},
	}
}
