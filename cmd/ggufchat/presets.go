package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ggufchat/internal/preset"
	"ggufchat/pkg/types"
)

func newPersonasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "personas",
		Short: "List the personas available for roleplay",
		RunE: func(cmd *cobra.Command, args []string) error {
			printPersonas(cmd.OutOrStdout())
			return nil
		},
	}
}

// Presets outside a running chat live in saved sessions, so export and
// import work on a named session.
func newPresetsCmd(o *rootOptions) *cobra.Command {
	var session string
	cmd := &cobra.Command{Use: "presets", Short: "List, export and import response presets"}
	cmd.PersistentFlags().StringVarP(&session, "session", "s", "", "Saved session holding the user presets")

	list := &cobra.Command{
		Use:   "list",
		Short: "List built-in presets and those of a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.app()
			if err != nil {
				return err
			}
			if session != "" {
				if _, err := a.restoreSession(session); err != nil {
					return err
				}
			}
			printPresets(cmd.OutOrStdout(), a.st.Presets(), preset.Match(a.st.Params(), a.st.Presets()))
			return nil
		},
	}

	var output string
	export := &cobra.Command{
		Use:   "export",
		Short: "Write a session's user presets as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			if session == "" {
				return fmt.Errorf("--session is required")
			}
			a, err := o.app()
			if err != nil {
				return err
			}
			if _, err := a.restoreSession(session); err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return preset.Export(w, a.st.Presets())
		},
	}
	export.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")

	imp := &cobra.Command{
		Use:   "import <file>",
		Short: "Merge presets from a JSON file into a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if session == "" {
				return fmt.Errorf("--session is required")
			}
			a, err := o.app()
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			imported, err := preset.Import(f)
			if err != nil {
				return err
			}
			rec, err := a.restoreSession(session)
			if err != nil {
				return err
			}
			added := a.st.MergePresets(imported)
			snap := a.st.Snapshot()
			snap.ModelPath, snap.ModelParams = rec.ModelPath, rec.ModelParams
			if _, err := a.store.Save(snap, session); err != nil {
				return err
			}
			color.Green("Imported %d presets (%d new)", len(imported), added)
			return nil
		},
	}

	cmd.AddCommand(list, export, imp)
	return cmd
}

func printPresets(out io.Writer, user map[string]types.Preset, active string) {
	all := preset.All(user)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, color.CyanString("KEY\tNAME\tTEMP\tTOP_P\tTOP_K\tMAX\tDESCRIPTION"))
	for _, k := range preset.Keys(user) {
		p := all[k]
		mark := " "
		if k == active {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s%s\t%s\t%.2f\t%.2f\t%d\t%d\t%s\n", mark, k, p.Name,
			p.Parameters.Temperature, p.Parameters.TopP, p.Parameters.TopK, p.Parameters.MaxTokens, p.Description)
	}
	tw.Flush()
}
