package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ggufchat/internal/sessionstore"
	"ggufchat/pkg/types"
)

func newSessionsCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "sessions", Short: "Manage saved sessions"}

	list := &cobra.Command{
		Use:   "list",
		Short: "List saved sessions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.app()
			if err != nil {
				return err
			}
			list, err := a.store.List()
			if err != nil {
				return err
			}
			printSessions(cmd.OutOrStdout(), list)
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show <name>",
		Short: "Print a saved conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.app()
			if err != nil {
				return err
			}
			rec, err := a.store.Load(a.store.Path(args[0]))
			if err != nil {
				return err
			}
			printRecord(cmd.OutOrStdout(), rec)
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a saved session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.app()
			if err != nil {
				return err
			}
			if err := a.store.Delete(a.store.Path(args[0])); err != nil {
				return err
			}
			color.Green("Deleted %s", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, show, del)
	return cmd
}

func printSessions(out io.Writer, list []sessionstore.Summary) {
	if len(list) == 0 {
		fmt.Fprintln(out, "No saved sessions.")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, color.CyanString("NAME\tSAVED\tMESSAGES\tPERSONA\tPREVIEW"))
	for _, s := range list {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", s.Name, s.FormattedTime, s.MessageCount, s.PersonaID, s.Preview)
	}
	tw.Flush()
}

func printRecord(out io.Writer, rec *sessionstore.Record) {
	fmt.Fprintf(out, "%s %s  %s %s\n", dim("Saved"), rec.FormattedTime, dim("model"), rec.ModelPath)
	for _, m := range rec.Messages {
		label := userLabel("You:")
		if m.Role == types.RoleAssistant {
			label = assistantLabel("Assistant:")
		}
		fmt.Fprintf(out, "%s %s\n\n", label, m.Content)
	}
}
