package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ggufchat/internal/manager"
	"ggufchat/pkg/types"
)

func newModelsCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "models", Short: "List and add model files"}

	list := &cobra.Command{
		Use:   "list",
		Short: "List model files in the models directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.app()
			if err != nil {
				return err
			}
			models, err := a.mgr.ListAvailable()
			if err != nil {
				return err
			}
			printModels(cmd.OutOrStdout(), a.mgr.ModelsDir(), models)
			return nil
		},
	}

	var name string
	upload := &cobra.Command{
		Use:   "upload <file>",
		Short: "Copy a model file into the models directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.app()
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			fi, err := f.Stat()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			last := time.Time{}
			path, err := a.mgr.Upload(f, fi.Size(), filepath.Base(args[0]), name, func(written, total int64) {
				if time.Since(last) < 500*time.Millisecond && written != total {
					return
				}
				last = time.Now()
				fmt.Fprintf(out, "\r%s / %s", humanize.IBytes(uint64(written)), humanize.IBytes(uint64(total)))
			})
			fmt.Fprintln(out)
			if err != nil {
				return err
			}
			color.Green("Saved %s", path)
			return nil
		},
	}
	upload.Flags().StringVar(&name, "name", "", "File name to store the model under")

	cmd.AddCommand(list, upload)
	return cmd
}

func newDiagnoseCmd(o *rootOptions) *cobra.Command {
	var asJSON bool
	var prompts []string
	cmd := &cobra.Command{
		Use:   "diagnose <model>",
		Short: "Load a model and run a few test prompts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.app()
			if err != nil {
				return err
			}
			defer a.mgr.Unload()
			report := a.mgr.Diagnose(cmd.Context(), a.modelPath(args[0]), manager.DiagnosticLoadParams(), prompts)
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				printReport(out, report)
			}
			if !report.OK() {
				return fmt.Errorf("diagnosis failed")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	cmd.Flags().StringArrayVar(&prompts, "prompt", nil, "Test prompt (repeatable)")
	return cmd
}

func printModels(out io.Writer, dir string, models []types.Model) {
	if len(models) == 0 {
		fmt.Fprintf(out, "No models in %s\n", dir)
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, color.CyanString("NAME\tSIZE\tPATH"))
	for _, m := range models {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", m.Name, humanize.IBytes(uint64(m.SizeBytes)), m.Path)
	}
	tw.Flush()
}

func printModelInfo(out io.Writer, info manager.ModelInfo) {
	if !info.Loaded() {
		fmt.Fprintln(out, dim("No model loaded."))
		return
	}
	fmt.Fprintf(out, "%s %s (%s, ctx %d, gpu layers %d, loaded in %s)\n",
		color.GreenString("Model:"), info.Name, humanize.IBytes(uint64(info.SizeBytes)),
		info.Params.ContextLength, info.Params.GPULayers, info.LoadDuration.Round(time.Millisecond))
}

func printReport(out io.Writer, r manager.DiagnosticReport) {
	mark := func(ok bool) string {
		if ok {
			return color.GreenString("ok")
		}
		return color.RedString("FAIL")
	}
	fmt.Fprintf(out, "engine built   %s\n", mark(r.EngineBuilt))
	fmt.Fprintf(out, "model loaded   %s  %s\n", mark(r.Loaded), r.Path)
	if r.Error != "" {
		fmt.Fprintf(out, "  error: %s\n", r.Error)
	}
	if r.Hint != "" {
		color.New(color.FgYellow).Fprintf(out, "  hint: %s\n", r.Hint)
	}
	for _, p := range r.Prompts {
		fmt.Fprintf(out, "prompt         %s  %q (%d tokens, %s)\n", mark(p.Error == ""), p.Prompt, p.Tokens, p.Duration.Round(time.Millisecond))
		if p.Error != "" {
			fmt.Fprintf(out, "  error: %s\n", p.Error)
		} else {
			fmt.Fprintf(out, "  %s\n", dim(p.Output))
		}
	}
}
