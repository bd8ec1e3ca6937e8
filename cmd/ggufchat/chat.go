package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ggufchat/internal/chat"
	"ggufchat/internal/manager"
	"ggufchat/internal/persona"
	"ggufchat/internal/preset"
	"ggufchat/internal/sessionstore"
	"ggufchat/pkg/types"
)

func newChatCmd(o *rootOptions) *cobra.Command {
	var model, session string
	var roleplay bool
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with a model in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.app()
			if err != nil {
				return err
			}
			defer a.mgr.Unload()
			ctx := cmd.Context()
			if session != "" {
				rec, err := a.restoreSession(session)
				if err != nil {
					return err
				}
				if model == "" {
					model = rec.ModelPath
				}
			}
			if roleplay {
				id, _ := a.st.Persona()
				if err := a.st.SetPersona(id, true); err != nil {
					return err
				}
			}
			if model != "" {
				if err := a.loadModel(ctx, cmd.OutOrStdout(), model); err != nil {
					return err
				}
			}
			return a.repl(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&model, "model", "m", "", "Model to load (file name or path)")
	cmd.Flags().StringVarP(&session, "session", "s", "", "Saved session to resume")
	cmd.Flags().BoolVar(&roleplay, "roleplay", false, "Start with roleplay mode on")
	return cmd
}

var (
	userLabel      = color.New(color.FgCyan, color.Bold).SprintFunc()
	assistantLabel = color.New(color.FgGreen, color.Bold).SprintFunc()
	dim            = color.New(color.Faint).SprintFunc()
)

const replHelp = `Commands:
  /help                 show this help
  /quit                 leave
  /reset                clear the conversation
  /model <file>         load a model
  /unload               unload the model
  /info                 show the loaded model
  /persona <id> [rp]    select a persona, "rp" turns roleplay on
  /personas             list personas
  /preset <key>         apply a preset
  /presets              list presets
  /save [name]          save the session
  /load <name>          restore a saved session
  /sessions             list saved sessions
Ctrl+C stops a reply in progress.`

// repl reads lines from in until EOF or /quit. Ctrl+C while a reply is
// streaming requests a stop; at the prompt it exits.
func (a *app) repl(ctx context.Context, in io.Reader, out io.Writer) error {
	var busy atomic.Bool
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)
	go func() {
		for range sigs {
			if busy.Load() {
				a.chat.Stop()
				continue
			}
			a.mgr.Unload()
			fmt.Fprintln(out)
			os.Exit(130)
		}
	}()

	fmt.Fprintln(out, dim("Type /help for commands."))
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for {
		fmt.Fprint(out, userLabel("You: "))
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			quit, err := a.command(ctx, out, line)
			if err != nil {
				color.New(color.FgRed).Fprintf(out, "%v\n", err)
				if hint := manager.EngineHint(err); hint != "" {
					color.New(color.FgYellow).Fprintf(out, "hint: %s\n", hint)
				}
			}
			if quit {
				return nil
			}
			continue
		}
		busy.Store(true)
		err := a.turn(ctx, out, line)
		busy.Store(false)
		if err != nil {
			color.New(color.FgRed).Fprintf(out, "%v\n", err)
			if hint := manager.EngineHint(err); hint != "" {
				color.New(color.FgYellow).Fprintf(out, "hint: %s\n", hint)
			}
		}
	}
}

// turn prints the growing reply by writing the new suffix of each snapshot.
func (a *app) turn(ctx context.Context, out io.Writer, text string) error {
	fmt.Fprint(out, assistantLabel("Assistant: "))
	printed := 0
	res, err := a.chat.Send(ctx, text, func(snap string) bool {
		if len(snap) > printed {
			fmt.Fprint(out, snap[printed:])
			printed = len(snap)
		}
		return true
	})
	fmt.Fprintln(out)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyMessage) {
			return nil
		}
		return err
	}
	switch res.FinishReason {
	case manager.FinishCancelled:
		fmt.Fprintln(out, dim("[stopped]"))
	case manager.FinishLength:
		fmt.Fprintln(out, dim("[token limit reached]"))
	}
	return nil
}

func (a *app) command(ctx context.Context, out io.Writer, line string) (quit bool, err error) {
	fields := strings.Fields(line)
	args := fields[1:]
	switch fields[0] {
	case "/help":
		fmt.Fprintln(out, replHelp)
	case "/quit", "/exit":
		return true, nil
	case "/reset":
		a.chat.Reset()
		fmt.Fprintln(out, dim("Conversation cleared."))
	case "/model":
		if len(args) != 1 {
			return false, errors.New("usage: /model <file>")
		}
		return false, a.loadModel(ctx, out, args[0])
	case "/unload":
		a.mgr.Unload()
		fmt.Fprintln(out, dim("Model unloaded."))
	case "/info":
		printModelInfo(out, a.mgr.Info())
	case "/persona":
		if len(args) == 0 {
			return false, errors.New("usage: /persona <id> [rp]")
		}
		rp := len(args) > 1 && args[1] == "rp"
		if err := a.st.SetPersona(args[0], rp); err != nil {
			return false, err
		}
		fmt.Fprintf(out, "%s %s (roleplay %v)\n", dim("Persona:"), args[0], rp)
	case "/personas":
		printPersonas(out)
	case "/preset":
		if len(args) != 1 {
			return false, errors.New("usage: /preset <key>")
		}
		if err := a.st.ApplyPreset(args[0]); err != nil {
			return false, err
		}
		fmt.Fprintf(out, "%s %s\n", dim("Preset:"), args[0])
	case "/presets":
		printPresets(out, a.st.Presets(), preset.Match(a.st.Params(), a.st.Presets()))
	case "/save":
		path, err := a.store.Save(a.st.Snapshot(), strings.Join(args, " "))
		if err != nil {
			return false, err
		}
		fmt.Fprintf(out, "%s %s\n", dim("Saved"), path)
	case "/load":
		if len(args) == 0 {
			return false, errors.New("usage: /load <name>")
		}
		rec, err := a.restoreSession(strings.Join(args, " "))
		if err != nil {
			return false, err
		}
		fmt.Fprintf(out, "%s %d messages\n", dim("Restored"), len(rec.Messages))
		if rec.ModelPath != "" && rec.ModelPath != a.mgr.Info().Path {
			fmt.Fprintf(out, "%s %s\n", dim("Session was using"), rec.ModelPath)
		}
	case "/sessions":
		list, err := a.store.List()
		if err != nil {
			return false, err
		}
		printSessions(out, list)
	default:
		return false, fmt.Errorf("unknown command %s (try /help)", fields[0])
	}
	return false, nil
}

func (a *app) loadModel(ctx context.Context, out io.Writer, model string) error {
	fmt.Fprintf(out, "%s %s\n", dim("Loading"), model)
	info, err := a.mgr.Load(ctx, a.modelPath(model), types.LoadParams{})
	if err != nil {
		return err
	}
	printModelInfo(out, info)
	return nil
}

// restoreSession applies a saved session. The model it names is not loaded.
func (a *app) restoreSession(name string) (*sessionstore.Record, error) {
	rec, err := a.store.Load(a.store.Path(name))
	if err != nil {
		return nil, err
	}
	if err := sessionstore.Apply(a.st, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func printPersonas(out io.Writer) {
	for _, p := range persona.All() {
		fmt.Fprintf(out, "%-18s %s\n", p.ID, p.Name)
	}
}
