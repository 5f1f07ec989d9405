package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	model "github.com/zhouzirui/concierge/backend/internal/model/assistant"
	"github.com/zhouzirui/concierge/backend/internal/model/speech"
	"github.com/zhouzirui/concierge/backend/internal/service/assistant"
	"github.com/zhouzirui/concierge/backend/internal/service/interaction"
	speechsvc "github.com/zhouzirui/concierge/backend/internal/service/speech"
)

const chatHelp = `commands: /view <chat|feedback|support>  /lang <code>  /mute  /unmute
          /close  /open  /transcript  /quit`

func newChatCmd(opts *rootOptions) *cobra.Command {
	var (
		dbPath    string
		sessionID string
		noSound   bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive assistant session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			res, _, err := opts.resolver(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			var logger assistant.InteractionLogger
			if dbPath != "" {
				db, err := interaction.OpenSQLite(dbPath)
				if err != nil {
					return err
				}
				defer db.Close()
				l := interaction.New(db, interaction.Options{})
				defer func() {
					if err := l.Close(context.Background()); err != nil {
						fmt.Fprintln(cmd.ErrOrStderr(), err)
					}
				}()
				logger = l
			}

			settings := speech.DefaultVoiceSettings()
			settings.Language = opts.language().String()
			settings.SoundEffectsEnabled = !noSound

			synth := &consoleSynthesizer{w: out}
			a := assistant.New(res, speechsvc.NewCoordinator(synth, nil, settings), assistant.Options{
				ID:        sessionID,
				UserID:    "cli",
				Settings:  settings,
				Navigator: &consoleNavigator{w: out},
				Logger:    logger,
				Scheduler: immediateScheduler{},
			})
			defer a.Dispose()

			events, unsubscribe := a.Subscribe(0)
			defer unsubscribe()

			fmt.Fprintln(out, headerStyle.Render("Detailing assistant"))
			fmt.Fprintln(out, metaStyle.Render(chatHelp))
			if err := a.Open(ctx); err != nil {
				return err
			}

			return repl(ctx, cmd.InOrStdin(), out, a, events)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite file receiving the interaction log")
	cmd.Flags().StringVar(&sessionID, "session", "", "session id recorded in the interaction log (random when empty)")
	cmd.Flags().BoolVar(&noSound, "no-sound", false, "disable the chime cue")
	return cmd
}

func repl(ctx context.Context, in io.Reader, out io.Writer, a *assistant.Assistant, events <-chan assistant.Event) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, userStyle.Render("you> "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := runCommand(ctx, out, a, line)
			if err != nil {
				fmt.Fprintln(out, metaStyle.Render("error: "+err.Error()))
			}
			if quit {
				return nil
			}
			drainEvents(out, events)
			continue
		}

		reply, err := a.OnUtterance(ctx, line, model.SourceTyped)
		if errors.Is(err, assistant.ErrClosed) {
			fmt.Fprintln(out, metaStyle.Render("assistant is closed, type /open"))
			continue
		}
		if err != nil {
			return err
		}
		if reply.UtteranceID == "" {
			// muted: nothing was spoken
			fmt.Fprintf(out, "%s %s\n", assistantStyle.Render("assistant>"), reply.Resolution.Text)
		}
		drainEvents(out, events)
		fmt.Fprintln(out, metaStyle.Render(fmt.Sprintf("  %s/%s %.2f", reply.Resolution.Category, reply.Resolution.Reply, reply.Resolution.Confidence)))
	}
}

func runCommand(ctx context.Context, out io.Writer, a *assistant.Assistant, line string) (bool, error) {
	fields := strings.Fields(line)
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}

	switch fields[0] {
	case "/quit", "/exit":
		return true, nil
	case "/view":
		return false, a.SwitchView(model.View(arg))
	case "/lang":
		s := a.Snapshot().Settings
		s.Language = arg
		s = a.SetVoiceSettings(s)
		fmt.Fprintln(out, metaStyle.Render("language "+s.Language))
	case "/mute":
		a.SetMuted(true)
	case "/unmute":
		a.SetMuted(false)
	case "/close":
		return false, a.Close(ctx)
	case "/open":
		return false, a.Open(ctx)
	case "/transcript":
		for _, t := range a.Snapshot().Turns {
			fmt.Fprintf(out, "%s %s\n", metaStyle.Render(fmt.Sprintf("[%s %s]", t.Role, t.Language)), t.Text)
		}
	default:
		return false, fmt.Errorf("unknown command %s", fields[0])
	}
	return false, nil
}

// drainEvents prints the events that have no other visible trace.
func drainEvents(out io.Writer, events <-chan assistant.Event) {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Type {
			case assistant.EventChime:
				fmt.Fprintln(out, metaStyle.Render("  *ding*"))
			case assistant.EventView:
				fmt.Fprintln(out, effectStyle.Render("-> view "+string(ev.View)))
			case assistant.EventClosed:
				fmt.Fprintln(out, metaStyle.Render("  (closed)"))
			}
		default:
			return
		}
	}
}
