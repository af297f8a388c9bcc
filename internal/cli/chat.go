package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/manifoldco/promptui"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ashureev/datadesk/internal/conversation"
	"github.com/ashureev/datadesk/internal/store"
)

const (
	quickCommand = "/quick"
	spinnerTick  = 100 * time.Millisecond
)

var exitCommands = map[string]bool{"/exit": true, "/quit": true}

func newChatCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Talk to the helper interactively",
		Long: `Starts an interactive conversation in the terminal.

Type a question and press enter. /quick picks a suggested question,
/exit leaves the conversation.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.chat(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}

func (a *app) chat(ctx context.Context, out, errOut io.Writer) error {
	eng, _, err := a.engine()
	if err != nil {
		return err
	}

	sessionID := "cli-" + uuid.NewString()
	opts := []conversation.Option{conversation.WithLogger(a.logger),
		conversation.WithSessionID(sessionID),
		conversation.WithFallbackEngine(eng),
	}
	if a.cfg.StoreEnabled() {
		repo, err := store.Open(a.cfg.StoreDSN)
		if err != nil {
			a.logger.Warn("Interaction store unavailable, not recording", "error", err)
		} else {
			defer repo.Close()
			opts = append(opts, conversation.WithRecorder(repo, sessionID))
		}
	}

	c, err := conversation.NewController(conversation.NewDelayedResponder(eng, a.cfg.Reply.Delay), opts...)
	if err != nil {
		return err
	}
	defer c.Close()

	printed := printNew(out, c.State(), 0)
	for {
		prompt := promptui.Prompt{
			Label:     "你",
			Default:   c.State().PendingInput,
			AllowEdit: true,
		}
		text, err := prompt.Run()
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		switch handleLine(c, text) {
		case lineExit:
			return nil
		case lineQuick:
			sel := promptui.Select{
				Label: "快捷問題",
				Items: c.QuickActions(),
			}
			_, label, err := sel.Run()
			if err == nil {
				c.SelectQuickAction(label)
			}
			continue
		case lineIgnored:
			continue
		}

		if err := waitWithSpinner(ctx, c, errOut); err != nil {
			return err
		}
		printed = printNew(out, c.State(), printed)
	}
}

type lineAction int

const (
	lineSubmitted lineAction = iota
	lineIgnored
	lineExit
	lineQuick
)

// handleLine interprets one line of input. Commands are matched after
// trimming; anything else is submitted exactly as typed.
func handleLine(c *conversation.Controller, text string) lineAction {
	command := strings.TrimSpace(text)
	switch {
	case exitCommands[command]:
		return lineExit
	case command == quickCommand:
		return lineQuick
	case !c.Submit(text):
		return lineIgnored
	}
	return lineSubmitted
}

// waitWithSpinner blocks until every reply is in, animating a spinner on w.
func waitWithSpinner(ctx context.Context, c *conversation.Controller, w io.Writer) error {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetDescription("思考中..."),
		progressbar.OptionClearOnFinish(),
	)

	done := make(chan error, 1)
	go func() { done <- c.WaitIdle(ctx) }()

	ticker := time.NewTicker(spinnerTick)
	defer ticker.Stop()
	for {
		select {
		case err := <-done:
			_ = bar.Finish()
			return err
		case <-ticker.C:
			_ = bar.Add(1)
		}
	}
}

// printNew writes assistant messages after the first n messages and returns
// the new message count. User messages are already on screen from the prompt.
func printNew(w io.Writer, s conversation.State, n int) int {
	for _, m := range s.Messages[n:] {
		if m.Role != conversation.RoleAssistant {
			continue
		}
		fmt.Fprintf(w, "\n助手> %s\n\n", m.Content)
	}
	return len(s.Messages)
}
