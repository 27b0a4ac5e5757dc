package cmd

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/argus-sh/argus/cmd/dagctl/internal/tui"
	"github.com/argus-sh/argus/internal/engine"
)

var runCmd = &cobra.Command{
	Use:   "run [command] [args...]",
	Short: "Dispatch a command against --session's current position",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if sessionID == "" {
			return fmt.Errorf("--session is required")
		}
		e, cleanup, err := buildEngine()
		if err != nil {
			return err
		}
		defer cleanup()

		input := strings.Join(args, " ")

		if !isInteractive() {
			resp, err := e.Dispatch(cmd.Context(), sessionID, input)
			if err != nil {
				return err
			}
			renderResponse(resp)
			return nil
		}

		return runWithSpinner(cmd.Context(), e, input)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// runWithSpinner drives a single dispatch under a shimmer spinner,
// running the actual work on a goroutine and feeding the result back
// in as a tea.Msg. The spinner only renders; it never dispatches.
func runWithSpinner(ctx context.Context, e *engine.Engine, input string) error {
	model := tui.NewDispatchModel(input)
	p := tea.NewProgram(model)

	go func() {
		resp, err := e.Dispatch(ctx, sessionID, input)
		if err != nil {
			p.Send(tui.DispatchDoneMsg{Err: err})
			return
		}
		p.Send(tui.DispatchDoneMsg{Message: resp.Message, Success: resp.Success})
	}()

	_, err := p.Run()
	return err
}

func renderResponse(resp engine.Response) {
	icon := tui.StatusIcon(resp.Success)
	fmt.Printf("%s %s\n", icon, resp.Message)
	for k, v := range resp.UIHints {
		fmt.Printf("  %s: %v\n", k, v)
	}
}
