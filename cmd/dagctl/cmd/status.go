package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/argus-sh/argus/cmd/dagctl/internal/tui"
	"github.com/argus-sh/argus/internal/dag"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show --session's current position in the workflow (read-only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if sessionID == "" {
			return fmt.Errorf("--session is required")
		}
		e, cleanup, err := buildEngine()
		if err != nil {
			return err
		}
		defer cleanup()

		pos, err := dag.ComputePosition(e.Def, e.Store.Source(sessionID))
		if err != nil {
			return err
		}

		order := dag.TopoOrder(e.Def)
		rows := make([]tui.StageRow, 0, len(order))
		for _, s := range order {
			r := pos.AllReadiness[s.ID]
			rows = append(rows, tui.StageRow{
				ID:        s.ID,
				Complete:  r.Complete,
				Stale:     r.Stale,
				Ready:     r.Ready,
				IsCurrent: s.ID == pos.CurrentStage,
			})
		}

		if !isInteractive() {
			renderStatusText(rows, pos)
			return nil
		}

		model := tui.NewPositionModel(rows, pos.CurrentStage, pos.Progress.Completed, pos.Progress.Total, pos.NextInstruction)
		_, err = tea.NewProgram(model).Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func renderStatusText(rows []tui.StageRow, pos *dag.Position) {
	fmt.Printf("%d/%d stages complete\n", pos.Progress.Completed, pos.Progress.Total)
	for _, r := range rows {
		marker := " "
		switch {
		case r.IsCurrent:
			marker = ">"
		case r.Complete && r.Stale:
			marker = "!"
		case r.Complete:
			marker = "x"
		case !r.Ready:
			marker = "."
		}
		fmt.Printf("  [%s] %s\n", marker, r.ID)
	}
	if pos.NextInstruction != "" {
		fmt.Printf("\n%s\n", pos.NextInstruction)
	}
}
