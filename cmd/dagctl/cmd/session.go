package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/argus-sh/argus/cmd/dagctl/internal/tui"
)

var newSessionPersona string

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a new session for the manifest's persona/version",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, cleanup, err := buildEngine()
		if err != nil {
			return err
		}
		defer cleanup()
		persona := newSessionPersona
		if persona == "" {
			persona = e.Def.Header.Persona
		}
		sess, err := e.Store.SessionCreate(persona, e.Def.Header.Version)
		if err != nil {
			return err
		}
		fmt.Printf("%s session created: %s\n", tui.StatusIcon(true), sess.ID)
		return nil
	},
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List sessions for the manifest's persona",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, cleanup, err := buildEngine()
		if err != nil {
			return err
		}
		defer cleanup()
		sessions, err := e.Store.SessionsList(e.Def.Header.Persona)
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Println("no sessions")
			return nil
		}
		for _, s := range sessions {
			fmt.Printf("%s  %s  created=%s  last_active=%s\n", s.ID, s.Persona, s.Created.Format("2006-01-02T15:04:05"), s.LastActive.Format("2006-01-02T15:04:05"))
		}
		return nil
	},
}

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "List handler ids this build can dispatch, and manifest stages referencing them",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, cleanup, err := buildEngine()
		if err != nil {
			return err
		}
		defer cleanup()
		ids := e.Registry.IDs()
		if len(ids) == 0 {
			fmt.Println("no handlers registered (set anthropic_api_key in config to enable the code handler)")
		}
		for id := range ids {
			fmt.Printf("%s\n", id)
			for _, st := range e.Def.Stages {
				if st.Handler == id {
					fmt.Printf("  - %s (%v)\n", st.ID, st.Commands)
				}
			}
		}
		return nil
	},
}

func init() {
	newCmd.Flags().StringVar(&newSessionPersona, "persona", "", "override the manifest's declared persona")
	rootCmd.AddCommand(newCmd, sessionsCmd, pluginsCmd)
}
