package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "synctl",
		Short: "SYNtopia consciousness platform client",
		Long: `synctl is the command line client for the SYNtopia consciousness
platform: authentication, sacred quests, contribution tracking and the
consciousness monitor.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initialize()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			a.displayAppName()
			return a.runStatus(cmd)
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		a.loginCmd(),
		a.registerCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.statusCmd(),
		a.profileCmd(),
		a.passwordCmd(),
		a.questsCmd(),
		a.questCmd(),
		a.trackCmd(),
		a.syncCmd(),
		a.progressCmd(),
		a.githubCmd(),
		a.monitorCmd(),
		a.consciousnessCmd(),
		a.healthCmd(),
	)
	return root
}

// restoreSession rehydrates the persisted session and fails the command when
// nobody is signed in.
func (a *app) restoreSession(cmd *cobra.Command) error {
	if err := a.manager.CheckAuthStatus(cmd.Context()); err != nil {
		a.logger.Debug().Err(err).Msg("session restore failed")
	}
	return a.manager.RequireAuth()
}

func (a *app) runStatus(cmd *cobra.Command) error {
	if err := a.manager.CheckAuthStatus(cmd.Context()); err != nil {
		a.logger.Debug().Err(err).Msg("session restore failed")
	}
	if !a.manager.IsAuthenticated() {
		fmt.Println("Not signed in. Run 'synctl login' to begin.")
		return nil
	}
	user := a.manager.CurrentUser()
	fmt.Printf("Signed in as %s <%s>\n", user.Username, user.Email)
	if user.ConsciousnessLevel != "" {
		fmt.Printf("Consciousness level: %s\n", user.ConsciousnessLevel)
	}
	return nil
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runStatus(cmd)
		},
	}
}

func (a *app) healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe the contributing API",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := a.tracker.HealthCheck(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Contributing API: %s\n", status.Status)
			return nil
		},
	}
}
