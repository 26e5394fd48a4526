package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/syntopia/go-syntopia-client/consciousness"
)

func (a *app) initializeMonitor(cmd *cobra.Command) error {
	userID := ""
	if err := a.restoreSession(cmd); err == nil {
		userID = a.manager.CurrentUser().ID
	}
	return a.monitor.Initialize(cmd.Context(), userID)
}

func printMetrics(metrics consciousness.SacredMetrics) {
	fmt.Printf("Consciousness score:      %6.2f\n", metrics.ConsciousnessScore)
	fmt.Printf("Synchronicity frequency:  %6.2f\n", metrics.SynchronicityFrequency)
	fmt.Printf("Gene keys alignment:      %6.2f\n", metrics.GeneKeysAlignment)
	fmt.Printf("Sacred geometry:          %6.2f\n", metrics.SacredGeometryResonance)
	fmt.Printf("Fibonacci harmony:        %6.2f\n", metrics.FibonacciHarmony)
}

func (a *app) monitorCmd() *cobra.Command {
	var duration time.Duration
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Run the consciousness monitor",
		Long: `Runs the sacred metrics monitor on the golden-ratio interval until
interrupted, or for --duration when given, then prints the final metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.initializeMonitor(cmd); err != nil {
				return err
			}

			a.monitor.Start()
			defer a.monitor.Stop()
			fmt.Printf("Monitoring at level %s. Press Ctrl-C to stop.\n", a.monitor.Level())

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			if duration > 0 {
				select {
				case <-stop:
				case <-time.After(duration):
				}
			} else {
				<-stop
			}

			fmt.Println()
			printMetrics(a.monitor.Metrics())
			return nil
		},
	}
	cmd.Flags().DurationVar(&duration, "duration", 0, "stop after this long (0 runs until interrupted)")
	return cmd
}

func (a *app) consciousnessCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "consciousness",
		Short: "Consciousness state and synchronicity log",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show level, metrics and recent synchronicities",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.initializeMonitor(cmd); err != nil {
				return err
			}
			fmt.Printf("Level: %s (%.0f%%)\n", a.monitor.Level(), a.monitor.LevelPercentage())
			printMetrics(a.monitor.Metrics())
			recent := a.monitor.RecentSynchronicities()
			if len(recent) > 0 {
				fmt.Println("Recent synchronicities:")
				for _, event := range recent {
					fmt.Printf("  %s  [%s] %s\n",
						event.Timestamp.Format(time.RFC3339), event.Significance, event.Description)
				}
			}
			return nil
		},
	}

	elevate := &cobra.Command{
		Use:   "elevate",
		Short: "Advance to the next consciousness level",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.initializeMonitor(cmd); err != nil {
				return err
			}
			level, ok := a.monitor.ElevateLevel()
			if !ok {
				fmt.Printf("Already at the highest level: %s\n", level)
				return nil
			}
			fmt.Printf("Consciousness elevated to %s.\n", level)
			return nil
		},
	}

	var (
		eventType    string
		description  string
		significance string
	)
	record := &cobra.Command{
		Use:   "record",
		Short: "Record a synchronicity event",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.initializeMonitor(cmd); err != nil {
				return err
			}
			event := a.monitor.RecordSynchronicity(eventType, description,
				consciousness.Significance(significance))
			fmt.Printf("Synchronicity recorded: %s\n", event.ID)
			return nil
		},
	}
	record.Flags().StringVar(&eventType, "type", "OBSERVATION", "event type")
	record.Flags().StringVar(&description, "description", "", "what happened")
	record.Flags().StringVar(&significance, "significance", string(consciousness.SignificanceMedium),
		"LOW, MEDIUM or HIGH")
	record.MarkFlagRequired("description")

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Reset consciousness state to AWAKENING",
		RunE: func(cmd *cobra.Command, args []string) error {
			a.monitor.Reset()
			fmt.Println("Consciousness reset.")
			return nil
		},
	}

	root.AddCommand(show, elevate, record, reset)
	return root
}
