package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/syntopia/go-syntopia-client/contributing"
)

// initializeTracker restores the session and loads the contributing view for
// the signed-in user.
func (a *app) initializeTracker(cmd *cobra.Command) (userID string, err error) {
	if err := a.restoreSession(cmd); err != nil {
		return "", err
	}
	userID = a.manager.CurrentUser().ID
	if err := a.tracker.Initialize(cmd.Context(), userID); err != nil {
		return "", fmt.Errorf("%s", a.tracker.Error())
	}
	return userID, nil
}

func printQuests(header string, quests []contributing.Quest) {
	fmt.Println(header)
	if len(quests) == 0 {
		fmt.Println("  (none)")
		return
	}
	for _, quest := range quests {
		fmt.Printf("  [%s] %s  %s  %s  %d XP\n",
			quest.ID, quest.Title, quest.QuestType, quest.Status, quest.ExperiencePoints)
	}
}

func (a *app) questsCmd() *cobra.Command {
	var (
		questType string
		track     string
		status    string
	)
	cmd := &cobra.Command{
		Use:   "quests",
		Short: "List your sacred quests",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.initializeTracker(cmd); err != nil {
				return err
			}
			switch {
			case questType != "":
				printQuests("Quests of type "+questType,
					a.tracker.QuestsByType(contributing.QuestType(questType)))
			case track != "":
				printQuests("Quests on track "+track,
					a.tracker.QuestsByBusinessTrack(contributing.BusinessTrack(track)))
			case status != "":
				printQuests("Quests with status "+status,
					a.tracker.QuestsByStatus(contributing.ContributionStatus(status)))
			default:
				printQuests("Available", a.tracker.AvailableQuests())
				printQuests("In progress", a.tracker.ActiveQuests())
				printQuests("Completed", a.tracker.CompletedQuests())
				printQuests("Recommended", a.tracker.RecommendedQuests())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&questType, "type", "", "filter by quest type")
	cmd.Flags().StringVar(&track, "track", "", "filter by business track")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	return cmd
}

func (a *app) questCmd() *cobra.Command {
	quest := &cobra.Command{
		Use:   "quest",
		Short: "Work on a sacred quest",
	}

	start := &cobra.Command{
		Use:   "start <quest-id>",
		Short: "Start working on a quest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := a.initializeTracker(cmd)
			if err != nil {
				return err
			}
			started, err := a.tracker.StartQuest(cmd.Context(), args[0], userID)
			if err != nil {
				return fmt.Errorf("%s", a.tracker.Error())
			}
			fmt.Printf("Quest started: %s\n", started.Title)
			return nil
		},
	}

	complete := &cobra.Command{
		Use:   "complete <quest-id>",
		Short: "Complete a quest and collect experience",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := a.initializeTracker(cmd)
			if err != nil {
				return err
			}
			completed, err := a.tracker.CompleteQuest(cmd.Context(), args[0], userID)
			if err != nil {
				return fmt.Errorf("%s", a.tracker.Error())
			}
			fmt.Printf("Quest completed: %s (+%d XP)\n", completed.Title, completed.ExperiencePoints)
			if progress := a.tracker.Progress(); progress != nil {
				fmt.Printf("SCL %d - %s, %d/%d XP\n", progress.CurrentSCLLevel,
					progress.CurrentSCLName, progress.CurrentExperiencePoints,
					progress.NextLevelRequiredXP)
			}
			return nil
		},
	}

	quest.AddCommand(start, complete)
	return quest
}

func (a *app) trackCmd() *cobra.Command {
	var request contributing.ContributionRequest
	var questType, track string
	cmd := &cobra.Command{
		Use:   "track",
		Short: "Record a contribution made outside the quest flow",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := a.initializeTracker(cmd)
			if err != nil {
				return err
			}
			request.QuestType = contributing.QuestType(questType)
			request.BusinessTrack = contributing.BusinessTrack(track)
			tracked, err := a.tracker.TrackContribution(cmd.Context(), request, userID)
			if err != nil {
				return fmt.Errorf("%s", a.tracker.Error())
			}
			fmt.Printf("Contribution recorded: %s (+%d XP)\n", tracked.Title, tracked.ExperiencePoints)
			return nil
		},
	}
	cmd.Flags().StringVar(&request.Title, "title", "", "contribution title")
	cmd.Flags().StringVar(&request.Description, "description", "", "what was done")
	cmd.Flags().StringVar(&questType, "type", string(contributing.QuestTypePlatform), "quest type")
	cmd.Flags().StringVar(&track, "track", string(contributing.TrackTechDeveloper), "business track")
	cmd.Flags().IntVar(&request.DifficultyLevel, "difficulty", 1, "difficulty 1-10")
	cmd.Flags().Float64Var(&request.EstimatedHours, "hours", 1, "estimated hours")
	cmd.Flags().StringVar(&request.GitHubURL, "github-url", "", "related GitHub URL")
	cmd.Flags().StringVar(&request.GitHubPullRequestURL, "pr-url", "", "related pull request URL")
	cmd.MarkFlagRequired("title")
	return cmd
}

func (a *app) syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Synchronize quests with your GitHub issues",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := a.initializeTracker(cmd)
			if err != nil {
				return err
			}
			result, err := a.tracker.SyncWithGitHub(cmd.Context(), userID)
			if err != nil {
				return fmt.Errorf("%s", a.tracker.Error())
			}
			fmt.Printf("Sync %s: %d quests created, %d updated\n",
				map[bool]string{true: "succeeded", false: "failed"}[result.Success],
				result.QuestsCreated, result.QuestsUpdated)
			for _, syncErr := range result.Errors {
				fmt.Printf("  error: %s\n", syncErr)
			}
			return nil
		},
	}
}

func (a *app) progressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "progress",
		Short: "Show SCL progression",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.initializeTracker(cmd); err != nil {
				return err
			}
			progress := a.tracker.Progress()
			if progress == nil {
				fmt.Println("No progression data yet.")
				return nil
			}
			fmt.Printf("SCL %d - %s\n", progress.CurrentSCLLevel, progress.CurrentSCLName)
			fmt.Printf("XP: %d (next level at %d, %.0f%% there)\n",
				progress.CurrentExperiencePoints, progress.NextLevelRequiredXP,
				progress.ProgressToNextLevel)
			fmt.Printf("Quests completed: %d total, %d this month\n",
				progress.TotalQuestsCompleted, progress.QuestsCompletedThisMonth)
			if progress.PrimaryBusinessTrack != "" {
				fmt.Printf("Primary track: %s\n", progress.PrimaryBusinessTrack)
			}
			for _, requirement := range progress.NextLevelRequirements {
				fmt.Printf("  next: %s\n", requirement)
			}
			return nil
		},
	}
}

func (a *app) githubCmd() *cobra.Command {
	github := &cobra.Command{
		Use:   "github",
		Short: "GitHub account connection",
	}

	connectURL := &cobra.Command{
		Use:   "connect-url",
		Short: "Print the GitHub authorization URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			authURL, state, err := a.tracker.GitHubAuthorizeURL()
			if err != nil {
				return err
			}
			fmt.Println(authURL)
			fmt.Printf("state: %s\n", state)
			return nil
		},
	}

	var code, state string
	connect := &cobra.Command{
		Use:   "connect",
		Short: "Finish the OAuth flow and sync quests",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := a.initializeTracker(cmd)
			if err != nil {
				return err
			}
			callback, err := contributing.ExchangeCode(cmd.Context(), a.client, code, state)
			if err != nil {
				return err
			}
			result, err := a.tracker.ConnectGitHub(cmd.Context(), callback.Token, userID)
			if err != nil {
				return fmt.Errorf("%s", a.tracker.Error())
			}
			fmt.Printf("GitHub connected: %d quests created, %d updated\n",
				result.QuestsCreated, result.QuestsUpdated)
			return nil
		},
	}
	connect.Flags().StringVar(&code, "code", "", "OAuth code from the redirect")
	connect.Flags().StringVar(&state, "state", "", "state from connect-url")
	connect.MarkFlagRequired("code")
	connect.MarkFlagRequired("state")

	github.AddCommand(connectURL, connect)
	return github
}
