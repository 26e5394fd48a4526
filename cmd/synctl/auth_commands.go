package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/syntopia/go-syntopia-client/auth"
	"github.com/syntopia/go-syntopia-client/internal/utils"
)

func (a *app) loginCmd() *cobra.Command {
	var credentials auth.LoginCredentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the platform",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := auth.ValidateLoginCredentials(credentials); err != nil {
				return err
			}
			response, err := a.manager.Login(cmd.Context(), credentials)
			if err != nil {
				return fmt.Errorf("%s", a.manager.Error())
			}
			fmt.Printf("Welcome back, %s.\n", response.User.Username)
			return nil
		},
	}
	cmd.Flags().StringVarP(&credentials.Email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&credentials.Password, "password", "p", "", "account password")
	cmd.Flags().BoolVar(&credentials.RememberMe, "remember", false, "keep the session")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}

func (a *app) registerCmd() *cobra.Command {
	var data auth.RegisterData
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a new account",
		RunE: func(cmd *cobra.Command, args []string) error {
			data.AcceptTerms = true
			data.AcceptPrivacyPolicy = true
			response, err := a.manager.Register(cmd.Context(), data)
			if err != nil {
				return fmt.Errorf("%s", a.manager.Error())
			}
			fmt.Printf("Account created for %s. Your journey begins at %s.\n",
				response.User.Username, response.User.ConsciousnessLevel)
			return nil
		},
	}
	cmd.Flags().StringVarP(&data.Username, "username", "u", "", "account username")
	cmd.Flags().StringVarP(&data.Email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&data.Password, "password", "p", "", "account password")
	cmd.Flags().StringVar(&data.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&data.LastName, "last-name", "", "last name")
	cmd.MarkFlagRequired("username")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear the local session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a.manager.Logout(cmd.Context())
			fmt.Println("Signed out.")
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.restoreSession(cmd); err != nil {
				return err
			}
			user := a.manager.CurrentUser()
			fmt.Printf("%s <%s>\n", user.Username, user.Email)
			if user.FirstName != "" || user.LastName != "" {
				fmt.Printf("Name: %s %s\n", user.FirstName, user.LastName)
			}
			if user.ConsciousnessLevel != "" {
				fmt.Printf("Consciousness level: %s\n", user.ConsciousnessLevel)
			}
			if user.HasGeneKeysProfile() {
				sequence := user.GeneKeysProfile.ActivationSequence
				fmt.Printf("Gene keys: sun %d, earth %d, north node %d, south node %d\n",
					sequence.Sun.KeyNumber, sequence.Earth.KeyNumber,
					sequence.NorthNode.KeyNumber, sequence.SouthNode.KeyNumber)
			}
			return nil
		},
	}
}

func (a *app) profileCmd() *cobra.Command {
	var (
		firstName      string
		lastName       string
		avatar         string
		personalVision string
		intentions     []string
	)
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Update the signed-in user's profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.restoreSession(cmd); err != nil {
				return err
			}
			update := auth.ProfileUpdate{SacredIntentions: intentions}
			if cmd.Flags().Changed("first-name") {
				update.FirstName = utils.Ptr(firstName)
			}
			if cmd.Flags().Changed("last-name") {
				update.LastName = utils.Ptr(lastName)
			}
			if cmd.Flags().Changed("avatar") {
				update.Avatar = utils.Ptr(avatar)
			}
			if cmd.Flags().Changed("vision") {
				update.PersonalVision = utils.Ptr(personalVision)
			}
			user, err := a.manager.UpdateProfile(cmd.Context(), update)
			if err != nil {
				return err
			}
			fmt.Printf("Profile updated for %s.\n", user.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&firstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&avatar, "avatar", "", "avatar URL")
	cmd.Flags().StringVar(&personalVision, "vision", "", "personal vision statement")
	cmd.Flags().StringSliceVar(&intentions, "intention", nil, "sacred intention (repeatable)")
	return cmd
}

func (a *app) passwordCmd() *cobra.Command {
	password := &cobra.Command{
		Use:   "password",
		Short: "Password reset flow",
	}

	var email string
	forgot := &cobra.Command{
		Use:   "forgot",
		Short: "Request a password reset email",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.manager.RequestPasswordReset(cmd.Context(), email); err != nil {
				return err
			}
			fmt.Printf("Reset instructions sent to %s.\n", email)
			return nil
		},
	}
	forgot.Flags().StringVarP(&email, "email", "e", "", "account email")
	forgot.MarkFlagRequired("email")

	var (
		token       string
		newPassword string
	)
	reset := &cobra.Command{
		Use:   "reset",
		Short: "Redeem a reset token for a new password",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.manager.ResetPassword(cmd.Context(), token, newPassword); err != nil {
				return err
			}
			fmt.Println("Password updated. Sign in with the new password.")
			return nil
		},
	}
	reset.Flags().StringVar(&token, "token", "", "reset token from the email")
	reset.Flags().StringVar(&newPassword, "new-password", "", "replacement password")
	reset.MarkFlagRequired("token")
	reset.MarkFlagRequired("new-password")

	password.AddCommand(forgot, reset)
	return password
}
