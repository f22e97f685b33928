package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"docs-go/internal/docs"
)

// auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Sign in, sign out and manage credentials",
}

var authRegisterCmd = &cobra.Command{
	Use:         "register",
	Short:       "Create an account",
	Annotations: map[string]string{annotationRoute: docs.RouteRegister},
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		email, _ := cmd.Flags().GetString("email")

		a, err := newApp(cmd, args, "Register")
		if err != nil {
			return err
		}
		defer a.Close()

		p := prompter()
		if username == "" {
			if username, err = p.Line("Username"); err != nil {
				return err
			}
		}
		if email == "" {
			if email, err = p.Line("Email"); err != nil {
				return err
			}
		}
		password, err := p.Secret("Password")
		if err != nil {
			return err
		}

		resp, err := a.Register(cmd.Context(), username, email, password)
		if err != nil {
			return fmt.Errorf("registration failed: %w", err)
		}
		fmt.Println(resp.Message)
		fmt.Printf("Check %s for a verification code, then run `docs auth verify %s CODE`.\n", email, email)
		return nil
	},
}

var authVerifyCmd = &cobra.Command{
	Use:   "verify EMAIL CODE",
	Short: "Verify an email address",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, args, "VerifyEmail")
		if err != nil {
			return err
		}
		defer a.Close()

		resp, err := a.VerifyEmail(cmd.Context(), args[0], args[1])
		if err != nil {
			return fmt.Errorf("verification failed: %w", err)
		}
		fmt.Println(resp.Message)
		return nil
	},
}

var authLoginCmd = &cobra.Command{
	Use:         "login [USERNAME_OR_EMAIL]",
	Short:       "Sign in",
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{annotationRoute: docs.RouteLogin},
	RunE: func(cmd *cobra.Command, args []string) error {
		remember, _ := cmd.Flags().GetBool("remember")

		a, err := newApp(cmd, args, "Login")
		if err != nil {
			return err
		}
		defer a.Close()

		p := prompter()
		var user string
		if len(args) > 0 {
			user = args[0]
		} else if user, err = p.Line("Username or email"); err != nil {
			return err
		}
		password, err := p.Secret("Password")
		if err != nil {
			return err
		}

		u, err := a.Login(cmd.Context(), user, password, remember)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		fmt.Printf("Signed in as %s (%s)\n", u.Username, u.Role)
		return nil
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, args, "Logout")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Logout(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Signed out")
		return nil
	},
}

var authRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Exchange the refresh token for a new token pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, args, "Refresh")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Refresh(cmd.Context()); err != nil {
			if errors.Is(err, docs.ErrNotAuthenticated) {
				return fmt.Errorf("no session to refresh; run `docs auth login`")
			}
			return fmt.Errorf("refresh failed: %w", err)
		}
		fmt.Println("Tokens refreshed")
		return nil
	},
}

var authForgotPasswordCmd = &cobra.Command{
	Use:   "forgot-password EMAIL",
	Short: "Request a password reset email",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, args, "ForgotPassword")
		if err != nil {
			return err
		}
		defer a.Close()

		resp, err := a.ForgotPassword(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(resp.Message)
		return nil
	},
}

var authResetPasswordCmd = &cobra.Command{
	Use:   "reset-password TOKEN",
	Short: "Set a new password with a reset token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, args, "ResetPassword")
		if err != nil {
			return err
		}
		defer a.Close()

		password, err := prompter().Secret("New password")
		if err != nil {
			return err
		}
		resp, err := a.ResetPassword(cmd.Context(), args[0], password)
		if err != nil {
			return err
		}
		fmt.Println(resp.Message)
		return nil
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, args, "Status")
		if err != nil {
			return err
		}
		defer a.Close()

		st := a.Status()
		if !st.Authenticated {
			fmt.Println("Not signed in")
			return nil
		}
		if st.User != nil {
			fmt.Printf("Signed in as %s <%s> (%s)\n", st.User.Username, st.User.Email, st.User.Role)
		} else {
			fmt.Println("Signed in")
		}
		if st.Claims != nil {
			state := "valid"
			if st.Claims.Expired(time.Now()) {
				state = "expired"
			}
			fmt.Printf("Access token %s until %s\n", state, st.Claims.ExpiresAt.Local().Format("2006-01-02 15:04:05"))
		}
		fmt.Printf("Refresh token: %t\n", st.HasRefresh)
		return nil
	},
}

// user command
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage your profile",
}

var userMeCmd = &cobra.Command{
	Use:         "me",
	Short:       "Show your profile",
	Annotations: map[string]string{annotationRoute: docs.RouteProfile, annotationRequiresAuth: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, args, "Me")
		if err != nil {
			return err
		}
		defer a.Close()

		u, err := a.Me(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("ID:       %d\n", u.ID)
		fmt.Printf("Username: %s\n", u.Username)
		fmt.Printf("Email:    %s (verified: %t)\n", u.Email, u.IsEmailVerified)
		fmt.Printf("Role:     %s\n", u.Role)
		if u.AvatarURL != "" {
			fmt.Printf("Avatar:   %s\n", u.AvatarURL)
		}
		fmt.Printf("Joined:   %s\n", formatTime(u.CreatedAt))
		return nil
	},
}

var userUpdateCmd = &cobra.Command{
	Use:         "update",
	Short:       "Change your username or email",
	Annotations: authRequired,
	RunE: func(cmd *cobra.Command, args []string) error {
		var username, email *string
		if cmd.Flags().Changed("username") {
			v, _ := cmd.Flags().GetString("username")
			username = &v
		}
		if cmd.Flags().Changed("email") {
			v, _ := cmd.Flags().GetString("email")
			email = &v
		}
		if username == nil && email == nil {
			return errors.New("nothing to update; pass --username and/or --email")
		}

		a, err := newApp(cmd, args, "UpdateProfile")
		if err != nil {
			return err
		}
		defer a.Close()

		u, err := a.UpdateProfile(cmd.Context(), username, email)
		if err != nil {
			return err
		}
		fmt.Printf("Profile updated: %s <%s>\n", u.Username, u.Email)
		return nil
	},
}

var userAvatarCmd = &cobra.Command{
	Use:         "avatar IMAGE",
	Short:       "Upload a profile picture",
	Args:        cobra.ExactArgs(1),
	Annotations: authRequired,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, args, "UploadAvatar")
		if err != nil {
			return err
		}
		defer a.Close()

		url, err := a.UploadAvatar(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Avatar uploaded: %s\n", url)
		return nil
	},
}

var userEmailCmd = &cobra.Command{
	Use:         "email NEW_EMAIL CODE",
	Short:       "Change your email with a verification code",
	Args:        cobra.ExactArgs(2),
	Annotations: authRequired,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, args, "UpdateEmail")
		if err != nil {
			return err
		}
		defer a.Close()

		resp, err := a.UpdateEmail(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Println(resp.Message)
		return nil
	},
}

var userPasswordCmd = &cobra.Command{
	Use:         "password",
	Short:       "Change your password",
	Annotations: authRequired,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, args, "UpdatePassword")
		if err != nil {
			return err
		}
		defer a.Close()

		p := prompter()
		oldPassword, err := p.Secret("Current password")
		if err != nil {
			return err
		}
		newPassword, err := p.Secret("New password")
		if err != nil {
			return err
		}
		confirm, err := p.Secret("Repeat new password")
		if err != nil {
			return err
		}
		if confirm != newPassword {
			return errors.New("passwords do not match")
		}

		resp, err := a.UpdatePassword(cmd.Context(), oldPassword, newPassword)
		if err != nil {
			return err
		}
		fmt.Println(resp.Message)
		return nil
	},
}

func init() {
	authCmd.AddCommand(authRegisterCmd)
	authRegisterCmd.Flags().String("username", "", "Account username")
	authRegisterCmd.Flags().String("email", "", "Account email")
	authCmd.AddCommand(authVerifyCmd)
	authCmd.AddCommand(authLoginCmd)
	authLoginCmd.Flags().Bool("remember", false, "Ask the server for a long-lived session")
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authRefreshCmd)
	authCmd.AddCommand(authForgotPasswordCmd)
	authCmd.AddCommand(authResetPasswordCmd)
	authCmd.AddCommand(authStatusCmd)

	userCmd.AddCommand(userMeCmd)
	userCmd.AddCommand(userUpdateCmd)
	userUpdateCmd.Flags().String("username", "", "New username")
	userUpdateCmd.Flags().String("email", "", "New email")
	userCmd.AddCommand(userAvatarCmd)
	userCmd.AddCommand(userEmailCmd)
	userCmd.AddCommand(userPasswordCmd)
}
