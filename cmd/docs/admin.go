package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"docs-go/internal/docs"
)

// admin command
var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Administer users and audit logs",
}

var adminUserCmd = &cobra.Command{
	Use:         "user ID",
	Short:       "Show any user's profile",
	Args:        cobra.ExactArgs(1),
	Annotations: adminRequired,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		a, err := newApp(cmd, args, "AdminUser")
		if err != nil {
			return err
		}
		defer a.Close()

		u, err := a.AdminUser(cmd.Context(), id)
		if err != nil {
			return err
		}
		fmt.Printf("#%d  %s <%s>  %s  verified:%t  joined %s\n",
			u.ID, u.Username, u.Email, u.Role, u.IsEmailVerified, formatTime(u.CreatedAt))
		return nil
	},
}

var adminRoleCmd = &cobra.Command{
	Use:         "role ID ROLE",
	Short:       "Change a user's role (REGULAR_USER or ADMINISTRATOR)",
	Args:        cobra.ExactArgs(2),
	Annotations: adminRequired,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		a, err := newApp(cmd, args, "UpdateRole")
		if err != nil {
			return err
		}
		defer a.Close()

		resp, err := a.UpdateRole(cmd.Context(), id, docs.Role(strings.ToUpper(args[1])))
		if err != nil {
			return err
		}
		fmt.Println(resp.Message)
		return nil
	},
}

func printLogs(page *docs.Page[docs.SystemLog]) {
	if len(page.Content) == 0 {
		fmt.Println("No entries.")
		return
	}
	for _, l := range page.Content {
		user := "-"
		if l.UserID != nil {
			user = fmt.Sprintf("#%d", *l.UserID)
		}
		resource := ""
		if l.ResourceID != nil {
			resource = fmt.Sprintf("  %s #%d", l.ResourceType, *l.ResourceID)
		}
		fmt.Printf("%s  %-6s  %-20s  %-8s  %s%s\n",
			formatTime(l.CreatedAt), user, l.OperationType, l.Status, l.IPAddress, resource)
	}
	fmt.Printf("\nPage %d of %d (%d entries)\n", page.Number+1, page.TotalPages, page.TotalElements)
}

var adminLoginLogsCmd = &cobra.Command{
	Use:         "login-logs",
	Short:       "List login audit entries",
	Annotations: adminRequired,
	RunE: func(cmd *cobra.Command, args []string) error {
		page, _ := cmd.Flags().GetInt("page")
		size, _ := cmd.Flags().GetInt("size")

		a, err := newApp(cmd, args, "LoginLogs")
		if err != nil {
			return err
		}
		defer a.Close()

		logs, err := a.LoginLogs(cmd.Context(), page, size)
		if err != nil {
			return err
		}
		printLogs(logs)
		return nil
	},
}

var adminDocumentLogsCmd = &cobra.Command{
	Use:         "document-logs",
	Short:       "List document audit entries",
	Annotations: adminRequired,
	RunE: func(cmd *cobra.Command, args []string) error {
		page, _ := cmd.Flags().GetInt("page")
		size, _ := cmd.Flags().GetInt("size")
		operationType, _ := cmd.Flags().GetString("type")

		a, err := newApp(cmd, args, "DocumentLogs")
		if err != nil {
			return err
		}
		defer a.Close()

		logs, err := a.DocumentLogs(cmd.Context(), page, size, optionalID(cmd, "user"), strings.ToUpper(operationType))
		if err != nil {
			return err
		}
		printLogs(logs)
		return nil
	},
}

func init() {
	adminCmd.AddCommand(adminUserCmd)
	adminCmd.AddCommand(adminRoleCmd)
	adminCmd.AddCommand(adminLoginLogsCmd)
	adminLoginLogsCmd.Flags().IntP("page", "p", 0, "Page number, starting at 0")
	adminLoginLogsCmd.Flags().IntP("size", "s", 20, "Entries per page")
	adminCmd.AddCommand(adminDocumentLogsCmd)
	adminDocumentLogsCmd.Flags().IntP("page", "p", 0, "Page number, starting at 0")
	adminDocumentLogsCmd.Flags().IntP("size", "s", 20, "Entries per page")
	adminDocumentLogsCmd.Flags().Int64("user", 0, "Only entries for this user ID")
	adminDocumentLogsCmd.Flags().String("type", "", "Only entries of this operation type")
}
