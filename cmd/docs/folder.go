package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// folder command
var folderCmd = &cobra.Command{
	Use:   "folder",
	Short: "Manage folders",
}

var folderCreateCmd = &cobra.Command{
	Use:         "create NAME",
	Short:       "Create a folder",
	Args:        cobra.ExactArgs(1),
	Annotations: authRequired,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, args, "CreateFolder")
		if err != nil {
			return err
		}
		defer a.Close()

		f, err := a.CreateFolder(cmd.Context(), args[0], optionalID(cmd, "parent"))
		if err != nil {
			return err
		}
		fmt.Printf("Created folder %s (#%d)\n", f.Name, f.ID)
		return nil
	},
}

var folderListCmd = &cobra.Command{
	Use:         "list",
	Short:       "List folders",
	Annotations: authRequired,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, args, "ListFolders")
		if err != nil {
			return err
		}
		defer a.Close()

		list, err := a.ListFolders(cmd.Context(), optionalID(cmd, "parent"))
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Println("No folders.")
			return nil
		}
		for _, f := range list {
			fmt.Printf("#%-6d  %-30s  %s\n", f.ID, f.Name, formatTime(f.CreatedAt))
		}
		return nil
	},
}

var folderGetCmd = &cobra.Command{
	Use:         "get ID",
	Short:       "Show a folder and its path",
	Args:        cobra.ExactArgs(1),
	Annotations: authRequired,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		a, err := newApp(cmd, args, "GetFolder")
		if err != nil {
			return err
		}
		defer a.Close()

		f, path, err := a.GetFolder(cmd.Context(), id)
		if err != nil {
			return err
		}
		names := make([]string, len(path))
		for i, p := range path {
			names[i] = p.Name
		}
		fmt.Printf("ID:      %d\n", f.ID)
		fmt.Printf("Name:    %s\n", f.Name)
		fmt.Printf("Path:    /%s\n", strings.Join(names, "/"))
		fmt.Printf("Created: %s\n", formatTime(f.CreatedAt))
		return nil
	},
}

var folderRenameCmd = &cobra.Command{
	Use:         "rename ID NAME",
	Short:       "Rename a folder",
	Args:        cobra.ExactArgs(2),
	Annotations: authRequired,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		a, err := newApp(cmd, args, "RenameFolder")
		if err != nil {
			return err
		}
		defer a.Close()

		f, err := a.RenameFolder(cmd.Context(), id, args[1])
		if err != nil {
			return err
		}
		fmt.Printf("Renamed #%d to %s\n", f.ID, f.Name)
		return nil
	},
}

var folderDeleteCmd = &cobra.Command{
	Use:         "delete ID",
	Short:       "Delete a folder",
	Args:        cobra.ExactArgs(1),
	Annotations: authRequired,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		a, err := newApp(cmd, args, "DeleteFolder")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.DeleteFolder(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Printf("Deleted folder #%d\n", id)
		return nil
	},
}

var folderDocsCmd = &cobra.Command{
	Use:         "docs ID",
	Short:       "List the documents in a folder",
	Args:        cobra.ExactArgs(1),
	Annotations: authRequired,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		a, err := newApp(cmd, args, "FolderDocuments")
		if err != nil {
			return err
		}
		defer a.Close()

		list, err := a.FolderDocuments(cmd.Context(), id)
		if err != nil {
			return err
		}
		printDocuments(list)
		return nil
	},
}

var folderTreeCmd = &cobra.Command{
	Use:         "tree",
	Short:       "Show the folder hierarchy",
	Annotations: authRequired,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, args, "FolderTree")
		if err != nil {
			return err
		}
		defer a.Close()

		tree, err := a.FolderTree(cmd.Context())
		if err != nil {
			return err
		}
		if tree == "" {
			fmt.Println("No folders.")
			return nil
		}
		fmt.Print(tree)
		return nil
	},
}

var folderZipCmd = &cobra.Command{
	Use:         "zip ID",
	Short:       "Download a folder as one zip archive",
	Args:        cobra.ExactArgs(1),
	Annotations: authRequired,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		a, err := newApp(cmd, args, "ZipFolder")
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.ZipFolder(cmd.Context(), id)
		if err != nil {
			return err
		}
		fmt.Printf("%s  %s\n", formatSize(res.Size), res.Location)
		return nil
	},
}

func init() {
	folderCmd.AddCommand(folderCreateCmd)
	folderCreateCmd.Flags().Int64("parent", 0, "Parent folder ID")
	folderCmd.AddCommand(folderListCmd)
	folderListCmd.Flags().Int64("parent", 0, "Only list children of this folder")
	folderCmd.AddCommand(folderGetCmd)
	folderCmd.AddCommand(folderRenameCmd)
	folderCmd.AddCommand(folderDeleteCmd)
	folderCmd.AddCommand(folderDocsCmd)
	folderCmd.AddCommand(folderTreeCmd)
	folderCmd.AddCommand(folderZipCmd)
}
