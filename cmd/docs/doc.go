package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"docs-go/internal/app"
	"docs-go/internal/docs"
)

// doc command
var docCmd = &cobra.Command{
	Use:   "doc",
	Short: "Manage documents",
}

// addFilterFlags registers the list filters shared by list and batch-delete.
func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("page", "p", 0, "Page number, starting at 0")
	cmd.Flags().IntP("size", "s", 0, "Documents per page (default 20)")
	cmd.Flags().StringP("keyword", "k", "", "Filter by filename keyword")
	cmd.Flags().StringP("type", "t", "", "Filter by file type (pdf, docx, txt, ...)")
	cmd.Flags().Int64("folder", 0, "Filter by folder ID")
	cmd.Flags().String("sort", "", "Sort field (createdAt, filename, fileSize)")
	cmd.Flags().String("direction", "", "Sort direction (ASC or DESC)")
}

func filterFromFlags(cmd *cobra.Command) app.DocumentFilter {
	page, _ := cmd.Flags().GetInt("page")
	size, _ := cmd.Flags().GetInt("size")
	keyword, _ := cmd.Flags().GetString("keyword")
	fileType, _ := cmd.Flags().GetString("type")
	sortBy, _ := cmd.Flags().GetString("sort")
	direction, _ := cmd.Flags().GetString("direction")
	return app.DocumentFilter{
		Page:          page,
		Size:          size,
		Keyword:       keyword,
		FileType:      fileType,
		FolderID:      optionalID(cmd, "folder"),
		SortBy:        sortBy,
		SortDirection: strings.ToUpper(direction),
	}
}

var docListCmd = &cobra.Command{
	Use:         "list",
	Short:       "List documents",
	Annotations: map[string]string{annotationRoute: docs.RouteDocuments, annotationRequiresAuth: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, args, "ListDocuments")
		if err != nil {
			return err
		}
		defer a.Close()

		list, p, err := a.ListDocuments(cmd.Context(), filterFromFlags(cmd))
		if err != nil {
			return err
		}
		printDocuments(list)
		if p.TotalPages > 0 {
			fmt.Printf("\nPage %d of %d (%d documents)\n", p.Page+1, p.TotalPages, p.TotalElements)
		}
		return nil
	},
}

var docGetCmd = &cobra.Command{
	Use:         "get ID",
	Short:       "Show a document's details",
	Args:        cobra.ExactArgs(1),
	Annotations: authRequired,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		a, err := newApp(cmd, args, "GetDocument")
		if err != nil {
			return err
		}
		defer a.Close()

		d, err := a.GetDocument(cmd.Context(), id)
		if err != nil {
			return err
		}
		fmt.Printf("ID:       %d\n", d.ID)
		fmt.Printf("Filename: %s\n", d.Filename)
		if d.OriginalFilename != d.Filename {
			fmt.Printf("Original: %s\n", d.OriginalFilename)
		}
		fmt.Printf("Type:     %s (%s)\n", d.FileType, d.MimeType)
		fmt.Printf("Size:     %s\n", formatSize(d.FileSize))
		if d.FolderID != nil {
			fmt.Printf("Folder:   %s (#%d)\n", d.FolderName, *d.FolderID)
		}
		fmt.Printf("Created:  %s\n", formatTime(d.CreatedAt))
		fmt.Printf("Updated:  %s\n", formatTime(d.UpdatedAt))
		return nil
	},
}

var docUploadCmd = &cobra.Command{
	Use:         "upload PATH...",
	Short:       "Upload files one at a time",
	Args:        cobra.MinimumNArgs(1),
	Annotations: authRequired,
	RunE: func(cmd *cobra.Command, args []string) error {
		recursive, _ := cmd.Flags().GetBool("recursive")

		a, err := newApp(cmd, args, "UploadDocuments")
		if err != nil {
			return err
		}
		defer a.Close()

		results, err := a.UploadDocuments(cmd.Context(), args, recursive, optionalID(cmd, "folder"))
		for _, r := range results {
			switch {
			case r.Err != nil:
				fmt.Printf("failed    %s: %v\n", r.File.Rel, r.Err)
			case r.Chunked:
				fmt.Printf("uploaded  %s -> #%d (chunked)\n", r.File.Rel, r.Document.ID)
			default:
				fmt.Printf("uploaded  %s -> #%d\n", r.File.Rel, r.Document.ID)
			}
		}
		if err != nil {
			return fmt.Errorf("upload incomplete: %w", err)
		}
		fmt.Printf("Uploaded %d file(s)\n", len(results))
		return nil
	},
}

var docBatchUploadCmd = &cobra.Command{
	Use:         "batch-upload PATH...",
	Short:       "Upload files in a single request",
	Args:        cobra.MinimumNArgs(1),
	Annotations: authRequired,
	RunE: func(cmd *cobra.Command, args []string) error {
		recursive, _ := cmd.Flags().GetBool("recursive")

		a, err := newApp(cmd, args, "BatchUploadDocuments")
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.BatchUploadDocuments(cmd.Context(), args, recursive, optionalID(cmd, "folder"))
		if err != nil {
			return err
		}
		printBatchResult("Uploaded", result)
		return nil
	},
}

var docPreviewCmd = &cobra.Command{
	Use:         "preview ID",
	Short:       "Show a document's preview",
	Args:        cobra.ExactArgs(1),
	Annotations: authRequired,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		a, err := newApp(cmd, args, "PreviewDocument")
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.PreviewDocument(cmd.Context(), id)
		if err != nil {
			return err
		}
		if p.Type == docs.PreviewTypeURL {
			fmt.Printf("Preview of %s: %s\n", p.Filename, p.Content)
			return nil
		}
		fmt.Println(p.Content)
		return nil
	},
}

var docDownloadCmd = &cobra.Command{
	Use:         "download ID...",
	Short:       "Download documents into the vault",
	Args:        cobra.MinimumNArgs(1),
	Annotations: authRequired,
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}

		a, err := newApp(cmd, args, "DownloadDocuments")
		if err != nil {
			return err
		}
		defer a.Close()

		results, err := a.DownloadDocuments(cmd.Context(), ids)
		if err != nil {
			return err
		}
		for _, r := range results {
			fmt.Printf("#%d  %s  %s\n", r.ID, formatSize(r.Size), r.Location)
		}
		return nil
	},
}

var docRenameCmd = &cobra.Command{
	Use:         "rename ID FILENAME",
	Short:       "Rename a document",
	Args:        cobra.ExactArgs(2),
	Annotations: authRequired,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		a, err := newApp(cmd, args, "RenameDocument")
		if err != nil {
			return err
		}
		defer a.Close()

		d, err := a.RenameDocument(cmd.Context(), id, args[1])
		if err != nil {
			return err
		}
		fmt.Printf("Renamed #%d to %s\n", d.ID, d.Filename)
		return nil
	},
}

var docMoveCmd = &cobra.Command{
	Use:         "move ID FOLDER_ID",
	Short:       "Move a document into a folder",
	Args:        cobra.ExactArgs(2),
	Annotations: authRequired,
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}

		a, err := newApp(cmd, args, "MoveDocument")
		if err != nil {
			return err
		}
		defer a.Close()

		d, err := a.MoveDocument(cmd.Context(), ids[0], ids[1])
		if err != nil {
			return err
		}
		fmt.Printf("Moved #%d to %s\n", d.ID, d.FolderName)
		return nil
	},
}

var docDeleteCmd = &cobra.Command{
	Use:         "delete ID...",
	Short:       "Delete documents",
	Args:        cobra.MinimumNArgs(1),
	Annotations: authRequired,
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}

		a, err := newApp(cmd, args, "DeleteDocuments")
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.DeleteDocuments(cmd.Context(), ids)
		if err != nil {
			return err
		}
		printBatchResult("Deleted", result)
		return nil
	},
}

var docBatchDeleteCmd = &cobra.Command{
	Use:   "batch-delete [ID...]",
	Short: "Delete the listed page, or the given documents on it",
	Long: "Loads the page selected by the filter flags, selects the given IDs " +
		"(or the whole page when none are given) and deletes the selection.",
	Annotations: authRequired,
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}

		a, err := newApp(cmd, args, "DeleteDocuments")
		if err != nil {
			return err
		}
		defer a.Close()

		if _, _, err := a.ListDocuments(cmd.Context(), filterFromFlags(cmd)); err != nil {
			return err
		}
		store := a.Documents()
		if len(ids) == 0 {
			store.SelectAll()
		}
		for _, id := range ids {
			if _, ok := store.Get(id); !ok {
				return fmt.Errorf("document #%d is not on the selected page", id)
			}
			store.Toggle(id)
		}
		if !store.HasSelection() {
			return errors.New("no documents match")
		}

		result, err := a.DeleteSelected(cmd.Context())
		if err != nil {
			return err
		}
		printBatchResult("Deleted", result)
		return nil
	},
}

var docStorageCmd = &cobra.Command{
	Use:         "storage",
	Short:       "Show storage usage",
	Annotations: authRequired,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, args, "StorageInfo")
		if err != nil {
			return err
		}
		defer a.Close()

		info, err := a.StorageInfo(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Used:      %s of %s (%.1f%%)\n", formatSize(info.UsedSpace), formatSize(info.TotalQuota), info.UsagePercentage)
		fmt.Printf("Remaining: %s\n", formatSize(info.RemainingSpace))
		if info.NearLimit {
			fmt.Println("Warning: storage is nearly full")
		}
		return nil
	},
}

var docZipCmd = &cobra.Command{
	Use:         "zip ID...",
	Short:       "Download documents as one zip archive",
	Args:        cobra.MinimumNArgs(1),
	Annotations: authRequired,
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}

		a, err := newApp(cmd, args, "ZipDocuments")
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.ZipDocuments(cmd.Context(), ids)
		if err != nil {
			return err
		}
		fmt.Printf("%s  %s\n", formatSize(res.Size), res.Location)
		return nil
	},
}

var docWatchCmd = &cobra.Command{
	Use:         "watch DIR",
	Short:       "Upload files as they appear in a directory",
	Args:        cobra.ExactArgs(1),
	Annotations: authRequired,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, args, "WatchDirectory")
		if err != nil {
			return err
		}
		defer a.Close()

		fmt.Printf("Watching %s (Ctrl-C to stop)\n", args[0])
		return a.WatchDirectory(cmd.Context(), args[0], optionalID(cmd, "folder"), func(d *docs.Document) {
			fmt.Printf("uploaded  %s -> #%d\n", d.Filename, d.ID)
		})
	},
}

func init() {
	docCmd.AddCommand(docListCmd)
	addFilterFlags(docListCmd)
	docCmd.AddCommand(docGetCmd)
	docCmd.AddCommand(docUploadCmd)
	docUploadCmd.Flags().BoolP("recursive", "r", false, "Recurse into subdirectories")
	docUploadCmd.Flags().Int64("folder", 0, "Destination folder ID")
	docCmd.AddCommand(docBatchUploadCmd)
	docBatchUploadCmd.Flags().BoolP("recursive", "r", false, "Recurse into subdirectories")
	docBatchUploadCmd.Flags().Int64("folder", 0, "Destination folder ID")
	docCmd.AddCommand(docPreviewCmd)
	docCmd.AddCommand(docDownloadCmd)
	docCmd.AddCommand(docRenameCmd)
	docCmd.AddCommand(docMoveCmd)
	docCmd.AddCommand(docDeleteCmd)
	docCmd.AddCommand(docBatchDeleteCmd)
	addFilterFlags(docBatchDeleteCmd)
	docCmd.AddCommand(docStorageCmd)
	docCmd.AddCommand(docZipCmd)
	docCmd.AddCommand(docWatchCmd)
	docWatchCmd.Flags().Int64("folder", 0, "Destination folder ID")
}
