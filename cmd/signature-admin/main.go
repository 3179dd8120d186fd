package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"signature-form-api/config"
	"signature-form-api/middleware"
	"signature-form-api/services"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type app struct {
	submissions *services.SubmissionService
	sweeper     *services.OrphanSweeper
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "signature-admin",
		Short:        "Inspect and maintain signature agreement submissions",
		SilenceUsage: true,
	}

	// connect is run only by subcommands that touch the database
	connect := func(*cobra.Command, []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		db, err := config.OpenDB(cfg)
		if err != nil {
			return err
		}
		files, err := services.NewFileStore(cfg.Upload.Path)
		if err != nil {
			return err
		}
		a.submissions = services.NewSubmissionService(db, files)
		a.sweeper = services.NewOrphanSweeper(files, a.submissions, cfg.OrphanMaxAge, nil).WithLock(db)
		return nil
	}

	var page, perPage int
	list := &cobra.Command{
		Use:     "list",
		Short:   "List submissions, newest first",
		Args:    cobra.NoArgs,
		PreRunE: connect,
		RunE: func(cmd *cobra.Command, _ []string) error {
			items, total, err := a.submissions.List(cmd.Context(), page, perPage)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]any{"total": total, "page": page, "data": items})
		},
	}
	list.Flags().IntVar(&page, "page", 1, "page number")
	list.Flags().IntVar(&perPage, "per-page", 50, "rows per page")

	show := &cobra.Command{
		Use:     "show <id>",
		Short:   "Show one submission",
		Args:    cobra.ExactArgs(1),
		PreRunE: connect,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			submission, err := a.submissions.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd, submission)
		},
	}

	files := &cobra.Command{
		Use:     "files <id>",
		Short:   "Print the on-disk signature files of a submission",
		Args:    cobra.ExactArgs(1),
		PreRunE: connect,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			paths, err := a.submissions.SignatureFilePaths(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd, paths)
		},
	}

	deleteFiles := &cobra.Command{
		Use:     "delete-files <id>",
		Short:   "Delete the signature files of a submission and clear its file columns",
		Args:    cobra.ExactArgs(1),
		PreRunE: connect,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			removed, err := a.submissions.DeleteSignatureFiles(cmd.Context(), id)
			fmt.Fprintf(cmd.OutOrStdout(), "Files deleted: %d\n", removed)
			return err
		},
	}

	sweep := &cobra.Command{
		Use:     "sweep",
		Short:   "Remove orphaned temporary signature files",
		Args:    cobra.NoArgs,
		PreRunE: connect,
		RunE: func(cmd *cobra.Command, _ []string) error {
			summary, err := a.sweeper.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, summary)
		},
	}

	var subject string
	var ttl time.Duration
	token := &cobra.Command{
		Use:   "token",
		Short: "Issue an admin bearer token signed with ADMIN_JWT_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			signed, err := middleware.IssueAdminToken(os.Getenv("ADMIN_JWT_SECRET"), subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}
	token.Flags().StringVar(&subject, "subject", "signature-admin", "token subject")
	token.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")

	root.AddCommand(list, show, files, deleteFiles, sweep, token)
	return root
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid submission id %q", raw)
	}
	return uint(id), nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
