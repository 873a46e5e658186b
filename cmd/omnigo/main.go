package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/omnigo/internal/archive"
	"github.com/dharsanguruparan/omnigo/internal/auth"
	"github.com/dharsanguruparan/omnigo/internal/config"
	"github.com/dharsanguruparan/omnigo/internal/database"
	"github.com/dharsanguruparan/omnigo/internal/document"
	"github.com/dharsanguruparan/omnigo/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "omnigo: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "omnigo",
		Short: "Omnigo operations CLI",
		Long: `Omnigo CLI covers the chores around the distribution service: seeding the
archive, minting development tokens, inspecting PDFs, running tests, and launching the
binaries directly.`,
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newSeedCmd(),
		newTokenCmd(),
		newInspectCmd(),
		newTestCmd(),
		newRunCmd(),
	)
	return cmd
}

// newSeedCmd loads the demo jobs into Postgres. Jobs that already exist are
// left alone, so the command can be rerun.
func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the demo job history into the configured database",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger.Init(cfg.LogLevel, cfg.LogFormat)
			if cfg.DatabaseURL == "" {
				return errors.New("OMNIGO_DATABASE_URL is not set")
			}
			pool, err := database.Connect(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := database.EnsureSchema(ctx, pool); err != nil {
				return err
			}

			store := archive.NewPGStore(pool)
			var added, skipped int
			for _, job := range archive.SeedJobs() {
				if _, err := store.Get(ctx, job.ID, archive.FilterAll); err == nil {
					skipped++
					continue
				} else if !errors.Is(err, archive.ErrNotFound) {
					return err
				}
				if err := store.Record(ctx, job); err != nil {
					return fmt.Errorf("seed job %s: %w", job.ID, err)
				}
				added++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d jobs, %d already present\n", added, skipped)
			return nil
		},
	}
}

func newTokenCmd() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <subject>",
		Short: "Mint a bearer token signed with OMNIGO_AUTH_SECRET",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.AuthSecret == "" {
				return errors.New("OMNIGO_AUTH_SECRET is not set")
			}
			token, exp, err := auth.GenerateToken(args[0], cfg.AuthSecret, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", exp.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	return cmd
}

func newInspectCmd() *cobra.Command {
	var withText bool
	cmd := &cobra.Command{
		Use:   "inspect <file.pdf>",
		Short: "Print page count and optionally the text of a PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			pages, err := document.PageCount(data)
			if err != nil {
				return err
			}
			out := map[string]any{"file": args[0], "bytes": len(data), "pages": pages}
			if withText {
				text, err := document.ExtractText(data)
				if err != nil {
					return err
				}
				out["text"] = text
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().BoolVar(&withText, "text", false, "Include extracted text")
	return cmd
}

func newTestCmd() *cobra.Command {
	var race bool
	var cover bool
	cmd := &cobra.Command{
		Use:   "test [packages]",
		Short: "Run Go tests (defaults to ./...)",
		RunE: func(cmd *cobra.Command, args []string) error {
			pkgs := args
			if len(pkgs) == 0 {
				pkgs = []string{"./..."}
			}
			goArgs := []string{"test"}
			if race {
				goArgs = append(goArgs, "-race")
			}
			if cover {
				goArgs = append(goArgs, "-cover")
			}
			goArgs = append(goArgs, pkgs...)
			return runCommand(cmd.Context(), "go", goArgs...)
		},
	}
	cmd.Flags().BoolVar(&race, "race", false, "Enable Go race detector")
	cmd.Flags().BoolVar(&cover, "cover", false, "Collect coverage data")
	return cmd
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run individual Go binaries directly",
	}
	cmd.AddCommand(
		newServiceRunner("server", "./cmd/server"),
		newServiceRunner("worker", "./cmd/worker"),
	)
	return cmd
}

func newServiceRunner(name, path string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: fmt.Sprintf("go run %s", path),
		RunE: func(cmd *cobra.Command, args []string) error {
			goArgs := append([]string{"run", path}, args...)
			return runCommand(cmd.Context(), "go", goArgs...)
		},
	}
}

func runCommand(ctx context.Context, name string, args ...string) error {
	execCmd := exec.CommandContext(ctx, name, args...)
	execCmd.Stdout = os.Stdout
	execCmd.Stderr = os.Stderr
	execCmd.Stdin = os.Stdin
	return execCmd.Run()
}
