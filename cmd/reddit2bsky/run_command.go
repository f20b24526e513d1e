package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/StuxnetStudios/reddit-2-bsky/internal/bluesky"
	"github.com/StuxnetStudios/reddit-2-bsky/internal/config"
	"github.com/StuxnetStudios/reddit-2-bsky/internal/pipeline"
	"github.com/StuxnetStudios/reddit-2-bsky/internal/reddit"
	"github.com/StuxnetStudios/reddit-2-bsky/internal/services"
	"github.com/StuxnetStudios/reddit-2-bsky/internal/store"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var limitFlag int
	var allFlag bool

	cmd := &cobra.Command{
		Use:   "run [subreddit...]",
		Short: "Fetch top image posts and publish new ones",
		Long: "Runs one fetch-dedup-publish pass. Subreddits given as arguments " +
			"override the configured list; with no arguments on a terminal, a " +
			"picker is shown. Use --all to take the configured list as-is.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				if limitFlag >= 0 {
					cfg.Pipeline.PostLimit = limitFlag
				}

				subreddits, err := selectSubreddits(cmd, cfg, args, allFlag)
				if err != nil {
					return err
				}
				if len(subreddits) == 0 {
					return errors.New("no subreddits selected")
				}

				lock := flock.New(cfg.LockPath())
				locked, err := lock.TryLock()
				if err != nil {
					return fmt.Errorf("acquire run lock: %w", err)
				}
				if !locked {
					return fmt.Errorf("another run holds the lock at %s", cfg.LockPath())
				}
				defer lock.Unlock()

				logger, err := ctx.newLogger(cfg)
				if err != nil {
					return err
				}

				runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()

				source := reddit.NewClient(&cfg.Reddit, logger)
				publisher := bluesky.NewClient(&cfg.Bluesky, st, logger)
				runner := pipeline.NewRunner(cfg, st, source, publisher, logger)

				result, runErr := runner.Run(runCtx, subreddits)
				printRunSummary(cmd, result)
				if runErr != nil {
					if errors.Is(runErr, services.ErrRateLimited) && result.CooldownUntil != nil {
						return fmt.Errorf("rate limited; next run allowed after %s",
							result.CooldownUntil.Local().Format("2006-01-02 15:04:05"))
					}
					return runErr
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limitFlag, "limit", "n", -1, "Maximum posts to publish this run (0 = unlimited)")
	cmd.Flags().BoolVarP(&allFlag, "all", "a", false, "Use every configured subreddit without prompting")
	return cmd
}

// selectSubreddits picks the source list: explicit arguments win, --all takes
// the configured list, and an interactive terminal gets a numbered picker.
// Headless invocations without arguments also fall through to the full list
// so cron runs never block on stdin.
func selectSubreddits(cmd *cobra.Command, cfg *config.Config, args []string, all bool) ([]string, error) {
	if len(args) > 0 {
		cleaned := make([]string, 0, len(args))
		for _, arg := range args {
			name := strings.TrimPrefix(strings.TrimSpace(arg), "r/")
			if name != "" {
				cleaned = append(cleaned, name)
			}
		}
		return cleaned, nil
	}
	if all || !isatty.IsTerminal(os.Stdin.Fd()) {
		return cfg.Reddit.Subreddits, nil
	}
	return promptSubreddits(cmd, cfg.Reddit.Subreddits)
}

func promptSubreddits(cmd *cobra.Command, configured []string) ([]string, error) {
	if len(configured) <= 1 {
		return configured, nil
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Configured subreddits:")
	for i, name := range configured {
		fmt.Fprintf(out, "  %d) r/%s\n", i+1, name)
	}
	fmt.Fprint(out, "Pick numbers separated by spaces, or press enter for all: ")

	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return configured, nil
	}
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) == 0 {
		return configured, nil
	}

	var picked []string
	for _, field := range fields {
		index, err := strconv.Atoi(field)
		if err != nil || index < 1 || index > len(configured) {
			return nil, fmt.Errorf("invalid selection %q (expected 1-%d)", field, len(configured))
		}
		picked = append(picked, configured[index-1])
	}
	return picked, nil
}

func printRunSummary(cmd *cobra.Command, result pipeline.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Candidates: %d  Published: %d  Duplicates: %d  Failures: %d\n",
		result.Candidates, result.Published, result.Duplicates, result.Failures)
}
