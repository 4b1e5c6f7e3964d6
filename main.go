package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"taskdeck/internal/branchkey"
	"taskdeck/internal/config"
	"taskdeck/internal/dashboard"
	"taskdeck/internal/github"
	"taskdeck/internal/gitscan"
	"taskdeck/internal/jira"
	"taskdeck/internal/model"
	"taskdeck/internal/overlay"
	"taskdeck/internal/prcache"
	"taskdeck/internal/reconcile"
	"taskdeck/internal/tui"
	"taskdeck/internal/web"
)

var (
	flagAddr    string
	flagStore   string
	flagVerbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "taskdeck",
		Short: "Personal work dashboard: tickets, pull requests, local branches",
		Long: `Taskdeck aggregates your assigned tickets, the pull requests linked to
them, and the state of your local clones into one reconciled view.
Run without arguments for the interactive terminal dashboard.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			service, cleanup, err := buildService()
			if err != nil {
				return err
			}
			defer cleanup()

			p := tea.NewProgram(tui.New(service), tea.WithAltScreen())
			_, err = p.Run()
			return err
		},
	}

	rootCmd.PersistentFlags().StringVar(&flagStore, "store", "", "overlay database path (default ~/.taskdeck/taskdeck.db)")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "debug logging")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(listCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard as a JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			service, cleanup, err := buildService()
			if err != nil {
				return err
			}
			defer cleanup()

			// keep the snapshot warm between requests
			go service.Run(cmd.Context(), 30*time.Second, nil)

			return web.NewServer(service, logger()).Run(flagAddr)
		},
	}
	cmd.Flags().StringVar(&flagAddr, "addr", ":8383", "listen address")
	return cmd
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the reconciled task list once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			service, cleanup, err := buildService()
			if err != nil {
				return err
			}
			defer cleanup()

			snap := service.Snapshot(cmd.Context())
			printTasks(snap.Tasks, 0)
			if snap.RateLimited {
				color.Yellow("note: pull request host is rate limited, data may be stale")
			}
			return nil
		},
	}
}

func printTasks(tasks []model.Task, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, t := range tasks {
		key := color.New(color.Bold).Sprint(t.Key)
		if !t.Visible {
			fmt.Printf("%s%s  %s %s\n", indent, color.New(color.Faint).Sprint(t.Key), t.Ticket.Title, color.New(color.Faint).Sprint("(hidden)"))
		} else {
			fmt.Printf("%s%s  %s\n", indent, key, t.Ticket.Title)
		}
		fmt.Printf("%s    %s", indent, statusColor(t.Status).Sprint(t.Status))
		if t.InSprint {
			fmt.Printf("  %s", color.GreenString("sprint"))
		}
		fmt.Println()
		for _, pr := range t.PullRequests {
			fmt.Printf("%s    #%d %s  %s", indent, pr.Number, pr.Title, reviewColor(pr.ReviewState).Sprint(string(pr.ReviewState)))
			if pr.LocalStatus != nil {
				fmt.Printf("  %s", color.New(color.Faint).Sprintf("↑%d ↓%d", pr.LocalStatus.Ahead, pr.LocalStatus.Behind))
			}
			fmt.Println()
		}
		for _, br := range t.LocalBranches {
			track := "up to date"
			if br.Ahead > 0 || br.Behind > 0 {
				track = fmt.Sprintf("↑%d ↓%d", br.Ahead, br.Behind)
			}
			fmt.Printf("%s    %s  %s\n", indent, br.Name, color.New(color.Faint).Sprint(track))
		}
		printTasks(t.Children, depth+1)
	}
}

func statusColor(status string) *color.Color {
	switch strings.ToLower(status) {
	case "in progress":
		return color.New(color.FgGreen)
	case "blocked", "rejected":
		return color.New(color.FgRed)
	case "qa", "review":
		return color.New(color.FgYellow)
	default:
		return color.New(color.Faint)
	}
}

func reviewColor(state model.ReviewState) *color.Color {
	switch state {
	case model.ReviewApproved:
		return color.New(color.FgGreen)
	case model.ReviewChangesRequested:
		return color.New(color.FgRed)
	case model.ReviewPending:
		return color.New(color.FgYellow)
	default:
		return color.New(color.Faint)
	}
}

func logger() *slog.Logger {
	level := slog.LevelWarn
	if flagVerbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// buildService wires configuration, clients, caches, and the overlay
// into a dashboard service. The returned cleanup closes the overlay.
func buildService() (*dashboard.Service, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log := logger()
	slog.SetDefault(log)

	storePath := flagStore
	if storePath == "" {
		storePath = config.DefaultStorePath()
	}
	if err := os.MkdirAll(filepath.Dir(storePath), 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating state directory: %w", err)
	}
	store, err := overlay.Open(storePath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening overlay store: %w", err)
	}

	extract := branchkey.Extractor{DefaultProject: cfg.Jira.Project}
	tickets := jira.New(cfg.Jira, log)
	gh := github.New(cfg.GitHub, extract, log)

	repos := prcache.NewActiveSet(gh, cfg.GitHub.Repos, cfg.GitHub.ProbeLimit, log)
	cache := prcache.New(gh, repos, log)
	scanner := gitscan.NewScanner(cfg.Git.Roots, log)
	ranks := reconcile.RanksFrom(cfg.Ranks)

	var reviews dashboard.ReviewSource
	if gh.Configured() {
		reviews = gh
	}

	service := dashboard.New(tickets, cache, reviews, scanner, store, ranks, log)
	return service, func() { store.Close() }, nil
}
