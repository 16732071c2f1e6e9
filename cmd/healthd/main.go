package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"healthd/internal/assistant"
	"healthd/internal/cache"
	"healthd/internal/config"
	"healthd/internal/logging"
	"healthd/internal/store"
)

var (
	// Global flags
	configPath string
	verbose    bool
	timeout    time.Duration

	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "healthd",
	Short: "healthd - personal health assistant data backend",
	Long: `healthd manages the persistent health data behind the assistant:
user profiles, medications with materialized reminders, health records,
appointments, and chat history, with an optional Redis acceleration layer.

All commands load configuration from --config (or defaults) and honor the
HEALTHD_* environment overrides.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		if err := logging.Init(level, cfg.Logging.File); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		logging.BootDebug("Loaded config from %q, database %s", configPath, cfg.Database.Path)
		return nil
	},
}

// statsCmd shows per-table row counts and the user id range
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show database statistics",
	RunE:  showStats,
}

// cleanupCmd sweeps orphaned dependent rows
var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Reclaim orphaned rows left by interrupted deletions",
	Long: `Scans every dependent table for rows whose user no longer exists and
deletes them. Reclaimed ids become reusable by the next user creation.
Safe to run repeatedly; a second pass finds nothing.`,
	RunE: runCleanup,
}

// usersCmd groups user administration
var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "User administration commands",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all users",
	RunE:  listUsers,
}

var usersCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a user (idempotent by name)",
	Args:  cobra.ExactArgs(1),
	RunE:  createUser,
}

var usersDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a user and all dependent data",
	Args:  cobra.ExactArgs(1),
	RunE:  deleteUser,
}

var clearAll bool

var usersClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every user and reset id sequences",
	RunE:  clearUsers,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", time.Minute, "Operation timeout")

	var email string
	var age int
	usersCreateCmd.Flags().StringVar(&email, "email", "", "Email address")
	usersCreateCmd.Flags().IntVar(&age, "age", 0, "Age in years")

	usersClearCmd.Flags().BoolVar(&clearAll, "yes", false, "Confirm deleting all data")

	usersCmd.AddCommand(usersListCmd)
	usersCmd.AddCommand(usersCreateCmd)
	usersCmd.AddCommand(usersDeleteCmd)
	usersCmd.AddCommand(usersClearCmd)

	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(usersCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openService wires the store, the cache, and the coordinator on top.
func openService() (*assistant.Service, func(), error) {
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}
	ca := cache.New(cfg.Redis)
	cleanup := func() {
		_ = ca.Close()
		_ = st.Close()
	}
	return assistant.New(st, ca), cleanup, nil
}

func showStats(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	stats, err := st.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to collect stats: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "database\t%s\n", cfg.Database.Path)
	for _, table := range []string{
		"users", "medications", "health_records", "reminders",
		"appointments", "chat_conversations", "chat_messages",
	} {
		fmt.Fprintf(w, "%s\t%d\n", table, stats[table])
	}
	if stats["users"] > 0 {
		fmt.Fprintf(w, "user id range\t%d-%d\n", stats["user_id_min"], stats["user_id_max"])
	}
	return w.Flush()
}

func runCleanup(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	n, err := st.ReclaimOrphans(ctx)
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}
	fmt.Printf("Reclaimed %d orphaned rows\n", n)
	return nil
}

func listUsers(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	users, err := st.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}
	if len(users) == 0 {
		fmt.Println("No users")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tAGE\tCREATED")
	for _, u := range users {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n",
			u.ID, u.Name, u.Email, u.Age, u.CreatedAt.Format("2006-01-02"))
	}
	return w.Flush()
}

func createUser(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	email, _ := cmd.Flags().GetString("email")
	age, _ := cmd.Flags().GetInt("age")

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	id, err := st.CreateUser(ctx, args[0], store.UserParams{Email: email, Age: age})
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	fmt.Printf("User %q has id %d\n", args[0], id)
	return nil
}

func deleteUser(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid user id %q", args[0])
	}

	// Deletion goes through the coordinator so cached state is dropped too.
	svc, cleanup, err := openService()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := svc.RemoveUser(ctx, id); err != nil {
		return fmt.Errorf("failed to delete user %d: %w", id, err)
	}
	fmt.Printf("Deleted user %d\n", id)
	return nil
}

func clearUsers(cmd *cobra.Command, args []string) error {
	if !clearAll {
		return fmt.Errorf("refusing to delete all data without --yes")
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	if err := st.DeleteAllUsers(ctx); err != nil {
		return fmt.Errorf("failed to clear users: %w", err)
	}
	fmt.Println("All users and dependent data deleted")
	return nil
}
