package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kalambet/gnomo/internal/config"
	"github.com/kalambet/gnomo/internal/mcpserver"
	"github.com/kalambet/gnomo/internal/reminder"
)

// --- status ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Probe a running bot's health endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		url, _ := cmd.Flags().GetString("url")
		if url == "" {
			cfg, err := config.LoadPartial()
			if err != nil {
				return err
			}
			url = fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
		}
		return showStatus(cmd, newHealthClient(url))
	},
}

func init() {
	statusCmd.Flags().String("url", "", "health server base URL (default: http://127.0.0.1:$PORT)")
}

func showStatus(cmd *cobra.Command, c *healthClient) error {
	rep, code, err := c.report(cmd.Context())
	if err != nil {
		printStatus("Bot", "stopped")
		return err
	}

	printStatus("Bot", "%s (HTTP %d)", colorize(statusColor(rep.Status), rep.Status), code)

	names := make([]string, 0, len(rep.Details))
	for name := range rep.Details {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		st := rep.Details[name]
		line := colorize(statusColor(st.Status), st.Status)
		if st.Message != "" {
			line += " (" + st.Message + ")"
		}
		printStatus(name, "%s", line)
	}

	if rep.Status != "ok" {
		return errors.New("bot is unhealthy")
	}
	return nil
}

// --- reminders ---

var remindersCmd = &cobra.Command{
	Use:   "reminders",
	Short: "Inspect scheduled reminders",
}

var remindersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending reminders, soonest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		cfg, err := config.LoadPartial()
		if err != nil {
			return err
		}
		loc, err := cfg.Schedule.Location()
		if err != nil {
			return err
		}

		store, err := openStore(cfg)
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		if store == nil {
			printWarning("No key-value store configured; set REDIS_URL or STORE_BACKEND=sqlite.")
			return nil
		}
		defer store.Close()

		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		pending := reminder.NewStore(store, logger).Pending(cmd.Context())

		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if pending == nil {
				pending = []reminder.Reminder{}
			}
			return enc.Encode(pending)
		}
		printReminders(cmd.OutOrStdout(), pending, loc)
		return nil
	},
}

func init() {
	remindersListCmd.Flags().Bool("json", false, "print reminders as JSON")
	remindersCmd.AddCommand(remindersListCmd)
}

func printReminders(w io.Writer, pending []reminder.Reminder, loc *time.Location) {
	if len(pending) == 0 {
		fmt.Fprintln(w, "No pending reminders.")
		return
	}
	for _, r := range pending {
		msg := r.Message
		if runes := []rune(msg); len(runes) > 80 {
			msg = string(runes[:80]) + "..."
		}
		fmt.Fprintf(w, "%s  %s  %s  #%s  %s\n",
			colorize(colorCyan, r.ID),
			r.Due().In(loc).Format("2006-01-02 15:04"),
			r.Username,
			r.ChannelID,
			msg,
		)
	}
}

// --- mcp ---

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the assistant's tools over MCP (stdio)",
	Long: `Serve the assistant's tools over the Model Context Protocol on stdin/stdout.

Tools run without a Discord connection: member lookups report that the
server is unreachable and reminders cannot be created. Pending reminders are
exposed as the reminders://pending resource.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadPartial()
		if err != nil {
			return err
		}
		logger := newLogger(cfg.Log.Level)

		svc, err := buildServices(cfg, logger)
		if err != nil {
			return err
		}
		defer svc.Close()

		deps := mcpserver.Deps{Catalog: svc.catalog, Version: version}
		if svc.reminders.IsAvailable() {
			deps.Reminders = svc.reminders
		}

		logger.Info("MCP server started (stdio transport)")
		return server.NewStdioServer(mcpserver.New(deps)).Listen(cmd.Context(), os.Stdin, os.Stdout)
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration (secrets masked)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadPartial()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(out, "  %s = %s  %s\n", colorize(colorBold, k.Key), k.Value, colorize(colorCyan, "$"+k.EnvVar))
		}
		if err := cfg.Validate(); err != nil {
			printWarning("%v", err)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: fmt.Sprintf(`Set a configuration value in %s.

Secrets (bot token, API keys) are written to the secrets file instead.`, config.ConfigFilePath()),
	Args: cobra.ExactArgs(2),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
		if len(args) == 0 {
			return config.ValidKeys(), cobra.ShellCompDirectiveNoFileComp
		}
		return nil, cobra.ShellCompDirectiveNoFileComp
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s", key)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
