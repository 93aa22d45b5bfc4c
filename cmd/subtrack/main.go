// Package main provides the subtrack CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/idan2025/subscription-tracker/cli"
	"github.com/idan2025/subscription-tracker/storage"
)

var (
	// Global flags
	dbPath string
	userID int64
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "subtrack",
		Short: "AI-powered subscription tracker",
		Long: `Track recurring subscriptions and let an AI assistant find cheaper
alternatives, analyze spending, and answer questions — optionally grounded in
live web search.

AI provider, credentials, and feature flags are stored in the database; use
'subtrack configure' to set them up.`,
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (default subtrack.db, or SUBTRACK_DB_PATH)")
	rootCmd.PersistentFlags().Int64Var(&userID, "user", 1, "User ID to act as")

	rootCmd.AddCommand(testConnectionCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(addCmd())
	rootCmd.AddCommand(alternativesCmd())
	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(recommendCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(configureCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func options() cli.Options {
	return cli.Options{DBPath: dbPath, UserID: userID}
}

func testConnectionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test-connection",
		Short: "Probe the configured AI provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.TestConnection(context.Background(), options())
		},
	}
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List subscriptions and dashboard totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.List(context.Background(), options())
		},
	}
}

func addCmd() *cobra.Command {
	var (
		cost     float64
		cycle    string
		renewal  string
		category string
	)
	cmd := &cobra.Command{
		Use:   "add [name]",
		Short: "Add a subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sub := storage.Subscription{
				Name:         args[0],
				Cost:         cost,
				BillingCycle: cycle,
				RenewalDate:  renewal,
				Category:     category,
			}
			return cli.Add(context.Background(), sub, options())
		},
	}
	cmd.Flags().Float64Var(&cost, "cost", 0, "Cost per billing cycle")
	cmd.Flags().StringVar(&cycle, "cycle", "monthly", "Billing cycle (monthly, yearly, weekly)")
	cmd.Flags().StringVar(&renewal, "renewal", "", "Next renewal date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&category, "category", "", "Category (e.g. streaming, music)")
	_ = cmd.MarkFlagRequired("cost")
	_ = cmd.MarkFlagRequired("renewal")
	return cmd
}

func alternativesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "alternatives [subscription-id]",
		Short: "Find cheaper alternatives for a subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid subscription id %q", args[0])
			}
			return cli.Alternatives(context.Background(), id, options())
		},
	}
}

func analyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze",
		Short: "Get AI insights on subscription spending",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Analyze(context.Background(), options())
		},
	}
}

func recommendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recommend",
		Short: "Get personalized cost-optimization recommendations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Recommend(context.Background(), options())
		},
	}
}

func chatCmd() *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Ask the assistant about your subscriptions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Chat(context.Background(), args[0], sessionID, options())
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "Session ID to continue a conversation")
	return cmd
}

func configureCmd() *cobra.Command {
	var settings storage.AdminSettings
	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Store AI provider settings and feature flags",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Configure(context.Background(), settings, options())
		},
	}
	cmd.Flags().BoolVar(&settings.AIEnabled, "ai-enabled", false, "Enable AI features")
	cmd.Flags().StringVar(&settings.AIProvider, "provider", "none", "AI provider (claude, openai, ollama)")
	cmd.Flags().StringVar(&settings.APIKey, "api-key", "", "API key (or server URL for ollama)")
	cmd.Flags().StringVar(&settings.OllamaModel, "ollama-model", "", "Ollama model name")
	cmd.Flags().BoolVar(&settings.FeatureAlternatives, "feature-alternatives", false, "Enable alternatives finder")
	cmd.Flags().BoolVar(&settings.FeatureChat, "feature-chat", false, "Enable chat")
	cmd.Flags().BoolVar(&settings.FeatureAnalysis, "feature-analysis", false, "Enable spending analysis")
	cmd.Flags().BoolVar(&settings.FeatureRecommendations, "feature-recommendations", false, "Enable recommendations")
	cmd.Flags().BoolVar(&settings.InternetAccessEnabled, "internet-access", false, "Allow web search tools")
	cmd.Flags().StringVar(&settings.SearchMethod, "search-method", "free_scraping", "Search backend (free_scraping, serpapi, google_custom)")
	cmd.Flags().StringVar(&settings.SearchAPIKey, "search-api-key", "", "API key for paid search backends")
	cmd.Flags().BoolVar(&settings.ToolCallingEnabled, "tool-calling", true, "Enable tool calling")
	return cmd
}
