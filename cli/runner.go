// Command execution for CLI commands.
//
// Information Hiding:
// - Store and service setup hidden
// - Output formatting hidden

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/idan2025/subscription-tracker/config"
	"github.com/idan2025/subscription-tracker/service"
	"github.com/idan2025/subscription-tracker/storage"
)

// Options holds CLI execution options.
type Options struct {
	DBPath string
	UserID int64
}

// DefaultOptions returns default CLI options.
func DefaultOptions() Options {
	return Options{
		DBPath: "subtrack.db",
		UserID: 1,
	}
}

// open builds the store and service for one command invocation.
func open(opts Options) (*storage.Store, *service.Service, error) {
	settings, err := config.New()
	if err != nil {
		return nil, nil, err
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = settings.DBPath
	}

	store, err := storage.Open(dbPath)
	if err != nil {
		return nil, nil, err
	}
	return store, service.New(store, settings.SearchCallsPerMin), nil
}

// reportRequestError prints gating and upstream failures in a uniform shape.
func reportRequestError(err error) error {
	var reqErr *service.RequestError
	if errors.As(err, &reqErr) {
		fmt.Fprintf(os.Stderr, "Error (%d): %s\n", reqErr.Status, reqErr.Message)
		return err
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return err
}

// TestConnection probes the configured AI provider.
func TestConnection(ctx context.Context, opts Options) error {
	store, svc, err := open(opts)
	if err != nil {
		return err
	}
	defer store.Close()

	probe, err := svc.TestConnection(ctx)
	if err != nil {
		return reportRequestError(err)
	}

	status := "FAILED"
	if probe.Success {
		status = "OK"
	}
	fmt.Printf("%s [%s]: %s\n", probe.Provider, status, probe.Message)
	if !probe.Success {
		return fmt.Errorf("connection test failed")
	}
	return nil
}

// Alternatives finds replacements for one subscription.
func Alternatives(ctx context.Context, subscriptionID int64, opts Options) error {
	store, svc, err := open(opts)
	if err != nil {
		return err
	}
	defer store.Close()

	result, err := svc.FindAlternatives(ctx, subscriptionID, opts.UserID)
	if err != nil {
		return reportRequestError(err)
	}

	fmt.Printf("Found %d alternative(s):\n\n", len(result.Alternatives))
	for _, alt := range result.Alternatives {
		fmt.Printf("- %s (%s)\n", alt.Name, alt.Price)
		fmt.Printf("  %s\n", alt.Description)
		if alt.Differences != "" {
			fmt.Printf("  Differences: %s\n", alt.Differences)
		}
		fmt.Println()
	}
	return nil
}

// Analyze prints AI spending insights.
func Analyze(ctx context.Context, opts Options) error {
	store, svc, err := open(opts)
	if err != nil {
		return err
	}
	defer store.Close()

	result, err := svc.SpendingAnalysis(ctx, opts.UserID)
	if err != nil {
		return reportRequestError(err)
	}

	for _, insight := range result.Insights {
		fmt.Printf("## %s\n%s\n\n", insight.Title, insight.Description)
	}
	return nil
}

// Recommend prints AI cost-optimization recommendations.
func Recommend(ctx context.Context, opts Options) error {
	store, svc, err := open(opts)
	if err != nil {
		return err
	}
	defer store.Close()

	result, err := svc.Recommendations(ctx, opts.UserID)
	if err != nil {
		return reportRequestError(err)
	}

	for _, rec := range result.Recommendations {
		fmt.Printf("## %s [%s, savings: %s]\n%s\n\n",
			rec.Title, rec.Priority, rec.Savings, rec.Description)
	}
	return nil
}

// Chat sends one message to the assistant, persisting the session.
// Prints the session ID so follow-ups can continue the conversation.
func Chat(ctx context.Context, message, sessionID string, opts Options) error {
	store, svc, err := open(opts)
	if err != nil {
		return err
	}
	defer store.Close()

	result, err := svc.ChatSession(ctx, sessionID, message, opts.UserID)
	if err != nil {
		return reportRequestError(err)
	}

	fmt.Printf("%s\n\n(session: %s)\n", result.Response, result.SessionID)
	return nil
}

// List prints the user's subscriptions and dashboard totals.
func List(ctx context.Context, opts Options) error {
	store, _, err := open(opts)
	if err != nil {
		return err
	}
	defer store.Close()

	subs, err := store.ListSubscriptions(ctx, opts.UserID)
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		fmt.Println("No subscriptions.")
		return nil
	}
	for _, sub := range subs {
		line := fmt.Sprintf("[%d] %s: $%.2f/%s", sub.ID, sub.Name, sub.Cost, sub.BillingCycle)
		if sub.Category != "" {
			line += fmt.Sprintf(" (%s)", sub.Category)
		}
		if sub.Status != storage.StatusActive {
			line += fmt.Sprintf(" [%s]", sub.Status)
		}
		fmt.Printf("%s, renews %s\n", line, sub.RenewalDate)
	}

	stats, err := store.Dashboard(ctx, opts.UserID)
	if err != nil {
		return err
	}
	fmt.Printf("\nActive: %d | Monthly: $%.2f | Yearly: $%.2f\n",
		stats.TotalSubscriptions, stats.MonthlyCost, stats.YearlyCost)
	return nil
}

// Add creates a subscription for the user.
func Add(ctx context.Context, sub storage.Subscription, opts Options) error {
	store, _, err := open(opts)
	if err != nil {
		return err
	}
	defer store.Close()

	sub.UserID = opts.UserID
	id, err := store.CreateSubscription(ctx, sub)
	if err != nil {
		return err
	}
	fmt.Printf("Added subscription %d: %s\n", id, sub.Name)
	return nil
}

// Configure updates the admin settings row from CLI flags.
func Configure(ctx context.Context, settings storage.AdminSettings, opts Options) error {
	store, _, err := open(opts)
	if err != nil {
		return err
	}
	defer store.Close()

	settings.AIProvider = strings.ToLower(settings.AIProvider)
	if err := store.SaveSettings(ctx, settings); err != nil {
		return err
	}
	state := "disabled"
	if settings.AIEnabled {
		state = "enabled"
	}
	fmt.Printf("AI %s (provider: %s)\n", state, settings.AIProvider)
	return nil
}
