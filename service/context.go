package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/idan2025/subscription-tracker/storage"
)

const emptyPortfolioMarker = "Total Active Subscriptions: 0"

// portfolioContext builds the subscription summary injected into AI prompts.
// Subscriptions are listed most expensive first.
func portfolioContext(ctx context.Context, store *storage.Store, userID int64) (string, error) {
	subs, err := store.ActiveSubscriptions(ctx, userID)
	if err != nil {
		return "", err
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].Cost > subs[j].Cost })

	var monthly, yearly float64
	for _, sub := range subs {
		monthly += sub.MonthlyCost()
		yearly += sub.YearlyCost()
	}

	var sb strings.Builder
	sb.WriteString("User's Subscription Portfolio:\n")
	fmt.Fprintf(&sb, "Total Active Subscriptions: %d\n", len(subs))
	fmt.Fprintf(&sb, "Monthly Cost: $%.2f\n", monthly)
	fmt.Fprintf(&sb, "Yearly Cost: $%.2f\n\n", yearly)
	sb.WriteString("Individual Subscriptions:\n")

	for _, sub := range subs {
		fmt.Fprintf(&sb, "- %s: $%s/%s", sub.Name, formatCost(sub.Cost), sub.BillingCycle)
		if sub.Category != "" {
			fmt.Fprintf(&sb, " (%s)", sub.Category)
		}
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func formatCost(cost float64) string {
	return strconv.FormatFloat(cost, 'f', -1, 64)
}
