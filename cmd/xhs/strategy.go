package main

import (
	"github.com/flyflypeng/xiaohongshu-skill/pkg/strategy"
	"github.com/spf13/cobra"
)

var (
	persona      string
	audience     string
	directions   []string
	postDate     string
	postTopic    string
	postType     string
	postNotes    string
	upcomingDays int
)

// strategyCmd represents the strategy command
var strategyCmd = &cobra.Command{
	Use:   "strategy",
	Short: "Manage account positioning, daily quotas and the content calendar",
	Long: `Manage the strategy document: account positioning, per-day action quotas
and the content calendar. Quotas are counted per calendar day; log entries older
than a week are dropped on write.

Action types: likes, comments, replies, collects, publishes.`,
}

var strategyInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Set the account persona, audience and content directions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLedger(func(l *strategy.Ledger) (interface{}, error) {
			return l.InitStrategy(persona, audience, directions)
		})
	},
}

var strategyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the strategy with today's usage and the coming week's posts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLedger(func(l *strategy.Ledger) (interface{}, error) {
			return l.Show(), nil
		})
	},
}

var strategyCheckCmd = &cobra.Command{
	Use:   "check-limit <action-type>",
	Short: "Report whether an action type still has quota today",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLedger(func(l *strategy.Ledger) (interface{}, error) {
			return l.CheckLimit(args[0]), nil
		})
	},
}

var strategyRecordCmd = &cobra.Command{
	Use:   "record <action-type>",
	Short: "Count one action against today's quota",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLedger(func(l *strategy.Ledger) (interface{}, error) {
			return l.RecordAction(args[0])
		})
	},
}

var strategyAddPostCmd = &cobra.Command{
	Use:   "add-post",
	Short: "Add a planned post to the content calendar",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLedger(func(l *strategy.Ledger) (interface{}, error) {
			return l.AddScheduledPost(postDate, postTopic, postType, postNotes)
		})
	},
}

var strategyUpcomingCmd = &cobra.Command{
	Use:   "upcoming",
	Short: "List planned posts for the coming days",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLedger(func(l *strategy.Ledger) (interface{}, error) {
			return l.UpcomingPosts(upcomingDays), nil
		})
	},
}

// withLedger opens the strategy document, runs fn and prints its result
func withLedger(fn func(l *strategy.Ledger) (interface{}, error)) error {
	ledger, err := openLedger()
	if err != nil {
		return err
	}
	result, err := fn(ledger)
	if err != nil {
		return err
	}
	return emit(result)
}

func init() {
	rootCmd.AddCommand(strategyCmd)
	strategyCmd.AddCommand(strategyInitCmd, strategyShowCmd, strategyCheckCmd,
		strategyRecordCmd, strategyAddPostCmd, strategyUpcomingCmd)

	strategyInitCmd.Flags().StringVar(&persona, "persona", "", "account persona (required)")
	strategyInitCmd.Flags().StringVar(&audience, "audience", "", "target audience")
	strategyInitCmd.Flags().StringSliceVar(&directions, "direction", nil, "content direction (repeatable or comma separated)")
	_ = strategyInitCmd.MarkFlagRequired("persona")

	strategyAddPostCmd.Flags().StringVar(&postDate, "date", "", "post date as YYYY-MM-DD (required)")
	strategyAddPostCmd.Flags().StringVar(&postTopic, "topic", "", "post topic (required)")
	strategyAddPostCmd.Flags().StringVar(&postType, "type", "图文", "note type")
	strategyAddPostCmd.Flags().StringVar(&postNotes, "notes", "", "free-form notes")
	_ = strategyAddPostCmd.MarkFlagRequired("date")
	_ = strategyAddPostCmd.MarkFlagRequired("topic")

	strategyUpcomingCmd.Flags().IntVar(&upcomingDays, "days", 7, "how many days ahead to list")
}
