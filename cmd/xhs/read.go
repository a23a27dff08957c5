package main

import (
	"context"
	"time"

	"github.com/flyflypeng/xiaohongshu-skill/pkg/ui"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/xhs"
	"github.com/spf13/cobra"
)

var (
	// login flags
	loginTimeout time.Duration

	// search flags
	searchFilters xhs.SearchFilters
	searchLimit   int

	// feed flags
	feedToken       string
	feedSource      string
	feedComments    bool
	feedMaxComments int

	// user and explore flags
	userToken    string
	exploreLimit int
)

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in by scanning a QR code",
	Long: `Open the explore page and save the login QR code to the artifact directory,
then wait for it to be scanned with the Xiaohongshu app. Cookies are saved once
the login succeeds. Run with --headless=false to scan from the browser window.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), func(ctx context.Context, c *xhs.Client) (interface{}, error) {
			ui.PrintInfo("Timeout", loginTimeout.String())
			return c.Login(ctx, loginTimeout)
		})
	},
}

// checkLoginCmd represents the check-login command
var checkLoginCmd = &cobra.Command{
	Use:   "check-login",
	Short: "Report whether the saved session is logged in",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), func(ctx context.Context, c *xhs.Client) (interface{}, error) {
			return c.CheckLogin(ctx, true)
		})
	},
}

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <keyword>",
	Short: "Search notes by keyword",
	Example: `  xhs search 咖啡
  xhs search 露营 --sort 最新 --note-type 图文 --limit 20`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := xhs.SearchRequest{Keyword: args[0], Filters: searchFilters, Limit: searchLimit}
		return withClient(cmd.Context(), func(ctx context.Context, c *xhs.Client) (interface{}, error) {
			ui.PrintInfo("Keyword", req.Keyword)
			return c.Search(ctx, req)
		})
	},
}

// feedCmd represents the feed command
var feedCmd = &cobra.Command{
	Use:   "feed <feed-id> [xsec-token]",
	Short: "Read a note's detail",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := xhs.DetailRequest{
			FeedID:       args[0],
			XsecToken:    tokenArg(args, feedToken),
			XsecSource:   feedSource,
			LoadComments: feedComments,
			MaxComments:  feedMaxComments,
		}
		return withClient(cmd.Context(), func(ctx context.Context, c *xhs.Client) (interface{}, error) {
			return c.FeedDetail(ctx, req)
		})
	},
}

// userCmd represents the user command
var userCmd = &cobra.Command{
	Use:   "user <user-id> [xsec-token]",
	Short: "Read a user's profile and notes",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), func(ctx context.Context, c *xhs.Client) (interface{}, error) {
			return c.UserProfile(ctx, args[0], tokenArg(args, userToken))
		})
	},
}

// meCmd represents the me command
var meCmd = &cobra.Command{
	Use:   "me",
	Short: "Read the logged-in account's profile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), func(ctx context.Context, c *xhs.Client) (interface{}, error) {
			return c.MyProfile(ctx)
		})
	},
}

// exploreCmd represents the explore command
var exploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "List recommended notes from the explore page",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), func(ctx context.Context, c *xhs.Client) (interface{}, error) {
			return c.Explore(ctx, exploreLimit)
		})
	},
}

// tokenArg prefers an access token given as the second argument over the flag
func tokenArg(args []string, flag string) string {
	if len(args) > 1 && args[1] != "" {
		return args[1]
	}
	return flag
}

func init() {
	rootCmd.AddCommand(loginCmd, checkLoginCmd, searchCmd, feedCmd, userCmd, meCmd, exploreCmd)

	loginCmd.Flags().DurationVar(&loginTimeout, "wait", 2*time.Minute, "how long to wait for the QR code to be scanned")

	searchCmd.Flags().StringVar(&searchFilters.SortBy, "sort", "", "sort order (综合, 最新, 最多点赞, 最多评论, 最多收藏)")
	searchCmd.Flags().StringVar(&searchFilters.NoteType, "note-type", "", "note type (不限, 视频, 图文)")
	searchCmd.Flags().StringVar(&searchFilters.PublishTime, "publish-time", "", "publish time (不限, 一天内, 一周内, 半年内)")
	searchCmd.Flags().StringVar(&searchFilters.SearchScope, "scope", "", "search scope (不限, 已看过, 未看过, 已关注)")
	searchCmd.Flags().StringVar(&searchFilters.Location, "location", "", "location (不限, 同城, 附近)")
	searchCmd.Flags().IntVar(&searchLimit, "limit", xhs.DefaultSearchLimit, "maximum number of results")

	feedCmd.Flags().StringVar(&feedToken, "xsec-token", "", "note access token from a feed listing")
	feedCmd.Flags().StringVar(&feedSource, "xsec-source", xhs.SourceFeed, "access token source")
	feedCmd.Flags().BoolVar(&feedComments, "comments", false, "scroll to load comments before reading")
	feedCmd.Flags().IntVar(&feedMaxComments, "max-comments", 0, "stop loading comments at this many (0 loads all)")

	userCmd.Flags().StringVar(&userToken, "xsec-token", "", "profile access token from a feed listing")

	exploreCmd.Flags().IntVar(&exploreLimit, "limit", 20, "maximum number of notes")
}
