package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/flyflypeng/xiaohongshu-skill/internal/executor"
	errs "github.com/flyflypeng/xiaohongshu-skill/pkg/errors"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/logger"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/sop"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/state"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/strategy"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/ui"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/xhs"
	"github.com/spf13/cobra"
)

var (
	// sop publish flags
	planReq sop.PublishRequest

	// sop comment flags
	itemsFile   string
	cooldownMin float64
	cooldownMax float64

	// sop explore flags
	exploreFeeds   int
	likeProb       float64
	collectProb    float64
	commentProb    float64
	exploreComment string
	execute        bool
)

// sopCmd represents the sop command
var sopCmd = &cobra.Command{
	Use:   "sop",
	Short: "Plan publish, comment and browse sessions against today's quotas",
	Long: `Build action plans that respect the daily quotas in the strategy document.

Plans are printed as JSON. 'sop comment' and 'sop explore' run the plan when
--execute is set: each action is checked against its quota, performed, recorded,
and followed by a randomized cooldown. A security challenge stops the run.`,
}

var sopPublishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Check the publish quota and draft a note",
	Long: `Check today's publish quota, fill a missing title or body from templates and
validate the result. A ready plan counts against today's publish quota.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, _, err := newEngine()
		if err != nil {
			return err
		}
		plan, err := engine.PlanPublish(planReq)
		if err != nil {
			return err
		}
		return emit(plan)
	},
}

var sopCommentCmd = &cobra.Command{
	Use:   "comment",
	Short: "Plan a batch of comments and replies",
	Long: `Plan a batch of comments and replies read from a JSON file, keeping as many
as today's comment and reply quotas allow.

The file holds an array of objects with feed_id, xsec_token, content and, for
replies, comment_id. Use - to read from stdin.`,
	Example: `  xhs sop comment --items comments.json
  xhs sop comment --items comments.json --execute`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := readCommentItems(itemsFile)
		if err != nil {
			return err
		}
		engine, ledger, err := newEngine()
		if err != nil {
			return err
		}

		cmin, cmax := appConfig.SOP.CommentCooldownMin, appConfig.SOP.CommentCooldownMax
		if cmd.Flags().Changed("cooldown-min") {
			cmin = cooldownMin
		}
		if cmd.Flags().Changed("cooldown-max") {
			cmax = cooldownMax
		}

		plan := engine.PlanComments(items, cmin, cmax)
		if !execute || plan.Status != sop.StatusReady {
			return emit(plan)
		}

		ui.PrintInfo("Executing", fmt.Sprintf("%d comments, about %.0fs", plan.ExecutableItems, plan.EstimatedTimeSeconds))
		return withClient(cmd.Context(), func(ctx context.Context, c *xhs.Client) (interface{}, error) {
			report, err := executor.New(c, ledger).RunComments(ctx, plan)
			return executed(plan, report, err)
		})
	},
}

var sopExploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "Plan a browse session with sampled likes, collects and comments",
	Long: `Sample like, collect and comment intents for a number of explore-page notes,
capped by today's remaining quotas. With --execute the explore page is read and
the plan applied to it; comment intents need --comment and are skipped without it.`,
	Example: `  xhs sop explore --feeds 10
  xhs sop explore --feeds 10 --execute --comment "好喜欢{title}"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, ledger, err := newEngine()
		if err != nil {
			return err
		}

		opts := sop.ExploreOptionsFromConfig(appConfig.SOP)
		flags := cmd.Flags()
		if flags.Changed("feeds") {
			opts.FeedCount = exploreFeeds
		}
		if flags.Changed("like") {
			opts.LikeProbability = likeProb
		}
		if flags.Changed("collect") {
			opts.CollectProbability = collectProb
		}
		if flags.Changed("comment-probability") {
			opts.CommentProbability = commentProb
		}

		plan := engine.PlanExplore(opts)
		if !execute || plan.Status != sop.StatusReady {
			return emit(plan)
		}

		var commentFor executor.CommentFunc
		if exploreComment != "" {
			commentFor = func(card state.FeedCard) string {
				return strings.ReplaceAll(exploreComment, "{title}", card.Title)
			}
		}

		ui.PrintInfo("Executing", fmt.Sprintf("%d notes, about %.0fs", plan.FeedCount, plan.EstimatedTimeSeconds))
		return withClient(cmd.Context(), func(ctx context.Context, c *xhs.Client) (interface{}, error) {
			feeds, err := c.Explore(ctx, plan.FeedCount)
			if err != nil {
				return nil, err
			}
			report, err := executor.New(c, ledger).RunExplore(ctx, plan, feeds.Feeds, commentFor)
			return executed(plan, report, err)
		})
	},
}

// executedPlan is the document printed after running a plan
type executedPlan struct {
	Plan   interface{}     `json:"plan"`
	Report executor.Report `json:"report"`
}

// executed prints the plan with its run report. A halted run still prints
// its report before the failure reaches the exit code.
func executed(plan interface{}, report executor.Report, err error) (interface{}, error) {
	out := executedPlan{Plan: plan, Report: report}
	if err == nil {
		return out, nil
	}
	if printErr := emit(out); printErr != nil {
		return nil, printErr
	}
	return nil, &printedError{err: err}
}

// newEngine opens the ledger and creates a planner over it. A zero seed
// samples from the clock.
func newEngine() (*sop.Engine, *strategy.Ledger, error) {
	ledger, err := openLedger()
	if err != nil {
		return nil, nil, err
	}
	s := appConfig.SOP.Seed
	if s == 0 {
		s = time.Now().UnixNano()
	}
	return sop.NewEngine(ledger, s, sop.WithLogger(logger.GetLogger())), ledger, nil
}

// readCommentItems decodes a JSON array of comment items from path, or stdin for "-"
func readCommentItems(path string) ([]sop.CommentItem, error) {
	if path == "" {
		return nil, errs.New(errs.ErrorTypeValidation, "--items is required")
	}

	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, errs.Wrap(errs.ErrorTypeValidation, "failed to open items file", err)
		}
		defer f.Close()
		r = f
	}

	var items []sop.CommentItem
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeValidation, "failed to parse comment items", err)
	}
	return items, nil
}

func init() {
	rootCmd.AddCommand(sopCmd)
	sopCmd.AddCommand(sopPublishCmd, sopCommentCmd, sopExploreCmd)

	pf := sopPublishCmd.Flags()
	pf.StringVar(&planReq.Topic, "topic", "", "note topic used to fill templates")
	pf.StringVar(&planReq.NoteType, "type", "", "note type (图文, 视频, 长文)")
	pf.StringVar(&planReq.Title, "title", "", "note title (drafted from templates when empty)")
	pf.StringVar(&planReq.Content, "content", "", "note body (drafted from templates when empty)")
	pf.StringArrayVar(&planReq.ImagePaths, "image", nil, "image file (repeatable)")
	pf.BoolVar(&planReq.AutoPublish, "auto-publish", false, "mark the plan for automatic publishing")

	cf := sopCommentCmd.Flags()
	cf.StringVar(&itemsFile, "items", "", "JSON file of comment items, - for stdin")
	cf.Float64Var(&cooldownMin, "cooldown-min", 0, "minimum seconds between comments (default from config)")
	cf.Float64Var(&cooldownMax, "cooldown-max", 0, "maximum seconds between comments (default from config)")
	cf.BoolVar(&execute, "execute", false, "run the plan after building it")

	ef := sopExploreCmd.Flags()
	ef.IntVar(&exploreFeeds, "feeds", 0, "number of notes to browse (default from config)")
	ef.Float64Var(&likeProb, "like", 0, "like probability (default from config)")
	ef.Float64Var(&collectProb, "collect", 0, "collect probability (default from config)")
	ef.Float64Var(&commentProb, "comment-probability", 0, "comment probability (default from config)")
	ef.StringVar(&exploreComment, "comment", "", "comment text for sampled comment intents; {title} expands to the note title")
	ef.BoolVar(&execute, "execute", false, "run the plan after browsing the explore page")
}
