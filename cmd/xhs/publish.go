package main

import (
	"context"

	errs "github.com/flyflypeng/xiaohongshu-skill/pkg/errors"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/xhs"
	"github.com/spf13/cobra"
)

var publishReq xhs.PublishRequest

// publishCmd represents the publish command
var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Fill in the creator form for a new note",
	Long: `Upload images or a video, fill in the title, body and topic tags, and optionally
schedule the note. The form is left ready for review unless --auto-publish is set.

Run 'xhs sop publish' first to check the daily publish quota and draft the copy.`,
	Example: `  xhs publish --title "周末咖啡探店" --content "..." --image a.jpg --image b.jpg --tag 咖啡
  xhs publish --title "露营vlog" --content "..." --video trip.mp4 --schedule "2024-06-01 20:00"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := publishReq
		switch {
		case req.Video != "" && len(req.Images) > 0:
			return errs.New(errs.ErrorTypeValidation, "use either --image or --video, not both")
		case req.Video == "" && len(req.Images) == 0:
			return errs.New(errs.ErrorTypeValidation, "at least one --image or a --video is required")
		}

		return withClient(cmd.Context(), func(ctx context.Context, c *xhs.Client) (interface{}, error) {
			if req.Video != "" {
				return c.PublishVideo(ctx, req)
			}
			return c.PublishImages(ctx, req)
		})
	},
}

func init() {
	rootCmd.AddCommand(publishCmd)

	publishCmd.Flags().StringVar(&publishReq.Title, "title", "", "note title")
	publishCmd.Flags().StringVar(&publishReq.Content, "content", "", "note body")
	publishCmd.Flags().StringArrayVar(&publishReq.Images, "image", nil, "image file to upload (repeatable)")
	publishCmd.Flags().StringVar(&publishReq.Video, "video", "", "video file to upload")
	publishCmd.Flags().StringArrayVar(&publishReq.Tags, "tag", nil, "topic tag (repeatable)")
	publishCmd.Flags().StringVar(&publishReq.ScheduleTime, "schedule", "", "publish time as \""+xhs.ScheduleLayout+"\"")
	publishCmd.Flags().BoolVar(&publishReq.AutoPublish, "auto-publish", false, "click publish once the form is filled")
}
