package xhs

import (
	"context"
	"os"
	"strings"
	"time"

	errs "github.com/flyflypeng/xiaohongshu-skill/pkg/errors"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/session"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/templates"
)

const (
	creatorTabSelector   = "div.creator-tab"
	uploadAreaSelector   = "div.upload-content, div.creator-tab"
	uploadInputSelector  = ".upload-input"
	fileInputSelector    = `input[type="file"]`
	imagePreviewSelector = ".img-preview-area .pr, .upload-preview-item"
	titleInputSelector   = "div.d-input input"
	editorSelector       = "div.ql-editor"
	textboxSelector      = `[role="textbox"]`
	topicItemSelector    = "#creator-editor-topic-container .item"
	scheduleSwitch       = ".post-time-wrapper .d-switch"
	scheduleInput        = ".date-picker-container input"
	publishButton        = ".publish-page-publish-btn button.bg-red"

	tabImage = "上传图文"
	tabVideo = "上传视频"

	imageUploadPolls = 60
	videoUploadPolls = 150
	contentDelay     = 10 * time.Millisecond
)

// ScheduleLayout is the accepted format of a scheduled publish time
const ScheduleLayout = "2006-01-02 15:04"

// PublishRequest describes a note to fill into the creator form
type PublishRequest struct {
	Title   string
	Content string
	Images  []string
	Video   string
	Tags    []string
	// ScheduleTime, when set, schedules the post instead of publishing now
	ScheduleTime string
	// AutoPublish clicks the publish button; otherwise the form is left ready for review
	AutoPublish bool
}

// ReadyCheck reports what the filled form looks like before publishing
type ReadyCheck struct {
	Title                string `json:"title"`
	TitleOK              bool   `json:"title_ok"`
	PublishButtonVisible bool   `json:"publish_button_visible"`
}

// PublishResult is the outcome of filling or publishing a note
type PublishResult struct {
	Status     string     `json:"status"`
	Title      string     `json:"title"`
	Images     int        `json:"images,omitempty"`
	Video      string     `json:"video,omitempty"`
	Tags       []string   `json:"tags,omitempty"`
	Scheduled  string     `json:"scheduled,omitempty"`
	ReadyCheck ReadyCheck `json:"ready_check"`
	Message    string     `json:"message"`
}

const removePopoverScript = `() => {
	document.querySelectorAll('div.d-popover').forEach(el => el.remove());
	return true;
}`

const titleValueScript = `(selector) => {
	const el = document.querySelector(selector);
	return el ? el.value : '';
}`

const publishEnabledScript = `(selector) => {
	const btn = document.querySelector(selector);
	return !!btn && !btn.disabled && !btn.classList.contains('disabled');
}`

const setScheduleScript = `(selector, value) => {
	const el = document.querySelector(selector);
	if (!el) return false;
	el.focus();
	el.value = value;
	el.dispatchEvent(new Event('input', { bubbles: true }));
	el.dispatchEvent(new Event('change', { bubbles: true }));
	return true;
}`

func (r PublishRequest) validate(video bool) error {
	noteType := templates.NoteTypeImage
	if video {
		noteType = templates.NoteTypeVideo
	}
	if v := templates.Validate(r.Title, r.Content, r.Tags, noteType); !v.Valid {
		return errs.New(errs.ErrorTypeValidation, strings.Join(v.Errors, "; "))
	}

	files := r.Images
	if video {
		if r.Video == "" {
			return errs.New(errs.ErrorTypeValidation, "video path is required")
		}
		files = []string{r.Video}
	} else if len(r.Images) == 0 {
		return errs.New(errs.ErrorTypeValidation, "at least one image is required")
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errs.Wrap(errs.ErrorTypeValidation, "media file not readable: "+f, err)
		}
	}

	if r.ScheduleTime != "" {
		if _, err := time.ParseInLocation(ScheduleLayout, r.ScheduleTime, time.Local); err != nil {
			return errs.Wrap(errs.ErrorTypeValidation, "schedule time must look like "+ScheduleLayout, err)
		}
	}
	return nil
}

// normalizeTags strips leading hashes, drops blanks and keeps at most MaxTags
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(strings.TrimLeft(tag, "#"))
		if tag == "" {
			continue
		}
		out = append(out, tag)
		if len(out) == templates.MaxTags {
			break
		}
	}
	return out
}

// PublishImages fills the creator form for an image note
func (c *Client) PublishImages(ctx context.Context, req PublishRequest) (PublishResult, error) {
	if err := req.validate(false); err != nil {
		return PublishResult{}, err
	}
	return c.publish(ctx, req, false)
}

// PublishVideo fills the creator form for a video note
func (c *Client) PublishVideo(ctx context.Context, req PublishRequest) (PublishResult, error) {
	if err := req.validate(true); err != nil {
		return PublishResult{}, err
	}
	return c.publish(ctx, req, true)
}

func (c *Client) publish(ctx context.Context, req PublishRequest, video bool) (PublishResult, error) {
	if err := c.sess.Navigate(ctx, PublishURL); err != nil {
		return PublishResult{}, err
	}
	if err := c.sess.Sleep(ctx, 3*time.Second); err != nil {
		return PublishResult{}, err
	}

	page, err := c.sess.Page()
	if err != nil {
		return PublishResult{}, err
	}

	tab := tabImage
	if video {
		tab = tabVideo
	}
	if err := c.selectTab(ctx, page, tab); err != nil {
		return PublishResult{}, err
	}

	if video {
		err = c.uploadVideo(ctx, page, req.Video)
	} else {
		err = c.uploadImages(ctx, page, req.Images)
	}
	if err != nil {
		return PublishResult{}, err
	}

	if err := page.Type(ctx, titleInputSelector, req.Title, typingDelay); err != nil {
		return PublishResult{}, errs.Wrap(errs.ErrorTypeBrowser, "title input not found", err)
	}
	if err := c.sess.Sleep(ctx, 500*time.Millisecond); err != nil {
		return PublishResult{}, err
	}

	editor, err := c.findEditor(ctx, page)
	if err != nil {
		return PublishResult{}, err
	}
	if err := page.Type(ctx, editor, req.Content, contentDelay); err != nil {
		return PublishResult{}, errs.Wrap(errs.ErrorTypeBrowser, "failed to type content", err)
	}

	tags := normalizeTags(req.Tags)
	if len(tags) > 0 {
		if err := c.inputTags(ctx, page, tags); err != nil {
			return PublishResult{}, err
		}
	}

	if req.ScheduleTime != "" {
		if err := c.schedule(ctx, page, req.ScheduleTime); err != nil {
			return PublishResult{}, err
		}
	}

	check := c.readyCheck(ctx, page, req.Title)
	result := PublishResult{
		Status:     StatusReady,
		Title:      req.Title,
		Tags:       tags,
		Scheduled:  req.ScheduleTime,
		ReadyCheck: check,
		Message:    "内容已填写，请在浏览器中确认后发布",
	}
	if video {
		result.Video = req.Video
	} else {
		result.Images = len(req.Images)
	}

	if !req.AutoPublish {
		c.logger.Info("Publish form filled, awaiting manual confirmation")
		return result, nil
	}

	if err := page.Click(ctx, publishButton); err != nil {
		return PublishResult{}, errs.Wrap(errs.ErrorTypeBrowser, "publish button not found", err)
	}
	if err := c.sess.Sleep(ctx, 3*time.Second); err != nil {
		return PublishResult{}, err
	}

	result.Status = StatusSuccess
	result.Message = "发布成功"
	c.logger.InfoWithFields("Note published", map[string]interface{}{"title": req.Title})
	return result, nil
}

func (c *Client) selectTab(ctx context.Context, page session.Page, tab string) error {
	if err := page.WaitVisible(ctx, uploadAreaSelector, 15*time.Second); err != nil {
		return errs.Wrap(errs.ErrorTypeBrowser, "publish page did not load", err)
	}
	if _, err := c.sess.Eval(ctx, removePopoverScript); err != nil {
		return err
	}

	clicked, err := c.clickText(ctx, creatorTabSelector, tab)
	if err != nil {
		return err
	}
	if !clicked {
		return errs.New(errs.ErrorTypeBrowser, "publish tab "+tab+" not found")
	}
	return c.sess.Sleep(ctx, time.Second)
}

func (c *Client) fileInput(ctx context.Context, page session.Page) string {
	if has, _ := page.Has(ctx, uploadInputSelector); has {
		return uploadInputSelector
	}
	return fileInputSelector
}

func (c *Client) uploadImages(ctx context.Context, page session.Page, images []string) error {
	input := c.fileInput(ctx, page)
	if err := page.SetFiles(ctx, input, images); err != nil {
		return errs.Wrap(errs.ErrorTypeBrowser, "image upload input not found", err)
	}

	for i := 0; i < imageUploadPolls; i++ {
		count, err := page.Count(ctx, imagePreviewSelector)
		if err != nil {
			return errs.Wrap(errs.ErrorTypeBrowser, "failed to count uploaded images", err)
		}
		if count >= len(images) {
			c.logger.DebugWithFields("Images uploaded", map[string]interface{}{"count": count})
			return nil
		}
		if err := c.sess.Sleep(ctx, time.Second); err != nil {
			return err
		}
	}
	return errs.New(errs.ErrorTypeBrowser, "image upload did not finish")
}

func (c *Client) uploadVideo(ctx context.Context, page session.Page, video string) error {
	input := c.fileInput(ctx, page)
	if err := page.SetFiles(ctx, input, []string{video}); err != nil {
		return errs.Wrap(errs.ErrorTypeBrowser, "video upload input not found", err)
	}

	for i := 0; i < videoUploadPolls; i++ {
		var enabled bool
		if err := c.sess.EvalInto(ctx, &enabled, publishEnabledScript, publishButton); err != nil {
			return err
		}
		if enabled {
			return nil
		}
		if err := c.sess.Sleep(ctx, 2*time.Second); err != nil {
			return err
		}
	}
	return errs.New(errs.ErrorTypeBrowser, "video processing did not finish")
}

func (c *Client) findEditor(ctx context.Context, page session.Page) (string, error) {
	for _, sel := range []string{editorSelector, textboxSelector} {
		if has, _ := page.Has(ctx, sel); has {
			return sel, nil
		}
	}
	return "", errs.New(errs.ErrorTypeBrowser, "content editor not found")
}

// inputTags appends each tag as a topic at the end of the body, picking the
// first suggestion when the topic list appears
func (c *Client) inputTags(ctx context.Context, page session.Page, tags []string) error {
	for _, key := range []string{session.KeyEnd, session.KeyEnter, session.KeyEnter} {
		if err := page.Press(ctx, key); err != nil {
			return errs.Wrap(errs.ErrorTypeBrowser, "failed to move to end of body", err)
		}
	}

	for _, tag := range tags {
		if err := page.Type(ctx, "", "#"+tag, typingDelay); err != nil {
			return errs.Wrap(errs.ErrorTypeBrowser, "failed to type tag", err)
		}
		if err := c.sess.Sleep(ctx, time.Second); err != nil {
			return err
		}

		if has, _ := page.Has(ctx, topicItemSelector); has {
			if err := page.Click(ctx, topicItemSelector); err == nil {
				if err := c.sess.Sleep(ctx, 500*time.Millisecond); err != nil {
					return err
				}
				continue
			}
		}
		if err := page.Type(ctx, "", " ", 0); err != nil {
			return errs.Wrap(errs.ErrorTypeBrowser, "failed to close tag", err)
		}
	}
	return nil
}

func (c *Client) schedule(ctx context.Context, page session.Page, when string) error {
	if err := page.Click(ctx, scheduleSwitch); err != nil {
		return errs.Wrap(errs.ErrorTypeBrowser, "schedule switch not found", err)
	}
	if err := c.sess.Sleep(ctx, 800*time.Millisecond); err != nil {
		return err
	}

	var set bool
	if err := c.sess.EvalInto(ctx, &set, setScheduleScript, scheduleInput, when); err != nil {
		return err
	}
	if !set {
		return errs.New(errs.ErrorTypeBrowser, "schedule input not found")
	}
	if err := page.Press(ctx, session.KeyEnter); err != nil {
		return errs.Wrap(errs.ErrorTypeBrowser, "failed to confirm schedule", err)
	}
	return c.sess.Sleep(ctx, 500*time.Millisecond)
}

func (c *Client) readyCheck(ctx context.Context, page session.Page, title string) ReadyCheck {
	var check ReadyCheck
	if err := c.sess.EvalInto(ctx, &check.Title, titleValueScript, titleInputSelector); err != nil {
		c.logger.WithError(err).Debug("Could not read back title")
	}
	check.TitleOK = check.Title == title
	check.PublishButtonVisible, _ = page.Has(ctx, publishButton)
	return check
}
