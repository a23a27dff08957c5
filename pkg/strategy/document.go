// Package strategy keeps the operating strategy document: account positioning,
// per-day write quotas with their usage log, and the content calendar.
package strategy

// Action types tracked by the ledger
const (
	ActionLikes     = "likes"
	ActionComments  = "comments"
	ActionReplies   = "replies"
	ActionCollects  = "collects"
	ActionPublishes = "publishes"
)

// RetentionDays is how long per-day usage entries are kept
const RetentionDays = 7

// dateLayout is the action log and calendar key format
const dateLayout = "2006-01-02"

// timestampLayout matches the timestamps written by earlier tooling
const timestampLayout = "2006-01-02T15:04:05.000000"

// DefaultDailyLimits returns the per-day ceilings for each action type
func DefaultDailyLimits() map[string]int {
	return map[string]int{
		ActionLikes:     30,
		ActionComments:  10,
		ActionReplies:   20,
		ActionCollects:  10,
		ActionPublishes: 3,
	}
}

// BestPublishTimes are the default publishing windows
func BestPublishTimes() []string {
	return []string{
		"07:00-09:00",
		"11:30-13:30",
		"17:30-19:00",
		"20:00-22:00",
	}
}

// RedLines are the default operating rules shown to the operator
func RedLines() []string {
	return []string{
		"单日互动总量不超过 80 次",
		"连续互动不超过 3 次，需批次冷却 15-30 秒",
		"单次评论间隔至少 30 秒",
		"避免深夜（00:00-06:00）大量操作",
		"禁止重复发送相同评论内容",
		"新账号前 7 天减半配额",
	}
}

// CalendarEntry is one scheduled post
type CalendarEntry struct {
	Date      string `json:"date"`
	Topic     string `json:"topic"`
	NoteType  string `json:"note_type"`
	Notes     string `json:"notes"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// Document is the persisted strategy file
type Document struct {
	Persona          string                    `json:"persona"`
	TargetAudience   string                    `json:"target_audience"`
	ContentDirection []string                  `json:"content_direction"`
	DailyLimits      map[string]int            `json:"daily_limits"`
	BestPublishTimes []string                  `json:"best_publish_times"`
	RedLines         []string                  `json:"red_lines"`
	ActionLog        map[string]map[string]int `json:"action_log"`
	ContentCalendar  []CalendarEntry           `json:"content_calendar"`
	CreatedAt        string                    `json:"created_at"`
	UpdatedAt        string                    `json:"updated_at"`
}

// newDocument returns a document populated with defaults
func newDocument(stamp string) *Document {
	return &Document{
		ContentDirection: []string{},
		DailyLimits:      DefaultDailyLimits(),
		BestPublishTimes: BestPublishTimes(),
		RedLines:         RedLines(),
		ActionLog:        map[string]map[string]int{},
		ContentCalendar:  []CalendarEntry{},
		CreatedAt:        stamp,
		UpdatedAt:        stamp,
	}
}

// fillDefaults restores sections a hand-edited file may have dropped
func (d *Document) fillDefaults() {
	if d.ContentDirection == nil {
		d.ContentDirection = []string{}
	}
	if d.DailyLimits == nil {
		d.DailyLimits = DefaultDailyLimits()
	}
	if d.BestPublishTimes == nil {
		d.BestPublishTimes = BestPublishTimes()
	}
	if d.RedLines == nil {
		d.RedLines = RedLines()
	}
	if d.ActionLog == nil {
		d.ActionLog = map[string]map[string]int{}
	}
	if d.ContentCalendar == nil {
		d.ContentCalendar = []CalendarEntry{}
	}
}
