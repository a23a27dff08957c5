package strategy

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/flyflypeng/xiaohongshu-skill/internal/jsonfile"
	errs "github.com/flyflypeng/xiaohongshu-skill/pkg/errors"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/logger"
)

// Limit is the quota standing of one action type for today
type Limit struct {
	ActionType string `json:"action_type"`
	Allowed    bool   `json:"allowed"`
	Used       int    `json:"used"`
	Limit      int    `json:"limit"`
	Remaining  int    `json:"remaining"`
}

// Recorded is the result of recording one action
type Recorded struct {
	Status     string `json:"status"`
	ActionType string `json:"action_type"`
	TodayCount int    `json:"today_count"`
	Remaining  int    `json:"remaining"`
}

// Overview is the operator-facing summary of the strategy
type Overview struct {
	Persona          string          `json:"persona"`
	TargetAudience   string          `json:"target_audience"`
	ContentDirection []string        `json:"content_direction"`
	DailyLimits      map[string]int  `json:"daily_limits"`
	TodayUsage       map[string]int  `json:"today_usage"`
	BestPublishTimes []string        `json:"best_publish_times"`
	RedLines         []string        `json:"red_lines"`
	UpcomingPosts    []CalendarEntry `json:"upcoming_posts"`
}

// Ledger owns the strategy document at one path. Usage counters only ever
// increase through RecordAction; there is no reset or decrement.
// It is not safe for concurrent use by several processes.
type Ledger struct {
	mu     sync.Mutex
	path   string
	doc    *Document
	now    func() time.Time
	logger logger.Logger
}

// Option configures a Ledger
type Option func(*Ledger)

// WithClock replaces the time source
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithLogger sets the logger
func WithLogger(log logger.Logger) Option {
	return func(l *Ledger) { l.logger = log }
}

// Open loads the document at path. A missing file yields defaults; an
// unreadable one is backed up to path+".backup" and replaced by defaults.
func Open(path string, opts ...Option) (*Ledger, error) {
	if path == "" {
		return nil, errs.New(errs.ErrorTypeValidation, "strategy path is required")
	}

	l := &Ledger{path: path, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = logger.GetLogger()
	}

	var doc Document
	err := jsonfile.Read(path, &doc)
	switch {
	case err == nil:
		doc.fillDefaults()
		l.doc = &doc
	case errors.Is(err, os.ErrNotExist):
		l.doc = newDocument(l.stamp())
	default:
		l.logger.WithError(err).WarnWithFields("Strategy document unreadable, starting from defaults", map[string]interface{}{
			"path": path,
		})
		if berr := jsonfile.Backup(path); berr != nil {
			return nil, fmt.Errorf("failed to back up strategy document: %w", berr)
		}
		l.doc = newDocument(l.stamp())
	}

	return l, nil
}

// Path returns the backing file
func (l *Ledger) Path() string {
	return l.path
}

func (l *Ledger) stamp() string {
	return l.now().Format(timestampLayout)
}

func (l *Ledger) today() string {
	return l.now().Format(dateLayout)
}

func (l *Ledger) save() error {
	if err := jsonfile.Write(l.path, l.doc, 0600); err != nil {
		return fmt.Errorf("failed to save strategy document: %w", err)
	}
	return nil
}

// CheckLimit reports today's standing for actionType. Unknown types have a
// limit of zero and are never allowed.
func (l *Ledger) CheckLimit(actionType string) Limit {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.checkLimit(actionType)
}

func (l *Ledger) checkLimit(actionType string) Limit {
	limit := l.doc.DailyLimits[actionType]
	used := l.doc.ActionLog[l.today()][actionType]

	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}

	return Limit{
		ActionType: actionType,
		Allowed:    remaining > 0,
		Used:       used,
		Limit:      limit,
		Remaining:  remaining,
	}
}

// RecordAction increments today's counter for actionType, purges entries
// older than the retention window and persists the document. When the
// document cannot be written the counter is left as it was.
func (l *Ledger) RecordAction(actionType string) (Recorded, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if actionType == "" {
		return Recorded{}, errs.New(errs.ErrorTypeValidation, "action type is required")
	}

	today := l.today()
	day := l.doc.ActionLog[today]
	existed := day != nil
	if !existed {
		day = map[string]int{}
		l.doc.ActionLog[today] = day
	}
	updatedAt := l.doc.UpdatedAt
	day[actionType]++
	l.doc.UpdatedAt = l.stamp()
	l.purge()

	if err := l.save(); err != nil {
		day[actionType]--
		if day[actionType] == 0 {
			delete(day, actionType)
		}
		if !existed {
			delete(l.doc.ActionLog, today)
		}
		l.doc.UpdatedAt = updatedAt
		return Recorded{}, err
	}

	limit := l.checkLimit(actionType)
	logger.LogQuota(l.logger, actionType, limit.Used, limit.Limit, limit.Allowed)

	return Recorded{
		Status:     "recorded",
		ActionType: actionType,
		TodayCount: l.doc.ActionLog[today][actionType],
		Remaining:  limit.Remaining,
	}, nil
}

// purge drops action log days older than the retention window
func (l *Ledger) purge() {
	cutoff := l.now().AddDate(0, 0, -RetentionDays).Format(dateLayout)
	for day := range l.doc.ActionLog {
		if day < cutoff {
			delete(l.doc.ActionLog, day)
		}
	}
}

// InitStrategy sets the account positioning and persists it
func (l *Ledger) InitStrategy(persona, audience string, directions []string) (Overview, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if persona == "" {
		return Overview{}, errs.New(errs.ErrorTypeValidation, "persona is required")
	}
	if directions == nil {
		directions = []string{}
	}

	l.doc.Persona = persona
	l.doc.TargetAudience = audience
	l.doc.ContentDirection = directions
	l.doc.UpdatedAt = l.stamp()

	if err := l.save(); err != nil {
		return Overview{}, err
	}
	return l.overview(), nil
}

// Show returns the strategy summary with today's usage and the coming week's posts
func (l *Ledger) Show() Overview {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.overview()
}

func (l *Ledger) overview() Overview {
	usage := map[string]int{}
	for k, v := range l.doc.ActionLog[l.today()] {
		usage[k] = v
	}
	limits := make(map[string]int, len(l.doc.DailyLimits))
	for k, v := range l.doc.DailyLimits {
		limits[k] = v
	}

	return Overview{
		Persona:          l.doc.Persona,
		TargetAudience:   l.doc.TargetAudience,
		ContentDirection: append([]string{}, l.doc.ContentDirection...),
		DailyLimits:      limits,
		TodayUsage:       usage,
		BestPublishTimes: append([]string{}, l.doc.BestPublishTimes...),
		RedLines:         append([]string{}, l.doc.RedLines...),
		UpcomingPosts:    l.upcoming(7),
	}
}

// BestPublishTimes returns the configured publishing windows
func (l *Ledger) BestPublishTimes() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string{}, l.doc.BestPublishTimes...)
}

// AddScheduledPost appends a planned post to the content calendar
func (l *Ledger) AddScheduledPost(date, topic, noteType, notes string) (CalendarEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := time.ParseInLocation(dateLayout, date, time.Local); err != nil {
		return CalendarEntry{}, errs.Wrap(errs.ErrorTypeValidation, "date must be YYYY-MM-DD", err)
	}
	if topic == "" {
		return CalendarEntry{}, errs.New(errs.ErrorTypeValidation, "topic is required")
	}
	if noteType == "" {
		noteType = "图文"
	}

	entry := CalendarEntry{
		Date:      date,
		Topic:     topic,
		NoteType:  noteType,
		Notes:     notes,
		Status:    "planned",
		CreatedAt: l.stamp(),
	}
	l.doc.ContentCalendar = append(l.doc.ContentCalendar, entry)
	l.doc.UpdatedAt = l.stamp()

	if err := l.save(); err != nil {
		return CalendarEntry{}, err
	}
	return entry, nil
}

// UpcomingPosts lists calendar entries dated from today through today+days, by date
func (l *Ledger) UpcomingPosts(days int) []CalendarEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.upcoming(days)
}

func (l *Ledger) upcoming(days int) []CalendarEntry {
	today := l.today()
	end := l.now().AddDate(0, 0, days).Format(dateLayout)

	posts := []CalendarEntry{}
	for _, entry := range l.doc.ContentCalendar {
		if _, err := time.Parse(dateLayout, entry.Date); err != nil {
			continue
		}
		if entry.Date >= today && entry.Date <= end {
			posts = append(posts, entry)
		}
	}

	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].Date < posts[j].Date
	})
	return posts
}
