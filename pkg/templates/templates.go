// Package templates produces title, body and tag suggestions for a topic and
// validates note content against the platform's length limits.
package templates

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Content is a structured body template for one note type
type Content struct {
	NoteType     string            `json:"note_type"`
	Topic        string            `json:"topic"`
	Structure    []string          `json:"structure"`
	Hook         string            `json:"hook"`
	Closing      string            `json:"closing"`
	Template     string            `json:"template"`
	Placeholders map[string]string `json:"placeholders"`
}

// Template bundles every suggestion for a topic
type Template struct {
	Topic    string   `json:"topic"`
	NoteType string   `json:"note_type"`
	Titles   []string `json:"titles"`
	Content  Content  `json:"content"`
	Tags     []string `json:"tags"`
}

// Validation is the outcome of checking a note; warnings never make it invalid
type Validation struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Engine generates suggestions from a seeded random source
type Engine struct {
	rng *rand.Rand
}

// NewEngine creates an engine; the same seed yields the same suggestions
func NewEngine(seed int64) *Engine {
	return &Engine{rng: rand.New(rand.NewSource(seed))}
}

func fill(s string, values map[string]string) string {
	pairs := make([]string, 0, len(values)*2)
	for k, v := range values {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(s)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// Titles returns up to count distinct title suggestions. An unknown or empty
// style mixes all styles. Every title is cut to MaxTitleLength.
func (e *Engine) Titles(topic, style string, count int) []string {
	var pool []string
	for _, set := range titleHooks {
		if set.style == style {
			pool = append([]string{}, set.hooks...)
			break
		}
	}
	if pool == nil {
		for _, set := range titleHooks {
			pool = append(pool, set.hooks...)
		}
	}

	if count > len(pool) {
		count = len(pool)
	}
	if count < 0 {
		count = 0
	}

	titles := make([]string, 0, count)
	for _, i := range e.rng.Perm(len(pool))[:count] {
		title := fill(pool[i], map[string]string{
			"topic": topic,
			"count": strconv.Itoa(titleCounts[e.rng.Intn(len(titleCounts))]),
			"n":     strconv.Itoa(1 + e.rng.Intn(3)),
		})
		titles = append(titles, truncateRunes(title, MaxTitleLength))
	}
	return titles
}

// Content returns the body template for noteType; unknown types fall back to 图文
func (e *Engine) Content(topic, noteType string) Content {
	tmpl, ok := contentTemplates[noteType]
	if !ok {
		tmpl = contentTemplates[NoteTypeImage]
	}

	values := map[string]string{"topic": topic}
	hook := fill(tmpl.hooks[e.rng.Intn(len(tmpl.hooks))], values)
	closing := fill(tmpl.closings[e.rng.Intn(len(tmpl.closings))], values)

	return Content{
		NoteType:  noteType,
		Topic:     topic,
		Structure: append([]string{}, tmpl.structure...),
		Hook:      hook,
		Closing:   closing,
		Template:  tmpl.template,
		Placeholders: map[string]string{
			"hook":    hook,
			"closing": closing,
			"topic":   topic,
		},
	}
}

// SuggestTags returns count tags (clamped to 3..10): the matching category's
// tags, or a random sample when no category matches, followed by universal tags
func (e *Engine) SuggestTags(topic string, count int) []string {
	if count < 3 {
		count = 3
	}
	if count > MaxTags {
		count = MaxTags
	}

	var tags []string
	for _, cat := range tagDatabase {
		if strings.Contains(topic, cat.name) || (topic != "" && strings.Contains(cat.name, topic)) {
			tags = append(tags, cat.tags...)
		}
	}

	if len(tags) == 0 {
		var all []string
		for _, cat := range tagDatabase {
			all = append(all, cat.tags...)
		}
		for _, i := range e.rng.Perm(len(all))[:count] {
			tags = append(tags, all[i])
		}
	}
	tags = append(tags, UniversalTags...)

	seen := make(map[string]bool, len(tags))
	unique := make([]string, 0, count)
	for _, t := range tags {
		if seen[t] {
			continue
		}
		seen[t] = true
		unique = append(unique, t)
		if len(unique) == count {
			break
		}
	}
	return unique
}

// Generate builds a full template: five titles, a body template and six tags
func (e *Engine) Generate(topic, noteType string) Template {
	return Template{
		Topic:    topic,
		NoteType: noteType,
		Titles:   e.Titles(topic, "", 5),
		Content:  e.Content(topic, noteType),
		Tags:     e.SuggestTags(topic, 6),
	}
}

// Validate checks title, body and tags for noteType
func Validate(title, content string, tags []string, noteType string) Validation {
	v := Validation{Errors: []string{}, Warnings: []string{}}

	titleLen := utf8.RuneCountInString(title)
	switch {
	case strings.TrimSpace(title) == "":
		v.Errors = append(v.Errors, "标题不能为空")
	case titleLen > MaxTitleLength:
		v.Errors = append(v.Errors, fmt.Sprintf("标题超长（%d/%d 字）", titleLen, MaxTitleLength))
	}

	maxLen := MaxContentLength
	if noteType == NoteTypeLongform {
		maxLen = MaxLongformLength
	}
	contentLen := utf8.RuneCountInString(content)
	switch {
	case strings.TrimSpace(content) == "":
		v.Errors = append(v.Errors, "正文不能为空")
	case contentLen > maxLen:
		v.Errors = append(v.Errors, fmt.Sprintf("正文超长（%d/%d 字）", contentLen, maxLen))
	case contentLen < MinContentLength:
		v.Warnings = append(v.Warnings, fmt.Sprintf("正文过短，建议至少 %d 字", MinContentLength))
	}

	if len(tags) > MaxTags {
		v.Warnings = append(v.Warnings, fmt.Sprintf("标签过多（%d/%d），多余的将被截断", len(tags), MaxTags))
	}

	v.Valid = len(v.Errors) == 0
	return v
}
