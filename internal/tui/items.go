package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/ilindan-dev/local-notifier/internal/domain/model"
)

// requestItem wraps a pending request so it can be used in a bubbles/list.
type requestItem struct {
	request *model.Request
	now     time.Time
}

func (i requestItem) FilterValue() string { return i.request.Content.Title }

func (i requestItem) Title() string { return i.request.Content.Title }

func (i requestItem) Description() string {
	desc := "fires " + relativeTime(i.request.FireAt, i.now)
	if i.request.Trigger.Repeats {
		desc += fmt.Sprintf(" · repeats every %s", i.request.Trigger.Interval)
	}
	if len(i.request.Content.Attachments) > 0 {
		desc += " · 📎"
	}
	return desc
}

func toItems(rows []*model.Request, now time.Time) []list.Item {
	items := make([]list.Item, len(rows))
	for i, r := range rows {
		items[i] = requestItem{request: r, now: now}
	}
	return items
}

// relativeTime renders t relative to now with second precision.
func relativeTime(t, now time.Time) string {
	d := t.Sub(now).Round(time.Second)
	switch {
	case t.IsZero():
		return "at an unknown time"
	case d > 0:
		return "in " + d.String()
	case d == 0:
		return "now"
	default:
		return (-d).String() + " ago"
	}
}
