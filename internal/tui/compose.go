package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/ilindan-dev/local-notifier/internal/screens"
)

var errFireDateFormat = errors.New("use +5s, +2m, 15:04, 15:04:05 or RFC 3339")

// composeSubmitMsg is dispatched when the form was completed.
type composeSubmitMsg struct{}

// composeCancelMsg is dispatched when the user aborts the form.
type composeCancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	title    string
	fireDate string
}

// composeView draws the creation screen.
type composeView struct {
	composer *screens.Composer
	form     *huh.Form
	fb       *formBindings
	now      func() time.Time
	width    int
}

func newComposeView(composer *screens.Composer, now func() time.Time, width int) composeView {
	v := composeView{
		composer: composer,
		fb:       &formBindings{title: composer.Title()},
		now:      now,
		width:    width,
	}
	v.form = v.buildForm()
	return v
}

func (v composeView) Init() tea.Cmd {
	return v.form.Init()
}

func (v composeView) Update(msg tea.Msg) (composeView, tea.Cmd) {
	mdl, cmd := v.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		v.form = f
	}

	switch v.form.State {
	case huh.StateCompleted:
		v.apply()
		return v, func() tea.Msg { return composeSubmitMsg{} }
	case huh.StateAborted:
		return v, func() tea.Msg { return composeCancelMsg{} }
	}
	return v, cmd
}

// apply copies the form values into the composer. A fire date that is not in
// the future is dropped by the composer, keeping the previous target.
func (v composeView) apply() {
	v.composer.SetTitle(v.fb.title)
	if strings.TrimSpace(v.fb.fireDate) == "" {
		return
	}
	if t, err := parseFireDate(v.fb.fireDate, v.now()); err == nil {
		v.composer.SetFireDate(t)
	}
}

func (v composeView) View() string {
	target := v.composer.FireDate()
	hint := helpStyle.Render(fmt.Sprintf("Current target: %s (%s)",
		target.Local().Format("15:04:05"), relativeTime(target, v.now())))

	content := lipgloss.JoinVertical(lipgloss.Left,
		headerStyle.Render("New notification"),
		"",
		v.form.View(),
		hint,
	)
	return formStyle.Render(content)
}

func (v composeView) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Placeholder(screens.DefaultTitle).
				Value(&v.fb.title),
			huh.NewInput().
				Title("Fire at").
				Placeholder("+5s, +2m or 15:04").
				Value(&v.fb.fireDate).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return nil
					}
					_, err := parseFireDate(s, v.now())
					return err
				}),
		),
	).WithWidth(formWidth(v.width))
}

func formWidth(width int) int {
	w := width - 8
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

// parseFireDate reads either an offset from now ("+90s") or a wall clock time
// today, with RFC 3339 accepted as a fallback.
func parseFireDate(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "+"); ok {
		d, err := time.ParseDuration(rest)
		if err != nil {
			return time.Time{}, errFireDateFormat
		}
		return now.Add(d), nil
	}

	local := now.Local()
	for _, layout := range []string{"15:04:05", "15:04"} {
		clock, err := time.ParseInLocation(layout, s, local.Location())
		if err != nil {
			continue
		}
		return time.Date(local.Year(), local.Month(), local.Day(),
			clock.Hour(), clock.Minute(), clock.Second(), 0, local.Location()), nil
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, errFireDateFormat
}
