// Package tui draws the screens in the terminal with Bubble Tea.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/ilindan-dev/local-notifier/internal/domain/model"
	"github.com/ilindan-dev/local-notifier/internal/screens"
)

// reloadedMsg is sent when a reload of the pending list finished.
type reloadedMsg struct {
	err error
}

// authorizationCheckedMsg is sent when the authorization check finished.
type authorizationCheckedMsg struct{}

// deliveredMsg carries a request the center just fired.
type deliveredMsg struct {
	request *model.Request
}

// submittedMsg is sent when the composer's submission finished.
type submittedMsg struct {
	request *model.Request
	err     error
}

// Model is the root Bubble Tea model. It shows the screen of its current route.
type Model struct {
	route       screens.Route
	list        *screens.PendingList
	newComposer func() *screens.Composer
	deliveries  <-chan *model.Request
	now         func() time.Time

	rows    list.Model
	compose composeView
	spinner spinner.Model
	keys    keyMap

	banner string
	status string
	width  int
	height int
}

// New creates the root model on the listing screen. newComposer is called
// every time the creation screen opens. deliveries may be nil.
func New(pending *screens.PendingList, newComposer func() *screens.Composer, deliveries <-chan *model.Request) Model {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 80, 20)
	l.Title = "Pending notifications"
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = headerStyle

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		route:       screens.PendingRoute{List: pending},
		list:        pending,
		newComposer: newComposer,
		deliveries:  deliveries,
		now:         time.Now,
		rows:        l,
		spinner:     sp,
		keys:        defaultKeyMap(),
		width:       80,
		height:      24,
	}
}

// Init checks authorization and loads the list concurrently.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.checkAuthorization(),
		m.reload(),
		m.spinner.Tick,
		m.waitForDelivery(),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.rows.SetSize(msg.Width, m.listHeight())
		if _, ok := m.route.(screens.ComposeRoute); ok {
			var cmd tea.Cmd
			m.compose, cmd = m.compose.Update(msg)
			return m, cmd
		}
		return m, nil

	case reloadedMsg:
		if msg.err != nil {
			m.status = "Could not reach the notification center"
		} else {
			m.status = ""
		}
		return m, m.rows.SetItems(toItems(m.list.Rows(), m.now()))

	case authorizationCheckedMsg:
		return m, nil

	case deliveredMsg:
		return m.handleDelivered(msg.request)

	case submittedMsg:
		if msg.err != nil {
			m.status = "Notification was not scheduled"
			return m, nil
		}
		// The composer's observer reloaded the list before this message arrived.
		return m, m.rows.SetItems(toItems(m.list.Rows(), m.now()))

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	switch route := m.route.(type) {
	case screens.PendingRoute:
		return m.updateList(msg, route)
	case screens.ComposeRoute:
		return m.updateCompose(msg, route)
	}
	return m, nil
}

func (m Model) updateList(msg tea.Msg, route screens.PendingRoute) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Refresh):
			return m, m.reload()

		case key.Matches(msg, m.keys.New):
			composer := m.newComposer()
			m.route = screens.NewComposeRoute(route.List, composer)
			m.compose = newComposeView(composer, m.now, m.width)
			m.banner = ""
			return m, m.compose.Init()

		case key.Matches(msg, m.keys.Delete):
			if _, ok := route.List.Remove(context.Background(), m.rows.Index()); !ok {
				return m, nil
			}
			return m, m.rows.SetItems(toItems(route.List.Rows(), m.now()))

		case key.Matches(msg, m.keys.Dismiss):
			m.banner = ""
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.rows, cmd = m.rows.Update(msg)
	return m, cmd
}

func (m Model) updateCompose(msg tea.Msg, route screens.ComposeRoute) (tea.Model, tea.Cmd) {
	switch msg.(type) {
	case composeSubmitMsg:
		m.route = screens.PendingRoute{List: m.list}
		return m, tea.Batch(submit(route.Composer), m.reload())

	case composeCancelMsg:
		m.route = screens.PendingRoute{List: m.list}
		return m, m.reload()
	}

	var cmd tea.Cmd
	m.compose, cmd = m.compose.Update(msg)
	return m, cmd
}

// handleDelivered asks the list how to present a fired request. Deliveries
// arriving while the creation screen is open are not presented.
func (m Model) handleDelivered(r *model.Request) (tea.Model, tea.Cmd) {
	next := m.waitForDelivery()
	route, ok := m.route.(screens.PendingRoute)
	if !ok {
		return m, next
	}
	if route.List.WillPresent(context.Background(), r).Has(model.PresentAlert) {
		m.banner = formatBanner(r)
	}
	return m, tea.Batch(next, m.reload())
}

func (m Model) View() string {
	switch route := m.route.(type) {
	case screens.PendingRoute:
		return m.viewList(route)
	case screens.ComposeRoute:
		return m.compose.View()
	}
	return ""
}

func (m Model) viewList(route screens.PendingRoute) string {
	var sections []string
	if m.banner != "" {
		sections = append(sections, bannerStyle.Render(m.banner))
	}

	if len(m.rows.Items()) == 0 {
		sections = append(sections, emptyStyle.Render("No pending notifications.\nPress n to schedule one."))
	} else {
		sections = append(sections, m.rows.View())
	}

	footer := helpStyle.Render("r refresh · n new · d delete · q quit")
	if route.List.Refreshing() {
		footer = m.spinner.View() + " refreshing  " + footer
	}
	if m.status != "" {
		footer = m.status + "  " + footer
	}
	sections = append(sections, footer)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) listHeight() int {
	h := m.height - 2
	if m.banner != "" {
		h -= 4
	}
	if h < 5 {
		h = 5
	}
	return h
}

func (m Model) checkAuthorization() tea.Cmd {
	pending := m.list
	return func() tea.Msg {
		pending.CheckAuthorization(context.Background())
		return authorizationCheckedMsg{}
	}
}

func (m Model) reload() tea.Cmd {
	pending := m.list
	return func() tea.Msg {
		return reloadedMsg{err: pending.Reload(context.Background())}
	}
}

// waitForDelivery waits for the next fired request. It returns nil once the
// stream is closed, which stops the loop.
func (m Model) waitForDelivery() tea.Cmd {
	deliveries := m.deliveries
	if deliveries == nil {
		return nil
	}
	return func() tea.Msg {
		r, ok := <-deliveries
		if !ok {
			return nil
		}
		return deliveredMsg{request: r}
	}
}

func submit(composer *screens.Composer) tea.Cmd {
	return func() tea.Msg {
		r, err := composer.Submit(context.Background())
		return submittedMsg{request: r, err: err}
	}
}

func formatBanner(r *model.Request) string {
	text := "🔔 " + r.Content.Title
	if r.Content.Subtitle != "" {
		text += "\n" + r.Content.Subtitle
	}
	if r.Content.Body != "" {
		text += "\n" + r.Content.Body
	}
	return text
}
