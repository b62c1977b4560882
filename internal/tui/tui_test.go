package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ilindan-dev/local-notifier/internal/config"
	"github.com/ilindan-dev/local-notifier/internal/domain/model"
	"github.com/ilindan-dev/local-notifier/internal/screens"
	"github.com/ilindan-dev/local-notifier/internal/service"
	"github.com/ilindan-dev/local-notifier/internal/storage/memory"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFireDate(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.Local)

	tests := []struct {
		in   string
		want time.Time
	}{
		{"+5s", now.Add(5 * time.Second)},
		{" +2m ", now.Add(2 * time.Minute)},
		{"10:30", time.Date(2026, 10, 18, 10, 30, 0, 0, time.Local)},
		{"08:15:30", time.Date(2026, 10, 18, 8, 15, 30, 0, time.Local)},
		{"2026-10-19T07:00:00Z", time.Date(2026, 10, 19, 7, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := parseFireDate(tt.in, now)
		require.NoError(t, err, tt.in)
		assert.True(t, tt.want.Equal(got), "%q: want %s, got %s", tt.in, tt.want, got)
	}

	for _, bad := range []string{"soon", "+5 parsecs", "25:00"} {
		_, err := parseFireDate(bad, now)
		assert.ErrorIs(t, err, errFireDateFormat, bad)
	}
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, "in 5s", relativeTime(now.Add(5*time.Second), now))
	assert.Equal(t, "now", relativeTime(now.Add(200*time.Millisecond), now))
	assert.Equal(t, "1m0s ago", relativeTime(now.Add(-time.Minute), now))
	assert.Equal(t, "at an unknown time", relativeTime(time.Time{}, now))
}

func newTestModel(t *testing.T) (Model, *service.NotificationService, *screens.PendingList) {
	t.Helper()
	logger := zerolog.Nop()
	cfg := &config.Config{Authorization: config.AuthorizationConfig{AutoGrant: true}}
	svc := service.NewNotificationService(cfg, memory.NewRequestRepository(), memory.NewQueue(),
		memory.NewAuthorizationStore(), memory.NewFeed(), &logger)
	pending := screens.NewPendingList(svc, screens.NewPendingFetcher(svc, &logger), &logger)
	m := New(pending, func() *screens.Composer { return screens.NewComposer(svc, nil, &logger) }, nil)
	return m, svc, pending
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func TestModelShowsReloadedRows(t *testing.T) {
	m, svc, _ := newTestModel(t)
	_, err := svc.Add(context.Background(), model.NewRequest(model.Content{Title: "Wake up"}, time.Minute))
	require.NoError(t, err)

	msg := m.reload()()
	m, _ = update(t, m, msg)

	assert.Contains(t, m.View(), "Wake up")
}

func TestModelEmptyState(t *testing.T) {
	m, _, _ := newTestModel(t)

	m, _ = update(t, m, m.reload()())

	assert.Contains(t, m.View(), "No pending notifications")
}

func TestModelDeleteRemovesRow(t *testing.T) {
	m, svc, pending := newTestModel(t)
	_, err := svc.Add(context.Background(), model.NewRequest(model.Content{Title: "Wake up"}, time.Minute))
	require.NoError(t, err)
	m, _ = update(t, m, m.reload()())

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	pending.Wait()

	assert.Empty(t, pending.Rows())
	assert.NotContains(t, m.View(), "Wake up")
	left, err := svc.PendingRequests(context.Background())
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestModelNavigatesToComposeAndBack(t *testing.T) {
	m, _, _ := newTestModel(t)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	_, ok := m.route.(screens.ComposeRoute)
	require.True(t, ok)
	assert.Contains(t, m.View(), "New notification")

	m, _ = update(t, m, composeCancelMsg{})
	_, ok = m.route.(screens.PendingRoute)
	assert.True(t, ok)
}

func TestModelSubmitSchedulesRequest(t *testing.T) {
	m, svc, _ := newTestModel(t)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	route := m.route.(screens.ComposeRoute)
	route.Composer.SetTitle("Wake up")

	m, _ = update(t, m, composeSubmitMsg{})
	_, ok := m.route.(screens.PendingRoute)
	require.True(t, ok)

	msg := submit(route.Composer)()
	submitted, ok := msg.(submittedMsg)
	require.True(t, ok)
	require.NoError(t, submitted.err)

	pending, err := svc.PendingRequests(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Wake up", pending[0].Content.Title)
}

func TestModelRedrawsAfterSubmission(t *testing.T) {
	m, _, _ := newTestModel(t)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	route := m.route.(screens.ComposeRoute)
	route.Composer.SetTitle("Wake up")
	m, _ = update(t, m, composeSubmitMsg{})

	// The reload started alongside the submission finishes first.
	m, _ = update(t, m, m.reload()())
	assert.NotContains(t, m.View(), "Wake up")

	m, _ = update(t, m, submit(route.Composer)())

	assert.Contains(t, m.View(), "Wake up")
}

func TestModelShowsDeliveryBanner(t *testing.T) {
	m, _, _ := newTestModel(t)
	fired := model.NewRequest(model.Content{Title: "Wake up", Subtitle: screens.DefaultSubtitle}, time.Second)

	m, cmd := update(t, m, deliveredMsg{request: fired})

	assert.NotNil(t, cmd)
	assert.Contains(t, m.View(), "Wake up")
	assert.Contains(t, m.View(), screens.DefaultSubtitle)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.NotContains(t, m.View(), screens.DefaultSubtitle)
}

func TestWaitForDelivery(t *testing.T) {
	m, _, pending := newTestModel(t)
	ch := make(chan *model.Request, 1)
	m = New(pending, m.newComposer, ch)

	fired := model.NewRequest(model.Content{Title: "x"}, time.Second)
	ch <- fired
	msg := m.waitForDelivery()()
	assert.Equal(t, deliveredMsg{request: fired}, msg)

	close(ch)
	assert.Nil(t, m.waitForDelivery()())
}

func TestModelQuitDoesNotWaitForRemovals(t *testing.T) {
	m, _, _ := newTestModel(t)

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})

	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestComposeViewStartsFromComposerTitle(t *testing.T) {
	m, _, _ := newTestModel(t)
	composer := m.newComposer()
	composer.SetTitle("Stretch")

	v := newComposeView(composer, time.Now, 80)

	assert.Equal(t, "Stretch", v.fb.title)
}
