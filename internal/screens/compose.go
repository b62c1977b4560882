package screens

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ilindan-dev/local-notifier/internal/domain/model"
	"github.com/rs/zerolog"
)

const (
	DefaultTitle    = "No title"
	DefaultSubtitle = "Learning Local Notifications"
	DefaultBody     = "Local Notifications is awesome when used appropriately"
	DefaultSound    = "default"

	bundledSound     = "file.mp3"
	attachmentName   = "duck.png"
	attachmentID     = "duck"
	initialFireDelay = 5 * time.Second
)

// Composer is the creation screen: it collects a title and a fire date and
// submits the resulting request.
type Composer struct {
	center NotificationCenter
	bundle *Bundle
	now    func() time.Time
	logger zerolog.Logger

	mu    sync.Mutex
	title string
	// fireDate stays zero until a date is picked; the request then fires
	// initialFireDelay after it is built.
	fireDate  time.Time
	observers []func(*model.Request)
}

// NewComposer creates a composer that fires five seconds after submission
// until a fire date is picked. A nil bundle means no bundled resources.
func NewComposer(center NotificationCenter, bundle *Bundle, logger *zerolog.Logger) *Composer {
	return newComposer(center, bundle, logger, time.Now)
}

func newComposer(center NotificationCenter, bundle *Bundle, logger *zerolog.Logger, now func() time.Time) *Composer {
	return &Composer{
		center: center,
		bundle: bundle,
		now:    now,
		logger: logger.With().Str("component", "composer").Logger(),
	}
}

func (c *Composer) SetTitle(title string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.title = title
}

func (c *Composer) Title() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.title
}

// SetFireDate changes the target fire date. Dates that are not in the future
// are ignored and the previous target is kept.
func (c *Composer) SetFireDate(t time.Time) bool {
	if !t.After(c.now()) {
		c.logger.Debug().Time("picked", t).Msg("ignoring fire date in the past")
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fireDate = t
	return true
}

// FireDate returns the picked fire date, or now plus the default delay when
// none was picked.
func (c *Composer) FireDate() time.Time {
	c.mu.Lock()
	fireDate := c.fireDate
	c.mu.Unlock()
	if fireDate.IsZero() {
		return c.now().Add(initialFireDelay)
	}
	return fireDate
}

// OnCreated registers fn to be called after every successful submission.
func (c *Composer) OnCreated(fn func(*model.Request)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// BuildRequest assembles the request for the current title and fire date.
func (c *Composer) BuildRequest() *model.Request {
	c.mu.Lock()
	title, fireDate := c.title, c.fireDate
	c.mu.Unlock()

	if title == "" {
		title = DefaultTitle
	}

	content := model.Content{
		Title:    title,
		Subtitle: DefaultSubtitle,
		Body:     DefaultBody,
		Sound:    DefaultSound,
	}
	if c.bundle != nil && c.bundle.Has(bundledSound) {
		content.Sound = bundledSound
	}
	if attachment, ok := c.loadAttachment(); ok {
		content.Attachments = []model.Attachment{attachment}
	}

	return &model.Request{
		ID:      uuid.New(),
		Content: content,
		Trigger: model.Trigger{Interval: c.interval(fireDate)},
	}
}

func (c *Composer) interval(fireDate time.Time) time.Duration {
	if fireDate.IsZero() {
		return initialFireDelay
	}
	return fireDate.Sub(c.now())
}

func (c *Composer) loadAttachment() (model.Attachment, bool) {
	if c.bundle == nil {
		c.logger.Warn().Msg("no resource bundle, sending without attachment")
		return model.Attachment{}, false
	}
	attachment, err := c.bundle.ImageAttachment(attachmentID, attachmentName)
	if err != nil {
		c.logger.Warn().Err(err).Msg("attachment not loaded, sending without it")
		return model.Attachment{}, false
	}
	return attachment, true
}

// Submit builds the request and adds it to the center. Observers run only
// when the center accepted the request.
func (c *Composer) Submit(ctx context.Context) (*model.Request, error) {
	r := c.BuildRequest()
	log := c.logger.With().Stringer("id", r.ID).Logger()

	created, err := c.center.Add(ctx, r)
	if err != nil {
		log.Error().Err(err).Msg("failed to add notification request")
		return nil, err
	}
	log.Info().Dur("interval", r.Trigger.Interval).Msg("notification request added")

	c.mu.Lock()
	observers := append([]func(*model.Request){}, c.observers...)
	c.mu.Unlock()
	for _, fn := range observers {
		fn(created)
	}
	return created, nil
}
