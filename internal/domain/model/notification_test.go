package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriggerValidate(t *testing.T) {
	tests := []struct {
		name    string
		trigger Trigger
		wantErr bool
	}{
		{"positive one-off", Trigger{Interval: 5 * time.Second}, false},
		{"zero interval", Trigger{Interval: 0}, true},
		{"negative interval", Trigger{Interval: -time.Second}, true},
		{"sub-millisecond interval", Trigger{Interval: 500 * time.Microsecond}, true},
		{"one millisecond", Trigger{Interval: time.Millisecond}, false},
		{"short repeating", Trigger{Interval: 30 * time.Second, Repeats: true}, true},
		{"minute repeating", Trigger{Interval: time.Minute, Repeats: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.trigger.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidTrigger))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNewRequest(t *testing.T) {
	r := NewRequest(Content{Title: "Wake up"}, 5*time.Second)

	assert.NotEqual(t, [16]byte{}, [16]byte(r.ID))
	assert.Equal(t, "Wake up", r.Content.Title)
	assert.Equal(t, 5*time.Second, r.Trigger.Interval)
	assert.False(t, r.Trigger.Repeats)

	other := NewRequest(Content{Title: "Wake up"}, 5*time.Second)
	assert.NotEqual(t, r.ID, other.ID, "every request gets a fresh identifier")
}

func TestHasImageAttachment(t *testing.T) {
	r := &Request{}
	assert.False(t, r.HasImageAttachment())

	r.Content.Attachments = []Attachment{{Identifier: "a", URL: "/tmp/a.txt", Type: "text/plain"}}
	assert.False(t, r.HasImageAttachment())

	r.Content.Attachments = []Attachment{{Identifier: "a", URL: "/tmp/duck.png", Type: "image/png"}}
	assert.True(t, r.HasImageAttachment())
}

func TestAuthorizationOptions(t *testing.T) {
	opts, err := ParseOptions([]string{"alert", "Sound"})
	require.NoError(t, err)
	assert.True(t, opts.Has(OptionAlert))
	assert.True(t, opts.Has(OptionSound))
	assert.False(t, opts.Has(OptionBadge))
	assert.Equal(t, []string{"alert", "sound"}, opts.Names())
	assert.Equal(t, "alert|sound", opts.String())
	assert.Equal(t, "none", AuthorizationOptions(0).String())

	_, err = ParseOptions([]string{"vibrate"})
	assert.Error(t, err)
}

func TestPresentationIntersectsGrant(t *testing.T) {
	granted := OptionSound
	answer := PresentAlert | PresentSound

	assert.Equal(t, PresentSound, answer&granted)
}

func TestSettingsIsAuthorized(t *testing.T) {
	var nilSettings *AuthorizationSettings
	assert.False(t, nilSettings.IsAuthorized())
	assert.False(t, (&AuthorizationSettings{Status: AuthorizationDenied}).IsAuthorized())
	assert.True(t, (&AuthorizationSettings{Status: AuthorizationAuthorized}).IsAuthorized())
}
