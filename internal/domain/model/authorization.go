package model

import (
	"fmt"
	"strings"
	"time"
)

// AuthorizationStatus is the user's decision about notifications.
type AuthorizationStatus string

const (
	AuthorizationNotDetermined AuthorizationStatus = "not_determined"
	AuthorizationDenied        AuthorizationStatus = "denied"
	AuthorizationAuthorized    AuthorizationStatus = "authorized"
)

// AuthorizationOptions is the set of interactions the user may allow.
type AuthorizationOptions uint8

const (
	OptionAlert AuthorizationOptions = 1 << iota
	OptionSound
	OptionBadge
)

var optionNames = []struct {
	opt  AuthorizationOptions
	name string
}{
	{OptionAlert, "alert"},
	{OptionSound, "sound"},
	{OptionBadge, "badge"},
}

// Has reports whether every option in o is present.
func (a AuthorizationOptions) Has(o AuthorizationOptions) bool {
	return a&o == o
}

// Names returns the option names in a stable order.
func (a AuthorizationOptions) Names() []string {
	names := make([]string, 0, len(optionNames))
	for _, on := range optionNames {
		if a.Has(on.opt) {
			names = append(names, on.name)
		}
	}
	return names
}

func (a AuthorizationOptions) String() string {
	if a == 0 {
		return "none"
	}
	return strings.Join(a.Names(), "|")
}

// ParseOptions converts option names back into a set.
func ParseOptions(names []string) (AuthorizationOptions, error) {
	var opts AuthorizationOptions
	for _, n := range names {
		found := false
		for _, on := range optionNames {
			if strings.EqualFold(n, on.name) {
				opts |= on.opt
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown authorization option: %q", n)
		}
	}
	return opts, nil
}

// AuthorizationSettings is the recorded authorization decision.
type AuthorizationSettings struct {
	Status    AuthorizationStatus
	Options   AuthorizationOptions
	UpdatedAt time.Time
}

// IsAuthorized reports whether notifications may be presented.
func (s *AuthorizationSettings) IsAuthorized() bool {
	return s != nil && s.Status == AuthorizationAuthorized
}

// PresentationOptions is the answer of a presentation delegate for a firing request.
// It shares the bit layout of AuthorizationOptions so the two can be intersected.
type PresentationOptions = AuthorizationOptions

const (
	PresentNone  PresentationOptions = 0
	PresentAlert                     = OptionAlert
	PresentSound                     = OptionSound
	PresentBadge                     = OptionBadge
)
