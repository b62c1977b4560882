package screens

import (
	"context"

	"github.com/ilindan-dev/local-notifier/internal/domain/model"
)

// Route is a screen the client can show. Only the types in this package
// implement it.
type Route interface {
	isRoute()
}

type PendingRoute struct {
	List *PendingList
}

type ComposeRoute struct {
	Composer *Composer
}

func (PendingRoute) isRoute() {}
func (ComposeRoute) isRoute() {}

// NewComposeRoute opens the composer with the list reloading after every
// created request.
func NewComposeRoute(list *PendingList, composer *Composer) ComposeRoute {
	composer.OnCreated(func(*model.Request) {
		_ = list.Reload(context.Background())
	})
	return ComposeRoute{Composer: composer}
}
