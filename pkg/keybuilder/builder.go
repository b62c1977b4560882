package keybuilder

import (
	"fmt"

	"github.com/google/uuid"
)

const (
	Redis         string = "redis"
	Notification  string = "notification"
	Authorization string = "authorization"
	Deliveries    string = "deliveries"
)

func RedisNotificationKeyBuild(id uuid.UUID) string {
	return fmt.Sprintf("%s:%s:%s", Redis, Notification, id)
}

func RedisAuthorizationKeyBuild() string {
	return fmt.Sprintf("%s:%s:settings", Redis, Authorization)
}

func RedisDeliveriesChannelBuild() string {
	return fmt.Sprintf("%s:%s", Redis, Deliveries)
}
