package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	ProfileKeyPrefix     = "profile:%d"
	RequestListPrefix    = "requests:owner:%d"
	TokenBlacklistPrefix = "blacklist:%s"
	WSTicketPrefix       = "ws_ticket:%s"
)

const (
	ProfileTTL     = 5 * time.Minute
	RequestListTTL = 30 * time.Second
	WSTicketTTL    = 30 * time.Second
)

func ProfileKey(userID uint) string {
	return fmt.Sprintf(ProfileKeyPrefix, userID)
}

func RequestListKey(ownerID uint) string {
	return fmt.Sprintf(RequestListPrefix, ownerID)
}

func TokenBlacklistKey(jti string) string {
	return fmt.Sprintf(TokenBlacklistPrefix, jti)
}

func WSTicketKey(ticket string) string {
	return fmt.Sprintf(WSTicketPrefix, ticket)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateProfile(ctx context.Context, userID uint) {
	Invalidate(ctx, ProfileKey(userID))
}

func InvalidateRequestList(ctx context.Context, ownerID uint) {
	Invalidate(ctx, RequestListKey(ownerID))
}
