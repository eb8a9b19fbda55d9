// Package usersink forwards variant activity events to a go-users
// ActivitySink so exposure and fallback events land in the same audit trail
// as the rest of the application's user activity.
package usersink

import (
	"context"
	"strings"
	"time"

	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/goliatone/go-variants/pkg/activity"
	"github.com/google/uuid"
)

// Hook adapts activity events to a go-users ActivitySink.
type Hook struct {
	Sink usertypes.ActivitySink
}

// Notify maps the event into an ActivityRecord and forwards it to the sink.
// The experiment unit (UserID) is recorded as both actor and user.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}

	normalized := activity.NormalizeEvent(event)
	if normalized.Verb == "" || normalized.ObjectType == "" || normalized.ObjectID == "" {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	userID := parseUUID(normalized.UserID)
	record := usertypes.ActivityRecord{
		ActorID:    userID,
		UserID:     userID,
		TenantID:   parseUUID(normalized.TenantID),
		Verb:       normalized.Verb,
		ObjectType: normalized.ObjectType,
		ObjectID:   normalized.ObjectID,
		Channel:    normalized.Channel,
		Data:       recordData(normalized),
		OccurredAt: normalized.OccurredAt,
	}
	if record.OccurredAt.IsZero() {
		record.OccurredAt = time.Now()
	}

	return h.Sink.Log(ctx, record)
}

func recordData(event activity.Event) map[string]any {
	data := cloneMap(event.Metadata)
	set := func(key string, value any) {
		if data == nil {
			data = map[string]any{}
		}
		data[key] = value
	}
	if event.Group != "" {
		set("group", event.Group)
	}
	if event.Key != "" {
		set("key", event.Key)
	}
	if event.Reason != "" {
		set("reason", event.Reason)
	}
	if event.Revision > 0 {
		set("revision", event.Revision)
	}
	if event.SnapshotID != "" {
		set("snapshot_id", event.SnapshotID)
	}
	if event.UserID != "" && parseUUID(event.UserID) == uuid.Nil {
		set("unit_id", event.UserID)
	}
	return data
}

func parseUUID(input string) uuid.UUID {
	value := strings.TrimSpace(input)
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func cloneMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
