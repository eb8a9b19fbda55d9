package activity

import (
	"fmt"
	"strings"
	"time"
)

// Verbs emitted by the variants packages.
const (
	VerbVariantResolved   = "variant.resolved"
	VerbVariantFallback   = "variant.fallback"
	VerbGroupConstructed  = "variant.group.constructed"
	VerbSnapshotCaptured  = "variant.snapshot.captured"
	ObjectTypeVariant     = "variant"
	ObjectTypeGroup       = "variant.group"
	ObjectTypeSnapshot    = "variant.snapshot"
	MetadataKeyValue      = "value"
	MetadataKeyExpected   = "expected_type"
	MetadataKeyActual     = "actual_type"
	MetadataKeyScopeName  = "scope_name"
	MetadataKeyKeyCount   = "key_count"
	MetadataKeyBuildError = "build_error"
)

// VariantEventInput carries the fields shared by variant lifecycle events.
type VariantEventInput struct {
	UserID     string
	TenantID   string
	Channel    string
	Group      string
	Key        string
	Reason     string
	Revision   uint64
	SnapshotID string
	Value      any
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildResolvedEvent describes a variant resolved from an assignment.
func BuildResolvedEvent(input VariantEventInput) Event {
	return buildVariantEvent(VerbVariantResolved, ObjectTypeVariant, input)
}

// BuildFallbackEvent describes a variant that degraded to its default.
func BuildFallbackEvent(input VariantEventInput) Event {
	return buildVariantEvent(VerbVariantFallback, ObjectTypeVariant, input)
}

// BuildGroupConstructedEvent describes the lazy construction of a test group.
func BuildGroupConstructedEvent(input VariantEventInput) Event {
	return buildVariantEvent(VerbGroupConstructed, ObjectTypeGroup, input)
}

// BuildSnapshotCapturedEvent describes a snapshot taken for a consumer.
func BuildSnapshotCapturedEvent(input VariantEventInput) Event {
	return buildVariantEvent(VerbSnapshotCaptured, ObjectTypeSnapshot, input)
}

func buildVariantEvent(verb, objectType string, input VariantEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if input.Value != nil {
		metadata = ensureMetadata(metadata)
		metadata[MetadataKeyValue] = input.Value
	}

	return Event{
		Verb:       verb,
		ObjectType: objectType,
		ObjectID:   objectID(objectType, input),
		UserID:     strings.TrimSpace(input.UserID),
		TenantID:   strings.TrimSpace(input.TenantID),
		Channel:    strings.TrimSpace(input.Channel),
		Group:      strings.TrimSpace(input.Group),
		Key:        strings.TrimSpace(input.Key),
		Reason:     strings.TrimSpace(input.Reason),
		Revision:   input.Revision,
		SnapshotID: strings.TrimSpace(input.SnapshotID),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func objectID(objectType string, input VariantEventInput) string {
	group := strings.TrimSpace(input.Group)
	key := strings.TrimSpace(input.Key)
	switch objectType {
	case ObjectTypeSnapshot:
		if id := strings.TrimSpace(input.SnapshotID); id != "" {
			return id
		}
	case ObjectTypeGroup:
		if group != "" {
			return group
		}
	}
	switch {
	case group != "" && key != "":
		return fmt.Sprintf("%s/%s", group, key)
	case key != "":
		return key
	case group != "":
		return group
	default:
		return objectType
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
