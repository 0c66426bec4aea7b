package domain

import (
	"strings"
	"time"
)

// Platform identifies an upstream status source. The set is open: adapters
// register new platforms simply by emitting events that carry them.
type Platform string

const (
	PlatformGitHub      Platform = "Github"
	PlatformSlack       Platform = "Slack"
	PlatformAzure       Platform = "Azure"
	PlatformAzureDevOps Platform = "Azure DevOps"
	PlatformO365        Platform = "O365"
	PlatformReTool      Platform = "ReTool"
	PlatformSalesforce  Platform = "Salesforce"
	PlatformSnowflake   Platform = "Snowflake"
)

// ResolutionState tracks the lifecycle of a tracked event.
type ResolutionState string

const (
	StateActive   ResolutionState = "active"
	StateResolved ResolutionState = "resolved"
)

// NormalizedEvent is the canonical incident shape every source adapter must
// produce before handing an observation to the tracker. The pair
// (Platform, EventName) is the dedup key: two observations with the same pair
// describe the same real-world incident.
type NormalizedEvent struct {
	Platform        Platform `json:"platform"`
	EventName       string   `json:"event_name"`
	Status          string   `json:"status"`
	ImpactStartTime string   `json:"impact_start_time"`
	Description     string   `json:"description"`
	Link            string   `json:"link,omitempty"`
}

// Validate reports whether the event carries the fields the tracker requires.
func (e NormalizedEvent) Validate() error {
	if strings.TrimSpace(string(e.Platform)) == "" {
		return NewInvalidEventError("platform is required")
	}
	if strings.TrimSpace(e.EventName) == "" {
		return NewInvalidEventError("event_name is required")
	}
	return nil
}

// Key returns the dedup key for the event.
func (e NormalizedEvent) Key() EventKey {
	return EventKey{Platform: e.Platform, EventName: e.EventName}
}

// EventKey identifies one real-world incident across repeated observations.
type EventKey struct {
	Platform  Platform
	EventName string
}

// TrackedEvent is the persisted record for one deduplicated incident.
// InternalID is assigned once by the tracker and never changes; the
// NormalizedEvent fields are stored verbatim as of the first observation.
type TrackedEvent struct {
	InternalID      string          `json:"internal_id"`
	Platform        Platform        `json:"platform"`
	EventName       string          `json:"event_name"`
	Status          string          `json:"status"`
	ImpactStartTime string          `json:"impact_start_time"`
	Description     string          `json:"description"`
	Link            string          `json:"link,omitempty"`
	State           ResolutionState `json:"state"`
	FirstSeen       time.Time       `json:"first_seen"`
	ResolvedAt      *time.Time      `json:"resolved_at,omitempty"`
}

// Key returns the dedup key of the tracked event.
func (t TrackedEvent) Key() EventKey {
	return EventKey{Platform: t.Platform, EventName: t.EventName}
}

// Active reports whether the event is still being tracked as ongoing.
func (t TrackedEvent) Active() bool {
	return t.State == StateActive
}
