// Package notify delivers operator-facing incident notifications. Sinks are
// interchangeable: Slack for operators, NATS for downstream automation, and
// a zap sink for dry-run execution.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/domain"
)

// Notifier is one notification sink.
type Notifier interface {
	// Name identifies the sink in logs and metrics.
	Name() string

	// NotifyNew announces a freshly tracked incident.
	NotifyNew(ctx context.Context, event domain.TrackedEvent) error

	// NotifyResolved announces that a tracked incident resolved.
	NotifyResolved(ctx context.Context, event domain.TrackedEvent) error
}

// FormatMessage renders the operator message for an incident. The internal id
// goes last so operators can copy it straight into /create-ticket or
// /force-resolve.
func FormatMessage(event domain.TrackedEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Platform:* %s\n", event.Platform)
	fmt.Fprintf(&b, "*Event Name:* %s\n", event.EventName)
	fmt.Fprintf(&b, "*Status:* %s\n", event.Status)
	if event.Link != "" {
		fmt.Fprintf(&b, "*Link:* %s\n", event.Link)
	}
	fmt.Fprintf(&b, "*Impact Start Time:* %s\n", event.ImpactStartTime)
	if event.Description != "" {
		fmt.Fprintf(&b, "*Description:*\n%s\n", event.Description)
	}
	fmt.Fprintf(&b, "*Internal ID:* %s", event.InternalID)
	return b.String()
}
