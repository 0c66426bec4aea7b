// Package tickets files Azure DevOps work items for tracked incidents and
// remembers which incidents already have one.
package tickets

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/domain"
	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/tracker"
)

// Store persists the incident → work item mapping so duplicate tickets are
// caught before hitting the Azure DevOps API.
type Store interface {
	// Get returns the work item id filed for the incident, or found=false.
	Get(ctx context.Context, internalID string) (workItemID int, found bool, err error)
	// Put records that a work item was filed for the incident.
	Put(ctx context.Context, internalID string, workItemID int) error
	// Delete removes the mapping, typically when the incident resolves.
	Delete(ctx context.Context, internalID string) error
}

// Result reports the outcome of a ticket request.
type Result struct {
	WorkItemID int
	// Duplicate is set when the incident already has a ticket and the
	// request did not force a second one. WorkItemID then holds the
	// existing work item.
	Duplicate bool
}

// Service coordinates duplicate checks, work item creation and bookkeeping.
type Service struct {
	client  *Client
	store   Store
	tracker *tracker.Tracker
	logger  *zap.Logger
}

// NewService creates a ticket service.
func NewService(client *Client, st Store, tr *tracker.Tracker, logger *zap.Logger) (*Service, error) {
	if client == nil {
		return nil, fmt.Errorf("client is required")
	}
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}
	if tr == nil {
		return nil, fmt.Errorf("tracker is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{client: client, store: st, tracker: tr, logger: logger}, nil
}

// Create files a work item for the tracked incident. If one already exists
// and force is false, the existing work item is returned with Duplicate set
// so the caller can ask the operator to confirm.
func (s *Service) Create(ctx context.Context, internalID string, force bool) (Result, error) {
	event, err := s.tracker.GetEventByID(ctx, internalID)
	if err != nil {
		return Result{}, fmt.Errorf("lookup event %s: %w", internalID, err)
	}

	existing, found, err := s.store.Get(ctx, internalID)
	if err != nil {
		return Result{}, fmt.Errorf("check existing ticket for %s: %w", internalID, err)
	}
	if found && !force {
		s.logger.Info("ticket already exists",
			zap.String("internal_id", internalID),
			zap.Int("work_item_id", existing),
		)
		return Result{WorkItemID: existing, Duplicate: true}, nil
	}

	item, err := s.client.CreateWorkItem(ctx, event)
	if err != nil {
		return Result{}, fmt.Errorf("create work item for %s: %w", internalID, err)
	}
	if err := s.store.Put(ctx, internalID, item.ID); err != nil {
		// The work item exists in Azure DevOps either way; losing the
		// mapping only weakens duplicate detection.
		s.logger.Error("store ticket mapping failed",
			zap.String("internal_id", internalID),
			zap.Int("work_item_id", item.ID),
			zap.Error(err),
		)
	}

	s.logger.Info("ticket created",
		zap.String("internal_id", internalID),
		zap.String("platform", string(event.Platform)),
		zap.Int("work_item_id", item.ID),
	)
	return Result{WorkItemID: item.ID}, nil
}

// Forget drops the ticket mapping for an incident.
func (s *Service) Forget(ctx context.Context, internalID string) error {
	return s.store.Delete(ctx, internalID)
}

// ticketDescription renders the work item body in the same shape as the
// operator notification, with markdown bold markers.
func ticketDescription(event domain.TrackedEvent) string {
	return fmt.Sprintf(
		"**Platform:** %s\n**Event Name:** %s\n**Status:** %s\n**Impact Start Time:** %s\n**Description:**\n%s\n**Internal ID:** %s",
		event.Platform,
		event.EventName,
		event.Status,
		event.ImpactStartTime,
		event.Description,
		event.InternalID,
	)
}
