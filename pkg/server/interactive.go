package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/domain"
)

// Action ids carried by the notification message buttons.
const (
	actionCreateTicket  = "create_ticket"
	actionConfirmTicket = "confirm_create_ticket"
	actionCancelTicket  = "cancel_create_ticket"
)

// interactionPayload is the subset of Slack's block_actions payload the
// handler uses.
type interactionPayload struct {
	User struct {
		ID string `json:"id"`
	} `json:"user"`
	Actions []struct {
		ActionID string `json:"action_id"`
		Value    string `json:"value"`
	} `json:"actions"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackButton struct {
	Type     string    `json:"type"`
	Text     slackText `json:"text"`
	Value    string    `json:"value"`
	ActionID string    `json:"action_id"`
}

type slackBlock struct {
	Type     string        `json:"type"`
	Text     *slackText    `json:"text,omitempty"`
	Elements []slackButton `json:"elements,omitempty"`
}

type interactiveResponse struct {
	ResponseType string       `json:"response_type"`
	Text         string       `json:"text"`
	Blocks       []slackBlock `json:"blocks,omitempty"`
}

// handleInteractive dispatches button clicks from notification messages: the
// Create Ticket button, and the confirm/cancel pair of the duplicate-ticket
// prompt.
func (s *Server) handleInteractive(w http.ResponseWriter, r *http.Request) {
	if s.tickets == nil {
		ephemeral(w, http.StatusServiceUnavailable, "Ticket creation is not configured")
		return
	}
	raw := r.FormValue("payload")
	if raw == "" {
		ephemeral(w, http.StatusBadRequest, "Missing interaction payload")
		return
	}
	var payload interactionPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil || len(payload.Actions) == 0 {
		ephemeral(w, http.StatusBadRequest, "Malformed interaction payload")
		return
	}

	action := payload.Actions[0]
	internalID := action.Value
	userID := payload.User.ID
	s.logger.Info("interaction received",
		zap.String("request_id", RequestID(r.Context())),
		zap.String("action", action.ActionID),
		zap.String("internal_id", internalID),
	)

	switch action.ActionID {
	case actionCreateTicket:
		result, err := s.tickets.Create(r.Context(), internalID, false)
		if err != nil {
			s.writeTicketError(w, internalID, err)
			return
		}
		if result.Duplicate {
			s.writeDuplicatePrompt(w, internalID, userID)
			return
		}
		inChannel(w, fmt.Sprintf("Outage ticket successfully created by <@%s> for event (ID: %s): %d", userID, internalID, result.WorkItemID))

	case actionConfirmTicket:
		result, err := s.tickets.Create(r.Context(), internalID, true)
		if err != nil {
			s.writeTicketError(w, internalID, err)
			return
		}
		inChannel(w, fmt.Sprintf("Outage ticket successfully created by <@%s> for event (ID: %s): %d", userID, internalID, result.WorkItemID))

	case actionCancelTicket:
		ephemeral(w, http.StatusOK, fmt.Sprintf("Ticket creation for event (ID: %s) cancelled.", internalID))

	default:
		ephemeral(w, http.StatusBadRequest, fmt.Sprintf("Unsupported action: %s", action.ActionID))
	}
}

func (s *Server) writeTicketError(w http.ResponseWriter, internalID string, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		ephemeral(w, http.StatusNotFound, fmt.Sprintf("No tracked event with ID %s", internalID))
		return
	}
	ephemeral(w, http.StatusInternalServerError, fmt.Sprintf("Error creating ticket for event (ID: %s)", internalID))
}

// writeDuplicatePrompt asks the operator to confirm a second ticket for an
// incident that already has one.
func (s *Server) writeDuplicatePrompt(w http.ResponseWriter, internalID, userID string) {
	text := fmt.Sprintf("<@%s>, a ticket has already been created for this event (ID: %s). Do you want to create another ticket?", userID, internalID)
	resp := interactiveResponse{
		ResponseType: "ephemeral",
		Text:         text,
		Blocks: []slackBlock{
			{
				Type: "section",
				Text: &slackText{Type: "mrkdwn", Text: text},
			},
			{
				Type: "actions",
				Elements: []slackButton{
					{
						Type:     "button",
						Text:     slackText{Type: "plain_text", Text: "Yes, create another"},
						Value:    internalID,
						ActionID: actionConfirmTicket,
					},
					{
						Type:     "button",
						Text:     slackText{Type: "plain_text", Text: "No, cancel"},
						Value:    internalID,
						ActionID: actionCancelTicket,
					},
				},
			},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(resp)
}
