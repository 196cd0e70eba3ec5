package notifications

import (
	"context"
)

type EventType string

const (
	EventRoundStarted        EventType = "ROUND_STARTED"
	EventMatchCompleted      EventType = "MATCH_COMPLETED"
	EventParticipantOut      EventType = "PARTICIPANT_ELIMINATED"
	EventTournamentStarted   EventType = "TOURNAMENT_STARTED"
	EventTournamentCompleted EventType = "TOURNAMENT_COMPLETED"
	EventFinalStanding       EventType = "FINAL_STANDING"
)

type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload"`
	RoomID  string      `json:"room_id,omitempty"`
}

// Notifier delivers best-effort events. Callers log and ignore its errors.
type Notifier interface {
	TournamentUpdated(ctx context.Context, tournamentID int, event Event) error
	NotifyParticipant(ctx context.Context, userID int, event Event) error
}

type HubNotifier struct {
	hub *Hub
}

func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) TournamentUpdated(ctx context.Context, tournamentID int, event Event) error {
	event.RoomID = TournamentRoom(tournamentID)
	return n.hub.BroadcastToRoom(event.RoomID, event)
}

func (n *HubNotifier) NotifyParticipant(ctx context.Context, userID int, event Event) error {
	event.RoomID = UserRoom(userID)
	return n.hub.BroadcastToRoom(event.RoomID, event)
}
