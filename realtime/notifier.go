package realtime

import (
	"context"
	"strconv"

	"github.com/Dosada05/tundra-matches/models"
)

const (
	EventMatchUpdated = "MATCH_UPDATED"
	EventMatchActive  = "MATCH_ACTIVE"
)

func MatchRoom(matchID int64) string {
	return "match_" + strconv.FormatInt(matchID, 10)
}

func TournamentRoom(tournamentID int64) string {
	return "tournament_" + strconv.FormatInt(tournamentID, 10)
}

// MatchNotifier публикует события матча в комнату матча и комнату турнира.
type MatchNotifier struct {
	hub *Hub
}

func NewMatchNotifier(hub *Hub) *MatchNotifier {
	return &MatchNotifier{hub: hub}
}

func (n *MatchNotifier) MatchUpdated(_ context.Context, match *models.Match) {
	n.publish(EventMatchUpdated, match)
}

func (n *MatchNotifier) MatchActivated(_ context.Context, match *models.Match) {
	n.publish(EventMatchActive, match)
}

func (n *MatchNotifier) publish(event string, match *models.Match) {
	for _, room := range []string{MatchRoom(match.ID), TournamentRoom(match.TournamentID)} {
		n.hub.BroadcastToRoom(room, Message{Type: event, Payload: match, RoomID: room})
	}
}
