package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/tundra-matches/models"
	"github.com/google/uuid"
)

var ErrNothingToArchive = errors.New("match has no resolved conflict")

// ResolutionRecord - то, что уходит в архив: обе спорные заявки и решение.
type ResolutionRecord struct {
	MatchID      int64                `json:"matchId"`
	TournamentID int64                `json:"tournamentId"`
	Clan1ID      int64                `json:"clan1Id"`
	Clan2ID      int64                `json:"clan2Id"`
	Conflict     *models.ConflictData `json:"conflict"`
	ArchivedAt   time.Time            `json:"archivedAt"`
}

// ResolutionArchiver пишет решения по конфликтам в объектное хранилище.
type ResolutionArchiver struct {
	uploader FileUploader
	now      func() time.Time
	newID    func() uuid.UUID
}

func NewResolutionArchiver(uploader FileUploader) *ResolutionArchiver {
	return &ResolutionArchiver{uploader: uploader, now: time.Now, newID: uuid.New}
}

// ResolutionKey - путь объекта: resolutions/<tournament>/match_<id>/<uuid>.json
func ResolutionKey(tournamentID, matchID int64, id uuid.UUID) string {
	return fmt.Sprintf("resolutions/%d/match_%d/%s.json", tournamentID, matchID, id)
}

func (a *ResolutionArchiver) ArchiveResolution(ctx context.Context, match *models.Match) (string, error) {
	if match.ConflictData == nil || match.ConflictData.Resolution == nil {
		return "", ErrNothingToArchive
	}

	body, err := json.Marshal(ResolutionRecord{
		MatchID:      match.ID,
		TournamentID: match.TournamentID,
		Clan1ID:      match.Clan1ID,
		Clan2ID:      match.Clan2ID,
		Conflict:     match.ConflictData,
		ArchivedAt:   a.now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode resolution of match %d: %w", match.ID, err)
	}

	key := ResolutionKey(match.TournamentID, match.ID, a.newID())
	result, err := a.uploader.Upload(ctx, key, "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	return result.Key, nil
}
