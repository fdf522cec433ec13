package client

import (
	"encoding/json"
	"fmt"

	"github.com/Dosada05/tundra-matches/models"
)

// Старые выгрузки матчей называют стороны team1/team2.
var legacyMatchKeys = map[string]string{
	"team1Id":    "clan1Id",
	"team2Id":    "clan2Id",
	"team1":      "clan1",
	"team2":      "clan2",
	"team1Score": "clan1Score",
	"team2Score": "clan2Score",
}

// decodeMatch разбирает матч, приводя устаревшие ключи и статусы
// к каноническому виду.
func decodeMatch(raw json.RawMessage) (*models.Match, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode match: %w", err)
	}

	for legacy, canonical := range legacyMatchKeys {
		v, ok := fields[legacy]
		if !ok {
			continue
		}
		if _, exists := fields[canonical]; !exists {
			fields[canonical] = v
		}
		delete(fields, legacy)
	}

	// Счет старого формата лежал прямо в матче.
	if _, ok := fields["score"]; !ok {
		c1, ok1 := fields["clan1Score"]
		c2, ok2 := fields["clan2Score"]
		if ok1 && ok2 && string(c1) != "null" && string(c2) != "null" {
			fields["score"] = json.RawMessage(`{"clan1Score":` + string(c1) + `,"clan2Score":` + string(c2) + `}`)
		}
	}
	delete(fields, "clan1Score")
	delete(fields, "clan2Score")

	if rawStatus, ok := fields["status"]; ok {
		var s string
		if err := json.Unmarshal(rawStatus, &s); err != nil {
			return nil, fmt.Errorf("decode match status: %w", err)
		}
		scheduled, has := fields["scheduledAt"]
		status, err := models.NormalizeStatus(s, has && string(scheduled) != "null")
		if err != nil {
			return nil, err
		}
		fields["status"] = json.RawMessage(`"` + string(status) + `"`)
	}

	normalized, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	var m models.Match
	if err := json.Unmarshal(normalized, &m); err != nil {
		return nil, fmt.Errorf("decode match: %w", err)
	}
	return &m, nil
}

func decodeMatches(raw json.RawMessage) ([]*models.Match, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode matches: %w", err)
	}
	out := make([]*models.Match, 0, len(items))
	for _, item := range items {
		m, err := decodeMatch(item)
		if err != nil {
			return nil, err
		}
		if m != nil {
			out = append(out, m)
		}
	}
	return out, nil
}
