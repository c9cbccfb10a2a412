package syncqueue

import (
	"encoding/json"
	"fmt"

	"github.com/tcadams/tcg-tracker/internal/models"
)

// Field renames from the local entity shape to the remote wire format,
// per table. The translation is deterministic, one-directional
// (local to remote) and kept in sync with the remote schema by hand.
var fieldRenames = map[models.Table]map[string]string{
	models.TableEvents: {
		"ownerId":     "owner_id",
		"startDate":   "start_date",
		"endDate":     "end_date",
		"totalRounds": "total_rounds",
		"createdAt":   "created_at",
		"updatedAt":   "updated_at",
	},
	models.TableDecks: {
		"ownerId":   "owner_id",
		"createdAt": "created_at",
		"updatedAt": "updated_at",
	},
	models.TableMatches: {
		"ownerId":           "owner_id",
		"eventId":           "event_id",
		"myDeckId":          "my_deck_id",
		"opponentArchetype": "opponent_archetype",
		"opponentLeader":    "opponent_leader",
		"opponentColor":     "opponent_color",
		"dieRollWon":        "die_roll_won",
		"wentFirst":         "went_first",
		"createdAt":         "created_at",
		"updatedAt":         "updated_at",
	},
}

// Translate converts an entity snapshot into the remote table's row shape.
// Only field names change; values pass through untouched.
func Translate(table models.Table, payload json.RawMessage) (map[string]any, error) {
	renames, ok := fieldRenames[table]
	if !ok {
		return nil, fmt.Errorf("unknown sync table %q", table)
	}

	var fields map[string]any
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode sync payload: %w", err)
	}

	row := make(map[string]any, len(fields))
	for name, value := range fields {
		if remote, ok := renames[name]; ok {
			name = remote
		}
		row[name] = value
	}
	return row, nil
}
