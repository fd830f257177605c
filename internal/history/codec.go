package history

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/comigor/unichat/internal/logger"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type sessionList struct {
	Sessions []Session `validate:"unique=ID,dive"`
}

// decodeSessions parses and validates the persisted session array. Any shape
// problem rejects the whole payload; a stale messageCount is repaired.
func decodeSessions(raw string) ([]Session, error) {
	var sessions []Session
	if err := json.Unmarshal([]byte(raw), &sessions); err != nil {
		return nil, fmt.Errorf("decode sessions: %w", err)
	}
	if err := validate.Struct(sessionList{Sessions: sessions}); err != nil {
		return nil, fmt.Errorf("validate sessions: %w", err)
	}

	for i := range sessions {
		s := &sessions[i]
		if s.Messages == nil {
			s.Messages = []Message{}
		}
		if s.MessageCount != len(s.Messages) {
			logger.L.Debug("repairing session message count", "session", s.ID, "stored", s.MessageCount, "actual", len(s.Messages))
			s.MessageCount = len(s.Messages)
		}
	}
	return sessions, nil
}

func encodeSessions(sessions []Session) (string, error) {
	if sessions == nil {
		sessions = []Session{}
	}
	b, err := json.Marshal(sessions)
	if err != nil {
		return "", fmt.Errorf("encode sessions: %w", err)
	}
	return string(b), nil
}
