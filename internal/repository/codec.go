package repository

import (
	"encoding/json"
	"fmt"

	"medcenter/internal/models"
)

func encodeSession(s *models.WizardSession) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}
	return data, nil
}

func decodeSession(data []byte) (*models.WizardSession, error) {
	var s models.WizardSession
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &s, nil
}
