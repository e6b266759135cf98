package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spigell/navihire/internal/workflow"
)

func encode(state *workflow.State) ([]byte, error) {
	if state == nil {
		return nil, errors.New("nil session state")
	}
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state: %w", err)
	}
	return data, nil
}

func decode(data []byte) (*workflow.State, error) {
	var state workflow.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return &state, nil
}
