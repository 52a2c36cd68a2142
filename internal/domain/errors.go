package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrInvalidParameter     = errors.New("invalid parameter")
	ErrInvalidScenarioInput = errors.New("invalid scenario input")
	ErrNoRateAvailable      = errors.New("no rate available")
)

// PerItemError reports a single recurring definition that failed during a batch run.
type PerItemError struct {
	DefinitionID string `json:"definition_id"`
	Err          error  `json:"-"`
}

func (e PerItemError) Error() string {
	return fmt.Sprintf("recurring definition %s: %v", e.DefinitionID, e.Err)
}

func (e PerItemError) MarshalJSON() ([]byte, error) {
	msg := ""
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return json.Marshal(struct {
		DefinitionID string `json:"definition_id"`
		Error        string `json:"error"`
	}{e.DefinitionID, msg})
}

func (e PerItemError) Unwrap() error {
	return e.Err
}

func invalidParameter(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidParameter, fmt.Sprintf(format, args...))
}

func invalidScenarioInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidScenarioInput, fmt.Sprintf(format, args...))
}
