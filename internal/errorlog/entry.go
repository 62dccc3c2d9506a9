// Package errorlog records every failure reported by the storage, crypto and HTTP
// layers. Entries are kept in a bounded in-memory ring buffer and, when a Reporter
// is configured, queued for batched delivery by a background flusher.
package errorlog

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/ribbonapp/ribbon-core/internal/errors"
)

// Entry is one logged error in its serializable form.
type Entry struct {
	ID         uuid.UUID      `json:"id"`
	Code       apperrors.Kind `json:"code"`
	Message    string         `json:"message"`
	StatusCode int            `json:"status_code,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

func newEntry(err error, details map[string]any, now time.Time) Entry {
	appErr := apperrors.Normalize(err)

	id, idErr := uuid.NewV7()
	if idErr != nil {
		id = uuid.New()
	}

	merged := make(map[string]any, len(appErr.Details)+len(details)+1)
	for k, v := range appErr.Details {
		merged[k] = serializable(v)
	}
	for k, v := range details {
		merged[k] = serializable(v)
	}
	if appErr.Code != "" {
		merged["code"] = appErr.Code
	}
	if _, ok := merged["cause"]; !ok && appErr.Err != nil && appErr.Err.Error() != appErr.Message {
		merged["cause"] = appErr.Err.Error()
	}

	return Entry{
		ID:         id,
		Code:       appErr.Kind,
		Message:    appErr.Message,
		StatusCode: appErr.StatusCode,
		Details:    merged,
		Timestamp:  now.UTC(),
	}
}

// serializable replaces values that cannot be encoded as JSON with their string form.
func serializable(v any) any {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	if _, err := json.Marshal(v); err != nil {
		return fmt.Sprint(v)
	}
	return v
}
