package session

import (
	"context"

	"github.com/danielpatrickdp/mission-director/internal/export"
	"github.com/danielpatrickdp/mission-director/internal/store"
)

// AttemptSink stores export attempts. It satisfies export.AttemptRecorder.
type AttemptSink struct {
	Store *store.Store
}

// RecordAttempt implements export.AttemptRecorder.
func (s AttemptSink) RecordAttempt(_ context.Context, a export.Attempt) error {
	return s.Store.RecordAttempt(store.AttemptRecord{
		ItemID:    a.ItemID,
		MissionID: a.MissionID,
		Digest:    a.Digest,
		Attempt:   a.Number,
		State:     string(a.State),
		Error:     a.Error,
		ReplayID:  a.ReplayID,
		CreatedAt: a.CreatedAt,
	})
}
