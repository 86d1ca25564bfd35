package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SnapshotSyncMessage asks the worker to export one monthly snapshot. It
// carries only identifiers; the worker loads the full snapshot from the
// database so the queue never holds stale figures.
type SnapshotSyncMessage struct {
	MessageID  string    `json:"message_id"`
	SnapshotID int64     `json:"snapshot_id"`
	MonthYear  string    `json:"month_year"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewSnapshotSyncMessage(snapshotID int64, monthYear string) *SnapshotSyncMessage {
	return &SnapshotSyncMessage{
		MessageID:  uuid.NewString(),
		SnapshotID: snapshotID,
		MonthYear:  monthYear,
		Timestamp:  time.Now(),
	}
}

func (m *SnapshotSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func SnapshotSyncMessageFromJSON(data []byte) (*SnapshotSyncMessage, error) {
	var msg SnapshotSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
