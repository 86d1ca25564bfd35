package amqp

import (
	"testing"
)

func TestNewSnapshotSyncMessage(t *testing.T) {
	msg := NewSnapshotSyncMessage(42, "2024-06")

	if msg.SnapshotID != 42 {
		t.Errorf("SnapshotID = %d, want 42", msg.SnapshotID)
	}
	if msg.MonthYear != "2024-06" {
		t.Errorf("MonthYear = %q, want 2024-06", msg.MonthYear)
	}
	if msg.MessageID == "" {
		t.Error("MessageID is empty, want a generated id")
	}
	if msg.Timestamp.IsZero() {
		t.Error("Timestamp is zero, want current time")
	}

	other := NewSnapshotSyncMessage(42, "2024-06")
	if other.MessageID == msg.MessageID {
		t.Error("two messages share a MessageID, want unique ids")
	}
}

func TestSnapshotSyncMessageRoundTrip(t *testing.T) {
	msg := NewSnapshotSyncMessage(7, "2024-01")
	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	got, err := SnapshotSyncMessageFromJSON(body)
	if err != nil {
		t.Fatalf("SnapshotSyncMessageFromJSON() error = %v", err)
	}
	if got.MessageID != msg.MessageID || got.SnapshotID != 7 || got.MonthYear != "2024-01" {
		t.Errorf("round trip = %+v, want %+v", got, msg)
	}
}

func TestSnapshotSyncMessageFromJSONInvalid(t *testing.T) {
	if _, err := SnapshotSyncMessageFromJSON([]byte("not json")); err == nil {
		t.Error("SnapshotSyncMessageFromJSON(invalid) = nil error, want error")
	}
}
