package amqp

import (
	"encoding/json"
	"time"
)

// Trip event kinds carried on the bus.
const (
	EventTripUpserted = "trip.upserted"
	EventTripDeleted  = "trip.deleted"
)

// TripEventMessage tells the backup worker that a trip changed. It
// carries only the trip id and event kind; the worker fetches the
// current snapshot from storage.
type TripEventMessage struct {
	TripID    string    `json:"tripId"`
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTripEventMessage(tripID, event string) *TripEventMessage {
	return &TripEventMessage{
		TripID:    tripID,
		Event:     event,
		Timestamp: time.Now(),
	}
}

func (m *TripEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TripEventMessageFromJSON(data []byte) (*TripEventMessage, error) {
	var msg TripEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
