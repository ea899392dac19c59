// Package queue defines message payloads exchanged over the message broker.
package queue

// BottleInsertedEvent is published after a bottle insertion has been
// recorded and credited.  It carries enough for downstream consumers
// (audit log, fraud analytics) to work without querying the primary
// database.
type BottleInsertedEvent struct {
	EventID    uint64 `json:"event_id"`
	RFID       string `json:"rfid_id"`
	MachineID  string `json:"machine_id"`
	Bottles    int64  `json:"bottles"`
	Points     int64  `json:"points"`
	Status     string `json:"status"`
	Reason     string `json:"reason,omitempty"`
	InsertedAt string `json:"inserted_at"`
}
