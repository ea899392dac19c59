package model

import "time"

// Bottle event status values stored in bottle_history.status.
const (
	BottleStatusValid      = "valid"
	BottleStatusSuspicious = "suspicious"
)

// BottleEvent is an append-only row in the `bottle_history` table.  Rows
// are immutable once written; corrections happen by appending, never by
// updating.
//
// Fields:
//  ID              – primary key identifier.
//  RFID            – account the insertion was credited to.
//  MachineID       – identifier of the reverse-vending machine.
//  BottlesInserted – number of bottles reported by the machine.
//  PointsEarned    – points credited for the insertion.
//  SensorReadings  – raw sensor payload as reported (stored verbatim).
//  Status          – valid or suspicious, fixed at insert time.
//  SuspicionReason – why the classifier flagged the event (nullable).
//  InsertionTime   – timestamp of the insertion.
type BottleEvent struct {
	ID              uint64    // bottle_history.id
	RFID            string    // bottle_history.rfid_id
	MachineID       string    // bottle_history.machine_id
	BottlesInserted int64     // bottle_history.bottles_inserted
	PointsEarned    int64     // bottle_history.points_earned
	SensorReadings  string    // bottle_history.sensor_readings
	Status          string    // bottle_history.status
	SuspicionReason *string   // bottle_history.suspicion_reason (nullable)
	InsertionTime   time.Time // bottle_history.insertion_time
}
