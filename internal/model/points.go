package model

import "time"

// PointBalance mirrors the `user_points` table.  One row per account,
// created lazily on the first bottle insertion (or zeroed at
// registration).  TotalPoints only grows through ingestion and only
// shrinks through redemption, and must never go below zero.
type PointBalance struct {
	RFID         string    // user_points.rfid_id (primary key)
	TotalPoints  int64     // user_points.total_points
	TotalBottles int64     // user_points.total_bottles
	LastUpdated  time.Time // user_points.last_updated
}
