package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/ecovend/recycle-server/internal/model"
)

// BottleEventRepo appends to and projects over the bottle_history table.
// The table is an immutable log: rows are inserted by ingestion and only
// ever read afterwards.
type BottleEventRepo struct{ DB *sql.DB }

func NewBottleEventRepo(db *sql.DB) *BottleEventRepo { return &BottleEventRepo{DB: db} }

// Create appends a bottle event row and populates the generated ID.
func (r *BottleEventRepo) Create(ctx context.Context, ev *model.BottleEvent) error {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO bottle_history (rfid_id, machine_id, bottles_inserted, points_earned, sensor_readings, status, suspicion_reason)
		 VALUES (?,?,?,?,?,?,?)`,
		ev.RFID, ev.MachineID, ev.BottlesInserted, ev.PointsEarned, ev.SensorReadings, ev.Status, ev.SuspicionReason)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ev.ID = uint64(id)
	return nil
}

// MachineStats aggregates the bottle log per vending machine for the
// admin monitoring view.
type MachineStats struct {
	MachineID       string     `json:"machine_id"`
	TotalOperations int64      `json:"total_operations"`
	TotalBottles    int64      `json:"total_bottles"`
	TotalPoints     int64      `json:"total_points"`
	SuspiciousCount int64      `json:"suspicious_count"`
	LastActivity    *time.Time `json:"last_activity"`
}

// Stats returns per-machine aggregates over the whole bottle log.
func (r *BottleEventRepo) Stats(ctx context.Context) ([]MachineStats, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT machine_id,
		        COUNT(*) AS total_operations,
		        COALESCE(SUM(bottles_inserted),0) AS total_bottles,
		        COALESCE(SUM(points_earned),0) AS total_points,
		        SUM(CASE WHEN status='suspicious' THEN 1 ELSE 0 END) AS suspicious_count,
		        MAX(insertion_time) AS last_activity
		 FROM bottle_history
		 GROUP BY machine_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]MachineStats, 0)
	for rows.Next() {
		var s MachineStats
		var last sql.NullTime
		if err := rows.Scan(&s.MachineID, &s.TotalOperations, &s.TotalBottles, &s.TotalPoints, &s.SuspiciousCount, &last); err != nil {
			return nil, err
		}
		if last.Valid {
			t := last.Time
			s.LastActivity = &t
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// SuspiciousEvent is a flagged bottle event joined with the student who
// triggered it, for the admin review list.
type SuspiciousEvent struct {
	ID              uint64    `json:"id"`
	RFID            string    `json:"rfid_id"`
	MachineID       string    `json:"machine_id"`
	BottlesInserted int64     `json:"bottles_inserted"`
	PointsEarned    int64     `json:"points_earned"`
	SuspicionReason *string   `json:"suspicion_reason,omitempty"`
	InsertionTime   time.Time `json:"insertion_time"`
	StudentName     string    `json:"name"`
	StudentID       string    `json:"student_id"`
}

// ListSuspicious returns the most recent suspicious events, newest first.
func (r *BottleEventRepo) ListSuspicious(ctx context.Context, limit int) ([]SuspiciousEvent, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT bh.id, bh.rfid_id, bh.machine_id, bh.bottles_inserted, bh.points_earned,
		        bh.suspicion_reason, bh.insertion_time, u.name, u.student_id
		 FROM bottle_history bh
		 JOIN users u ON u.rfid_id = bh.rfid_id
		 WHERE bh.status='suspicious'
		 ORDER BY bh.insertion_time DESC
		 LIMIT ?`,
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]SuspiciousEvent, 0)
	for rows.Next() {
		var e SuspiciousEvent
		var reason sql.NullString
		if err := rows.Scan(&e.ID, &e.RFID, &e.MachineID, &e.BottlesInserted, &e.PointsEarned,
			&reason, &e.InsertionTime, &e.StudentName, &e.StudentID); err != nil {
			return nil, err
		}
		if reason.Valid {
			v := reason.String
			e.SuspicionReason = &v
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
