package repository

import (
	"context"
	"database/sql"
)

// LeaderboardRepo computes point rankings over users joined with their
// balances.  Rank uses RANK() so equal totals share a rank; Position uses
// ROW_NUMBER() to give every student a unique slot for windowed queries.
type LeaderboardRepo struct{ DB *sql.DB }

func NewLeaderboardRepo(db *sql.DB) *LeaderboardRepo { return &LeaderboardRepo{DB: db} }

// Entry is one leaderboard row as served to clients.
type Entry struct {
	Name         string `json:"name"`
	StudentID    string `json:"student_id"`
	TotalBottles int64  `json:"total_bottles"`
	TotalPoints  int64  `json:"total_points"`
	Rank         int64  `json:"rank"`
	Position     int64  `json:"position"`
}

// rankedCTE is shared by all leaderboard queries.  `rank` is a reserved
// word in MySQL 8, hence the rank_no alias.
const rankedCTE = `WITH ranked AS (
  SELECT u.id, u.name, u.student_id, p.total_bottles, p.total_points,
         RANK() OVER (ORDER BY p.total_points DESC) AS rank_no,
         ROW_NUMBER() OVER (ORDER BY p.total_points DESC, u.id) AS pos
  FROM users u
  JOIN user_points p ON p.rfid_id = u.rfid_id
)`

// Top returns the first `limit` leaderboard entries by position.
func (r *LeaderboardRepo) Top(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := r.DB.QueryContext(ctx,
		rankedCTE+`
		 SELECT name, student_id, total_bottles, total_points, rank_no, pos
		 FROM ranked ORDER BY pos LIMIT ?`,
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ForUser returns the single leaderboard entry of a user.  sql.ErrNoRows
// when the user has no balance row yet.
func (r *LeaderboardRepo) ForUser(ctx context.Context, userID uint64) (Entry, error) {
	var e Entry
	err := r.DB.QueryRowContext(ctx,
		rankedCTE+`
		 SELECT name, student_id, total_bottles, total_points, rank_no, pos
		 FROM ranked WHERE id=?`,
		userID).Scan(&e.Name, &e.StudentID, &e.TotalBottles, &e.TotalPoints, &e.Rank, &e.Position)
	return e, err
}

// Around returns the entries within `radius` positions of the user's own
// position, ordered by position.  An empty slice when the user is not on
// the board.
func (r *LeaderboardRepo) Around(ctx context.Context, userID uint64, radius int64) ([]Entry, error) {
	me, err := r.ForUser(ctx, userID)
	if err == sql.ErrNoRows {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.QueryContext(ctx,
		rankedCTE+`
		 SELECT name, student_id, total_bottles, total_points, rank_no, pos
		 FROM ranked WHERE pos BETWEEN ? AND ? ORDER BY pos`,
		me.Position-radius, me.Position+radius)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	out := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Name, &e.StudentID, &e.TotalBottles, &e.TotalPoints, &e.Rank, &e.Position); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
