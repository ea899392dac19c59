package handler

import (
	"encoding/json"
	"net/http"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"go.uber.org/zap"

	"github.com/ecovend/recycle-server/internal/model"
	"github.com/ecovend/recycle-server/internal/repository"
)

func newMonitoringHandler(t *testing.T, classify SuspicionClassifier) (*MonitoringHandler, sqlmock.Sqlmock, func()) {
	t.Helper()
	// Point the best-effort publisher at a dead address so the test never
	// waits on a broker.
	t.Setenv("RABBITMQ_URL", "amqp://127.0.0.1:1/")
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	h := NewMonitoringHandler(
		repository.NewBottleEventRepo(db),
		repository.NewPointsRepo(db),
		classify,
		zap.NewNop())
	return h, mock, func() { db.Close() }
}

// A bare insertion with only an RFID defaults to one bottle and ten
// points.
func TestAddBottleDefaults(t *testing.T) {
	h, mock, closeDB := newMonitoringHandler(t, nil)
	defer closeDB()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bottle_history")).
		WithArgs("RFID1", "unknown", int64(1), int64(10), "", model.BottleStatusValid, nil).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("ON DUPLICATE KEY UPDATE")).
		WithArgs("RFID1", int64(10), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := postJSON(t, h.AddBottle, `{"rfid":"RFID1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		PointsAdded  int64  `json:"points_added"`
		BottlesAdded int64  `json:"bottles_added"`
		Status       string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.PointsAdded != 10 || resp.BottlesAdded != 1 || resp.Status != model.BottleStatusValid {
		t.Fatalf("unexpected payload: %+v", resp)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

// A flagged insertion is still recorded and credited, but carries the
// suspicious status and the classifier's reason.
func TestAddBottleSuspiciousStillCredits(t *testing.T) {
	classify := func(rfid, sensorData string) (bool, string) {
		return true, "rate too high"
	}
	h, mock, closeDB := newMonitoringHandler(t, classify)
	defer closeDB()

	reason := "rate too high"
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bottle_history")).
		WithArgs("RFID1", "m-3", int64(4), int64(40), "w=212g", model.BottleStatusSuspicious, &reason).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec(regexp.QuoteMeta("ON DUPLICATE KEY UPDATE")).
		WithArgs("RFID1", int64(40), int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := postJSON(t, h.AddBottle, `{"rfid":"RFID1","machine_id":"m-3","bottles":4,"points":40,"sensor_data":"w=212g"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Status != model.BottleStatusSuspicious {
		t.Fatalf("status = %q, want %q", resp.Status, model.BottleStatusSuspicious)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestAddBottleRequiresRFID(t *testing.T) {
	h, mock, closeDB := newMonitoringHandler(t, nil)
	defer closeDB()

	rec := postJSON(t, h.AddBottle, `{"machine_id":"m-3"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
