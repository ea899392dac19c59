package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/ecovend/recycle-server/internal/model"
	"github.com/ecovend/recycle-server/internal/queue"
	"github.com/ecovend/recycle-server/internal/repository"
	queue_publisher "github.com/ecovend/recycle-server/internal/service"
)

// SuspicionClassifier decides whether a bottle insertion looks fraudulent
// before its status is fixed in the log.  It returns the verdict and a
// human-readable reason for flagged events.  The classifier is evaluated
// once per insertion and its output is immutable afterwards.
type SuspicionClassifier func(rfid, sensorData string) (suspicious bool, reason string)

// AlwaysValid is the current classifier: every insertion passes.  A real
// heuristic (e.g. insertion rate per account per window) plugs in here
// without touching the ingestion path.
func AlwaysValid(rfid, sensorData string) (bool, string) { return false, "" }

// MonitoringHandler records bottle insertions from the vending machines
// and serves the admin projections over the bottle log.  The insertion
// endpoint trusts the machine: counts and points arrive caller-supplied.
type MonitoringHandler struct {
	Events   *repository.BottleEventRepo
	Points   *repository.PointsRepo
	Classify SuspicionClassifier
	Log      *zap.Logger
}

func NewMonitoringHandler(ev *repository.BottleEventRepo, p *repository.PointsRepo, classify SuspicionClassifier, log *zap.Logger) *MonitoringHandler {
	if classify == nil {
		classify = AlwaysValid
	}
	return &MonitoringHandler{Events: ev, Points: p, Classify: classify, Log: log}
}

type addBottleReq struct {
	RFID       string `json:"rfid"`
	MachineID  string `json:"machine_id"`
	Bottles    int64  `json:"bottles"`
	Points     int64  `json:"points"`
	SensorData string `json:"sensor_data"`
}

// AddBottle appends a bottle event and credits the account.  The balance
// upsert is one atomic SQL statement, so concurrent insertions from the
// same machine cannot lose updates.  The AMQP event afterwards is best
// effort: a broker outage never fails the request.
func (h *MonitoringHandler) AddBottle(c echo.Context) error {
	var req addBottleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.RFID = strings.TrimSpace(req.RFID)
	if req.RFID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "rfid required"})
	}
	if req.Bottles <= 0 {
		req.Bottles = 1
	}
	if req.Points <= 0 {
		req.Points = 10
	}
	if req.MachineID == "" {
		req.MachineID = "unknown"
	}

	suspicious, reason := h.Classify(req.RFID, req.SensorData)
	status := model.BottleStatusValid
	var reasonPtr *string
	if suspicious {
		status = model.BottleStatusSuspicious
		reasonPtr = &reason
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ev := model.BottleEvent{
		RFID:            req.RFID,
		MachineID:       req.MachineID,
		BottlesInserted: req.Bottles,
		PointsEarned:    req.Points,
		SensorReadings:  req.SensorData,
		Status:          status,
		SuspicionReason: reasonPtr,
	}
	if err := h.Events.Create(ctx, &ev); err != nil {
		h.Log.Error("add bottle: insert event failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "record insertion failed"})
	}
	if err := h.Points.Add(ctx, req.RFID, req.Points, req.Bottles); err != nil {
		h.Log.Error("add bottle: credit points failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "credit points failed"})
	}

	pubCtx, pubCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer pubCancel()
	_ = queue_publisher.PublishBottleInserted(pubCtx, queue.BottleInsertedEvent{
		EventID:    ev.ID,
		RFID:       ev.RFID,
		MachineID:  ev.MachineID,
		Bottles:    ev.BottlesInserted,
		Points:     ev.PointsEarned,
		Status:     ev.Status,
		Reason:     reason,
		InsertedAt: time.Now().UTC().Format(time.RFC3339),
	})

	return c.JSON(http.StatusOK, echo.Map{
		"success":       true,
		"points_added":  req.Points,
		"bottles_added": req.Bottles,
		"status":        status,
	})
}

// MachineStats serves per-machine aggregates for the admin view.
func (h *MonitoringHandler) MachineStats(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	stats, err := h.Events.Stats(ctx)
	if err != nil {
		h.Log.Error("machine stats failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, stats)
}

// SuspiciousActivities lists the latest flagged insertions.
func (h *MonitoringHandler) SuspiciousActivities(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	events, err := h.Events.ListSuspicious(ctx, 50)
	if err != nil {
		h.Log.Error("suspicious activities failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, events)
}
