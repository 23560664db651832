package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"hospital-admin/internal/client"
	"hospital-admin/internal/models"
	"hospital-admin/internal/repository"
	"hospital-admin/internal/util"
)

// Recorder appends AuthLog rows and mirrors them onto the optional
// audit stream. Record is best-effort: an audit failure is logged but
// never fails the operation that produced it. Rows that must be atomic
// with a state change are written inside that transaction instead, then
// mirrored here.
type Recorder struct {
	store    repository.Store
	producer *client.AuditProducer
	now      func() time.Time
}

func NewRecorder(store repository.Store, producer *client.AuditProducer) *Recorder {
	return &Recorder{store: store, producer: producer, now: time.Now}
}

// NewAuthLog builds an audit row stamped with the device metadata.
func NewAuthLog(userID, action string, device DeviceInfo) *models.AuthLog {
	return &models.AuthLog{
		ID:         uuid.New(),
		UserID:     userID,
		Action:     action,
		IPAddress:  device.IPAddress,
		UserAgent:  device.UserAgent,
		Browser:    device.Browser,
		OS:         device.OS,
		DeviceType: device.DeviceType,
	}
}

// WithDetails attaches a JSON detail payload to an audit row.
func WithDetails(entry *models.AuthLog, details map[string]any) *models.AuthLog {
	if raw, err := json.Marshal(details); err == nil {
		entry.Details = datatypes.JSON(raw)
	}
	return entry
}

// Record persists the entry and mirrors it to the stream.
func (r *Recorder) Record(ctx context.Context, entry *models.AuthLog) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = r.now()
	}
	if err := r.store.Audit().AppendAuthLog(ctx, entry); err != nil {
		util.Error("failed to append audit row",
			util.String("action", entry.Action),
			util.String("user_id", entry.UserID),
			util.ErrorField(err),
		)
	}
	r.Mirror(ctx, entry)
}

// Mirror publishes an already-persisted entry to the audit stream.
func (r *Recorder) Mirror(ctx context.Context, entry *models.AuthLog) {
	if r.producer == nil {
		return
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return
	}
	r.producer.Publish(ctx, entry.UserID, payload)
}
