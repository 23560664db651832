package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"hospital-admin/internal/config"
	"hospital-admin/internal/models"
	"hospital-admin/internal/repository"
	"hospital-admin/internal/util"
)

// CleanupService sweeps expired sessions and OTPs and prunes audit
// history past the retention horizon. Run is idempotent; a second pass
// over the same state is a no-op.
type CleanupService struct {
	store repository.Store
	cfg   config.CleanupConfig
	now   func() time.Time
}

func NewCleanupService(store repository.Store, cfg config.CleanupConfig) *CleanupService {
	return &CleanupService{store: store, cfg: cfg, now: time.Now}
}

// CleanupReport counts what one run removed.
type CleanupReport struct {
	ExpiredSessions    int64 `json:"expiredSessions"`
	ExpiredOtpRequests int64 `json:"expiredOtpRequests"`
	PrunedLogs         int64 `json:"prunedLogs"`
}

// Run executes the three sweeps. The OTP sweep and the retention prune
// are independent of the session sweep and run concurrently with it.
func (s *CleanupService) Run(ctx context.Context) (*CleanupReport, error) {
	now := s.now()
	report := &CleanupReport{}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := s.sweepSessions(gctx, now)
		if err != nil {
			return fmt.Errorf("session sweep: %w", err)
		}
		report.ExpiredSessions = n
		return nil
	})
	g.Go(func() error {
		n, err := s.store.Otps().DeleteExpired(gctx, now)
		if err != nil {
			return fmt.Errorf("otp sweep: %w", err)
		}
		report.ExpiredOtpRequests = n
		return nil
	})
	g.Go(func() error {
		n, err := s.store.Audit().PruneOlderThan(gctx, now.Add(-s.cfg.LogRetention))
		if err != nil {
			return fmt.Errorf("retention prune: %w", err)
		}
		report.PrunedLogs = n
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	util.Info("cleanup run finished",
		util.Int64("expired_sessions", report.ExpiredSessions),
		util.Int64("expired_otps", report.ExpiredOtpRequests),
		util.Int64("pruned_logs", report.PrunedLogs),
	)
	return report, nil
}

// sweepSessions converts every expired session into its SessionLog
// marker plus a SESSION_EXPIRED audit row, then deletes the rows. The
// whole batch commits or rolls back together.
func (s *CleanupService) sweepSessions(ctx context.Context, now time.Time) (int64, error) {
	var removed int64
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		expired, err := tx.Sessions().ListExpired(ctx, now)
		if err != nil {
			return err
		}
		if len(expired) == 0 {
			return nil
		}

		ids := make([]uuid.UUID, 0, len(expired))
		sessionLogs := make([]models.SessionLog, 0, len(expired))
		authLogs := make([]models.AuthLog, 0, len(expired))
		for i := range expired {
			sess := &expired[i]
			ids = append(ids, sess.ID)

			slog := sessionLogFor(sess, uuid.New())
			expiredAt := sess.ExpiresAt
			slog.ExpiredAt = &expiredAt
			sessionLogs = append(sessionLogs, slog)

			sid := sess.ID.String()
			authLogs = append(authLogs, models.AuthLog{
				ID:         uuid.New(),
				UserID:     sess.UserID,
				SessionID:  &sid,
				Action:     models.ActionSessionExpired,
				IPAddress:  sess.IPAddress,
				UserAgent:  sess.UserAgent,
				Browser:    sess.Browser,
				OS:         sess.OS,
				DeviceType: sess.DeviceType,
				Timestamp:  now,
			})
		}

		if err := tx.Audit().AppendSessionLogs(ctx, sessionLogs); err != nil {
			return err
		}
		if err := tx.Audit().AppendAuthLogs(ctx, authLogs); err != nil {
			return err
		}
		n, err := tx.Sessions().DeleteBatch(ctx, ids)
		if err != nil {
			return err
		}
		removed = n
		return nil
	})
	return removed, err
}

// StartTicker runs the sweep on an interval until ctx is cancelled.
// Used when no external cron hits the cleanup endpoint.
func (s *CleanupService) StartTicker(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.Run(ctx); err != nil {
					util.Error("scheduled cleanup failed", util.ErrorField(err))
				}
			}
		}
	}()
}
