package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hospital-admin/internal/models"
	"hospital-admin/internal/repository"
)

// Store is the gorm-backed implementation of repository.Store.
type Store struct {
	db *gorm.DB
}

var _ repository.Store = (*Store)(nil)

// NewStore wraps an open gorm handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Users() repository.UserRepository       { return &userRepo{db: s.db} }
func (s *Store) Sessions() repository.SessionRepository { return &sessionRepo{db: s.db} }
func (s *Store) Otps() repository.OtpRepository         { return &otpRepo{db: s.db} }
func (s *Store) Audit() repository.AuditRepository      { return &auditRepo{db: s.db} }

// Transaction executes fn against a store bound to one database
// transaction; fn returning an error rolls everything back.
func (s *Store) Transaction(ctx context.Context, fn func(repository.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func (s *Store) HealthCheck(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repository.ErrNotFound
	}
	return err
}

// --- users ---

type userRepo struct {
	db *gorm.DB
}

func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *userRepo) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "phone = ?", phone).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *userRepo) UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"password_hash":       passwordHash,
			"password_changed_at": changedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// --- sessions ---

type sessionRepo struct {
	db *gorm.DB
}

func (r *sessionRepo) Create(ctx context.Context, session *models.Session) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *sessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	var session models.Session
	if err := r.db.WithContext(ctx).First(&session, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &session, nil
}

func (r *sessionRepo) ListByUser(ctx context.Context, userID string) ([]models.Session, error) {
	var sessions []models.Session
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("last_activity_at DESC").
		Find(&sessions).Error
	return sessions, err
}

func (r *sessionRepo) ListActiveByUser(ctx context.Context, userID string, now time.Time) ([]models.Session, error) {
	var sessions []models.Session
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND expires_at > ?", userID, now).
		Order("last_activity_at DESC").
		Find(&sessions).Error
	return sessions, err
}

func (r *sessionRepo) ListExpired(ctx context.Context, now time.Time) ([]models.Session, error) {
	var sessions []models.Session
	err := r.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Find(&sessions).Error
	return sessions, err
}

func (r *sessionRepo) TouchActivity(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ?", id).
		Update("last_activity_at", at).Error
}

func (r *sessionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.Session{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *sessionRepo) DeleteBatch(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Delete(&models.Session{}, "id IN ?", ids)
	return res.RowsAffected, res.Error
}

// --- otp requests ---

type otpRepo struct {
	db *gorm.DB
}

func (r *otpRepo) GetByUser(ctx context.Context, userID string) (*models.OtpRequest, error) {
	var otp models.OtpRequest
	if err := r.db.WithContext(ctx).First(&otp, "user_id = ?", userID).Error; err != nil {
		return nil, translate(err)
	}
	return &otp, nil
}

func (r *otpRepo) Replace(ctx context.Context, otp *models.OtpRequest) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"otp_hash", "expires_at", "attempts", "last_sent_at",
		}),
	}).Create(otp).Error
}

func (r *otpRepo) IncrementAttempts(ctx context.Context, userID string) error {
	res := r.db.WithContext(ctx).Model(&models.OtpRequest{}).
		Where("user_id = ?", userID).
		UpdateColumn("attempts", gorm.Expr("attempts + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *otpRepo) DeleteByUser(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Delete(&models.OtpRequest{}, "user_id = ?", userID).Error
}

func (r *otpRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&models.OtpRequest{}, "expires_at < ?", now)
	return res.RowsAffected, res.Error
}

// --- audit ---

type auditRepo struct {
	db *gorm.DB
}

func (r *auditRepo) AppendAuthLog(ctx context.Context, entry *models.AuthLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *auditRepo) AppendAuthLogs(ctx context.Context, entries []models.AuthLog) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(entries, 200).Error
}

func (r *auditRepo) AppendSessionLog(ctx context.Context, entry *models.SessionLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *auditRepo) AppendSessionLogs(ctx context.Context, entries []models.SessionLog) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(entries, 200).Error
}

// PruneOlderThan removes history rows whose terminal timestamp is past
// the retention horizon.
func (r *auditRepo) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var pruned int64

	res := r.db.WithContext(ctx).Delete(&models.AuthLog{}, "timestamp < ?", cutoff)
	if res.Error != nil {
		return pruned, res.Error
	}
	pruned += res.RowsAffected

	res = r.db.WithContext(ctx).Delete(&models.SessionLog{},
		"(revoked_at IS NOT NULL AND revoked_at < ?) OR (expired_at IS NOT NULL AND expired_at < ?)",
		cutoff, cutoff)
	if res.Error != nil {
		return pruned, res.Error
	}
	pruned += res.RowsAffected

	return pruned, nil
}
