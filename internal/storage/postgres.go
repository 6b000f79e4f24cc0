package storage

import (
	"complaintdesk/backend/internal/logging"
	"complaintdesk/backend/internal/models"
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormStore keeps records in PostgreSQL through GORM. Embedded lists
// (customer, logs, replies) are stored as jsonb so rows keep the document shape.
type GormStore struct {
	DB *gorm.DB
}

// OpenPostgres connects to PostgreSQL and runs the migrations.
func OpenPostgres(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect PostgreSQL: %w", err)
	}

	s := NewGormStore(db)
	if err := s.Migrate(); err != nil {
		return nil, err
	}
	logging.Info().Msg("PostgreSQL connection established, migrations complete")
	return s, nil
}

// NewGormStore wraps an open GORM handle.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

// Migrate creates or updates the tables.
func (s *GormStore) Migrate() error {
	if err := s.DB.AutoMigrate(
		&models.Complaint{},
		&models.Feedback{},
		&models.Manager{},
	); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *GormStore) SaveComplaint(ctx context.Context, c *models.Complaint) error {
	if err := s.DB.WithContext(ctx).Create(c).Error; err != nil {
		return gormErr("insert complaint", err)
	}
	return nil
}

func (s *GormStore) GetComplaintByID(ctx context.Context, id string) (*models.Complaint, error) {
	var c models.Complaint
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, gormErr("find complaint", err)
	}
	return &c, nil
}

func (s *GormStore) GetComplaintByReference(ctx context.Context, referenceID string) (*models.Complaint, error) {
	var c models.Complaint
	if err := s.DB.WithContext(ctx).Where("reference_id = ?", referenceID).First(&c).Error; err != nil {
		return nil, gormErr("find complaint by reference", err)
	}
	return &c, nil
}

func (s *GormStore) ListComplaints(ctx context.Context, filter ComplaintFilter) ([]models.Complaint, error) {
	q := s.DB.WithContext(ctx).Model(&models.Complaint{})
	if filter.Email != "" {
		q = q.Where("customer->>'email' = ?", filter.Email)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	out := make([]models.Complaint, 0)
	if err := q.Order("created_at desc").Find(&out).Error; err != nil {
		return nil, gormErr("list complaints", err)
	}
	return out, nil
}

func (s *GormStore) UpdateComplaint(ctx context.Context, c *models.Complaint) error {
	old := c.Version
	c.Version = old + 1
	if err := s.updateVersioned(ctx, c, &models.Complaint{}, c.ID, old); err != nil {
		c.Version = old
		return err
	}
	return nil
}

func (s *GormStore) DeleteComplaint(ctx context.Context, id string) error {
	return s.deleteByID(ctx, &models.Complaint{}, id)
}

func (s *GormStore) SaveFeedback(ctx context.Context, f *models.Feedback) error {
	if f.Replies == nil {
		f.Replies = []models.Reply{}
	}
	if err := s.DB.WithContext(ctx).Create(f).Error; err != nil {
		return gormErr("insert feedback", err)
	}
	return nil
}

func (s *GormStore) GetFeedbackByID(ctx context.Context, id string) (*models.Feedback, error) {
	var f models.Feedback
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&f).Error; err != nil {
		return nil, gormErr("find feedback", err)
	}
	return &f, nil
}

func (s *GormStore) ListFeedback(ctx context.Context) ([]models.Feedback, error) {
	out := make([]models.Feedback, 0)
	if err := s.DB.WithContext(ctx).Order("created_at desc").Find(&out).Error; err != nil {
		return nil, gormErr("list feedback", err)
	}
	return out, nil
}

func (s *GormStore) UpdateFeedback(ctx context.Context, f *models.Feedback) error {
	old := f.Version
	f.Version = old + 1
	if err := s.updateVersioned(ctx, f, &models.Feedback{}, f.ID, old); err != nil {
		f.Version = old
		return err
	}
	return nil
}

func (s *GormStore) DeleteFeedback(ctx context.Context, id string) error {
	return s.deleteByID(ctx, &models.Feedback{}, id)
}

func (s *GormStore) SaveManager(ctx context.Context, m *models.Manager) error {
	if err := s.DB.WithContext(ctx).Create(m).Error; err != nil {
		return gormErr("insert manager", err)
	}
	return nil
}

func (s *GormStore) GetManagerByEmail(ctx context.Context, email string) (*models.Manager, error) {
	var m models.Manager
	if err := s.DB.WithContext(ctx).Where("email = ?", email).First(&m).Error; err != nil {
		return nil, gormErr("find manager", err)
	}
	return &m, nil
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Close(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// updateVersioned writes every column of rec, guarded by the version read.
func (s *GormStore) updateVersioned(ctx context.Context, rec any, model any, id string, old int64) error {
	res := s.DB.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", id, old).
		Select("*").
		Omit("id", "created_at").
		Updates(rec)
	if res.Error != nil {
		return gormErr("update record", res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var n int64
	if err := s.DB.WithContext(ctx).Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return gormErr("check record existence", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrConflict
}

func (s *GormStore) deleteByID(ctx context.Context, model any, id string) error {
	res := s.DB.WithContext(ctx).Where("id = ?", id).Delete(model)
	if res.Error != nil {
		return gormErr("delete record", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func gormErr(op string, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	default:
		return fmt.Errorf("failed to %s: %w", op, err)
	}
}
