package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zedbites/backoffice/models"
	"gorm.io/gorm"
)

const (
	DefaultLogLimit = 50
	MaxLogLimit     = 500
)

// RecipientUpdate carries the fields of a partial recipient edit; nil means unchanged.
type RecipientUpdate struct {
	ReportType *models.ReportType
	Email      *string
	Name       *string
	IsActive   *bool
}

type EmailStore interface {
	ListRecipients(ctx context.Context) ([]models.EmailRecipient, error)
	ActiveRecipients(ctx context.Context, reportType models.ReportType) ([]models.EmailRecipient, error)
	AddRecipient(ctx context.Context, reportType models.ReportType, email string, name *string) (*models.EmailRecipient, error)
	UpdateRecipient(ctx context.Context, id uint, upd RecipientUpdate) (*models.EmailRecipient, error)
	DeleteRecipient(ctx context.Context, id uint) error
	AppendLog(ctx context.Context, entry *models.EmailLog) error
	ListLogs(ctx context.Context, limit int) ([]models.EmailLog, error)
}

type GormEmailStore struct {
	DB  *gorm.DB
	Now func() time.Time
}

func NewGormEmailStore(db *gorm.DB) *GormEmailStore {
	return &GormEmailStore{
		DB:  db,
		Now: func() time.Time { return time.Now().UTC() },
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *GormEmailStore) ListRecipients(ctx context.Context) ([]models.EmailRecipient, error) {
	var recipients []models.EmailRecipient
	if err := s.DB.WithContext(ctx).
		Order("report_type ASC").
		Order("email ASC").
		Find(&recipients).Error; err != nil {
		return nil, fmt.Errorf("failed to list recipients: %w", err)
	}
	return recipients, nil
}

func (s *GormEmailStore) ActiveRecipients(ctx context.Context, reportType models.ReportType) ([]models.EmailRecipient, error) {
	var recipients []models.EmailRecipient
	if err := s.DB.WithContext(ctx).
		Where("report_type = ? AND is_active = ?", reportType, true).
		Order("email ASC").
		Find(&recipients).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecipientQuery, err)
	}
	return recipients, nil
}

func (s *GormEmailStore) AddRecipient(ctx context.Context, reportType models.ReportType, email string, name *string) (*models.EmailRecipient, error) {
	if !reportType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownReportType, reportType)
	}
	email = normalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidRecipient)
	}

	now := s.Now()
	recipient := models.EmailRecipient{
		ReportType: reportType,
		Email:      email,
		Name:       trimName(name),
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureUnique(tx, 0, reportType, email); err != nil {
			return err
		}
		return tx.Create(&recipient).Error
	})
	if err != nil {
		return nil, translateRecipientErr(err)
	}
	return &recipient, nil
}

func (s *GormEmailStore) UpdateRecipient(ctx context.Context, id uint, upd RecipientUpdate) (*models.EmailRecipient, error) {
	var recipient models.EmailRecipient

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&recipient, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRecipientNotFound
			}
			return err
		}

		if upd.ReportType != nil {
			if !upd.ReportType.Valid() {
				return fmt.Errorf("%w: %q", ErrUnknownReportType, *upd.ReportType)
			}
			recipient.ReportType = *upd.ReportType
		}
		if upd.Email != nil {
			email := normalizeEmail(*upd.Email)
			if email == "" {
				return fmt.Errorf("%w: email is required", ErrInvalidRecipient)
			}
			recipient.Email = email
		}
		if upd.Name != nil {
			recipient.Name = trimName(upd.Name)
		}
		if upd.IsActive != nil {
			recipient.IsActive = *upd.IsActive
		}
		recipient.UpdatedAt = s.Now()

		if err := ensureUnique(tx, recipient.ID, recipient.ReportType, recipient.Email); err != nil {
			return err
		}
		return tx.Save(&recipient).Error
	})
	if err != nil {
		return nil, translateRecipientErr(err)
	}
	return &recipient, nil
}

func (s *GormEmailStore) DeleteRecipient(ctx context.Context, id uint) error {
	res := s.DB.WithContext(ctx).Delete(&models.EmailRecipient{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete recipient %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrRecipientNotFound
	}
	return nil
}

func (s *GormEmailStore) AppendLog(ctx context.Context, entry *models.EmailLog) error {
	if entry.SentAt.IsZero() {
		entry.SentAt = s.Now()
	}
	if err := s.DB.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to write email log: %w", err)
	}
	return nil
}

// ListLogs returns the newest logs first. limit is clamped to [1, MaxLogLimit].
func (s *GormEmailStore) ListLogs(ctx context.Context, limit int) ([]models.EmailLog, error) {
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	if limit > MaxLogLimit {
		limit = MaxLogLimit
	}

	var logs []models.EmailLog
	if err := s.DB.WithContext(ctx).
		Order("sent_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to list email logs: %w", err)
	}
	return logs, nil
}

func ensureUnique(tx *gorm.DB, selfID uint, reportType models.ReportType, email string) error {
	var count int64
	q := tx.Model(&models.EmailRecipient{}).Where("report_type = ? AND email = ?", reportType, email)
	if selfID != 0 {
		q = q.Where("id <> ?", selfID)
	}
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrDuplicateRecipient
	}
	return nil
}

func translateRecipientErr(err error) error {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicateRecipient
	case errors.Is(err, ErrDuplicateRecipient),
		errors.Is(err, ErrRecipientNotFound),
		errors.Is(err, ErrInvalidRecipient),
		errors.Is(err, ErrUnknownReportType):
		return err
	}
	return fmt.Errorf("failed to save recipient: %w", err)
}

func trimName(name *string) *string {
	if name == nil {
		return nil
	}
	n := strings.TrimSpace(*name)
	if n == "" {
		return nil
	}
	return &n
}
