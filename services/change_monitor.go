package services

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/zedbites/backoffice/models"
	"gorm.io/gorm"
)

const changeBatchSize = 100

// ChangeHandler consumes entries of the change journal.
type ChangeHandler interface {
	HandleChange(ctx context.Context, change models.DBChange) error
}

// ChangeMonitor polls the change journal and fans each unprocessed entry out
// to its handlers in journal order.
type ChangeMonitor struct {
	DB       *gorm.DB
	Interval time.Duration
	Log      *logrus.Logger

	handlers []ChangeHandler
	stopChan chan struct{}
	done     chan struct{}
	started  bool
	stopOnce sync.Once
}

func NewChangeMonitor(db *gorm.DB, log *logrus.Logger, handlers ...ChangeHandler) *ChangeMonitor {
	return &ChangeMonitor{
		DB:       db,
		Interval: 1 * time.Second,
		Log:      log,
		handlers: handlers,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (cm *ChangeMonitor) Start() {
	cm.started = true
	go func() {
		defer close(cm.done)
		ticker := time.NewTicker(cm.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				cm.CheckChanges(context.Background())
			case <-cm.stopChan:
				return
			}
		}
	}()
}

// Stop halts polling and waits for an in-flight batch to finish.
func (cm *ChangeMonitor) Stop() {
	cm.stopOnce.Do(func() {
		close(cm.stopChan)
		if cm.started {
			<-cm.done
		}
	})
}

// CheckChanges processes one batch and returns how many entries it consumed.
// Handler errors are logged; the entry is still marked processed so a poison
// row cannot stall the journal.
func (cm *ChangeMonitor) CheckChanges(ctx context.Context) int {
	var changes []models.DBChange
	if err := cm.DB.WithContext(ctx).
		Where("processed = ?", false).
		Order("id ASC").
		Limit(changeBatchSize).
		Find(&changes).Error; err != nil {
		cm.Log.WithError(err).Error("error fetching changes")
		return 0
	}
	if len(changes) == 0 {
		return 0
	}

	ids := make([]uint, 0, len(changes))
	for _, change := range changes {
		entry := cm.Log.WithFields(logrus.Fields{
			"table":     change.TableName,
			"action":    change.ActionType,
			"record_id": change.RecordID,
		})
		entry.Debug("processing change")

		for _, h := range cm.handlers {
			if err := h.HandleChange(ctx, change); err != nil {
				entry.WithError(err).Error("change handler failed")
			}
		}
		ids = append(ids, change.ID)
	}

	if err := cm.DB.WithContext(ctx).
		Model(&models.DBChange{}).
		Where("id IN ?", ids).
		Update("processed", true).Error; err != nil {
		cm.Log.WithError(err).Error("error marking changes as processed")
		return 0
	}

	cm.Log.WithField("count", len(changes)).Debug("processed changes")
	return len(changes)
}
