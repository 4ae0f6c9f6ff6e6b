package services

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/zedbites/backoffice/models"
	"github.com/zedbites/backoffice/realtime"
	"gorm.io/gorm"
)

// Broadcaster pushes an event to connected realtime clients.
type Broadcaster interface {
	Broadcast(event string, data interface{})
}

// Notifier surfaces a user-visible message.
type Notifier interface {
	Notify(ctx context.Context, source, title, message string)
}

// NotificationService stores notifications and relays them to staff boards.
type NotificationService struct {
	DB  *gorm.DB
	Hub Broadcaster
	Log *logrus.Logger
}

func NewNotificationService(db *gorm.DB, hub Broadcaster, log *logrus.Logger) *NotificationService {
	return &NotificationService{DB: db, Hub: hub, Log: log}
}

func (ns *NotificationService) Notify(ctx context.Context, source, title, message string) {
	notif := models.Notification{
		Title:   title,
		Message: message,
		Source:  source,
	}
	if err := ns.DB.WithContext(ctx).Create(&notif).Error; err != nil {
		ns.Log.WithError(err).WithField("source", source).Error("failed to store notification")
	}

	ns.Log.WithFields(logrus.Fields{"source": source, "title": title}).Warn(message)

	if ns.Hub != nil {
		ns.Hub.Broadcast(realtime.EventStaffNotification, notif)
	}
}
