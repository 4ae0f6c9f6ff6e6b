package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/zedbites/backoffice/models"
	"github.com/zedbites/backoffice/realtime"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
)

// Trigger records what started a job run. Scheduled runs report on the
// last completed day (or week); other runs report on the current one.
type Trigger struct {
	Scheduled bool `json:"scheduled"`
	Manual    bool `json:"manual"`
}

func (t Trigger) String() string {
	switch {
	case t.Manual:
		return "manual"
	case t.Scheduled:
		return "scheduled"
	}
	return "unspecified"
}

type JobResult struct {
	ReportType models.ReportType `json:"report_type"`
	Message    string            `json:"message"`
	Sent       int               `json:"sent"`
	Failed     int               `json:"failed"`
	Total      int               `json:"total"`
	Snapshot   interface{}       `json:"data,omitempty"`
}

// ReportJob gathers a metrics snapshot and emails it to every active
// recipient of one report type.
type ReportJob struct {
	Type        models.ReportType
	From        string
	Concurrency int
	Now         func() time.Time

	metrics MetricsProvider
	store   EmailStore
	mailer  Mailer
	hub     Broadcaster
	log     *logrus.Logger

	running sync.Mutex
}

func NewReportJob(reportType models.ReportType, metrics MetricsProvider, store EmailStore, mailer Mailer, hub Broadcaster, from string, concurrency int, log *logrus.Logger) *ReportJob {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &ReportJob{
		Type:        reportType,
		From:        from,
		Concurrency: concurrency,
		Now:         time.Now,
		metrics:     metrics,
		store:       store,
		mailer:      mailer,
		hub:         hub,
		log:         log,
	}
}

// Run executes one job. Recipient or metrics failures abort it; a failed send
// only marks that recipient's log entry as failed.
func (j *ReportJob) Run(ctx context.Context, trigger Trigger) (*JobResult, error) {
	j.running.Lock()
	defer j.running.Unlock()

	entry := j.log.WithFields(logrus.Fields{"report": j.Type, "trigger": trigger.String()})
	entry.Info("report job started")

	recipients, err := j.store.ActiveRecipients(ctx, j.Type)
	if err != nil {
		entry.WithError(err).Error("report job aborted")
		return nil, err
	}
	if len(recipients) == 0 {
		entry.Info("no active recipients, nothing to send")
		return &JobResult{
			ReportType: j.Type,
			Message:    fmt.Sprintf("No active recipients for the %s report", j.Type),
		}, nil
	}

	snapshot, err := j.snapshot(ctx, trigger)
	if err != nil {
		entry.WithError(err).Error("report job aborted")
		return nil, fmt.Errorf("%w: %v", ErrMetricsUnavailable, err)
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	var (
		mu     sync.Mutex
		sent   int
		failed int
	)
	g := new(errgroup.Group)
	g.SetLimit(j.Concurrency)
	for _, r := range recipients {
		r := r
		g.Go(func() error {
			ok := j.deliver(ctx, r, snapshot, data)
			mu.Lock()
			if ok {
				sent++
			} else {
				failed++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	result := &JobResult{
		ReportType: j.Type,
		Message:    fmt.Sprintf("%s report sent to %d of %d recipients", j.Type, sent, len(recipients)),
		Sent:       sent,
		Failed:     failed,
		Total:      len(recipients),
		Snapshot:   snapshot,
	}
	entry.WithFields(logrus.Fields{"sent": sent, "failed": failed}).Info("report job finished")

	if j.hub != nil {
		j.hub.Broadcast(realtime.EventReportCompleted, result)
	}
	return result, nil
}

func (j *ReportJob) snapshot(ctx context.Context, trigger Trigger) (interface{}, error) {
	now := j.Now()
	if trigger.Scheduled && !trigger.Manual {
		now = now.AddDate(0, 0, -1)
	}
	switch j.Type {
	case models.ReportDaily:
		return j.metrics.Daily(ctx, now)
	case models.ReportWeekly:
		return j.metrics.Weekly(ctx, now)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownReportType, j.Type)
}

// deliver renders, sends and logs one recipient's email. It reports whether the send succeeded.
func (j *ReportJob) deliver(ctx context.Context, r models.EmailRecipient, snapshot interface{}, data []byte) bool {
	name := ""
	if r.Name != nil {
		name = *r.Name
	}

	logEntry := &models.EmailLog{
		ReportType:     j.Type,
		RecipientEmail: r.Email,
		Subject:        ReportSubject(j.Type, snapshot),
		Status:         models.EmailStatusSuccess,
		Data:           datatypes.JSON(data),
	}

	rendered, err := RenderReport(j.Type, snapshot, name)
	if err == nil {
		logEntry.Subject = rendered.Subject
		err = j.mailer.Send(ctx, Email{
			From:    j.From,
			To:      r.Email,
			Subject: rendered.Subject,
			HTML:    rendered.HTML,
		})
	}
	if err != nil {
		msg := err.Error()
		logEntry.Status = models.EmailStatusFailed
		logEntry.ErrorMessage = &msg
		j.log.WithError(err).WithFields(logrus.Fields{"report": j.Type, "to": r.Email}).Warn("report email failed")
	}

	if lerr := j.store.AppendLog(context.WithoutCancel(ctx), logEntry); lerr != nil {
		j.log.WithError(lerr).WithField("to", r.Email).Error("failed to record email log")
	}
	return err == nil
}

// Jobs indexes report jobs by type.
type Jobs map[models.ReportType]*ReportJob

func (js Jobs) Run(ctx context.Context, reportType models.ReportType, trigger Trigger) (*JobResult, error) {
	job, ok := js[reportType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownReportType, reportType)
	}
	return job.Run(ctx, trigger)
}
