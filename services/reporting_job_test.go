package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zedbites/backoffice/models"
	"github.com/zedbites/backoffice/realtime"
)

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) Send(ctx context.Context, email Email) error {
	return m.Called(ctx, email).Error(0)
}

type stubMetrics struct {
	err error
}

func (s stubMetrics) Daily(ctx context.Context, day time.Time) (*DailyMetrics, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &DailyMetrics{Date: day.Format("2006-01-02"), OrderCount: 12, Revenue: 1520.5, InventoryAlerts: 2, ActiveRecipes: 18}, nil
}

func (s stubMetrics) Weekly(ctx context.Context, weekEnd time.Time) (*WeeklyMetrics, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &WeeklyMetrics{WeekStart: "2026-03-02", WeekEnd: "2026-03-08", TotalOrders: 80, TotalRevenue: 9000, TopItems: []TopItem{}}, nil
}

type brokenRecipients struct {
	EmailStore
}

func (brokenRecipients) ActiveRecipients(ctx context.Context, reportType models.ReportType) ([]models.EmailRecipient, error) {
	return nil, ErrRecipientQuery
}

func newTestJob(t *testing.T, reportType models.ReportType, mailer Mailer) (*ReportJob, *GormEmailStore, *recordingHub) {
	t.Helper()
	store := NewGormEmailStore(newTestDB(t))
	hub := &recordingHub{}
	job := NewReportJob(reportType, stubMetrics{}, store, mailer, hub, "reports@zedbites.test", 2, quietLogger())
	job.Now = func() time.Time { return time.Date(2026, 3, 9, 7, 0, 0, 0, time.UTC) }
	return job, store, hub
}

func TestReportJobWithoutRecipients(t *testing.T) {
	mailer := &mockMailer{}
	job, store, hub := newTestJob(t, models.ReportDaily, mailer)

	res, err := job.Run(context.Background(), Trigger{Manual: true})
	require.NoError(t, err)
	assert.Zero(t, res.Sent)
	assert.Zero(t, res.Failed)
	assert.Zero(t, res.Total)

	logs, err := store.ListLogs(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, logs)
	assert.Empty(t, hub.names())
	mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestReportJobLogsEveryRecipient(t *testing.T) {
	mailer := &mockMailer{}
	mailer.On("Send", mock.Anything, mock.AnythingOfType("services.Email")).Return(nil)
	job, store, hub := newTestJob(t, models.ReportDaily, mailer)
	ctx := context.Background()

	name := "Bupe"
	for _, email := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		_, err := store.AddRecipient(ctx, models.ReportDaily, email, &name)
		require.NoError(t, err)
	}
	// Other report types and inactive recipients are skipped.
	_, err := store.AddRecipient(ctx, models.ReportWeekly, "w@x.com", nil)
	require.NoError(t, err)
	off, err := store.AddRecipient(ctx, models.ReportDaily, "off@x.com", nil)
	require.NoError(t, err)
	inactive := false
	_, err = store.UpdateRecipient(ctx, off.ID, RecipientUpdate{IsActive: &inactive})
	require.NoError(t, err)

	res, err := job.Run(ctx, Trigger{Scheduled: true})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Sent)
	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, 3, res.Total)
	mailer.AssertNumberOfCalls(t, "Send", 3)

	sent := mailer.Calls[0].Arguments.Get(1).(Email)
	assert.Equal(t, "reports@zedbites.test", sent.From)
	// Scheduled at 07:00 on the 9th, the run covers the completed 8th.
	assert.Equal(t, "ZedBites Daily Report - 2026-03-08", sent.Subject)
	assert.Contains(t, sent.HTML, "Hello Bupe")
	assert.Contains(t, sent.HTML, "K1,520.50")

	logs, err := store.ListLogs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	for _, l := range logs {
		assert.Equal(t, models.EmailStatusSuccess, l.Status)
		assert.Nil(t, l.ErrorMessage)

		var snap DailyMetrics
		require.NoError(t, json.Unmarshal(l.Data, &snap))
		assert.Equal(t, int64(12), snap.OrderCount)
	}
	assert.Equal(t, []string{realtime.EventReportCompleted}, hub.names())
}

func TestReportJobRecordsSendFailure(t *testing.T) {
	mailer := &mockMailer{}
	mailer.On("Send", mock.Anything, mock.MatchedBy(func(e Email) bool { return e.To == "bad@x.com" })).
		Return(errors.New("mailbox unavailable"))
	mailer.On("Send", mock.Anything, mock.Anything).Return(nil)
	job, store, _ := newTestJob(t, models.ReportWeekly, mailer)
	ctx := context.Background()

	for _, email := range []string{"bad@x.com", "good@x.com"} {
		_, err := store.AddRecipient(ctx, models.ReportWeekly, email, nil)
		require.NoError(t, err)
	}

	res, err := job.Run(ctx, Trigger{Manual: true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 2, res.Total)

	logs, err := store.ListLogs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	byEmail := map[string]models.EmailLog{}
	for _, l := range logs {
		byEmail[l.RecipientEmail] = l
	}
	assert.Equal(t, models.EmailStatusFailed, byEmail["bad@x.com"].Status)
	require.NotNil(t, byEmail["bad@x.com"].ErrorMessage)
	assert.Equal(t, "mailbox unavailable", *byEmail["bad@x.com"].ErrorMessage)
	assert.Equal(t, models.EmailStatusSuccess, byEmail["good@x.com"].Status)
	assert.Equal(t, "ZedBites Weekly Report - 2026-03-02 to 2026-03-08", byEmail["good@x.com"].Subject)
}

func TestReportJobAbortsOnInfrastructureFailure(t *testing.T) {
	mailer := &mockMailer{}

	job, store, _ := newTestJob(t, models.ReportDaily, mailer)
	_, err := store.AddRecipient(context.Background(), models.ReportDaily, "a@x.com", nil)
	require.NoError(t, err)
	job.metrics = stubMetrics{err: errors.New("db down")}
	_, err = job.Run(context.Background(), Trigger{})
	assert.ErrorIs(t, err, ErrMetricsUnavailable)

	job, store, _ = newTestJob(t, models.ReportDaily, mailer)
	job.store = brokenRecipients{store}
	_, err = job.Run(context.Background(), Trigger{})
	assert.ErrorIs(t, err, ErrRecipientQuery)

	mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestJobsRejectsUnknownType(t *testing.T) {
	_, err := Jobs{}.Run(context.Background(), models.ReportType("monthly"), Trigger{})
	assert.ErrorIs(t, err, ErrUnknownReportType)
}

// dayRecorder remembers which day each snapshot was requested for.
type dayRecorder struct {
	stubMetrics
	mu   sync.Mutex
	days []time.Time
}

func (d *dayRecorder) Daily(ctx context.Context, day time.Time) (*DailyMetrics, error) {
	d.mu.Lock()
	d.days = append(d.days, day)
	d.mu.Unlock()
	return d.stubMetrics.Daily(ctx, day)
}

func (d *dayRecorder) Weekly(ctx context.Context, weekEnd time.Time) (*WeeklyMetrics, error) {
	d.mu.Lock()
	d.days = append(d.days, weekEnd)
	d.mu.Unlock()
	return d.stubMetrics.Weekly(ctx, weekEnd)
}

func TestScheduledRunsCoverTheCompletedPeriod(t *testing.T) {
	now := time.Date(2026, 3, 9, 7, 0, 0, 0, time.UTC)
	tests := []struct {
		name       string
		reportType models.ReportType
		trigger    Trigger
		want       time.Time
	}{
		{"scheduled daily", models.ReportDaily, Trigger{Scheduled: true}, now.AddDate(0, 0, -1)},
		{"manual daily", models.ReportDaily, Trigger{Manual: true}, now},
		{"scheduled weekly", models.ReportWeekly, Trigger{Scheduled: true}, now.AddDate(0, 0, -1)},
		{"unspecified weekly", models.ReportWeekly, Trigger{}, now},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mailer := &mockMailer{}
			mailer.On("Send", mock.Anything, mock.Anything).Return(nil)
			job, store, _ := newTestJob(t, tt.reportType, mailer)
			metrics := &dayRecorder{}
			job.metrics = metrics
			_, err := store.AddRecipient(context.Background(), tt.reportType, "a@x.com", nil)
			require.NoError(t, err)

			_, err = job.Run(context.Background(), tt.trigger)
			require.NoError(t, err)
			assert.Equal(t, []time.Time{tt.want}, metrics.days)
		})
	}
}
