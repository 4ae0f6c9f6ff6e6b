package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/zedbites/backoffice/models"
)

// Scheduler fires report jobs on cron expressions evaluated in the restaurant's time zone.
type Scheduler struct {
	cron *cron.Cron
	log  *logrus.Logger
}

func NewScheduler(loc *time.Location, log *logrus.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron: cron.New(cron.WithLocation(loc)),
		log:  log,
	}
}

// AddReport registers job under a standard five-field cron spec.
func (s *Scheduler) AddReport(spec string, job *ReportJob) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if _, err := job.Run(ctx, Trigger{Scheduled: true}); err != nil {
			s.log.WithError(err).WithField("report", job.Type).Error("scheduled report failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression %q for %s report: %w", spec, job.Type, err)
	}
	s.log.WithFields(logrus.Fields{"report": job.Type, "cron": spec}).Info("report scheduled")
	return nil
}

// Next returns the next fire time of every registered report.
func (s *Scheduler) Next() []time.Time {
	entries := s.cron.Entries()
	out := make([]time.Time, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Next)
	}
	return out
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for running jobs to complete.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// ScheduleReports wires the daily and weekly jobs.
func ScheduleReports(s *Scheduler, jobs Jobs, dailySpec, weeklySpec string) error {
	if job, ok := jobs[models.ReportDaily]; ok {
		if err := s.AddReport(dailySpec, job); err != nil {
			return err
		}
	}
	if job, ok := jobs[models.ReportWeekly]; ok {
		if err := s.AddReport(weeklySpec, job); err != nil {
			return err
		}
	}
	return nil
}
