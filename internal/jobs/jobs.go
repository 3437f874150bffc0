// Package jobs runs the scheduled maintenance and notification tasks.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"association-admin-api/internal/datefmt"
	"association-admin-api/internal/mail"
	"association-admin-api/internal/model"
	"association-admin-api/internal/store"
)

type Store interface {
	PurgeRefreshTokens(ctx context.Context, now time.Time) (int64, error)
	PurgePasswordResets(ctx context.Context, now time.Time) (int64, error)
	ListAssociates(ctx context.Context, f store.AssociateFilter) ([]model.Associate, int, error)
	ExpiringAssociates(ctx context.Context, from *time.Time, to time.Time) ([]model.Associate, error)
	ListUsers(ctx context.Context, name string) ([]model.User, error)
}

type Recorder interface {
	JobRun(job string, err error)
}

const (
	cleanupSpec = "@hourly"
	digestSpec  = "0 7 * * *"

	expiryWindow = 7 * 24 * time.Hour
)

type Scheduler struct {
	store Store
	mail  mail.Sender
	rec   Recorder
	log   *zap.Logger
	loc   *time.Location
	now   func() time.Time
	cron  *cron.Cron
}

func New(st Store, sender mail.Sender, rec Recorder, log *zap.Logger, loc *time.Location) *Scheduler {
	return &Scheduler{
		store: st,
		mail:  sender,
		rec:   rec,
		log:   log,
		loc:   loc,
		now:   time.Now,
		cron:  cron.New(cron.WithLocation(loc)),
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(cleanupSpec, s.wrap("cleanup", s.Cleanup)); err != nil {
		return fmt.Errorf("scheduling cleanup: %w", err)
	}
	if _, err := s.cron.AddFunc(digestSpec, s.wrap("digest", s.Digest)); err != nil {
		return fmt.Errorf("scheduling digest: %w", err)
	}
	s.cron.Start()
	s.log.Info("jobs scheduled", zap.String("cleanup", cleanupSpec), zap.String("digest", digestSpec))
	return nil
}

// Stop waits for running jobs to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) wrap(name string, fn func(context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		err := fn(ctx)
		if s.rec != nil {
			s.rec.JobRun(name, err)
		}
		if err != nil {
			s.log.Error("job failed", zap.String("job", name), zap.Error(err))
		}
	}
}

// Cleanup removes expired refresh tokens and spent password resets.
func (s *Scheduler) Cleanup(ctx context.Context) error {
	now := s.now()
	tokens, err := s.store.PurgeRefreshTokens(ctx, now)
	if err != nil {
		return fmt.Errorf("purging refresh tokens: %w", err)
	}
	resets, err := s.store.PurgePasswordResets(ctx, now)
	if err != nil {
		return fmt.Errorf("purging password resets: %w", err)
	}
	s.log.Info("cleanup", zap.Int64("refresh_tokens", tokens), zap.Int64("password_resets", resets))
	return nil
}

// Digest mails admins the associates with a birthday tomorrow and the
// memberships expiring within a week. Nothing is sent when both are empty.
func (s *Scheduler) Digest(ctx context.Context) error {
	now := s.now().In(s.loc)
	tomorrow := now.AddDate(0, 0, 1)

	birthdays, _, err := s.store.ListAssociates(ctx, store.AssociateFilter{
		Birthday: &tomorrow,
		Page:     store.Page{Limit: store.MaxLimit},
	})
	if err != nil {
		return fmt.Errorf("listing birthdays: %w", err)
	}

	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, s.loc)
	expiring, err := s.store.ExpiringAssociates(ctx, &today, today.Add(expiryWindow))
	if err != nil {
		return fmt.Errorf("listing expiring memberships: %w", err)
	}

	s.log.Info("digest", zap.Int("birthdays", len(birthdays)), zap.Int("expiring", len(expiring)))
	if len(birthdays) == 0 && len(expiring) == 0 {
		return nil
	}

	users, err := s.store.ListUsers(ctx, "")
	if err != nil {
		return fmt.Errorf("listing users: %w", err)
	}
	var to []string
	for _, u := range users {
		if u.IsAdmin() {
			to = append(to, u.Email)
		}
	}

	err = s.mail.Send(to, "Daily digest "+now.Format(datefmt.Display), FormatDigest(birthdays, expiring))
	if err != nil && !errors.Is(err, mail.ErrNotConfigured) {
		return fmt.Errorf("sending digest: %w", err)
	}
	return nil
}

func FormatDigest(birthdays, expiring []model.Associate) string {
	var sb strings.Builder
	if len(birthdays) > 0 {
		sb.WriteString("Birthdays tomorrow:\n")
		for _, a := range birthdays {
			fmt.Fprintf(&sb, "  - %s", a.Name)
			if a.Phone != "" {
				fmt.Fprintf(&sb, " (%s)", a.Phone)
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	if len(expiring) > 0 {
		sb.WriteString("Memberships expiring this week:\n")
		for _, a := range expiring {
			fmt.Fprintf(&sb, "  - %s: %s\n", a.Name, a.ExpiryDate.Format(datefmt.Display))
		}
	}
	return sb.String()
}
