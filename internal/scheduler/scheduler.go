// Package scheduler fires the schedule.daily and schedule.weekly triggers.
// Several worker replicas may run; a Redis lock per period makes sure each
// slot fires once.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/estate-crm/backend/internal/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Locker grants a key to exactly one caller until ttl expires or the
// holder releases it.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type RedisLocker struct {
	rdb *redis.Client
}

func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{rdb: rdb}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.rdb.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
}

func (l *RedisLocker) Release(ctx context.Context, key string) error {
	return l.rdb.Del(ctx, key).Err()
}

// DispatchFunc runs the automations for one trigger event.
type DispatchFunc func(ctx context.Context, event models.TriggerEvent) ([]models.AutomationRun, error)

type Config struct {
	DailyHour int
	WeeklyDay time.Weekday
	Location  *time.Location
}

type Slot struct {
	Trigger models.TriggerType
	Key     string
	TTL     time.Duration
}

type Scheduler struct {
	cfg      Config
	locker   Locker
	dispatch DispatchFunc
	log      *zap.Logger
}

func New(cfg Config, locker Locker, dispatch DispatchFunc, log *zap.Logger) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Scheduler{cfg: cfg, locker: locker, dispatch: dispatch, log: log}
}

// DueSlots lists the periods whose firing time has passed at now. The
// daily slot opens at DailyHour; the weekly slot opens at DailyHour on
// WeeklyDay.
func (s *Scheduler) DueSlots(now time.Time) []Slot {
	local := now.In(s.cfg.Location)
	if local.Hour() < s.cfg.DailyHour {
		return nil
	}

	slots := []Slot{{
		Trigger: models.TriggerScheduleDaily,
		Key:     "schedule:daily:" + local.Format("2006-01-02"),
		TTL:     48 * time.Hour,
	}}
	if local.Weekday() == s.cfg.WeeklyDay {
		year, week := local.ISOWeek()
		slots = append(slots, Slot{
			Trigger: models.TriggerScheduleWeekly,
			Key:     fmt.Sprintf("schedule:weekly:%d-W%02d", year, week),
			TTL:     8 * 24 * time.Hour,
		})
	}
	return slots
}

// Tick fires every due slot that no replica has claimed yet and returns
// the triggers it fired. A slot whose dispatch fails is released so the
// next tick retries it.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) []models.TriggerType {
	var fired []models.TriggerType
	for _, slot := range s.DueSlots(now) {
		ok, err := s.locker.Acquire(ctx, slot.Key, slot.TTL)
		if err != nil {
			s.log.Error("failed to acquire schedule lock", zap.String("key", slot.Key), zap.Error(err))
			continue
		}
		if !ok {
			continue
		}

		event := models.NewTriggerEvent(slot.Trigger, map[string]any{
			"period":  slot.Key,
			"firedAt": now.UTC().Format(time.RFC3339),
		})
		runs, err := s.dispatch(ctx, event)
		if err != nil {
			s.log.Error("schedule dispatch failed", zap.String("trigger", string(slot.Trigger)), zap.Error(err))
			if err := s.locker.Release(ctx, slot.Key); err != nil {
				s.log.Error("failed to release schedule lock", zap.String("key", slot.Key), zap.Error(err))
			}
			continue
		}
		s.log.Info("schedule fired",
			zap.String("trigger", string(slot.Trigger)),
			zap.String("period", slot.Key),
			zap.Int("automations", len(runs)),
		)
		fired = append(fired, slot.Trigger)
	}
	return fired
}

// Run calls Tick every interval until ctx is done. A non-positive interval
// falls back to one minute.
func (s *Scheduler) Run(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	s.Tick(ctx, time.Now())
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Tick(ctx, now)
		}
	}
}
