// Package calendar schedules interview events.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultDuration = 60 * time.Minute
	slotStep        = 30 * time.Minute
	workdayStart    = 9
	workdayEnd      = 18
)

var ErrEventNotFound = errors.New("calendar event not found")

type Interview struct {
	CandidateName    string
	JobTitle         string
	InterviewerEmail string
	Start            time.Time
	Duration         time.Duration
	MeetingLink      string
}

func (i Interview) end() time.Time {
	d := i.Duration
	if d <= 0 {
		d = DefaultDuration
	}
	return i.Start.Add(d)
}

func (i Interview) Summary() string {
	if i.JobTitle == "" {
		return fmt.Sprintf("Interview: %s", i.CandidateName)
	}
	return fmt.Sprintf("Interview: %s - %s", i.CandidateName, i.JobTitle)
}

// Slot is a free interval in an interviewer's day.
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type Scheduler interface {
	CreateInterview(ctx context.Context, interview Interview) (string, error)
}

// Simulated keeps events in memory. It stands in for a real calendar API.
type Simulated struct {
	mu     sync.RWMutex
	events map[string]Interview
	logger *zap.Logger
}

func NewSimulated(logger *zap.Logger) *Simulated {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulated{events: make(map[string]Interview), logger: logger}
}

func (s *Simulated) CreateInterview(ctx context.Context, interview Interview) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(interview.CandidateName) == "" {
		return "", errors.New("candidate name is required")
	}
	if interview.Start.IsZero() {
		return "", errors.New("interview start time is required")
	}
	if interview.Duration <= 0 {
		interview.Duration = DefaultDuration
	}

	id := uuid.NewString()

	s.mu.Lock()
	s.events[id] = interview
	s.mu.Unlock()

	s.logger.Info("interview event created",
		zap.String("event_id", id),
		zap.String("summary", interview.Summary()),
		zap.String("interviewer", interview.InterviewerEmail),
		zap.Time("start", interview.Start),
		zap.Bool("virtual", interview.MeetingLink != ""),
	)

	return id, nil
}

func (s *Simulated) Cancel(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		return ErrEventNotFound
	}
	delete(s.events, id)
	return nil
}

func (s *Simulated) Event(id string) (Interview, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.events[id]
	return ev, ok
}

// AvailableSlots lists free slots between 09:00 and 18:00 on day for the
// interviewer, stepping every 30 minutes.
func (s *Simulated) AvailableSlots(ctx context.Context, interviewer string, day time.Time, duration time.Duration) ([]Slot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if duration <= 0 {
		duration = DefaultDuration
	}

	s.mu.RLock()
	var busy []Interview
	for _, ev := range s.events {
		if strings.EqualFold(ev.InterviewerEmail, interviewer) {
			busy = append(busy, ev)
		}
	}
	s.mu.RUnlock()

	sort.Slice(busy, func(i, j int) bool { return busy[i].Start.Before(busy[j].Start) })

	y, m, d := day.Date()
	start := time.Date(y, m, d, workdayStart, 0, 0, 0, day.Location())
	end := time.Date(y, m, d, workdayEnd, 0, 0, 0, day.Location())

	var slots []Slot
	for current := start; current.Before(end); current = current.Add(slotStep) {
		slotEnd := current.Add(duration)
		free := true
		for _, ev := range busy {
			if current.Before(ev.end()) && slotEnd.After(ev.Start) {
				free = false
				break
			}
		}
		if free {
			slots = append(slots, Slot{Start: current, End: slotEnd})
		}
	}

	return slots, nil
}
