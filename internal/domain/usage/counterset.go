package usage

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidMonthKey  = errors.New("month key cannot be empty")
	ErrInvalidAccountID = errors.New("account ID cannot be empty")
	ErrNegativeAmount   = errors.New("amount cannot be negative")
)

// Counter identifies one of the billed usage counters tracked per month.
type Counter string

const (
	CounterCloudSTTSeconds      Counter = "cloud_stt_sec"
	CounterCloudSessionsStarted Counter = "cloud_sessions_started"
	CounterSummaryGenerated     Counter = "summary_generated"
	CounterQuizGenerated        Counter = "quiz_generated"
	CounterLLMCalls             Counter = "llm_calls"
	CounterServerSession        Counter = "server_session"
)

// String returns the string representation of the counter.
func (c Counter) String() string {
	return string(c)
}

// IsValid checks if the counter is one of the tracked counters.
func (c Counter) IsValid() bool {
	switch c {
	case CounterCloudSTTSeconds, CounterCloudSessionsStarted,
		CounterSummaryGenerated, CounterQuizGenerated,
		CounterLLMCalls, CounterServerSession:
		return true
	}
	return false
}

// CounterSet is the monthly usage bucket for one account. There is exactly
// one set per (accountID, monthKey); counters only grow within a month and
// reset by rollover to a new monthKey, never by mutation of the old bucket.
// All mutation goes through the Ledger's reserve/commit/release cycle.
type CounterSet struct {
	id                   uint
	accountID            string
	monthKey             string
	cloudSTTSeconds      float64
	cloudSessionsStarted float64
	summaryGenerated     float64
	quizGenerated        float64
	llmCalls             float64
	serverSession        float64
	updatedAt            time.Time
}

// NewCounterSet creates an empty usage bucket for (accountID, monthKey).
func NewCounterSet(accountID, monthKey string) (*CounterSet, error) {
	if accountID == "" {
		return nil, ErrInvalidAccountID
	}
	if monthKey == "" {
		return nil, ErrInvalidMonthKey
	}

	return &CounterSet{
		accountID: accountID,
		monthKey:  monthKey,
		updatedAt: time.Now().UTC(),
	}, nil
}

// ReconstructCounterSet reconstructs a usage bucket from persistence.
func ReconstructCounterSet(
	id uint,
	accountID, monthKey string,
	cloudSTTSeconds, cloudSessionsStarted, summaryGenerated,
	quizGenerated, llmCalls, serverSession float64,
	updatedAt time.Time,
) (*CounterSet, error) {
	if id == 0 {
		return nil, errors.New("counter set ID cannot be zero")
	}
	if accountID == "" {
		return nil, ErrInvalidAccountID
	}
	if monthKey == "" {
		return nil, ErrInvalidMonthKey
	}

	return &CounterSet{
		id:                   id,
		accountID:            accountID,
		monthKey:             monthKey,
		cloudSTTSeconds:      cloudSTTSeconds,
		cloudSessionsStarted: cloudSessionsStarted,
		summaryGenerated:     summaryGenerated,
		quizGenerated:        quizGenerated,
		llmCalls:             llmCalls,
		serverSession:        serverSession,
		updatedAt:            updatedAt,
	}, nil
}

// ID returns the counter set ID.
func (s *CounterSet) ID() uint { return s.id }

// AccountID returns the owning account ID.
func (s *CounterSet) AccountID() string { return s.accountID }

// MonthKey returns the YYYY-MM bucket key.
func (s *CounterSet) MonthKey() string { return s.monthKey }

// UpdatedAt returns the last mutation time.
func (s *CounterSet) UpdatedAt() time.Time { return s.updatedAt }

// SetID sets the counter set ID (only for persistence layer use).
func (s *CounterSet) SetID(id uint) error {
	if s.id != 0 {
		return errors.New("counter set ID is already set")
	}
	if id == 0 {
		return errors.New("counter set ID cannot be zero")
	}
	s.id = id
	return nil
}

// Get returns the current value of the given counter.
func (s *CounterSet) Get(c Counter) float64 {
	switch c {
	case CounterCloudSTTSeconds:
		return s.cloudSTTSeconds
	case CounterCloudSessionsStarted:
		return s.cloudSessionsStarted
	case CounterSummaryGenerated:
		return s.summaryGenerated
	case CounterQuizGenerated:
		return s.quizGenerated
	case CounterLLMCalls:
		return s.llmCalls
	case CounterServerSession:
		return s.serverSession
	}
	return 0
}

// Add applies a delta to the given counter. Positive deltas are reservations
// or commits; negative deltas are only produced by Release and commit
// corrections and must never take the counter below zero.
func (s *CounterSet) Add(c Counter, delta float64) error {
	if !c.IsValid() {
		return fmt.Errorf("invalid counter: %s", c)
	}
	current := s.Get(c)
	next := current + delta
	if next < 0 {
		return fmt.Errorf("counter %s would become negative (%.2f%+.2f)", c, current, delta)
	}
	s.set(c, next)
	s.updatedAt = time.Now().UTC()
	return nil
}

func (s *CounterSet) set(c Counter, v float64) {
	switch c {
	case CounterCloudSTTSeconds:
		s.cloudSTTSeconds = v
	case CounterCloudSessionsStarted:
		s.cloudSessionsStarted = v
	case CounterSummaryGenerated:
		s.summaryGenerated = v
	case CounterQuizGenerated:
		s.quizGenerated = v
	case CounterLLMCalls:
		s.llmCalls = v
	case CounterServerSession:
		s.serverSession = v
	}
}

// AllCounters lists every tracked counter, in stable order.
func AllCounters() []Counter {
	return []Counter{
		CounterCloudSTTSeconds,
		CounterCloudSessionsStarted,
		CounterSummaryGenerated,
		CounterQuizGenerated,
		CounterLLMCalls,
		CounterServerSession,
	}
}
