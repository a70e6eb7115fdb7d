// Package budget decides whether a metered provider may be called given the
// spend accrued over the trailing window. It does no I/O: callers pass usage
// already summed by the repository.
package budget

import (
	"fmt"
	"time"

	"github.com/olievortex/oliejournal/internal/common"
)

// Kind identifies a metered capability and its rate table.
type Kind int

const (
	Transcription Kind = iota + 1
	Reply
)

func (k Kind) String() string {
	switch k {
	case Transcription:
		return "transcription"
	case Reply:
		return "reply"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Window is the rolling look-back period for accrued spend.
const Window = 30 * 24 * time.Hour

// Rate tables.
const (
	TranscriptionFreeSeconds = 60 * 60
	TranscriptionRate        = 0.016 / 60 // dollars per billed second

	ReplyInputRate  = 0.2 / 1_000_000 // dollars per input token
	ReplyOutputRate = 0.8 / 1_000_000 // dollars per output token
)

// UsageSummary is the sum of metered units inside the window.
type UsageSummary struct {
	Seconds      int64
	InputTokens  int64
	OutputTokens int64
}

// Since returns the start of the window ending at now.
func Since(now time.Time) time.Time {
	return now.Add(-Window)
}

// Cost returns the dollar spend for usage under kind.
func Cost(kind Kind, usage UsageSummary) float64 {
	switch kind {
	case Transcription:
		if usage.Seconds <= TranscriptionFreeSeconds {
			return 0
		}
		return float64(usage.Seconds-TranscriptionFreeSeconds) * TranscriptionRate
	case Reply:
		return float64(usage.InputTokens)*ReplyInputRate + float64(usage.OutputTokens)*ReplyOutputRate
	default:
		return 0
	}
}

// EnsureWithinLimit returns an error wrapping common.ErrBudgetExceeded when
// the accrued cost is above ceiling.
func EnsureWithinLimit(kind Kind, ceiling float64, usage UsageSummary) error {
	cost := Cost(kind, usage)
	if cost > ceiling {
		return fmt.Errorf("%w: %s spend $%.4f over $%.2f ceiling", common.ErrBudgetExceeded, kind, cost, ceiling)
	}
	return nil
}
