package evals

import (
	"math"
	"strings"
)

const (
	baselineTurns   = 5
	efficiencyDecay = 0.3
	repetitionMin   = 0.5
)

// Quality is the aggregate session rating.
type Quality string

const (
	QualitySevere    Quality = "Severe"
	QualityPoor      Quality = "Poor"
	QualityNeutral   Quality = "Neutral"
	QualityGood      Quality = "Good"
	QualityExcellent Quality = "Excellent"
)

// Numeric maps the rating onto 1 (Severe) to 5 (Excellent). Unknown
// ratings are neutral.
func (q Quality) Numeric() float64 {
	switch q {
	case QualitySevere:
		return 1
	case QualityPoor:
		return 2
	case QualityGood:
		return 4
	case QualityExcellent:
		return 5
	}
	return 3
}

// Signals are deterministic session quality indicators computed without
// any model calls.
type Signals struct {
	TurnCount           int
	Efficiency          float64
	RepairCount         int
	RepairRatio         float64
	RepetitionCount     int
	FrustrationSeverity int
	PositiveFeedback    int
	EscalationRequested bool
	ToolCallCount       int
	ToolFailureRate     float64
	VerificationPresent bool
	OverallQuality      Quality
}

// ComputeSignals scores one trace.
func ComputeSignals(t Trace) Signals {
	var s Signals

	users, assistants := t.UserMessages, t.AssistantMessages
	s.TurnCount = max(len(users), len(assistants))
	s.Efficiency = round3(1 / (1 + efficiencyDecay*float64(max(0, s.TurnCount-baselineTurns))))

	for _, msg := range users {
		if repairRe.MatchString(msg) {
			s.RepairCount++
		}
		if positiveRe.MatchString(msg) {
			s.PositiveFeedback++
		}
		if escalationRe.MatchString(msg) {
			s.EscalationRequested = true
		}
		s.FrustrationSeverity = max(s.FrustrationSeverity, frustration(msg))
	}
	s.RepairRatio = round3(float64(s.RepairCount) / float64(max(len(users), 1)))

	for i := range assistants {
		for j := i + 1; j < len(assistants); j++ {
			if BigramJaccard(assistants[i], assistants[j]) >= repetitionMin {
				s.RepetitionCount++
			}
		}
	}

	s.ToolCallCount = len(t.ToolCalls)
	if s.ToolCallCount > 0 {
		failed := 0
		for _, c := range t.ToolCalls {
			if c.Failed() {
				failed++
			}
		}
		s.ToolFailureRate = round3(float64(failed) / float64(s.ToolCallCount))
	}
	s.VerificationPresent = verifiedAfterLastCodeEdit(t.ToolCalls)

	s.OverallQuality = s.quality()
	return s
}

func frustration(msg string) int {
	switch {
	case frustrationSevereRe.MatchString(msg):
		return 3
	case frustrationModRe.MatchString(msg):
		return 2
	case frustrationMildRe.MatchString(msg):
		return 1
	}
	return 0
}

func verifiedAfterLastCodeEdit(calls []ToolCall) bool {
	last := -1
	for i, c := range calls {
		if isCodeEdit(c) {
			last = i
		}
	}
	if last < 0 {
		return false
	}
	for _, c := range calls[last+1:] {
		if isVerification(c) {
			return true
		}
	}
	return false
}

func (s Signals) quality() Quality {
	switch {
	case s.EscalationRequested || s.FrustrationSeverity >= 3 || s.RepetitionCount >= 5 || s.TurnCount > 15:
		return QualitySevere
	case s.RepairRatio > 0.3 || s.FrustrationSeverity >= 2 || s.RepetitionCount >= 3 || s.TurnCount > 12:
		return QualityPoor
	case s.PositiveFeedback > 0 && s.Efficiency > 0.8 && s.VerificationPresent:
		return QualityExcellent
	case s.Efficiency > 0.6 && s.RepairRatio < 0.15:
		return QualityGood
	}
	return QualityNeutral
}

// Scores flattens the signals into named scores. The overall quality is
// posted as its numeric value with the rating as the comment.
func (s Signals) Scores() []Score {
	return []Score{
		{Name: "signal.turn_count", Value: float64(s.TurnCount)},
		{Name: "signal.efficiency_score", Value: s.Efficiency},
		{Name: "signal.repair_count", Value: float64(s.RepairCount)},
		{Name: "signal.repair_ratio", Value: s.RepairRatio},
		{Name: "signal.repetition_count", Value: float64(s.RepetitionCount)},
		{Name: "signal.frustration_severity", Value: float64(s.FrustrationSeverity)},
		{Name: "signal.positive_feedback", Value: float64(s.PositiveFeedback)},
		{Name: "signal.escalation_requested", Value: boolScore(s.EscalationRequested)},
		{Name: "signal.tool_call_count", Value: float64(s.ToolCallCount)},
		{Name: "signal.tool_failure_rate", Value: s.ToolFailureRate},
		{Name: "signal.verification_present", Value: boolScore(s.VerificationPresent)},
		{Name: ScoreOverallQuality, Value: s.OverallQuality.Numeric(), Comment: string(s.OverallQuality)},
	}
}

// ScoreOverallQuality is the name of the aggregate quality score.
const ScoreOverallQuality = "signal.overall_quality"

// BigramJaccard is the Jaccard similarity of the word bigram sets of a and
// b, compared case-insensitively. Texts under two words score 0.
func BigramJaccard(a, b string) float64 {
	ba, bb := bigrams(a), bigrams(b)
	if len(ba) == 0 || len(bb) == 0 {
		return 0
	}
	inter := 0
	for k := range ba {
		if bb[k] {
			inter++
		}
	}
	union := len(ba) + len(bb) - inter
	return float64(inter) / float64(union)
}

func bigrams(s string) map[[2]string]bool {
	words := strings.Fields(strings.ToLower(s))
	if len(words) < 2 {
		return nil
	}
	set := make(map[[2]string]bool, len(words)-1)
	for i := 0; i+1 < len(words); i++ {
		set[[2]string{words[i], words[i+1]}] = true
	}
	return set
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}

func boolScore(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
