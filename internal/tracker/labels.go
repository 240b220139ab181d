package tracker

import "strings"

// Outcome is the canonical classification of a stored match_result label.
type Outcome string

const (
	OutcomeWin     Outcome = "win"
	OutcomeLoss    Outcome = "loss"
	OutcomeDraw    Outcome = "draw"
	OutcomeUnknown Outcome = "unknown"
)

// DefaultOutcomeLabel is recorded when an imported row leaves the result
// column blank.
const DefaultOutcomeLabel = "win"

// Play order canonical values. Empty string means unset.
const (
	PlayFirst  = "first"
	PlaySecond = "second"
)

// Stored rows may carry labels written by older clients (circle/cross marks
// and Japanese play-order words). They are classified on read and left
// untouched on disk.
var outcomeSynonyms = map[string]Outcome{
	"win":  OutcomeWin,
	"w":    OutcomeWin,
	"o":    OutcomeWin,
	"〇":    OutcomeWin,
	"○":    OutcomeWin,
	"◯":    OutcomeWin,
	"loss": OutcomeLoss,
	"lose": OutcomeLoss,
	"l":    OutcomeLoss,
	"x":    OutcomeLoss,
	"×":    OutcomeLoss,
	"✕":    OutcomeLoss,
	"draw": OutcomeDraw,
	"両敗":   OutcomeDraw,
	"double-loss": OutcomeDraw,
	"both-loss":   OutcomeDraw,
}

var playOrderSynonyms = map[string]string{
	"first":  PlayFirst,
	"1":      PlayFirst,
	"先行":     PlayFirst,
	"先攻":     PlayFirst,
	"second": PlaySecond,
	"2":      PlaySecond,
	"後攻":     PlaySecond,
}

// ClassifyOutcome maps a stored match_result label to its canonical outcome.
// Unrecognized or blank labels classify as OutcomeUnknown.
func ClassifyOutcome(label string) Outcome {
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" {
		return OutcomeUnknown
	}
	if out, ok := outcomeSynonyms[label]; ok {
		return out
	}
	return OutcomeUnknown
}

// NormalizePlayOrder maps a play-order label to first/second, or "" when the
// label is blank or unrecognized.
func NormalizePlayOrder(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" {
		return ""
	}
	if out, ok := playOrderSynonyms[label]; ok {
		return out
	}
	return ""
}
