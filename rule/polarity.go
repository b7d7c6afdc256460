package rule

import "regexp"

// Polarity tells whether an example shows an anti-pattern or a recommended one.
type Polarity string

// Polarity values. PolarityNone marks labels that signal neither.
const (
	PolarityBad  Polarity = "bad"
	PolarityGood Polarity = "good"
	PolarityNone Polarity = ""
)

// Label classification is a heuristic over free text. "incorrect" contains
// "correct", so the bad pattern must be checked first.
var (
	badLabelRe  = regexp.MustCompile(`(?i)incorrect|wrong|bad`)
	goodLabelRe = regexp.MustCompile(`(?i)correct|good|usage|implementation|example`)
)

// Classify infers the polarity of an example label.
func Classify(label string) Polarity {
	switch {
	case badLabelRe.MatchString(label):
		return PolarityBad
	case goodLabelRe.MatchString(label):
		return PolarityGood
	default:
		return PolarityNone
	}
}

// Polarity returns the inferred polarity of the example's label.
func (e Example) Polarity() Polarity {
	return Classify(e.Label)
}
