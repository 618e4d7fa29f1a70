package domain

import "regexp"

// LabelUnknown is returned when no rule matches the user agent.
const LabelUnknown = "Unknown Device"

// LabelRule maps user agents matching Pattern to Label.
type LabelRule struct {
	Pattern *regexp.Regexp
	Label   string
}

// DefaultLabelRules is evaluated in order; the first matching rule wins.
var DefaultLabelRules = []LabelRule{
	{Pattern: regexp.MustCompile(`iPhone`), Label: "iPhone"},
	{Pattern: regexp.MustCompile(`iPad`), Label: "iPad"},
	{Pattern: regexp.MustCompile(`Android.*Mobile`), Label: "Android Phone"},
	{Pattern: regexp.MustCompile(`Android`), Label: "Android Tablet"},
	{Pattern: regexp.MustCompile(`Windows`), Label: "Windows PC"},
	{Pattern: regexp.MustCompile(`Macintosh|Mac OS X`), Label: "Mac"},
	{Pattern: regexp.MustCompile(`Linux`), Label: "Linux"},
}

// Classify returns the label of the first rule in rules matching userAgent, or LabelUnknown.
func Classify(rules []LabelRule, userAgent string) string {
	for _, r := range rules {
		if r.Pattern != nil && r.Pattern.MatchString(userAgent) {
			return r.Label
		}
	}
	return LabelUnknown
}

// LabelFor classifies userAgent with DefaultLabelRules.
func LabelFor(userAgent string) string {
	return Classify(DefaultLabelRules, userAgent)
}
