package robots

import (
	"time"

	"github.com/temoto/robotstxt"
)

// Specs wraps a parsed robots.txt document together with the user agent
// it is evaluated against, satisfying admission.Specs. A nil doc means no
// robots.txt could be obtained, and Allows is permissive, matching spec
// §4.4 rule 11's dummy-allow-all behavior.
type Specs struct {
	doc       *robotstxt.RobotsData
	userAgent string
	fetchedAt time.Time
	sourceURL string
}

func newSpecs(doc *robotstxt.RobotsData, userAgent, sourceURL string) Specs {
	return Specs{doc: doc, userAgent: userAgent, fetchedAt: time.Now(), sourceURL: sourceURL}
}

// Allows reports whether path may be fetched under these rules.
func (s Specs) Allows(path string) bool {
	if s.doc == nil {
		return true
	}
	group := s.doc.FindGroup(s.userAgent)
	if group == nil {
		return true
	}
	return group.Test(path)
}

type DecisionReason string

const (
	AllowedByRobots    DecisionReason = "allowed_by_robots"
	DisallowedByRobots DecisionReason = "disallowed_by_robots"
	EmptyRuleSet       DecisionReason = "empty_rule_set"
)

// Decision is an observability record of one robots check, handed to the
// obslog sink rather than used for control flow.
type Decision struct {
	URL     string
	Allowed bool
	Reason  DecisionReason
}
