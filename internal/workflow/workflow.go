package workflow

import "strings"

// Status is the review stage of an application.
type Status string

const (
	StatusNew         Status = "new"
	StatusScreening   Status = "screening"
	StatusPhoneScreen Status = "phone_screen"
	StatusInterview   Status = "interview"
	StatusOffer       Status = "offer"
	StatusRejected    Status = "rejected"
)

// All lists the statuses in pipeline order.
var All = []Status{
	StatusNew,
	StatusScreening,
	StatusPhoneScreen,
	StatusInterview,
	StatusOffer,
	StatusRejected,
}

func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusScreening, StatusPhoneScreen, StatusInterview, StatusOffer, StatusRejected:
		return true
	}
	return false
}

// Policy decides which status transitions a reviewer may apply.
// The from == to case never reaches a policy; it is rejected earlier
// as a no-op so that it cannot mint a history entry.
type Policy interface {
	Name() string
	Allows(from, to Status) bool
}

type openPolicy struct{}

func (openPolicy) Name() string                { return "open" }
func (openPolicy) Allows(from, to Status) bool { return from.Valid() && to.Valid() }

// strictPolicy freezes terminal stages: once an application is at
// offer or rejected it cannot be moved again.
type strictPolicy struct{}

func (strictPolicy) Name() string { return "strict" }

func (strictPolicy) Allows(from, to Status) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	return from != StatusOffer && from != StatusRejected
}

// PolicyFromName resolves a policy by its configured name.
// Unknown names fall back to the open policy, which matches the
// behavior the rest of the system was built against.
func PolicyFromName(name string) Policy {
	if strings.EqualFold(strings.TrimSpace(name), "strict") {
		return strictPolicy{}
	}
	return openPolicy{}
}
