package receiving

import "caseintake/internal/cases"

// Outcome is the typed result of classifying one token.
type Outcome string

const (
	OutcomeReceived         Outcome = "received"
	OutcomeAlreadyReceived  Outcome = "already_received"
	OutcomeAlreadyShipped   Outcome = "already_shipped"
	OutcomeWrongOrder       Outcome = "wrong_order"
	OutcomeNotFound         Outcome = "not_found"
	OutcomeInvalidStatus    Outcome = "invalid_status"
	OutcomeDuplicateRequest Outcome = "duplicate_request"
	OutcomeInvalidFormat    Outcome = "invalid_format"
	OutcomeError            Outcome = "error"
)

// Outcomes lists every outcome in display order.
func Outcomes() []Outcome {
	return []Outcome{
		OutcomeReceived,
		OutcomeAlreadyReceived,
		OutcomeAlreadyShipped,
		OutcomeWrongOrder,
		OutcomeNotFound,
		OutcomeInvalidStatus,
		OutcomeDuplicateRequest,
		OutcomeInvalidFormat,
		OutcomeError,
	}
}

// Resolved reports whether the outcome leaves the case received by a warehouse.
func (o Outcome) Resolved() bool {
	return o == OutcomeReceived || o == OutcomeAlreadyReceived
}

// Result is the classification of one submitted token.
type Result struct {
	Index   int
	Input   string
	Code    string
	Outcome Outcome
	Message string
	// DuplicateOf is the index of the first occurrence, or -1.
	DuplicateOf int
	// Case is a snapshot of the case after a successful receive.
	Case *cases.MasterCase
}

// Summary tallies outcomes of one classification.
type Summary struct {
	Total            int `json:"total"`
	Received         int `json:"received"`
	AlreadyReceived  int `json:"alreadyReceived"`
	AlreadyShipped   int `json:"alreadyShipped"`
	WrongOrder       int `json:"wrongOrder"`
	NotFound         int `json:"notFound"`
	InvalidStatus    int `json:"invalidStatus"`
	DuplicateRequest int `json:"duplicateRequest"`
	InvalidFormat    int `json:"invalidFormat"`
	Errors           int `json:"errors"`
}

// Summarize counts outcomes. It has no side effects.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch r.Outcome {
		case OutcomeReceived:
			s.Received++
		case OutcomeAlreadyReceived:
			s.AlreadyReceived++
		case OutcomeAlreadyShipped:
			s.AlreadyShipped++
		case OutcomeWrongOrder:
			s.WrongOrder++
		case OutcomeNotFound:
			s.NotFound++
		case OutcomeInvalidStatus:
			s.InvalidStatus++
		case OutcomeDuplicateRequest:
			s.DuplicateRequest++
		case OutcomeInvalidFormat:
			s.InvalidFormat++
		case OutcomeError:
			s.Errors++
		}
	}
	return s
}

// Resolved is the number of tokens whose case ended up received.
func (s Summary) Resolved() int {
	return s.Received + s.AlreadyReceived
}

// AllErrors reports a non-empty summary in which every token failed on infrastructure.
func (s Summary) AllErrors() bool {
	return s.Total > 0 && s.Errors == s.Total
}

// Count returns the tally for a single outcome.
func (s Summary) Count(o Outcome) int {
	switch o {
	case OutcomeReceived:
		return s.Received
	case OutcomeAlreadyReceived:
		return s.AlreadyReceived
	case OutcomeAlreadyShipped:
		return s.AlreadyShipped
	case OutcomeWrongOrder:
		return s.WrongOrder
	case OutcomeNotFound:
		return s.NotFound
	case OutcomeInvalidStatus:
		return s.InvalidStatus
	case OutcomeDuplicateRequest:
		return s.DuplicateRequest
	case OutcomeInvalidFormat:
		return s.InvalidFormat
	case OutcomeError:
		return s.Errors
	default:
		return 0
	}
}
