package lifecycle

// Status is the lifecycle state of an instrument's position
type Status string

const (
	StatusClosed      Status = "CLOSED"
	StatusPendingBuy  Status = "PENDING_BUY"
	StatusPendingSell Status = "PENDING_SELL"
	StatusOpen        Status = "OPEN"
	StatusStoppedOut  Status = "STOPPED_OUT"
	StatusProfitTaken Status = "PROFIT_TAKEN"
)

// transitions lists the legal next states for every status
var transitions = map[Status][]Status{
	StatusClosed:      {StatusPendingBuy, StatusPendingSell},
	StatusPendingBuy:  {StatusOpen, StatusClosed},
	StatusPendingSell: {StatusOpen, StatusClosed},
	StatusOpen:        {StatusStoppedOut, StatusProfitTaken, StatusClosed},
	StatusStoppedOut:  {StatusClosed},
	StatusProfitTaken: {StatusClosed},
}

// CanTransition reports whether moving from one status to another is legal
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsPending reports an entry order awaiting fill
func (s Status) IsPending() bool {
	return s == StatusPendingBuy || s == StatusPendingSell
}

// IsActive reports a pending or open position
func (s Status) IsActive() bool {
	return s.IsPending() || s == StatusOpen
}

// IsTerminal reports an exit state
func (s Status) IsTerminal() bool {
	return s == StatusStoppedOut || s == StatusProfitTaken
}
