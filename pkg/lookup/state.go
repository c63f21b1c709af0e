package lookup

// State is a position in the lookup state machine.
type State int

const (
	StateInit State = iota
	StateNavigate
	StateAwaitSearchInput
	StateSelectCommune
	StateSelectStreet
	StateFillNumber
	StateTriggerValidation
	StateAwaitSearchEnabled
	StateSubmit
	StateAwaitResult
	StateDone
	StateFailed
	StateClosed
)

var stateNames = map[State]string{
	StateInit:               "Init",
	StateNavigate:           "Navigate",
	StateAwaitSearchInput:   "AwaitSearchInput",
	StateSelectCommune:      "SelectCommune",
	StateSelectStreet:       "SelectStreet",
	StateFillNumber:         "FillNumber",
	StateTriggerValidation:  "TriggerValidation",
	StateAwaitSearchEnabled: "AwaitSearchEnabled",
	StateSubmit:             "Submit",
	StateAwaitResult:        "AwaitResult",
	StateDone:               "Done",
	StateFailed:             "Failed",
	StateClosed:             "Closed",
}

// String returns the state name.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "Unknown"
}
