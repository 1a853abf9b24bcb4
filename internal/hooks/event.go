package hooks

// EventType is the closed set of host lifecycle events.
type EventType int

const (
	Unknown EventType = iota
	SessionStart
	UserPromptSubmit
	PreToolUse
	Stop
)

var eventNames = map[EventType]string{
	SessionStart:     "SessionStart",
	UserPromptSubmit: "UserPromptSubmit",
	PreToolUse:       "PreToolUse",
	Stop:             "Stop",
}

// ParseEventType maps a host event name onto an EventType. Matching is
// exact; anything else is Unknown.
func ParseEventType(name string) EventType {
	for ev, n := range eventNames {
		if n == name {
			return ev
		}
	}
	return Unknown
}

func (e EventType) String() string {
	if n, ok := eventNames[e]; ok {
		return n
	}
	return "unknown"
}

// Events lists the handled event types.
func Events() []EventType {
	return []EventType{SessionStart, UserPromptSubmit, PreToolUse, Stop}
}
