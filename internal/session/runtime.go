// Package session models the Session Runtime State: the versioned document
// holding per-session persona, ultrawork and stop-continuation state.
//
// Decoding never fails. Every field degrades on its own to its default, and
// keys this package does not know are carried through a read-modify-write so
// data owned by other tooling survives.
package session

import (
	"encoding/json"
	"time"

	"agentkit/internal/persona"
)

// Version is the only document version this package understands.
const Version = 1

// DefaultKey is the session key used when the hook input has no session id.
const DefaultKey = "global"

// TimeLayout is the UTC timestamp format stored in the document.
const TimeLayout = "2006-01-02T15:04:05Z"

// AutoDisableReason is recorded when the stop-block ceiling is hit.
const AutoDisableReason = "auto-disabled after max stop blocks"

// Key returns the session key for a session id.
func Key(sessionID string) string {
	if sessionID == "" {
		return DefaultKey
	}
	return sessionID
}

// FormatTime renders t the way the document stores timestamps.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// Runtime is the whole runtime state document.
type Runtime struct {
	Sessions map[string]*Record
	rest     map[string]json.RawMessage
}

// Decode parses a runtime document. Malformed input and unknown versions
// yield an empty document.
func Decode(data []byte) *Runtime {
	rt := &Runtime{Sessions: map[string]*Record{}}
	top := splitObject(data)
	if top == nil {
		return rt
	}
	if raw, ok := top["version"]; ok {
		v, isNum := decodeWholeInt(raw)
		if !isNum || v != Version {
			return rt
		}
	}
	delete(top, "version")

	if raw, ok := take(top, "sessions"); ok {
		for key, recRaw := range splitObject(raw) {
			rec := &Record{}
			rec.decode(recRaw)
			rt.Sessions[key] = rec
		}
	}
	if len(top) > 0 {
		rt.rest = top
	}
	return rt
}

// MarshalJSON writes the document with version 1 and any unknown keys.
func (rt *Runtime) MarshalJSON() ([]byte, error) {
	sessions := make(map[string]*Record, len(rt.Sessions))
	for k, v := range rt.Sessions {
		if v != nil {
			sessions[k] = v
		}
	}
	return mergeObject(rt.rest, map[string]any{
		"version":  Version,
		"sessions": sessions,
	})
}

// Get returns the record for key without creating it. A missing record is
// returned as a zero value so callers can read defaults.
func (rt *Runtime) Get(key string) *Record {
	if rec, ok := rt.Sessions[key]; ok && rec != nil {
		return rec
	}
	return &Record{}
}

// Ensure returns the record for key, creating it when missing.
func (rt *Runtime) Ensure(key string) *Record {
	if rt.Sessions == nil {
		rt.Sessions = map[string]*Record{}
	}
	rec, ok := rt.Sessions[key]
	if !ok || rec == nil {
		rec = &Record{}
		rt.Sessions[key] = rec
	}
	return rec
}

// Record is one session's state.
type Record struct {
	// ActivePersona is the stored value, unvalidated. Use Persona to read it.
	ActivePersona    string
	ULW              ULW
	StopContinuation StopContinuation

	hasULW  bool
	hasStop bool
	rest    map[string]json.RawMessage
}

// Persona returns the active persona, falling back to the default.
func (r *Record) Persona() persona.Persona {
	if p := persona.Persona(r.ActivePersona); p.Valid() {
		return p
	}
	return persona.Default
}

func (r *Record) decode(data []byte) {
	m := splitObject(data)
	if m == nil {
		return
	}
	if raw, ok := take(m, "activePersona"); ok {
		r.ActivePersona = decodeString(raw)
	}
	if raw, ok := take(m, "ulw"); ok {
		r.hasULW = r.ULW.decode(raw)
	}
	if raw, ok := take(m, "stopContinuation"); ok {
		r.hasStop = r.StopContinuation.decode(raw)
	}
	if len(m) > 0 {
		r.rest = m
	}
}

// MarshalJSON writes only the sub-records that exist.
func (r *Record) MarshalJSON() ([]byte, error) {
	known := map[string]any{}
	if r.ActivePersona != "" {
		known["activePersona"] = r.ActivePersona
	}
	if r.hasULW {
		known["ulw"] = &r.ULW
	}
	if r.hasStop {
		known["stopContinuation"] = &r.StopContinuation
	}
	return mergeObject(r.rest, known)
}

// EnableULW turns ultrawork on, keeping any existing stop-block counter.
func (r *Record) EnableULW(now time.Time) {
	r.hasULW = true
	r.ULW.Enabled = true
	r.ULW.UpdatedAt = FormatTime(now)
}

// RecordStopBlock increments the stop-block counter and stamps the time.
func (r *Record) RecordStopBlock(now time.Time) {
	r.hasULW = true
	r.ULW.StopBlocks++
	r.ULW.LastStopEpoch = now.Unix()
	r.ULW.hasLastStop = true
	r.ULW.LastStopAt = FormatTime(now)
}

// DisableContinuation turns continuation off for the session and disables
// ultrawork.
func (r *Record) DisableContinuation(reason string, now time.Time) {
	r.hasULW = true
	r.ULW.Enabled = false
	r.hasStop = true
	r.StopContinuation.Disabled = true
	r.StopContinuation.DisabledReason = reason
	r.StopContinuation.DisabledAt = FormatTime(now)
}

// InCooldown reports whether the last stop block is more recent than window.
// A record with no stop block yet is never in cooldown.
func (r *Record) InCooldown(now time.Time, window time.Duration) bool {
	if !r.ULW.hasLastStop {
		return false
	}
	elapsed := now.Unix() - r.ULW.LastStopEpoch
	return elapsed < int64(window/time.Second)
}

// ULW is the ultrawork sub-record.
type ULW struct {
	Enabled       bool
	StopBlocks    int64
	LastStopEpoch int64
	UpdatedAt     string
	LastStopAt    string

	hasLastStop bool
	rest        map[string]json.RawMessage
}

func (u *ULW) decode(data []byte) bool {
	m := splitObject(data)
	if m == nil {
		return false
	}
	if raw, ok := take(m, "enabled"); ok {
		u.Enabled = decodeBool(raw)
	}
	if raw, ok := take(m, "stopBlocks"); ok {
		u.StopBlocks, _ = decodeInt(raw)
	}
	if raw, ok := take(m, "lastStopEpoch"); ok {
		u.LastStopEpoch, u.hasLastStop = decodeInt(raw)
	}
	if raw, ok := take(m, "updatedAt"); ok {
		u.UpdatedAt = decodeString(raw)
	}
	if raw, ok := take(m, "lastStopAt"); ok {
		u.LastStopAt = decodeString(raw)
	}
	if len(m) > 0 {
		u.rest = m
	}
	return true
}

// MarshalJSON always writes enabled and stopBlocks.
func (u *ULW) MarshalJSON() ([]byte, error) {
	known := map[string]any{
		"enabled":    u.Enabled,
		"stopBlocks": u.StopBlocks,
	}
	if u.hasLastStop {
		known["lastStopEpoch"] = u.LastStopEpoch
	}
	if u.UpdatedAt != "" {
		known["updatedAt"] = u.UpdatedAt
	}
	if u.LastStopAt != "" {
		known["lastStopAt"] = u.LastStopAt
	}
	return mergeObject(u.rest, known)
}

// StopContinuation is the continuation escape hatch sub-record.
type StopContinuation struct {
	Disabled       bool
	DisabledReason string
	DisabledAt     string

	rest map[string]json.RawMessage
}

func (s *StopContinuation) decode(data []byte) bool {
	m := splitObject(data)
	if m == nil {
		return false
	}
	if raw, ok := take(m, "disabled"); ok {
		s.Disabled = decodeBool(raw)
	}
	if raw, ok := take(m, "disabledReason"); ok {
		s.DisabledReason = decodeString(raw)
	}
	if raw, ok := take(m, "disabledAt"); ok {
		s.DisabledAt = decodeString(raw)
	}
	if len(m) > 0 {
		s.rest = m
	}
	return true
}

// MarshalJSON always writes disabled.
func (s *StopContinuation) MarshalJSON() ([]byte, error) {
	known := map[string]any{"disabled": s.Disabled}
	if s.DisabledReason != "" {
		known["disabledReason"] = s.DisabledReason
	}
	if s.DisabledAt != "" {
		known["disabledAt"] = s.DisabledAt
	}
	return mergeObject(s.rest, known)
}
