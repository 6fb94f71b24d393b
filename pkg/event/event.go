package event

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Event types and subtypes the executor understands.
const (
	TypePlayerAction = "PLAYER_ACTION"
	TypeError        = "ERROR"

	SubtypeMovement      = "MOVEMENT"
	SubtypePerception    = "PERCEPTION"
	SubtypeAthletics     = "ATHLETICS"
	SubtypeStealth       = "STEALTH"
	SubtypeInvestigation = "INVESTIGATION"
	SubtypeSleightOfHand = "SLEIGHT_OF_HAND"
	SubtypeAttack        = "ATTACK"
)

// Kind classifies an event by its (type, subtype) pair.
type Kind int

const (
	KindUnrecognized Kind = iota
	KindMovement
	KindCheck
	KindAction
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindMovement:
		return "movement"
	case KindCheck:
		return "check"
	case KindAction:
		return "action"
	case KindError:
		return "error"
	default:
		return "unrecognized"
	}
}

var checkSubtypes = map[string]bool{
	SubtypePerception:    true,
	SubtypeAthletics:     true,
	SubtypeStealth:       true,
	SubtypeInvestigation: true,
	SubtypeSleightOfHand: true,
	SubtypeAttack:        true,
}

// Parameters holds the event arguments the pipeline reads. Any other
// parameter the model produced is kept in Extra and passed through.
type Parameters struct {
	TargetID string
	ActionDC *int
	Extra    map[string]any
}

// Event is one structured action produced by the interpreter.
type Event struct {
	Type            string
	Subtype         string
	ActorID         string
	Detail          string
	Parameters      Parameters
	ValidationError string

	// Extra holds top-level fields not modelled above.
	Extra map[string]any
}

// Kind returns the event's classification. Comparison is case-insensitive.
func (e Event) Kind() Kind {
	typ := strings.ToUpper(e.Type)
	sub := strings.ToUpper(e.Subtype)
	switch {
	case typ == TypeError:
		return KindError
	case typ != TypePlayerAction:
		return KindUnrecognized
	case sub == SubtypeMovement:
		return KindMovement
	case checkSubtypes[sub]:
		return KindCheck
	default:
		return KindAction
	}
}

// HasTarget reports whether the event names a target identifier.
func (e Event) HasTarget() bool {
	return e.Parameters.TargetID != ""
}

// ErrorEvent builds the sentinel event used when interpretation fails.
func ErrorEvent(detail string) Event {
	return Event{Type: TypeError, Detail: detail}
}

// known top-level and parameter keys
var (
	eventKeys = map[string]bool{
		"type": true, "subtype": true, "actor_id": true, "detail": true,
		"parameters": true, "validation_error": true,
	}
	paramKeys = map[string]bool{"target_id": true, "action_dc": true}
)

type rawEvent struct {
	Type            string         `mapstructure:"type"`
	Subtype         string         `mapstructure:"subtype"`
	ActorID         string         `mapstructure:"actor_id"`
	Detail          string         `mapstructure:"detail"`
	Parameters      map[string]any `mapstructure:"parameters"`
	ValidationError string         `mapstructure:"validation_error"`
}

type rawParameters struct {
	TargetID string `mapstructure:"target_id"`
	ActionDC *int   `mapstructure:"action_dc"`
}

func weakDecode(input, output any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           output,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// FromMap builds an event from a generic JSON object. Fields with the
// wrong type are coerced where possible (e.g. "15" for action_dc) and
// dropped otherwise.
func FromMap(m map[string]any) Event {
	var raw rawEvent
	if err := weakDecode(m, &raw); err != nil {
		// Fall back field by field so one bad value does not lose the rest.
		raw = rawEvent{}
		raw.Type, _ = m["type"].(string)
		raw.Subtype, _ = m["subtype"].(string)
		raw.ActorID, _ = m["actor_id"].(string)
		raw.Detail, _ = m["detail"].(string)
		raw.Parameters, _ = m["parameters"].(map[string]any)
		raw.ValidationError, _ = m["validation_error"].(string)
	}

	e := Event{
		Type:            raw.Type,
		Subtype:         raw.Subtype,
		ActorID:         raw.ActorID,
		Detail:          raw.Detail,
		ValidationError: raw.ValidationError,
	}

	if raw.Parameters != nil {
		var p rawParameters
		if err := weakDecode(raw.Parameters, &p); err != nil {
			p = rawParameters{}
			p.TargetID, _ = raw.Parameters["target_id"].(string)
		}
		e.Parameters.TargetID = p.TargetID
		e.Parameters.ActionDC = p.ActionDC
		for k, v := range raw.Parameters {
			if paramKeys[k] {
				continue
			}
			if e.Parameters.Extra == nil {
				e.Parameters.Extra = make(map[string]any)
			}
			e.Parameters.Extra[k] = v
		}
	}

	for k, v := range m {
		if eventKeys[k] {
			continue
		}
		if e.Extra == nil {
			e.Extra = make(map[string]any)
		}
		e.Extra[k] = v
	}
	return e
}

// Map returns the event in its JSON object form.
func (e Event) Map() map[string]any {
	m := make(map[string]any, len(e.Extra)+6)
	for k, v := range e.Extra {
		m[k] = v
	}
	if e.Type != "" {
		m["type"] = e.Type
	}
	if e.Subtype != "" {
		m["subtype"] = e.Subtype
	}
	if e.ActorID != "" {
		m["actor_id"] = e.ActorID
	}
	if e.Detail != "" {
		m["detail"] = e.Detail
	}

	params := make(map[string]any, len(e.Parameters.Extra)+2)
	for k, v := range e.Parameters.Extra {
		params[k] = v
	}
	if e.Parameters.TargetID != "" {
		params["target_id"] = e.Parameters.TargetID
	}
	if e.Parameters.ActionDC != nil {
		params["action_dc"] = *e.Parameters.ActionDC
	}
	if len(params) > 0 {
		m["parameters"] = params
	}

	if e.ValidationError != "" {
		m["validation_error"] = e.ValidationError
	}
	return m
}

func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Map())
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("event must be a JSON object: %w", err)
	}
	*e = FromMap(m)
	return nil
}

// ParseEvents turns a model reply into a list of events. An object becomes
// a one-element list; a bare string or other scalar becomes a single
// unrecognized event carrying the value in Detail.
func ParseEvents(data []byte) ([]Event, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to parse events: %w", err)
	}

	switch val := v.(type) {
	case []any:
		events := make([]Event, 0, len(val))
		for _, item := range val {
			events = append(events, fromValue(item))
		}
		return events, nil
	default:
		return []Event{fromValue(val)}, nil
	}
}

func fromValue(v any) Event {
	switch val := v.(type) {
	case map[string]any:
		return FromMap(val)
	case string:
		return Event{Detail: val}
	case nil:
		return Event{}
	default:
		return Event{Detail: fmt.Sprint(val)}
	}
}
