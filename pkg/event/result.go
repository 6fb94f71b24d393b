package event

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Generic result messages.
const (
	MessageActionExecuted = "Action executed."
)

// Roll is the breakdown of a resolved d20 check.
type Roll struct {
	ActorID  string `json:"actor_id"`
	Subtype  string `json:"subtype"`
	Roll     int    `json:"roll"`
	Modifier int    `json:"modifier"`
	Total    int    `json:"total"`
	DC       int    `json:"dc"`
	Success  bool   `json:"success"`
}

// Outcome returns "success" or "failure".
func (r Roll) Outcome() string {
	if r.Success {
		return "success"
	}
	return "failure"
}

// String renders the roll for display, e.g. "Stealth: 12 +0 = 12 vs DC 15 (failure)".
func (r Roll) String() string {
	return fmt.Sprintf("%s: %d %+d = %d vs DC %d (%s)", Label(r.Subtype), r.Roll, r.Modifier, r.Total, r.DC, r.Outcome())
}

var titleCaser = cases.Title(language.English)

// Label turns a subtype such as "sleight_of_hand" into "Sleight Of Hand".
func Label(subtype string) string {
	words := strings.ReplaceAll(strings.ToLower(subtype), "_", " ")
	return titleCaser.String(words)
}

// Result pairs an event with the outcome of executing it. Exactly one of
// Message, Roll and Error is set.
type Result struct {
	Event   Event
	Message string
	Roll    *Roll
	Error   string
}

// Failed reports whether execution of the event failed.
func (r Result) Failed() bool {
	return r.Error != ""
}

// Summary is a one-line description of the outcome.
func (r Result) Summary() string {
	switch {
	case r.Error != "":
		return "error: " + r.Error
	case r.Roll != nil:
		return r.Roll.String()
	default:
		return r.Message
	}
}

type resultJSON struct {
	Event  Event `json:"event"`
	Result any   `json:"result"`
}

func (r Result) MarshalJSON() ([]byte, error) {
	out := resultJSON{Event: r.Event}
	switch {
	case r.Error != "":
		out.Result = map[string]string{"error": r.Error}
	case r.Roll != nil:
		out.Result = r.Roll
	default:
		out.Result = r.Message
	}
	return json.Marshal(out)
}

func (r *Result) UnmarshalJSON(data []byte) error {
	var raw struct {
		Event  Event           `json:"event"`
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Result{Event: raw.Event}

	var msg string
	if err := json.Unmarshal(raw.Result, &msg); err == nil {
		r.Message = msg
		return nil
	}
	var errBody struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw.Result, &errBody); err == nil && errBody.Error != "" {
		r.Error = errBody.Error
		return nil
	}
	var roll Roll
	if err := json.Unmarshal(raw.Result, &roll); err != nil {
		return fmt.Errorf("unrecognized result: %w", err)
	}
	r.Roll = &roll
	return nil
}
