package dm

import (
	"testing"

	"github.com/jwebster45206/dungeon-master/internal/config"
	"github.com/jwebster45206/dungeon-master/pkg/event"
)

func TestContainsID(t *testing.T) {
	tree := map[string]any{
		"world": map[string]any{
			"loc_A": map[string]any{"name": "A", "connections": map[string]any{"north": "loc_B"}},
		},
		"inventory": []any{"item_Rope", map[string]any{"item_Lamp": true}},
		"hp":        float64(7),
	}

	tests := []struct {
		name string
		node any
		id   string
		want bool
	}{
		{"map key", tree, "loc_A", true},
		{"nested value", tree, "loc_B", true},
		{"list element", tree, "item_Rope", true},
		{"key inside list", tree, "item_Lamp", true},
		{"missing", tree, "loc_C", false},
		{"number is not an id", tree, "7", false},
		{"bare string", "loc_A", "loc_A", true},
		{"nil", nil, "loc_A", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ContainsID(tt.node, tt.id); got != tt.want {
				t.Errorf("ContainsID(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestValidate_Scopes(t *testing.T) {
	gs := havenwood(t)

	target := func(id string) event.Event {
		return event.Event{Type: event.TypePlayerAction, Subtype: "INTERACTION", Parameters: event.Parameters{TargetID: id}}
	}

	tests := []struct {
		name      string
		scope     string
		target    string
		wantValid bool
	}{
		{"tree finds distant npc", config.ScopeTree, "npc_GloomfangWolf", true},
		{"session misses distant npc", config.ScopeSession, "npc_GloomfangWolf", false},
		{"session finds connection", config.ScopeSession, "loc_Gloomwood", true},
		{"session finds present npc", config.ScopeSession, "npc_GuardCaptainThorne", true},
		{"tree misses unknown id", config.ScopeTree, "npc_Nobody", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, invalid, err := NewValidator(tt.scope).Validate(gs, []event.Event{target(tt.target)})
			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if tt.wantValid {
				if len(valid) != 1 || len(invalid) != 0 {
					t.Errorf("Validate() = %d valid, %d invalid, want valid", len(valid), len(invalid))
				}
				return
			}
			if len(invalid) != 1 {
				t.Fatalf("Validate() = %d invalid, want 1", len(invalid))
			}
			if want := "Invalid target_id: " + tt.target; invalid[0].ValidationError != want {
				t.Errorf("ValidationError = %q, want %q", invalid[0].ValidationError, want)
			}
		})
	}
}

func TestValidate_PartitionsInOrder(t *testing.T) {
	gs := havenwood(t)
	events := []event.Event{
		{Type: event.TypePlayerAction, Subtype: "PERCEPTION", ActorID: "pc_Elara"},
		{Type: event.TypePlayerAction, Subtype: "MOVEMENT", Parameters: event.Parameters{TargetID: "loc_Atlantis"}},
		{Type: event.TypePlayerAction, Subtype: "MOVEMENT", Parameters: event.Parameters{TargetID: "loc_Gloomwood"}},
		event.ErrorEvent("x"),
	}

	valid, invalid, err := NewValidator("").Validate(gs, events)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(valid)+len(invalid) != len(events) {
		t.Fatalf("Validate() lost events: %d + %d != %d", len(valid), len(invalid), len(events))
	}
	if len(valid) != 3 || valid[0].Subtype != "PERCEPTION" || valid[1].Parameters.TargetID != "loc_Gloomwood" {
		t.Errorf("valid = %v", valid)
	}
	if len(invalid) != 1 || invalid[0].Parameters.TargetID != "loc_Atlantis" {
		t.Errorf("invalid = %v", invalid)
	}
	if events[1].ValidationError != "" {
		t.Error("Validate() modified its input")
	}
}

func TestNewValidator_DefaultsToTree(t *testing.T) {
	if got := NewValidator("bogus").Scope(); got != config.ScopeTree {
		t.Errorf("Scope() = %q, want %q", got, config.ScopeTree)
	}
}
