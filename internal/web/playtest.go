package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/jwebster45206/dungeon-master/internal/dm"
	"github.com/jwebster45206/dungeon-master/pkg/chat"
	"github.com/jwebster45206/dungeon-master/pkg/event"
)

const (
	warnNoPlayer    = "Add ?player=pc_Elara (or another PC id) to the URL to play as a character."
	warnNoActions   = "No actions have been submitted for this turn."
	noticeSubmitted = "Action submitted! Wait for the DM to process the turn."
	noticeProcessed = "Turn processed!"
)

var notices = map[string]string{
	"submitted": noticeSubmitted,
	"processed": noticeProcessed,
}

type pcOption struct {
	ID   string
	Name string
}

type pendingAction struct {
	Name  string
	Input string
}

type playPage struct {
	PlayerID   string
	PlayerName string
	PCs        []pcOption
	Session    string
	Pending    []pendingAction
	Narratives []string
	Live       bool
	Notice     string
	Warning    string
	Error      string
}

// playPage shows the scene to one player, selected by ?player=<pc id>.
func (s *Server) playPage(w http.ResponseWriter, r *http.Request) {
	page := s.newPlayPage(r.Context(), r.URL.Query().Get("player"))
	page.Notice = notices[r.URL.Query().Get("notice")]
	status := http.StatusOK
	if page.PlayerID == "" {
		status = http.StatusNotFound
	}
	s.render(w, status, "play.html", page)
}

// submitAction queues the player's action, replacing any earlier one.
func (s *Server) submitAction(w http.ResponseWriter, r *http.Request) {
	player := r.FormValue("player")
	input := strings.TrimSpace(r.FormValue("input"))

	page := s.newPlayPage(r.Context(), player)
	if page.PlayerID == "" {
		s.render(w, http.StatusNotFound, "play.html", page)
		return
	}
	if input == "" {
		page.Error = "Describe what your character does."
		s.render(w, http.StatusBadRequest, "play.html", page)
		return
	}

	err := s.opts.Queue.Submit(r.Context(), s.opts.SessionID, event.PlayerInput{ActorID: player, Input: input})
	if err != nil {
		s.logger.Error("Failed to queue action", "player", player, "error", err)
		page.Error = "Failed to submit action: " + err.Error()
		s.render(w, http.StatusInternalServerError, "play.html", page)
		return
	}
	s.logger.Info("Action queued", "player", player)
	if s.opts.Events != nil {
		_ = s.opts.Events.PublishActionQueued(r.Context(), s.opts.SessionID, player)
	}
	s.redirect(w, r, player, "submitted")
}

// processTurn resolves every queued action as one batch turn. The queue is
// emptied whether or not the turn succeeds.
func (s *Server) processTurn(w http.ResponseWriter, r *http.Request) {
	player := r.FormValue("player")

	inputs, err := s.opts.Queue.Drain(r.Context(), s.opts.SessionID)
	if err != nil {
		s.logger.Error("Failed to drain action queue", "error", err)
		page := s.newPlayPage(r.Context(), player)
		page.Error = "Failed to read queued actions: " + err.Error()
		s.render(w, http.StatusInternalServerError, "play.html", page)
		return
	}
	if len(inputs) == 0 {
		page := s.newPlayPage(r.Context(), player)
		page.Warning = warnNoActions
		s.render(w, http.StatusBadRequest, "play.html", page)
		return
	}

	ctx := r.Context()
	if s.opts.TurnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.TurnTimeout)
		defer cancel()
	}

	if s.opts.Events != nil {
		_ = s.opts.Events.PublishTurnProcessing(r.Context(), s.opts.SessionID, len(inputs))
	}

	tr, err := s.opts.Game.RunBatch(ctx, inputs)
	if err != nil {
		s.logger.Warn("Batch turn failed", "players", len(inputs), "error", err)
		if s.opts.Events != nil {
			_ = s.opts.Events.PublishTurnFailed(r.Context(), s.opts.SessionID, err.Error())
		}
		page := s.newPlayPage(r.Context(), player)
		page.Error = "Turn failed: " + err.Error()
		status := http.StatusBadGateway
		if errors.Is(err, dm.ErrValidationExhausted) {
			status = http.StatusUnprocessableEntity
		}
		s.render(w, status, "play.html", page)
		return
	}
	if s.opts.Events != nil {
		_ = s.opts.Events.PublishTurnCompleted(r.Context(), s.opts.SessionID,
			tr.ID.String(), tr.Narrative.Text(), tr.Session.LocationID())
	}
	s.redirect(w, r, player, "processed")
}

// sessionJSON returns the current session.
func (s *Server) sessionJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.opts.Game.Session()); err != nil {
		s.logger.Error("Session response encode failed", "error", err)
	}
}

func (s *Server) redirect(w http.ResponseWriter, r *http.Request, player, notice string) {
	q := url.Values{}
	if player != "" {
		q.Set("player", player)
	}
	q.Set("notice", notice)
	http.Redirect(w, r, "/play?"+q.Encode(), http.StatusSeeOther)
}

// newPlayPage fills the page for player. PlayerID stays empty when player is
// not a PC of the game.
func (s *Server) newPlayPage(ctx context.Context, player string) *playPage {
	gs := s.opts.Game.State()
	page := &playPage{Live: s.opts.Events != nil}
	for _, id := range gs.PCIDs() {
		page.PCs = append(page.PCs, pcOption{ID: id, Name: gs.ActorName(id)})
	}

	pc, ok := gs.PC(player)
	if !ok {
		page.Warning = warnNoPlayer
		return page
	}
	page.PlayerID = player
	page.PlayerName = pc.Name

	session, err := json.MarshalIndent(gs.SessionView(), "", "  ")
	if err == nil {
		page.Session = string(session)
	}

	pending, err := s.opts.Queue.Pending(ctx, s.opts.SessionID)
	if err != nil {
		s.logger.Warn("Failed to list queued actions", "error", err)
	}
	for _, in := range pending {
		page.Pending = append(page.Pending, pendingAction{Name: gs.ActorName(in.ActorID), Input: in.Input})
	}

	page.Narratives = narratives(s.opts.Game.History())
	return page
}

// narratives picks the narration text out of the turn history.
func narratives(history []chat.ChatMessage) []string {
	var out []string
	for _, m := range history {
		if m.Role != chat.ChatRoleSystem {
			continue
		}
		var raw string
		switch {
		case strings.HasPrefix(m.Content, dm.PrefixBatchStory):
			raw = strings.TrimPrefix(m.Content, dm.PrefixBatchStory)
		case strings.HasPrefix(m.Content, dm.PrefixNarrative):
			raw = strings.TrimPrefix(m.Content, dm.PrefixNarrative)
		default:
			continue
		}
		if text := dm.Narrative(raw).Text(); text != "" {
			out = append(out, text)
		}
	}
	return out
}
