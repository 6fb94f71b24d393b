package web

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jwebster45206/dungeon-master/internal/storage"
	"github.com/jwebster45206/dungeon-master/pkg/campaign"
)

// archiveLimit is how many archived campaigns the page lists.
const archiveLimit = 20

const warnNoDetails = "Please enter some details for your campaign."

type archiveEntry struct {
	ID        string
	Kind      string
	Details   string
	CreatedAt time.Time
}

type campaignPage struct {
	Details  string
	Players  string
	Warning  string
	Error    string
	Campaign *campaign.Campaign
	Plot     *campaign.Plot
	Archive  []archiveEntry
}

func (s *Server) campaignPage(w http.ResponseWriter, r *http.Request) {
	page := &campaignPage{}
	s.loadArchive(r, page)
	s.render(w, http.StatusOK, "campaign.html", page)
}

// generateCampaign makes an outline, or a full plot when players are given,
// and archives it.
func (s *Server) generateCampaign(w http.ResponseWriter, r *http.Request) {
	page := &campaignPage{
		Details: strings.TrimSpace(r.FormValue("details")),
		Players: strings.TrimSpace(r.FormValue("players")),
	}
	if page.Details == "" {
		page.Warning = warnNoDetails
		s.loadArchive(r, page)
		s.render(w, http.StatusBadRequest, "campaign.html", page)
		return
	}

	ctx := r.Context()
	var err error
	if page.Players != "" {
		page.Plot, err = s.opts.Generator.GeneratePlot(ctx, page.Details, page.Players)
	} else {
		page.Campaign, err = s.opts.Generator.GenerateCampaign(ctx, page.Details)
	}
	if err != nil {
		s.logger.Error("Campaign generation failed", "error", err)
		page.Error = "Failed to generate campaign: " + err.Error()
		s.loadArchive(r, page)
		s.render(w, http.StatusBadGateway, "campaign.html", page)
		return
	}

	if s.opts.Archive != nil {
		var id uuid.UUID
		if page.Plot != nil {
			id, err = s.opts.Archive.SavePlot(ctx, page.Details, page.Players, page.Plot)
		} else {
			id, err = s.opts.Archive.SaveCampaign(ctx, page.Details, page.Campaign)
		}
		if err != nil {
			s.logger.Warn("Failed to archive campaign", "error", err)
		} else {
			s.logger.Info("Campaign archived", "id", id)
		}
	}

	s.loadArchive(r, page)
	s.render(w, http.StatusOK, "campaign.html", page)
}

func (s *Server) archivedCampaign(w http.ResponseWriter, r *http.Request) {
	if s.opts.Archive == nil {
		http.NotFound(w, r)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid campaign id", http.StatusBadRequest)
		return
	}

	rec, err := s.opts.Archive.Get(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.logger.Error("Failed to read campaign", "id", id, "error", err)
		http.Error(w, "Failed to read campaign", http.StatusInternalServerError)
		return
	}

	page := &campaignPage{Details: rec.Details, Players: rec.Players}
	switch rec.Kind {
	case storage.KindPlot:
		page.Plot, err = rec.Plot()
	default:
		page.Campaign, err = rec.Campaign()
	}
	if err != nil {
		page.Error = err.Error()
	}
	s.loadArchive(r, page)
	s.render(w, http.StatusOK, "campaign.html", page)
}

func (s *Server) loadArchive(r *http.Request, page *campaignPage) {
	if s.opts.Archive == nil || page.Archive != nil {
		return
	}
	recs, err := s.opts.Archive.List(r.Context(), archiveLimit)
	if err != nil {
		s.logger.Warn("Failed to list campaigns", "error", err)
		return
	}
	page.Archive = make([]archiveEntry, 0, len(recs))
	for _, rec := range recs {
		page.Archive = append(page.Archive, archiveEntry{
			ID:        rec.ID.String(),
			Kind:      rec.Kind,
			Details:   truncate(rec.Details, 80),
			CreatedAt: rec.CreatedAt,
		})
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
