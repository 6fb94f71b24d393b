package web

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/dungeon-master/internal/storage"
)

func TestCampaignPage(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.get("/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "D&amp;D Campaign Generator")
	assert.Contains(t, body, `action="/campaign"`)
	assert.NotContains(t, body, "Archived Campaigns")
}

func TestGenerateCampaign(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.post("/campaign", url.Values{"details": {"  a haunted coast  "}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"campaign:a haunted coast"}, ts.generator.calls)

	body := rec.Body.String()
	for _, want := range []string{
		"The lighthouse keeper has vanished.",
		"Old Brine",
		"Smugglers want the light kept dark.",
		"World Map",
		"Archived Campaigns",
	} {
		assert.Contains(t, body, want)
	}

	recs, err := ts.archive.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, storage.KindCampaign, recs[0].Kind)
	assert.Equal(t, "a haunted coast", recs[0].Details)
	assert.Contains(t, body, "/campaigns/"+recs[0].ID.String())
}

func TestGenerateCampaign_Plot(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.post("/campaign", url.Values{"details": {"a haunted coast"}, "players": {"Elara, Bryn"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"plot:a haunted coast/Elara, Bryn"}, ts.generator.calls)

	body := rec.Body.String()
	assert.Contains(t, body, "Relight the lighthouse.")
	assert.Contains(t, body, "Act Three")
	assert.Contains(t, body, "Suspicion.")

	recs, err := ts.archive.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, storage.KindPlot, recs[0].Kind)
	assert.Equal(t, "Elara, Bryn", recs[0].Players)
}

func TestGenerateCampaign_NoDetails(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.post("/campaign", url.Values{"details": {"   "}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), warnNoDetails)
	assert.Empty(t, ts.generator.calls)
}

func TestGenerateCampaign_Failure(t *testing.T) {
	ts := newTestServer(t)
	ts.generator.err = errModelDown

	rec := ts.post("/campaign", url.Values{"details": {"a haunted coast"}})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to generate campaign: model down")
	assert.Contains(t, rec.Body.String(), "a haunted coast", "details are kept in the form")

	recs, err := ts.archive.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestArchivedCampaign(t *testing.T) {
	ts := newTestServer(t)
	ts.post("/campaign", url.Values{"details": {"a haunted coast"}})
	recs, err := ts.archive.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	rec := ts.get("/campaigns/" + recs[0].ID.String())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "The lighthouse keeper has vanished.")
	assert.True(t, strings.Contains(rec.Body.String(), "Saltmarsh"))

	tests := []struct {
		name   string
		target string
		status int
	}{
		{"bad id", "/campaigns/not-a-uuid", http.StatusBadRequest},
		{"unknown id", "/campaigns/" + uuid.NewString(), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, ts.get(tt.target).Code)
		})
	}
}
