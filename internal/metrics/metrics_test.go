package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/edumarques81/stellar-media-internals/internal/domain/media"
	"github.com/edumarques81/stellar-media-internals/internal/ingest"
	"github.com/edumarques81/stellar-media-internals/internal/metrics"
)

func scrape(t *testing.T, m *metrics.Metrics, update func()) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler(update).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}

func assertContains(t *testing.T, body string, lines ...string) {
	t.Helper()
	for _, line := range lines {
		if !strings.Contains(body, line) {
			t.Errorf("metrics output missing %q", line)
		}
	}
}

func TestMessageCounters(t *testing.T) {
	m := metrics.New()
	m.MessageAccepted(ingest.KindMediaEvent)
	m.MessageAccepted(ingest.KindMediaEvent)
	m.MessageRejected(ingest.KindPlayerOpen, nil)
	m.MessageRejected("bogus", nil)

	assertContains(t, scrape(t, m, nil),
		`media_internals_pushes_total{kind="onMediaEvent",outcome="accepted"} 2`,
		`media_internals_pushes_total{kind="onPlayerOpen",outcome="rejected"} 1`,
		`media_internals_pushes_total{kind="unknown",outcome="rejected"} 1`,
	)
}

func TestObserverTracksManager(t *testing.T) {
	m := metrics.New()
	mgr := media.NewManager()
	mgr.AddPlayer(media.PlayerKey{Renderer: "1", Player: "1"})
	defer mgr.Subscribe(m.Observer())()

	mgr.AddPlayer(media.PlayerKey{Renderer: "1", Player: "2"})
	if err := mgr.UpdatePlayerInfo(media.PlayerKey{Renderer: "1", Player: "2"}, 0, "state", "playing"); err != nil {
		t.Fatalf("UpdatePlayerInfo: %v", err)
	}
	mgr.UpdateAudioComponent(media.OutputStream, media.ComponentID{Owner: "1", Component: "1"}, media.AudioComponent{})

	assertContains(t, scrape(t, m, nil),
		"media_internals_players 2",
		"media_internals_player_updates_total 1",
		`media_internals_audio_components{type="Output Stream"} 1`,
	)

	mgr.RemovePlayer(media.PlayerKey{Renderer: "1", Player: "1"})
	assertContains(t, scrape(t, m, nil), "media_internals_players 1")
}

func TestHandlerRefreshesGauges(t *testing.T) {
	m := metrics.New()
	body := scrape(t, m, func() { m.SetDashboardClients(3) })
	assertContains(t, body, "media_internals_dashboard_clients 3")
}

func TestRequestMiddleware(t *testing.T) {
	m := metrics.New()
	h := metrics.RequestMiddleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))

	for _, path := range []string{"/ok", "/ok", "/missing"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assertContains(t, scrape(t, m, nil),
		"media_internals_http_requests_total 3",
		"media_internals_http_errors_total 1",
	)
}
