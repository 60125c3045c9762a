package server

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/morezero/gate-registration/pkg/db"
	"github.com/morezero/gate-registration/pkg/gate"
)

const homeLogPrefix = "server:home"

var homeTmpl = template.Must(template.New("home").Parse(homePageTemplate))

// homeData is rendered by homePageTemplate.
type homeData struct {
	Health      *gate.HealthOutput
	Counts      []statusCount
	Total       int
	LoadError   string
	GeneratedAt string
}

type statusCount struct {
	Status string
	Count  int
}

// homeHandler serves "/": websocket upgrades go to the realtime handler,
// everything else to the static UI or the status page.
type homeHandler struct {
	svc           *gate.Service
	realtime      http.Handler
	static        http.Handler
	healthTimeout time.Duration
}

func newHomeHandler(svc *gate.Service, realtime http.Handler, staticDir string, healthTimeout time.Duration) *homeHandler {
	h := &homeHandler{svc: svc, realtime: realtime, healthTimeout: healthTimeout}
	if staticDir != "" {
		h.static = http.FileServer(http.Dir(staticDir))
	}
	return h
}

func (h *homeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		h.realtime.ServeHTTP(w, r)
		return
	}
	if h.static != nil {
		h.static.ServeHTTP(w, r)
		return
	}
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.healthTimeout)
	defer cancel()
	data := h.statusPage(ctx)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := homeTmpl.Execute(w, data); err != nil {
		slog.Error(fmt.Sprintf("%s - template execute: %v", homeLogPrefix, err))
	}
}

func (h *homeHandler) statusPage(ctx context.Context) *homeData {
	data := &homeData{
		Health:      h.svc.Health(ctx),
		GeneratedAt: time.Now().Format(time.RFC3339),
	}
	regs, err := h.svc.ListRegistrations(ctx)
	if err != nil {
		data.LoadError = err.Error()
		return data
	}
	data.Total = len(regs)
	data.Counts = countByStatus(regs)
	return data
}

// countByStatus counts registrations per lifecycle status, in lifecycle order.
func countByStatus(regs []db.RegistrationView) []statusCount {
	byStatus := make(map[string]int, 4)
	for _, r := range regs {
		byStatus[r.Status]++
	}
	order := []string{db.StatusAwaitingDeclaration, db.StatusDeclared, db.StatusCheckedIn, db.StatusCheckedOut}
	counts := make([]statusCount, 0, len(order))
	for _, s := range order {
		counts = append(counts, statusCount{Status: s, Count: byStatus[s]})
	}
	return counts
}

// homePageTemplate is the HTML for the status page (white bg, black/blue text).
const homePageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>Gate Registration</title>
  <style>
    * { box-sizing: border-box; }
    body { background: #fff; color: #000; font-family: system-ui, sans-serif; margin: 0; padding: 2rem; line-height: 1.5; }
    h1, h2 { color: #0066cc; }
    .status-healthy { color: #0066cc; font-weight: bold; }
    .status-unhealthy { color: #cc0000; font-weight: bold; }
    table { border-collapse: collapse; width: 100%; max-width: 600px; margin-top: 0.5rem; }
    th, td { text-align: left; padding: 0.5rem 0.75rem; border: 1px solid #ccc; }
    th { background: #f0f4f8; color: #0066cc; }
    .stat { font-weight: bold; color: #0066cc; }
    .meta { color: #333; font-size: 0.9rem; margin-top: 1rem; }
    section { margin-bottom: 2rem; }
    .error { color: #cc0000; }
  </style>
</head>
<body>
  <h1>Gate Registration</h1>
  <p class="meta">Service health and gate traffic. Live clients connect to <code>/ws</code>.</p>

  <section>
    <h2>Health</h2>
    <p>Status: <span class="status-{{.Health.Status}}">{{.Health.Status}}</span></p>
    <p>Database: {{if .Health.Checks.Database}}<span class="stat">OK</span>{{else}}<span class="error">Failed</span>{{end}}</p>
    <p>Realtime connections: <span class="stat">{{.Health.Checks.Connections}}</span></p>
    <p>Timestamp: {{.Health.Timestamp}}</p>
  </section>

  <section>
    <h2>Registrations</h2>
    {{if .LoadError}}
    <p class="error">Could not load registrations: {{.LoadError}}</p>
    {{else}}
    <p>Total: <span class="stat">{{.Total}}</span></p>
    <table>
      <thead><tr><th>Status</th><th>Count</th></tr></thead>
      <tbody>
        {{range .Counts}}
        <tr><td>{{.Status}}</td><td>{{.Count}}</td></tr>
        {{end}}
      </tbody>
    </table>
    {{end}}
  </section>

  <p class="meta">Generated at {{.GeneratedAt}}</p>
</body>
</html>
`
