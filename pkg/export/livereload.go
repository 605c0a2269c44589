package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/Dicklesworthstone/plan_viewer/pkg/layout"
	"github.com/Dicklesworthstone/plan_viewer/pkg/model"
)

// EventsPath is the SSE endpoint browsers subscribe to.
const EventsPath = "/__preview__/events"

// ErrUnknownPlan is returned by a PlanRenderer for plans it cannot find.
var ErrUnknownPlan = errors.New("unknown plan")

// PlanRenderer supplies the preview server with laid-out plans.
type PlanRenderer interface {
	PlanIDs() ([]string, error)
	// Render returns the plan and its layout with overrides applied.
	Render(ctx context.Context, planID string) (*model.Plan, layout.Result, error)
}

// LiveReloadHub fans plan change notifications out to SSE clients.
type LiveReloadHub struct {
	mu      sync.RWMutex
	clients map[chan string]struct{}
	closed  bool
}

// NewLiveReloadHub creates an empty hub.
func NewLiveReloadHub() *LiveReloadHub {
	return &LiveReloadHub{clients: make(map[chan string]struct{})}
}

// ClientCount returns the number of connected clients.
func (h *LiveReloadHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Notify tells every client that planID changed. Slow clients miss the
// event; they already have a reload pending.
func (h *LiveReloadHub) Notify(planID string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.clients {
		select {
		case ch <- planID:
		default:
		}
	}
}

// Run forwards plan ids from events until ctx is done or events closes.
func (h *LiveReloadHub) Run(ctx context.Context, events <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case id, ok := <-events:
			if !ok {
				return
			}
			h.Notify(id)
		}
	}
}

// Close disconnects all clients.
func (h *LiveReloadHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.clients {
		close(ch)
	}
	h.clients = make(map[chan string]struct{})
}

func (h *LiveReloadHub) register() (chan string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, false
	}
	ch := make(chan string, 1)
	h.clients[ch] = struct{}{}
	return ch, true
}

func (h *LiveReloadHub) unregister(ch chan string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, ch)
}

// SSEHandler returns an HTTP handler for the SSE endpoint.
func (h *LiveReloadHub) SSEHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "SSE not supported", http.StatusInternalServerError)
			return
		}

		ch, ok := h.register()
		if !ok {
			http.Error(w, "server shutting down", http.StatusServiceUnavailable)
			return
		}
		defer h.unregister(ch)

		fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\"}\n\n")
		flusher.Flush()

		for {
			select {
			case <-r.Context().Done():
				return
			case id, ok := <-ch:
				if !ok {
					return
				}
				data, _ := json.Marshal(map[string]string{"plan": id})
				fmt.Fprintf(w, "event: reload\ndata: %s\n\n", data)
				flusher.Flush()
			}
		}
	}
}

// LiveReloadScript reloads the page when the plan it shows changes. The
// index page sets data-plan="" and reloads on any change.
const LiveReloadScript = `<script>
(function() {
  if (typeof(EventSource) === 'undefined') return;
  var current = document.body.getAttribute('data-plan') || '';
  var reconnectDelay = 1000;
  var maxReconnectDelay = 30000;

  function connect() {
    var es = new EventSource('` + EventsPath + `');

    es.addEventListener('connected', function() {
      reconnectDelay = 1000;
    });

    es.addEventListener('reload', function(ev) {
      var msg = {};
      try { msg = JSON.parse(ev.data); } catch (e) {}
      if (current === '' || msg.plan === current) location.reload();
    });

    es.onerror = function() {
      es.close();
      setTimeout(connect, reconnectDelay);
      reconnectDelay = Math.min(reconnectDelay * 2, maxReconnectDelay);
    };
  }

  connect();
})();
</script>`

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { background: #1e1e2e; color: #f8f8f2; font-family: system-ui, sans-serif; margin: 0; padding: 16px; }
a { color: #bd93f9; }
.err { color: #ff5555; }
</style>
</head>
<body data-plan="{{.PlanID}}">
{{if .PlanID}}<p><a href="/">← all plans</a> · <a href="/plan/{{.PlanID}}.svg">svg</a> · <a href="/plan/{{.PlanID}}.png">png</a> · <a href="/plan/{{.PlanID}}.json">json</a></p>
{{.SVG}}
{{else}}<h1>Plans</h1>
<ul>{{range .Plans}}<li><a href="/plan/{{.}}">{{.}}</a></li>{{else}}<li>No plans found.</li>{{end}}</ul>
{{end}}{{.Script}}
</body>
</html>
`))

type pageData struct {
	Title  string
	PlanID string
	Plans  []string
	SVG    template.HTML
	Script template.HTML
}

// PreviewServer serves rendered plans and pushes reloads to open pages.
type PreviewServer struct {
	renderer PlanRenderer
	hub      *LiveReloadHub
	logger   *slog.Logger
	mux      *http.ServeMux
}

// NewPreviewServer wires the routes:
//
//	/                  index of plans
//	/plan/{id}         HTML page with the inline SVG
//	/plan/{id}.svg     raw SVG, also .png and .json
//	/__preview__/events SSE stream
func NewPreviewServer(renderer PlanRenderer, hub *LiveReloadHub, logger *slog.Logger) *PreviewServer {
	if logger == nil {
		logger = slog.Default()
	}
	s := &PreviewServer{renderer: renderer, hub: hub, logger: logger, mux: http.NewServeMux()}
	s.mux.HandleFunc(EventsPath, hub.SSEHandler())
	s.mux.HandleFunc("/plan/", s.handlePlan)
	s.mux.HandleFunc("/", s.handleIndex)
	return s
}

func (s *PreviewServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *PreviewServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	ids, err := s.renderer.PlanIDs()
	if err != nil {
		s.logger.Error("list plans failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writePage(w, pageData{Title: "Plans", Plans: ids})
}

func (s *PreviewServer) handlePlan(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/plan/")
	id, ext := name, ""
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		id, ext = name[:i], name[i:]
	}
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}

	plan, res, err := s.renderer.Render(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrUnknownPlan) {
			http.NotFound(w, r)
			return
		}
		s.logger.Error("render plan failed", "plan", id, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	switch ext {
	case "":
		if err = WriteSVG(&buf, plan, res); err != nil {
			break
		}
		title := plan.Title
		if title == "" {
			title = plan.ID
		}
		doc := buf.String()
		if i := strings.Index(doc, "<svg"); i > 0 {
			doc = doc[i:]
		}
		s.writePage(w, pageData{Title: title, PlanID: id, SVG: template.HTML(doc)})
		return
	case ".svg":
		w.Header().Set("Content-Type", "image/svg+xml")
		err = WriteSVG(&buf, plan, res)
	case ".png":
		w.Header().Set("Content-Type", "image/png")
		err = WritePNG(&buf, plan, res, 1)
	case ".json":
		w.Header().Set("Content-Type", "application/json")
		err = WriteJSON(&buf, plan, res, nil)
	default:
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.logger.Error("encode plan failed", "plan", id, "format", ext, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	_, _ = w.Write(buf.Bytes())
}

func (s *PreviewServer) writePage(w http.ResponseWriter, data pageData) {
	data.Script = template.HTML(LiveReloadScript)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTmpl.Execute(w, data); err != nil {
		s.logger.Error("write page failed", "error", err)
	}
}
