// server serves the live city page and a small json api over the simulation.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"citybrains/planner"
	. "citybrains/road_graph"
	"citybrains/server/fastview"
	"citybrains/server/root_view"
	"citybrains/simulation"

	"github.com/gorilla/mux"
	channerics "github.com/niceyeti/channerics/channels"
)

const shutdownGracePeriod = 5 * time.Second

// Server serves a single page whose views are pushed over a websocket, plus
// the debug and route endpoints. The page's ele-update channel has a single
// reader, so concurrent pages split the updates between them.
type Server struct {
	addr     string
	city     *City
	rootView *root_view.RootView
	latest   *latestSnapshot
	logger   *log.Logger
	router   *mux.Router
}

// latestSnapshot keeps the most recent snapshot for the debug endpoint.
type latestSnapshot struct {
	mu   sync.RWMutex
	snap simulation.Snapshot
}

func (ls *latestSnapshot) set(snap simulation.Snapshot) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.snap = snap
}

func (ls *latestSnapshot) get() simulation.Snapshot {
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	return ls.snap
}

// NewServer initializes the views and routes. Snapshots are consumed until ctx
// is done or the channel closes; those arriving while the views are busy are
// dropped from the page but still reach the debug endpoint.
func NewServer(
	ctx context.Context,
	addr string,
	city *City,
	initial simulation.Snapshot,
	snapshots <-chan simulation.Snapshot,
	logger *log.Logger,
) (*Server, error) {
	viewSnapshots := make(chan simulation.Snapshot)
	rootView, err := root_view.NewRootView(ctx, city, initial, viewSnapshots)
	if err != nil {
		return nil, fmt.Errorf("root view: %w", err)
	}

	server := &Server{
		addr:     addr,
		city:     city,
		rootView: rootView,
		latest:   &latestSnapshot{snap: initial},
		logger:   logger,
	}
	server.router = server.routes()

	go func() {
		defer close(viewSnapshots)
		for snap := range channerics.OrDone(ctx.Done(), snapshots) {
			server.latest.set(snap)
			select {
			case viewSnapshots <- snap:
			default:
			}
		}
	}()

	return server, nil
}

func (server *Server) routes() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/", server.serveIndex).Methods(http.MethodGet)
	router.HandleFunc("/ws", server.serveWebsocket)
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/debug", server.serveDebug).Methods(http.MethodGet)
	api.HandleFunc("/pois", server.servePOIs).Methods(http.MethodGet)
	api.HandleFunc("/route", server.serveRoute).Methods(http.MethodGet)
	return router
}

// Handler returns the server's routes, for mounting or testing.
func (server *Server) Handler() http.Handler {
	return server.router
}

// Serve listens until ctx is done, then shuts down gracefully.
func (server *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:    server.addr,
		Handler: server.router,
	}

	errs := make(chan error, 1)
	go func() {
		errs <- srv.ListenAndServe()
	}()
	server.logger.Printf("serving on %s", server.addr)

	select {
	case err := <-errs:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errs; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// serveWebsocket publishes view updates to the page until it goes away.
func (server *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	cli, err := fastview.NewClient(server.rootView.Updates(), w, r)
	if err != nil {
		server.logger.Println(err)
		return
	}

	if err := cli.Sync(); err != nil {
		server.logger.Println("sync:", err)
	}
}

// Serve the index.html main page.
func (server *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	if err := renderTemplate(w, server.rootView, server.rootView.Initial()); err != nil {
		server.logger.Println("render:", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func renderTemplate(
	w io.Writer,
	vc fastview.ViewComponent,
	data interface{},
) (err error) {
	t := template.New("index.html")
	var tname string
	if tname, err = vc.Parse(t); err != nil {
		return
	}
	if _, err = t.Parse(`{{ template "` + tname + `" . }}`); err != nil {
		return
	}

	err = t.Execute(w, data)
	return
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type apiError struct {
	Error string `json:"error"`
}

// serveDebug returns the latest snapshot, including every brain's debug info.
func (server *Server) serveDebug(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, server.latest.get())
}

func (server *Server) servePOIs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, server.city.PointsOfInterest)
}

// RouteResponse is a shortest road path between two points of interest.
type RouteResponse struct {
	From  string     `json:"from"`
	To    string     `json:"to"`
	Steps int        `json:"steps"`
	Path  []RoadNode `json:"path"`
}

// serveRoute plans a path between the points of interest named by the 'from'
// and 'to' query parameters.
func (server *Server) serveRoute(w http.ResponseWriter, r *http.Request) {
	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	if from == "" || to == "" {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "from and to are required"})
		return
	}

	start, ok := server.city.Resolve(from)
	if !ok {
		writeJSON(w, http.StatusNotFound, apiError{Error: fmt.Sprintf("%s: %v", from, ErrUnknownPOI)})
		return
	}
	goal, ok := server.city.Resolve(to)
	if !ok {
		writeJSON(w, http.StatusNotFound, apiError{Error: fmt.Sprintf("%s: %v", to, ErrUnknownPOI)})
		return
	}

	path, found := planner.FindPath(server.city.Graph, start, goal)
	if !found {
		writeJSON(w, http.StatusNotFound, apiError{Error: fmt.Sprintf("no route from %s to %s", from, to)})
		return
	}
	writeJSON(w, http.StatusOK, RouteResponse{
		From:  from,
		To:    to,
		Steps: path.Steps(),
		Path:  path,
	})
}
