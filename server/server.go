package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"gridvi/grid_world"
	"gridvi/reinforcement"
	"gridvi/server/cell_views"
	"gridvi/server/fastview"
	"gridvi/server/root_view"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"
)

const shutdownWait = 5 * time.Second

// Server serves the live solver page to a single client over a single websocket.
// The root view's update chan can be drained by one websocket at a time; a second
// page steals updates from the first.
//
// The server only reads solver output: snapshots are published to it, and it
// keeps the latest one plus the delta history for the index page and charts.
type Server struct {
	addr      string
	world     *grid_world.GridWorld
	rootView  *root_view.RootView
	snapshots chan reinforcement.Snapshot

	mu     sync.RWMutex
	latest reinforcement.Snapshot
	deltas []float64
	values func(grid_world.Coord) float64
}

// NewServer initializes all of the views and returns a server. The initial snapshot
// is rendered until the first one is published.
func NewServer(
	ctx context.Context,
	addr string,
	world *grid_world.GridWorld,
	initial reinforcement.Snapshot,
) (*Server, error) {
	snapshots := make(chan reinforcement.Snapshot, 1)
	rootView, err := root_view.NewRootView(ctx, world, snapshots)
	if err != nil {
		return nil, fmt.Errorf("build views: %w", err)
	}

	return &Server{
		addr:      addr,
		world:     world,
		rootView:  rootView,
		snapshots: snapshots,
		latest:    initial,
	}, nil
}

// Publish records a snapshot and forwards it to the views. It never blocks: when
// the views are behind, the unsent snapshot is replaced by this one.
// Publish must be called from a single goroutine, such as a solver's progress func.
func (server *Server) Publish(snap reinforcement.Snapshot) {
	server.mu.Lock()
	server.latest = snap
	if snap.Sweep > len(server.deltas) {
		server.deltas = append(server.deltas, snap.Delta)
	}
	server.mu.Unlock()

	select {
	case server.snapshots <- snap:
		return
	default:
	}
	select {
	case <-server.snapshots:
	default:
	}
	select {
	case server.snapshots <- snap:
	default:
	}
}

// Latest returns the most recently published snapshot and a copy of the delta history.
func (server *Server) Latest() (reinforcement.Snapshot, []float64) {
	server.mu.RLock()
	defer server.mu.RUnlock()
	return server.latest, append([]float64(nil), server.deltas...)
}

// WatchValues sets a live state-value source, such as a running solver's StateValue,
// which /api/values reads on every request. The source must be safe to call from
// request goroutines while the solver sweeps.
func (server *Server) WatchValues(values func(grid_world.Coord) float64) {
	server.mu.Lock()
	defer server.mu.Unlock()
	server.values = values
}

// Handler returns the server's routes.
func (server *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/", server.serveIndex).Methods(http.MethodGet)
	router.HandleFunc("/ws", server.serveWebsocket)
	router.HandleFunc("/charts", server.serveCharts).Methods(http.MethodGet)
	router.HandleFunc("/api/snapshot", server.serveSnapshot).Methods(http.MethodGet)
	router.HandleFunc("/api/values", server.serveValues).Methods(http.MethodGet)
	return router
}

// Serve listens until the context is cancelled, then shuts down gracefully.
func (server *Server) Serve(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              server.addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: time.Second * 5,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Printf("serving on http://%s\n", server.addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWait)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return group.Wait()
}

// serveWebsocket publishes view updates to the client until either side quits.
func (server *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	cli, err := fastview.NewClient(server.rootView.Updates(), w, r)
	if err != nil {
		log.Println(err)
		return
	}

	if err := cli.Sync(); err != nil {
		log.Println("websocket:", err)
	}
}

// Serve the index.html main page.
func (server *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")

	snap, _ := server.Latest()
	board := cell_views.Convert(server.world, &snap)
	if err := renderTemplate(w, server.rootView, board); err != nil {
		log.Println("index:", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (server *Server) serveCharts(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")

	snap, deltas := server.Latest()
	if err := renderCharts(w, server.world, &snap, deltas); err != nil {
		log.Println("charts:", err)
	}
}

func (server *Server) serveSnapshot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	snap, _ := server.Latest()
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		log.Println("snapshot:", err)
	}
}

// serveValues reads the state values straight from the watched source, so it may show
// a sweep in progress. Without a source it falls back to the latest snapshot.
func (server *Server) serveValues(w http.ResponseWriter, r *http.Request) {
	server.mu.RLock()
	values := server.values
	latest := server.latest
	server.mu.RUnlock()
	if values == nil {
		values = latest.Value
	}

	grid := make([][]float64, server.world.Rows())
	for i := range grid {
		grid[i] = make([]float64, server.world.Cols())
	}
	server.world.Visit(func(c grid_world.Coord) {
		grid[c.Row][c.Col] = values(c)
	})

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(grid); err != nil {
		log.Println("values:", err)
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
