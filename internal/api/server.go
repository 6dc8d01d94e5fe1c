package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/bryanchriswhite/FrameStreamer/internal/config"
	"github.com/bryanchriswhite/FrameStreamer/internal/output"
	"github.com/bryanchriswhite/FrameStreamer/internal/pipeline"
)

// Server represents the HTTP monitor server
type Server struct {
	router    *mux.Router
	status    func() pipeline.Status
	configMgr *config.Manager
	stream    *output.MJPEGOutput
	upgrader  websocket.Upgrader

	mu      sync.Mutex
	httpSrv *http.Server
}

// NewServer creates a new monitor server. status must report the live
// pipeline; stream may be nil when playback renders to a local window
// instead of MJPEG.
func NewServer(status func() pipeline.Status, configMgr *config.Manager, stream *output.MJPEGOutput) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		status:    status,
		configMgr: configMgr,
		stream:    stream,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for development
			},
		},
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	// API routes
	api := s.router.PathPrefix("/api").Subrouter()

	// Playback state
	api.HandleFunc("/status", s.handleGetStatus).Methods("GET")
	api.HandleFunc("/status/stream", s.handleStatusStream)

	// Configuration
	api.HandleFunc("/config", s.handleGetConfig).Methods("GET")

	// Health check
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// MJPEG endpoints when playback streams over HTTP; otherwise a plain
	// index page
	if s.stream != nil {
		s.router.HandleFunc("/stream", s.stream.GetHTTPHandler())
		s.router.HandleFunc("/stats", s.stream.GetStatsHandler())
		s.router.HandleFunc("/", s.stream.GetViewerHandler())
	} else {
		s.router.PathPrefix("/").HandlerFunc(s.handleIndex)
	}
}

// Start starts the HTTP server and blocks until it shuts down
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	srv := &http.Server{
		Addr:    addr,
		Handler: s.enableCORS(s.router),
	}

	s.mu.Lock()
	s.httpSrv = srv
	s.mu.Unlock()

	log.Printf("Starting monitor server on http://localhost%s\n", addr)
	return srv.ListenAndServe()
}

// Stop shuts down the HTTP server, waiting briefly for in-flight requests
func (s *Server) Stop() error {
	s.mu.Lock()
	srv := s.httpSrv
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// Handler returns the server's root handler
func (s *Server) Handler() http.Handler {
	return s.enableCORS(s.router)
}

// enableCORS adds CORS headers
func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// HTTP Handlers

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.status())
}

func (s *Server) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v\n", err)
		return
	}
	defer conn.Close()

	// Send initial snapshot
	if err := conn.WriteJSON(s.status()); err != nil {
		log.Printf("WebSocket write error: %v\n", err)
		return
	}

	// Push updates until the client goes away
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		if err := conn.WriteJSON(s.status()); err != nil {
			log.Printf("WebSocket write error: %v\n", err)
			return
		}
	}
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg := s.configMgr.Get()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cfg)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	html := `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>FrameStreamer</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Oxygen, Ubuntu, Cantarell, sans-serif;
            max-width: 800px;
            margin: 50px auto;
            padding: 20px;
            background: #f5f5f5;
        }
        .container {
            background: white;
            padding: 30px;
            border-radius: 8px;
            box-shadow: 0 2px 4px rgba(0,0,0,0.1);
        }
        h1 {
            color: #333;
            margin-top: 0;
        }
        .status {
            padding: 10px;
            background: #e8f5e9;
            border-left: 4px solid #4caf50;
            margin: 20px 0;
        }
        .info {
            color: #666;
            line-height: 1.6;
        }
        a {
            color: #1976d2;
            text-decoration: none;
        }
        a:hover {
            text-decoration: underline;
        }
        code {
            background: #f5f5f5;
            padding: 2px 6px;
            border-radius: 3px;
            font-family: 'Courier New', monospace;
        }
    </style>
</head>
<body>
    <div class="container">
        <h1>🎬 FrameStreamer</h1>
        <div class="status">
            ✅ Playback monitor is running
        </div>
        <div class="info">
            <p>FrameStreamer plays a numbered frame sequence as paced video, with an optional soundtrack.</p>
            <h3>API Endpoints:</h3>
            <ul>
                <li><a href="/api/health">/api/health</a> - Server health check</li>
                <li><a href="/api/status">/api/status</a> - Playback progress and lane stats</li>
                <li><a href="/api/config">/api/config</a> - View configuration</li>
            </ul>
            <p>Live updates are available over WebSocket at <code>/api/status/stream</code>.</p>
        </div>
    </div>
</body>
</html>`

	// Only serve HTML for root path
	if r.URL.Path == "/" {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(html))
		return
	}

	// For other paths, return 404
	if !strings.HasPrefix(r.URL.Path, "/api") {
		http.NotFound(w, r)
	}
}
