package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	pathpkg "path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"podcast-generator/internal/mediatype"
	"podcast-generator/internal/models"
	"podcast-generator/internal/rss"
)

// FeedProvider supplies the most recently rendered feed.
type FeedProvider interface {
	CurrentFeed() (data []byte, episodes []models.Episode, ok bool)
}

// Cache holds the last rendered feed for the HTTP handlers.
type Cache struct {
	mu       sync.RWMutex
	data     []byte
	episodes []models.Episode
	ready    bool
}

// Store replaces the cached feed.
func (c *Cache) Store(data []byte, episodes []models.Episode) {
	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)
	episodesCopy := make([]models.Episode, len(episodes))
	copy(episodesCopy, episodes)

	c.mu.Lock()
	c.data = dataCopy
	c.episodes = episodesCopy
	c.ready = true
	c.mu.Unlock()
}

// CurrentFeed returns the cached feed. ok is false until Store is called.
func (c *Cache) CurrentFeed() ([]byte, []models.Episode, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	episodes := make([]models.Episode, len(c.episodes))
	copy(episodes, c.episodes)
	return c.data, episodes, c.ready
}

type serverHandler struct {
	feed      FeedProvider
	audioRoot string
	types     *mediatype.Table
	logger    *log.Logger
}

// New creates the HTTP handler that exposes the feed, the episode list and
// the audio files directly inside audioRoot.
func New(feed FeedProvider, audioRoot string, types *mediatype.Table, logger *log.Logger) http.Handler {
	if logger == nil {
		logger = log.Default()
	}
	if types == nil {
		types = mediatype.Default()
	}

	cleanRoot := filepath.Clean(audioRoot)
	absRoot, err := filepath.Abs(cleanRoot)
	if err != nil {
		logger.Printf("warning: unable to resolve absolute audio root %q: %v", audioRoot, err)
		absRoot = cleanRoot
	}

	h := &serverHandler{
		feed:      feed,
		audioRoot: absRoot,
		types:     types,
		logger:    logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/episodes", h.handleEpisodes)
	mux.HandleFunc("/feed", h.handleFeed)
	mux.HandleFunc("/feed.xml", h.handleFeed)
	mux.HandleFunc("/rss", h.handleFeed)
	mux.HandleFunc("/audio/", h.handleAudio)

	return logRequests(mux, logger)
}

func (h *serverHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (h *serverHandler) handleEpisodes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	_, episodes, ok := h.feed.CurrentFeed()
	if !ok {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(episodes); err != nil {
		h.logger.Printf("failed to encode episodes: %v", err)
	}
}

func (h *serverHandler) handleFeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	data, _, ok := h.feed.CurrentFeed()
	if !ok {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", rss.ContentType)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(data); err != nil {
		h.logger.Printf("failed to write RSS feed: %v", err)
	}
}

func (h *serverHandler) handleAudio(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	rel := strings.TrimPrefix(r.URL.Path, "/audio/")
	rel = pathpkg.Clean("/" + rel)
	rel = strings.TrimPrefix(rel, "/")
	// Only direct children of the root are published.
	if rel == "" || rel == "." || strings.Contains(rel, "/") || !h.types.Supports(rel) {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	target := filepath.Join(h.audioRoot, filepath.FromSlash(rel))
	resolved, err := filepath.Abs(target)
	if err != nil {
		h.logger.Printf("failed to resolve audio path %s: %v", target, err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if !pathWithinRoot(h.audioRoot, resolved) {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	info, err := os.Stat(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.logger.Printf("failed to stat audio file %s: %v", resolved, err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if info.IsDir() {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if mimeType, ok := h.types.Lookup(rel); ok {
		w.Header().Set("Content-Type", mimeType)
	}
	http.ServeFile(w, r, resolved)
}

type statusWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.size += n
	return n, err
}

func logRequests(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sw, r)
		duration := time.Since(start)
		logger.Printf("%s %s -> %d (%dB) in %s", r.Method, r.URL.Path, sw.status, sw.size, duration)
	})
}

func pathWithinRoot(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	return rel != ".." && !strings.HasPrefix(rel, "../")
}
