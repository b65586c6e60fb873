package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/parkdir/parkdir/internal/address"
	"github.com/parkdir/parkdir/internal/registry"
	"github.com/parkdir/parkdir/internal/session"
)

// API exposes a server browser session over HTTP
type API struct {
	session  *session.Session
	limiters *clientLimiters
}

// New creates an API handler. refreshRate and refreshBurst bound how often
// each client may trigger a directory refresh.
func New(sess *session.Session, refreshRate float64, refreshBurst int) *API {
	return &API{
		session:  sess,
		limiters: newClientLimiters(refreshRate, refreshBurst),
	}
}

// Router creates the API router
func (a *API) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	// Routes
	r.Get("/servers", a.listServers)
	r.Get("/servers/{index}", a.getServer)
	r.Post("/servers/{index}/join", a.joinServer)
	r.Post("/servers/{index}/favourite", a.toggleFavourite)
	r.Get("/status", a.getStatus)
	r.With(a.limiters.limit).Post("/refresh", a.refresh)
	r.Post("/favourites", a.addFavourite)
	r.Delete("/favourites", a.removeFavourite)
	r.Post("/join", a.joinAddress)
	r.Put("/player", a.setPlayerName)

	return r
}

// Response wraps API responses
type Response struct {
	Data  interface{} `json:"data,omitempty"`
	Meta  *Meta       `json:"meta,omitempty"`
	Error *ErrorMsg   `json:"error,omitempty"`
}

// Meta describes the list a response was taken from
type Meta struct {
	Total         int    `json:"total"`
	PlayersOnline int    `json:"players_online"`
	Status        string `json:"status"`
	Time          string `json:"timestamp"`
}

// ErrorMsg represents an error response
type ErrorMsg struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ServerView is a server as listed by the API
type ServerView struct {
	Index int `json:"index"`
	registry.Server
	Compatibility string `json:"compatibility"`
	PlayerCount   string `json:"player_count,omitempty"`
	Joinable      bool   `json:"joinable"`
}

// StatusView is the body of GET /status
type StatusView struct {
	State         string `json:"state"`
	Status        string `json:"status"`
	Text          string `json:"text"`
	PlayersOnline int    `json:"players_online"`
	PlayerName    string `json:"player_name"`
	Directory     string `json:"directory"`
	LocalVersion  string `json:"local_version"`
}

type addressRequest struct {
	Address string `json:"address"`
}

type playerRequest struct {
	Name string `json:"name"`
}

func (a *API) view(i int, s registry.Server) ServerView {
	policy := a.session.Policy()
	return ServerView{
		Index:         i,
		Server:        s,
		Compatibility: policy.Classify(s.Version).String(),
		PlayerCount:   s.PlayerCount(),
		Joinable:      policy.IsJoinable(s.Version),
	}
}

func (a *API) meta(total int) *Meta {
	snap := a.session.Status()
	return &Meta{
		Total:         total,
		PlayersOnline: snap.PlayersOnline,
		Status:        snap.Text(),
		Time:          time.Now().UTC().Format(time.RFC3339),
	}
}

// listServers handles GET /servers
func (a *API) listServers(w http.ResponseWriter, r *http.Request) {
	servers := a.session.Servers()

	views := make([]ServerView, 0, len(servers))
	for i, s := range servers {
		views = append(views, a.view(i, s))
	}

	respondJSON(w, http.StatusOK, Response{
		Data: views,
		Meta: a.meta(len(views)),
	})
}

// getServer handles GET /servers/{index}
func (a *API) getServer(w http.ResponseWriter, r *http.Request) {
	index, ok := parseIndex(w, r)
	if !ok {
		return
	}

	s, err := a.session.Server(index)
	if err != nil {
		respondSessionError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{Data: a.view(index, s)})
}

// joinServer handles POST /servers/{index}/join
func (a *API) joinServer(w http.ResponseWriter, r *http.Request) {
	index, ok := parseIndex(w, r)
	if !ok {
		return
	}

	if err := a.session.JoinIndex(r.Context(), index); err != nil {
		respondSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// toggleFavourite handles POST /servers/{index}/favourite
func (a *API) toggleFavourite(w http.ResponseWriter, r *http.Request) {
	index, ok := parseIndex(w, r)
	if !ok {
		return
	}

	s, err := a.session.Server(index)
	if err != nil {
		respondSessionError(w, err)
		return
	}
	updated, err := a.session.ToggleFavourite(r.Context(), s.Address)
	if err != nil {
		respondSessionError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{Data: updated})
}

// getStatus handles GET /status
func (a *API) getStatus(w http.ResponseWriter, r *http.Request) {
	snap := a.session.Status()

	respondJSON(w, http.StatusOK, Response{Data: StatusView{
		State:         snap.State.String(),
		Status:        snap.Status.String(),
		Text:          snap.Text(),
		PlayersOnline: snap.PlayersOnline,
		PlayerName:    a.session.PlayerName(),
		Directory:     a.session.DirectoryURL(),
		LocalVersion:  a.session.Policy().Local,
	}})
}

// refresh handles POST /refresh
func (a *API) refresh(w http.ResponseWriter, r *http.Request) {
	if !a.session.Refresh() {
		respondError(w, http.StatusServiceUnavailable, "closed", "Session is closed")
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// addFavourite handles POST /favourites
func (a *API) addFavourite(w http.ResponseWriter, r *http.Request) {
	var req addressRequest
	if !decodeBody(w, r, &req) {
		return
	}

	s, err := a.session.AddServer(r.Context(), req.Address)
	if err != nil {
		respondSessionError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, Response{Data: s})
}

// removeFavourite handles DELETE /favourites?address=host:port
func (a *API) removeFavourite(w http.ResponseWriter, r *http.Request) {
	addr := r.URL.Query().Get("address")
	if addr == "" {
		respondError(w, http.StatusBadRequest, "missing_address", "Query parameter 'address' is required")
		return
	}

	if _, err := a.session.SetFavourite(r.Context(), addr, false); err != nil {
		respondSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// joinAddress handles POST /join
func (a *API) joinAddress(w http.ResponseWriter, r *http.Request) {
	var req addressRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Address == "" {
		respondError(w, http.StatusBadRequest, "missing_address", "Field 'address' is required")
		return
	}

	if err := a.session.Join(r.Context(), req.Address); err != nil {
		respondSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// setPlayerName handles PUT /player
func (a *API) setPlayerName(w http.ResponseWriter, r *http.Request) {
	var req playerRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := a.session.SetPlayerName(req.Name); err != nil {
		respondError(w, http.StatusInternalServerError, "save_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, Response{Data: playerRequest{Name: a.session.PlayerName()}})
}

// parseIndex extracts the {index} URL parameter
func parseIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		respondError(w, http.StatusBadRequest, "invalid_index", "Invalid server index")
		return 0, false
	}
	return index, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", "Request body must be JSON")
		return false
	}
	return true
}

// respondSessionError maps session errors to HTTP statuses
func respondSessionError(w http.ResponseWriter, err error) {
	var verr *session.VersionError
	switch {
	case errors.As(err, &verr):
		respondError(w, http.StatusConflict, "incorrect_version", err.Error())
	case errors.Is(err, session.ErrNoSuchServer):
		respondError(w, http.StatusNotFound, "not_found", "Server not found")
	case errors.Is(err, address.ErrEmptyAddress):
		respondError(w, http.StatusBadRequest, "missing_address", "Address is required")
	case errors.Is(err, session.ErrUnableToConnect):
		respondError(w, http.StatusBadGateway, "unable_to_connect", err.Error())
	case errors.Is(err, session.ErrDisposed):
		respondError(w, http.StatusServiceUnavailable, "closed", "Session is closed")
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, Response{
		Error: &ErrorMsg{
			Code:    code,
			Message: message,
		},
	})
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
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
