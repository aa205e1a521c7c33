package scoreboard

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
)

// Server exposes the engine over HTTP. It is a thin caller: all state
// lives in the engine, handlers only translate JSON and status codes.
type Server struct {
	engine *Engine
	log    *slog.Logger

	// baseURL is what TV links and QR payloads are built from, e.g.
	// "https://padelcast.example.com".
	baseURL string
}

func NewServer(engine *Engine, log *slog.Logger, baseURL string) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{engine: engine, log: log, baseURL: baseURL}
}

func (s *Server) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/generate-code", s.handleGenerateCode).Methods(http.MethodPost)
	r.HandleFunc("/api/tv-session", s.handleTVSession).Methods(http.MethodPost)
	r.HandleFunc("/api/link-tv", s.handleLinkTV).Methods(http.MethodPost)
	r.HandleFunc("/api/unlink-tv", s.handleUnlinkTV).Methods(http.MethodPost)
	r.HandleFunc("/api/update-match", s.handleUpdateMatch).Methods(http.MethodPost)
	r.HandleFunc("/api/match-status/{address}", s.handleMatchStatus).Methods(http.MethodGet)
	r.HandleFunc("/ws/{address}", s.handleWS).Methods(http.MethodGet)
}

func (s *Server) displayURL(address string) string {
	return s.baseURL + "/tv/" + address
}

func (s *Server) handleGenerateCode(w http.ResponseWriter, r *http.Request) {
	var settings MatchSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json")
		return
	}

	code, matchID := s.engine.CreateMatch(settings)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"code":     code,
		"match_id": matchID,
		"tv_url":   s.displayURL(code),
	})
}

// handleTVSession issues an unbound session for a booting display. The
// returned tv_url is what the display encodes into its QR code; the image
// itself is rendered client-side.
func (s *Server) handleTVSession(w http.ResponseWriter, r *http.Request) {
	id := s.engine.IssueSession()
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"tv_id":   id,
		"tv_url":  s.displayURL(id),
	})
}

type linkTVRequest struct {
	TVID      string        `json:"tv_id"`
	MatchData MatchSettings `json:"match_data"`
}

func (s *Server) handleLinkTV(w http.ResponseWriter, r *http.Request) {
	var req linkTVRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json")
		return
	}
	if req.TVID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "tv_id is required")
		return
	}

	matchID, err := s.engine.LinkSession(req.TVID, req.MatchData)
	switch {
	case errors.Is(err, ErrAddressNotFound):
		writeError(w, http.StatusBadRequest, "invalid_tv_id", "unknown or expired tv_id")
		return
	case errors.Is(err, ErrAlreadyLinked):
		writeError(w, http.StatusConflict, "already_linked", "unlink the current match first")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal", "link failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"match_id": matchID,
	})
}

type unlinkTVRequest struct {
	TVID string `json:"tv_id"`
}

func (s *Server) handleUnlinkTV(w http.ResponseWriter, r *http.Request) {
	var req unlinkTVRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json")
		return
	}

	fresh, err := s.engine.UnlinkSession(req.TVID)
	if errors.Is(err, ErrAddressNotFound) {
		writeError(w, http.StatusBadRequest, "invalid_tv_id", "unknown or expired tv_id")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "unlink failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"tv_id":   fresh,
		"tv_url":  s.displayURL(fresh),
	})
}

func (s *Server) handleUpdateMatch(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "cannot read body")
		return
	}

	var addr struct {
		Code string `json:"code"`
		TVID string `json:"tv_id"`
	}
	if err := json.Unmarshal(body, &addr); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json")
		return
	}
	address := addr.Code
	if address == "" {
		address = addr.TVID
	}
	if address == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "code or tv_id is required")
		return
	}

	upd, fieldErrs, err := ParseUpdate(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json")
		return
	}

	switch err := s.engine.SubmitUpdate(address, upd); {
	case errors.Is(err, ErrAddressNotFound):
		writeError(w, http.StatusNotFound, "invalid_code", "unknown or expired code")
		return
	case errors.Is(err, ErrNoMatchLinked):
		writeError(w, http.StatusConflict, "not_linked", "no match linked to this tv yet")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal", "update failed")
		return
	}

	resp := map[string]any{"success": true}
	if len(fieldErrs) > 0 {
		resp["invalid_fields"] = fieldErrs
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMatchStatus(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	payload, err := s.engine.Snapshot(address)
	switch {
	case errors.Is(err, ErrAddressNotFound):
		writeError(w, http.StatusNotFound, "invalid_code", "unknown or expired code")
		return
	case errors.Is(err, ErrNoMatchLinked):
		writeError(w, http.StatusConflict, "not_linked", "no match linked to this tv yet")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal", "status failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"match":   payload,
	})
}

type errorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, errCode, msg string) {
	writeJSON(w, code, errorResponse{Code: errCode, Message: msg})
}
