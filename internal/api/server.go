package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Dharanishnatarajan/Warm-Call-Transfer/internal/call"
	"github.com/Dharanishnatarajan/Warm-Call-Transfer/internal/session"
	"github.com/Dharanishnatarajan/Warm-Call-Transfer/internal/summarizer"
	"github.com/Dharanishnatarajan/Warm-Call-Transfer/internal/token"
	"github.com/Dharanishnatarajan/Warm-Call-Transfer/internal/transfer"
)

type Server struct {
	calls     *call.Manager
	transfers *transfer.Orchestrator
	issuer    *token.Issuer
	gateway   summarizer.Gateway
	store     *session.Store
	llmReady  bool
	port      int
	router    chi.Router
}

func NewServer(calls *call.Manager, transfers *transfer.Orchestrator, issuer *token.Issuer, gateway summarizer.Gateway, store *session.Store, llmReady bool, port int) *Server {
	srv := &Server{
		calls:     calls,
		transfers: transfers,
		issuer:    issuer,
		gateway:   gateway,
		store:     store,
		llmReady:  llmReady,
		port:      port,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(corsMiddleware)

	r.Get("/", srv.handleRoot)
	r.Get("/health", srv.handleHealth)
	r.Get("/token", srv.handleToken)

	r.Post("/call/start", srv.handleStartCall)
	r.Post("/call/end", srv.handleEndCall)
	r.Get("/calls/latest", srv.handleLatestCall)
	r.Get("/calls/active", srv.handleActiveCalls)

	r.Post("/summarize", srv.handleSummarize)

	r.Post("/transfer", srv.handleInitiateTransfer)
	r.Post("/transfer/complete", srv.handleCompleteTransfer)
	r.Get("/transfers/active", srv.handleActiveTransfers)
	r.Get("/transfer/{transferID}", srv.handleGetTransfer)

	r.Get("/caller/{callerName}/transfer-status", srv.handleCallerStatus)
	r.Get("/agent/{agentName}/transfer-status", srv.handleAgentStatus)

	r.Post("/room/participants", srv.handleSetParticipants)
	r.Get("/room/{roomName}/participants", srv.handleGetParticipants)

	srv.router = r
	return srv
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	slog.Info("starting HTTP API", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "Warm Call Transfer API",
		"version":   "1.0.0",
		"status":    "running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":             "healthy",
		"livekit_configured": s.issuer.Configured(),
		"llm_configured":     s.llmReady,
	})
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	identity := r.URL.Query().Get("identity")
	room := r.URL.Query().Get("room")
	if identity == "" || room == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "identity and room are required"})
		return
	}

	creds, err := s.issuer.Issue(identity, room)
	if err != nil {
		s.writeError(w, err)
		return
	}

	slog.Info("token issued", "identity", identity, "room", room)
	writeJSON(w, http.StatusOK, map[string]any{
		"token":    creds.Token,
		"url":      creds.URL,
		"identity": identity,
		"room":     room,
	})
}

func (s *Server) handleStartCall(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CallerName string            `json:"caller_name"`
		CallerInfo map[string]string `json:"caller_info"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	res, err := s.calls.Start(body.CallerName, body.CallerInfo)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"call_id":       res.Call.ID,
		"room_name":     res.Call.RoomName,
		"caller_name":   res.Call.CallerName,
		"caller_token":  res.CallerCreds.Token,
		"agent_a_token": res.AgentACreds.Token,
		"livekit_url":   res.CallerCreds.URL,
		"status":        "initiated",
	})
}

func (s *Server) handleEndCall(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CallID string `json:"call_id"`
	}
	if err := decodeBody(r, &body); err != nil || body.CallID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "call_id is required"})
		return
	}

	if _, err := s.calls.End(body.CallID); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "call_ended", "call_id": body.CallID})
}

func (s *Server) handleLatestCall(w http.ResponseWriter, r *http.Request) {
	c, err := s.calls.Latest()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"call_id":     c.ID,
		"room_name":   c.RoomName,
		"caller_name": c.CallerName,
		"status":      c.Status,
		"created_at":  c.CreatedAt,
	})
}

func (s *Server) handleActiveCalls(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"active_calls": s.calls.All()})
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CallID     string            `json:"call_id"`
		Transcript string            `json:"transcript"`
		CallerInfo map[string]string `json:"caller_info"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if body.Transcript == "" {
		writeJSON(w, http.StatusOK, map[string]string{"summary": "No transcript provided for summary generation."})
		return
	}

	// Persist the transcript on the session when one is named; an unknown
	// call id does not invalidate the summarize request itself.
	if body.CallID != "" {
		if err := s.calls.SubmitTranscript(body.CallID, body.Transcript); err != nil &&
			!errors.Is(err, session.ErrNotFound) {
			s.writeError(w, err)
			return
		}
	}

	summary, err := s.gateway.Summarize(r.Context(), body.Transcript, body.CallerInfo)
	if err != nil {
		// Gateway trouble is absorbed, never propagated.
		slog.Warn("summary generation failed", "call_id", body.CallID, "error", err)
		summary = "Unable to generate summary due to an upstream error."
	}
	writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

func (s *Server) handleInitiateTransfer(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := transfer.InitiateRequest{
		OriginalRoom: q.Get("original_room"),
		TransferRoom: q.Get("new_room"),
		AgentA:       q.Get("agent_a"),
		AgentB:       q.Get("agent_b"),
		Transcript:   q.Get("transcript"),
		CallerName:   q.Get("caller_name"),
	}
	if req.OriginalRoom == "" || req.TransferRoom == "" || req.AgentA == "" || req.AgentB == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "original_room, new_room, agent_a and agent_b are required"})
		return
	}
	if req.CallerName == "" {
		req.CallerName = "Unknown Caller"
	}

	res, err := s.transfers.Initiate(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"transfer_id":           res.Transfer.ID,
		"agentA_transfer_token": res.AgentACreds.Token,
		"agentB_token":          res.AgentBCreds.Token,
		"caller_token":          res.CallerCreds.Token,
		"transfer_room":         res.Transfer.TransferRoom,
		"livekit_url":           res.CallerCreds.URL,
		"summary":               res.Transfer.Summary,
		"agent_script":          res.Transfer.AgentScript,
		"status":                "initiated",
	})
}

func (s *Server) handleCompleteTransfer(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TransferID string `json:"transfer_id"`
		CallerName string `json:"caller_name"`
		AgentB     string `json:"agent_b"`
	}
	if err := decodeBody(r, &body); err != nil || body.TransferID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "transfer_id is required"})
		return
	}

	res, err := s.transfers.Complete(body.TransferID, body.CallerName, body.AgentB)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "transfer_completed",
		"caller_token": res.CallerCreds.Token,
		"final_room":   res.Transfer.TransferRoom,
		"agent_b":      res.Transfer.AgentB,
		"livekit_url":  res.CallerCreds.URL,
	})
}

func (s *Server) handleActiveTransfers(w http.ResponseWriter, r *http.Request) {
	active := s.transfers.Active()
	if active == nil {
		active = []transfer.Summary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"active_transfers": active})
}

func (s *Server) handleGetTransfer(w http.ResponseWriter, r *http.Request) {
	t, err := s.transfers.Get(chi.URLParam(r, "transferID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleCallerStatus(w http.ResponseWriter, r *http.Request) {
	pr, ok := s.transfers.StatusForCaller(chi.URLParam(r, "callerName"))
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"transfer_complete": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"transfer_complete": true,
		"transfer_id":       pr.TransferID,
		"final_room":        pr.FinalRoom,
		"agent_b":           pr.AgentB,
		"caller_token":      pr.Credentials.Token,
		"livekit_url":       pr.Credentials.URL,
	})
}

func (s *Server) handleAgentStatus(w http.ResponseWriter, r *http.Request) {
	pr, ok := s.transfers.StatusForAgent(chi.URLParam(r, "agentName"))
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"transfer_complete": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"transfer_complete": true,
		"transfer_id":       pr.TransferID,
		"final_room":        pr.FinalRoom,
		"caller_name":       pr.CallerName,
		"agent_token":       pr.Credentials.Token,
		"livekit_url":       pr.Credentials.URL,
	})
}

func (s *Server) handleSetParticipants(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RoomName     string   `json:"room_name"`
		Participants []string `json:"participants"`
	}
	if err := decodeBody(r, &body); err != nil || body.RoomName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "room_name is required"})
		return
	}

	s.store.SetParticipants(body.RoomName, body.Participants)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "updated",
		"room":         body.RoomName,
		"participants": body.Participants,
	})
}

func (s *Server) handleGetParticipants(w http.ResponseWriter, r *http.Request) {
	room := chi.URLParam(r, "roomName")
	writeJSON(w, http.StatusOK, map[string]any{
		"room":         room,
		"participants": s.store.Participants(room),
	})
}

// writeError maps domain errors to HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, transfer.ErrSameRoom):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, token.ErrNotConfigured):
		slog.Error("credential issuance unavailable", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "media credentials not configured"})
	default:
		slog.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// corsMiddleware admits the local frontend origins used by the agent and
// caller consoles.
func corsMiddleware(next http.Handler) http.Handler {
	allowed := map[string]bool{
		"http://localhost:3000": true,
		"http://localhost:3001": true,
		"http://localhost:3002": true,
		"http://127.0.0.1:3000": true,
		"http://127.0.0.1:3001": true,
		"http://127.0.0.1:3002": true,
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); allowed[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
