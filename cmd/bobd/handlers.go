package main

import (
	"fmt"
	"log/slog"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/HuyNguyen260398/bob"
	"github.com/HuyNguyen260398/bob/events"
	"github.com/HuyNguyen260398/bob/pkg/slogx"
	"github.com/HuyNguyen260398/bob/pkg/uuidx"
)

type chatRequest struct {
	Message  string `json:"message"`
	ThreadID string `json:"thread_id"`
}

type chatResponse struct {
	Response  string `json:"response"`
	ThreadID  string `json:"thread_id"`
	Truncated bool   `json:"truncated,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func newHandler(agent *bob.Agent) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /chat", func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeChatRequest(w, r)
		if !ok {
			return
		}

		reply, err := agent.Chat(r.Context(), req.Message, req.ThreadID)
		if err != nil {
			slog.Error("chat failed", slogx.Error(err), slogx.Thread(req.ThreadID))
			writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, chatResponse{
			Response:  reply.Content,
			ThreadID:  req.ThreadID,
			Truncated: reply.Truncated,
		})
	})

	mux.HandleFunc("POST /chat/stream", func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeChatRequest(w, r)
		if !ok {
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "streaming unsupported"})
			return
		}

		ch, err := agent.StreamChat(r.Context(), req.Message, req.ThreadID)
		if err != nil {
			writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		flusher.Flush()

		for ev := range ch {
			data, err := events.ToJSON(ev)
			if err != nil {
				slog.Error("failed to encode event", slogx.Error(err))
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	})

	mux.HandleFunc("GET /history/{thread_id}", func(w http.ResponseWriter, r *http.Request) {
		history := agent.History(r.Context(), r.PathValue("thread_id"))
		writeJSON(w, http.StatusOK, map[string]any{
			"thread_id": r.PathValue("thread_id"),
			"messages":  history,
		})
	})

	mux.HandleFunc("GET /analysis/{thread_id}", func(w http.ResponseWriter, r *http.Request) {
		threadID := r.PathValue("thread_id")
		writeJSON(w, http.StatusOK, map[string]any{
			"thread_id": threadID,
			"analysis":  agent.Analysis(r.Context(), threadID),
		})
	})

	mux.HandleFunc("GET /summary/{thread_id}", func(w http.ResponseWriter, r *http.Request) {
		threadID := r.PathValue("thread_id")
		summary, err := agent.Summary(r.Context(), threadID)
		if err != nil {
			writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"thread_id": threadID,
			"summary":   summary,
		})
	})

	mux.HandleFunc("DELETE /thread/{thread_id}", func(w http.ResponseWriter, r *http.Request) {
		threadID := r.PathValue("thread_id")
		if err := agent.DeleteThread(r.Context(), threadID); err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"deleted": threadID})
	})

	return mux
}

func decodeChatRequest(w http.ResponseWriter, r *http.Request) (chatRequest, bool) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return chatRequest{}, false
	}
	if req.Message == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "message is required"})
		return chatRequest{}, false
	}
	if req.ThreadID == "" {
		req.ThreadID = uuidx.NewString()
	}
	return req, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", slogx.Error(err))
	}
}
