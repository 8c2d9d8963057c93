package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/Benso1tana/MusicMasher/core/audio"
	"github.com/Benso1tana/MusicMasher/core/engine"
	"github.com/Benso1tana/MusicMasher/logger"
)

// maxUploadBytes bounds one imported file (decoded PCM lives in memory).
const maxUploadBytes = 256 << 20

// APIHandler serves the timeline editing API for one session.
type APIHandler struct {
	session *engine.Session
	hub     *Hub
}

// NewAPIHandler creates the handler set around a session and its hub.
func NewAPIHandler(session *engine.Session, hub *Hub) *APIHandler {
	return &APIHandler{session: session, hub: hub}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The UI may be served from a dev server on another origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type valueRequest struct {
	Value float64 `json:"value"`
}

type seekRequest struct {
	Position float64 `json:"position"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// UploadTrackHandler imports a multipart file as a new track. Responds 201
// with the new track id, or 422 when the decoder rejects the file (the
// track never appears).
func (h *APIHandler) UploadTrackHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read upload")
		return
	}

	name := r.FormValue("name")
	if name == "" {
		name = header.Filename
	}

	id, err := h.session.Import(r.Context(), name, raw)
	if err != nil {
		var decodeErr *audio.DecodeError
		if errors.As(err, &decodeErr) {
			writeError(w, http.StatusUnprocessableEntity, decodeErr.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "import failed")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// GetTracksHandler lists the tracks in display order.
func (h *APIHandler) GetTracksHandler(w http.ResponseWriter, r *http.Request) {
	snap := h.session.Snapshot()
	writeJSON(w, http.StatusOK, snap.Tracks)
}

// GetTimelineHandler returns the full session snapshot.
func (h *APIHandler) GetTimelineHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.session.Snapshot())
}

// TrackAudioHandler serves a track's decoded audio as a WAV file, the form
// browser clients cache to build playback sources from.
func (h *APIHandler) TrackAudioHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	buf := h.session.TrackBuffer(id)
	if buf == nil {
		writeError(w, http.StatusNotFound, "track not found or not yet decoded")
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Cache-Control", "public, max-age=31536000") // buffers are immutable
	w.Write(audio.EncodeWAV(buf))
}

// DeleteTrackHandler stops and removes a track.
func (h *APIHandler) DeleteTrackHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !h.session.RemoveTrack(id) {
		writeError(w, http.StatusNotFound, "track not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetOffsetHandler repositions a clip on the timeline.
func (h *APIHandler) SetOffsetHandler(w http.ResponseWriter, r *http.Request) {
	var req valueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if !h.session.SetTrackOffset(mux.Vars(r)["id"], req.Value) {
		writeError(w, http.StatusNotFound, "track not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetGainHandler sets a track's volume; sounding sources pick it up live.
func (h *APIHandler) SetGainHandler(w http.ResponseWriter, r *http.Request) {
	var req valueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if !h.session.SetTrackGain(mux.Vars(r)["id"], req.Value) {
		writeError(w, http.StatusNotFound, "track not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleMuteHandler flips a track's mute flag.
func (h *APIHandler) ToggleMuteHandler(w http.ResponseWriter, r *http.Request) {
	if !h.session.ToggleMute(mux.Vars(r)["id"]) {
		writeError(w, http.StatusNotFound, "track not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleSoloHandler flips a track's solo flag.
func (h *APIHandler) ToggleSoloHandler(w http.ResponseWriter, r *http.Request) {
	if !h.session.ToggleSolo(mux.Vars(r)["id"]) {
		writeError(w, http.StatusNotFound, "track not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PlayHandler starts or resumes playback.
func (h *APIHandler) PlayHandler(w http.ResponseWriter, r *http.Request) {
	h.session.Play()
	w.WriteHeader(http.StatusNoContent)
}

// PauseHandler freezes playback at the current position.
func (h *APIHandler) PauseHandler(w http.ResponseWriter, r *http.Request) {
	h.session.Pause()
	w.WriteHeader(http.StatusNoContent)
}

// StopHandler halts playback and rewinds.
func (h *APIHandler) StopHandler(w http.ResponseWriter, r *http.Request) {
	h.session.Stop()
	w.WriteHeader(http.StatusNoContent)
}

// SeekHandler jumps the transport.
func (h *APIHandler) SeekHandler(w http.ResponseWriter, r *http.Request) {
	var req seekRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	h.session.Seek(req.Position)
	w.WriteHeader(http.StatusNoContent)
}

// ZoomHandler sets the display scale.
func (h *APIHandler) ZoomHandler(w http.ResponseWriter, r *http.Request) {
	var req valueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	h.session.SetZoom(req.Value)
	w.WriteHeader(http.StatusNoContent)
}

// ClearHandler empties the timeline.
func (h *APIHandler) ClearHandler(w http.ResponseWriter, r *http.Request) {
	h.session.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// WSHandler upgrades a browser connection and wires its pumps. Inbound
// `ended` reports are routed to the scheduler's registry.
func (h *APIHandler) WSHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", logger.ErrorField(err))
		return
	}

	client := &Client{hub: h.hub, conn: conn, send: make(chan []byte, 256)}
	h.hub.register <- client

	go client.WritePump()
	go client.ReadPump(h.handleClientMessage)

	// New clients need the current state before the next mutation.
	snap := h.session.Snapshot()
	if payload, err := json.Marshal(snap); err == nil {
		if frame, err := json.Marshal(&WSMessage{Type: MsgTypeSnapshot, Data: payload}); err == nil {
			select {
			case client.send <- frame:
			default:
			}
		}
	}
}

func (h *APIHandler) handleClientMessage(c *Client, msg *WSMessage) {
	switch msg.Type {
	case MsgTypeEnded:
		var data EndedData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			logger.Warn("invalid ended report", logger.ErrorField(err))
			return
		}
		h.session.HandleEnded(data.TrackID, sourceRef{id: data.SourceID, trackID: data.TrackID})
	default:
		logger.Debug("unhandled ws message", logger.String("type", string(msg.Type)))
	}
}
