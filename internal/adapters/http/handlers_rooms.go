package httpadapter

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/kirillkom/cleanout-estimator/internal/core/domain"
	"github.com/kirillkom/cleanout-estimator/internal/core/ports"
)

const multipartOverheadBytes = 1 << 20

func (rt *Router) createRoom(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, rt.maxImageBytes+multipartOverheadBytes)
	if err := r.ParseMultipartForm(rt.maxImageBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, r, domain.InvalidInput("create room", "upload exceeds %d bytes", rt.maxImageBytes))
			return
		}
		writeBadRequest(w, r, "multipart form is required")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeBadRequest(w, r, "multipart field 'image' is required")
		return
	}
	defer file.Close()

	position := 0
	if raw := strings.TrimSpace(r.FormValue("position")); raw != "" {
		position, err = strconv.Atoi(raw)
		if err != nil || position < 0 {
			writeBadRequest(w, r, "position must be a non-negative integer")
			return
		}
	}

	room, err := rt.rooms.CreateRoom(r.Context(), ports.RoomUpload{
		JobID:       r.FormValue("job_id"),
		Name:        r.FormValue("name"),
		Position:    position,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRoomResponse(room))
}

func (rt *Router) getRoom(w http.ResponseWriter, r *http.Request) {
	room, err := rt.rooms.GetRoom(r.Context(), urlID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRoomResponse(room))
}

func (rt *Router) listRooms(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rooms, err := rt.rooms.ListRooms(r.Context(), strings.TrimSpace(r.URL.Query().Get("job_id")), page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	items := make([]roomResponse, 0, len(rooms))
	for i := range rooms {
		items = append(items, toRoomResponse(&rooms[i]))
	}
	writeJSON(w, http.StatusOK, listResponse[roomResponse]{
		Items:  items,
		Limit:  page.Limit,
		Offset: page.Offset,
	})
}

func (rt *Router) deleteRoom(w http.ResponseWriter, r *http.Request) {
	if err := rt.rooms.DeleteRoom(r.Context(), urlID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) overrideRoom(w http.ResponseWriter, r *http.Request) {
	var req overrideRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		writeError(w, r, err)
		return
	}

	room, err := rt.rooms.OverrideRoom(r.Context(), urlID(r), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRoomResponse(room))
}

func (rt *Router) setRoomAdjustments(w http.ResponseWriter, r *http.Request) {
	var req adjustmentsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	room, err := rt.rooms.SetRoomAdjustments(r.Context(), urlID(r), toDomainAdjustments(req.Adjustments))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRoomResponse(room))
}

// reprocessRoom reclassifies inline by default. With mode=async the request
// is queued for the worker and answered with 202.
func (rt *Router) reprocessRoom(w http.ResponseWriter, r *http.Request) {
	id := urlID(r)
	switch mode := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("mode"))); mode {
	case "", "sync":
		room, err := rt.rooms.ReprocessRoom(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toRoomResponse(room))
	case "async":
		requestID := requestIDFromContext(r.Context())
		if err := rt.rooms.EnqueueReprocess(r.Context(), id, requestID); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{
			"room_id":    id,
			"status":     "queued",
			"request_id": requestID,
		})
	default:
		writeBadRequest(w, r, "mode must be sync or async")
	}
}
