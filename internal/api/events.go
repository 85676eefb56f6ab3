package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/kalambet/blueprint/internal/jobs"
	"github.com/kalambet/blueprint/internal/storage"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// handleRunEvents streams a run's progress events over a websocket. The
// first message is always "subscribed"; the socket closes after the run's
// completed or failed event.
func handleRunEvents(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Events == nil {
			httpError(w, http.StatusServiceUnavailable, "unavailable_error", "run events are not enabled")
			return
		}
		id := chi.URLParam(r, "id")
		if _, err := deps.Store.GetRun(id); errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "run not found")
			return
		} else if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "loading run: %v", err)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already written the error response.
			return
		}
		defer conn.Close()

		events, cancel := deps.Events.Subscribe(id)
		defer cancel()
		streamRunEvents(conn, deps.Store, id, events)
	}
}

func streamRunEvents(conn *websocket.Conn, store *storage.Store, runID string, events <-chan jobs.Event) {
	send := func(e jobs.Event) error {
		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(e)
	}
	closeNormal := func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteWait))
	}

	if err := send(jobs.Event{Type: jobs.EventSubscribed, RunID: runID}); err != nil {
		return
	}

	// The run may have finished between the lookup and the subscription.
	run, err := store.GetRun(runID)
	if err != nil {
		return
	}
	switch run.Status {
	case storage.RunCompleted:
		send(jobs.Event{Type: jobs.EventCompleted, RunID: runID, Path: run.Root})
		closeNormal()
		return
	case storage.RunFailed:
		send(jobs.Event{Type: jobs.EventFailed, RunID: runID, Error: run.Error})
		closeNormal()
		return
	}

	// Clients send nothing but control frames; reading keeps pongs and
	// close frames flowing.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-gone:
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := send(e); err != nil {
				return
			}
			if e.Terminal() {
				closeNormal()
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}
