// Package stream adapts a terminal session's single-consumer output into a
// server-sent event stream for one remote client at a time.
package stream

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rohittcodes/flashio-sub001/internal/logging"
	"github.com/rohittcodes/flashio-sub001/internal/metrics"
	"go.uber.org/zap"
)

var (
	// ErrStreamBusy means the session output lease is already held.
	ErrStreamBusy = errors.New("session output stream already attached")
	// ErrStreamUnsupported means the response writer cannot flush events.
	ErrStreamUnsupported = errors.New("response writer does not support streaming")
)

const (
	EventOutput = "output"
	EventEnd    = "end"
	EventError  = "error"
)

// Source is a session whose output can be leased by exactly one consumer.
type Source interface {
	AcquireOutput() (<-chan []byte, func(), error)
	Err() error
}

// payload is one SSE event body. Output bytes travel base64-encoded so raw
// terminal escape sequences survive the JSON framing.
type payload struct {
	SessionID string `json:"sessionId"`
	Data      string `json:"data,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Relay forwards session output to the client as SSE events until the
// source ends, a read error occurs, or the client disconnects. The output
// lease is held for the life of the connection and released on return.
func Relay(w http.ResponseWriter, r *http.Request, sessionID string, src Source) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return ErrStreamUnsupported
	}

	out, release, err := src.AcquireOutput()
	if err != nil {
		return ErrStreamBusy
	}
	defer release()

	metrics.StreamAttached()
	defer metrics.StreamDetached()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			// Client went away; drop the lease so a new subscriber can
			// attach.
			logging.Debug("stream client disconnected",
				zap.String("sessionId", sessionID))
			return nil
		case chunk, open := <-out:
			if !open {
				if srcErr := src.Err(); srcErr != nil {
					writeEvent(w, EventError, payload{SessionID: sessionID, Message: srcErr.Error()})
					flusher.Flush()
					return srcErr
				}
				writeEvent(w, EventEnd, payload{SessionID: sessionID})
				flusher.Flush()
				return nil
			}
			writeEvent(w, EventOutput, payload{
				SessionID: sessionID,
				Data:      base64.StdEncoding.EncodeToString(chunk),
			})
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, event string, p payload) {
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}
