package router

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/shandysiswandi/passgate/internal/pkg/goerror"
	"github.com/shandysiswandi/passgate/internal/pkg/validator"
)

type errorResponse struct {
	Message           string            `json:"message" example:"example string message"`
	Reason            string            `json:"reason,omitempty" example:"COOLDOWN_ACTIVE"`
	RetryAfterSeconds int64             `json:"retry_after_seconds,omitempty" example:"42"`
	AttemptsRemaining *int              `json:"attempts_remaining,omitempty" example:"1"`
	Error             map[string]string `json:"error,omitempty"`
}

type successResponse struct {
	Message string `json:"message" example:"example string message"`
	Data    any    `json:"data" swaggertype:"object"`
}

// encodeError renders err. Anything that is not a *goerror.Error, and every
// server error, becomes a generic 500 so internals never leak.
func encodeError(_ context.Context, w http.ResponseWriter, err error) {
	gerr, ok := goerror.As(err)
	if !ok || gerr.Type() == goerror.TypeServer {
		writeJSON(w, errorResponse{Message: "Internal server error"}, http.StatusInternalServerError)
		return
	}

	resp := errorResponse{Message: gerr.Msg()}

	var verr validator.V10ValidationError
	if errors.As(err, &verr) {
		resp.Error = verr.Values()
	} else if len(gerr.Fields()) > 0 {
		resp.Error = gerr.Fields()
	}

	if p := gerr.Policy(); p != nil {
		resp.Reason = p.Reason
		resp.AttemptsRemaining = p.AttemptsRemaining
		if p.RetryAfter > 0 {
			secs := int64(math.Ceil(p.RetryAfter.Seconds()))
			resp.RetryAfterSeconds = secs
			w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
		}
	}

	writeJSON(w, resp, gerr.StatusCode())
}

// encodeOK renders resp. Optional methods on resp: StatusCode() int,
// Message() string and Cookies() []*http.Cookie.
func encodeOK(_ context.Context, w http.ResponseWriter, resp any) {
	if c, ok := resp.(interface{ Cookies() []*http.Cookie }); ok {
		for _, cookie := range c.Cookies() {
			http.SetCookie(w, cookie)
		}
	}

	code := http.StatusOK
	if sc, ok := resp.(interface{ StatusCode() int }); ok {
		code = sc.StatusCode()
	}

	if code == http.StatusNoContent || resp == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	msg := "request has been successfully"
	if m, ok := resp.(interface{ Message() string }); ok {
		msg = m.Message()
	}

	writeJSON(w, successResponse{Message: msg, Data: resp}, code)
}

func writeJSON(w http.ResponseWriter, data any, code int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("server: failed to encode data to json", "error", err)
	}
}
