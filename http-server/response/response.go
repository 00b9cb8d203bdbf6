package response

import (
	"net/http"

	"github.com/go-chi/render"
)

const (
	StatusOK    = "OK"
	StatusError = "Error"
)

// Response: единый конверт ответа {"status": "...", "data": ..., "error": "..."}.
type Response struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

func OK(w http.ResponseWriter, r *http.Request, data any) {
	render.JSON(w, r, Response{Status: StatusOK, Data: data})
}

func Error(w http.ResponseWriter, r *http.Request, code int, msg string) {
	render.Status(r, code)
	render.JSON(w, r, Response{Status: StatusError, Error: msg})
}
