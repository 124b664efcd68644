package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/gray-logic-simulator/internal/client"
	"github.com/nerrad567/gray-logic-simulator/internal/engine"
	"github.com/nerrad567/gray-logic-simulator/internal/history"
	"github.com/nerrad567/gray-logic-simulator/internal/simulator"
)

// Error is the body of every error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorCodes names the statuses the API answers with.
var errorCodes = map[int]string{
	http.StatusBadRequest:          "bad_request",
	http.StatusUnauthorized:        "unauthorised",
	http.StatusNotFound:            "not_found",
	http.StatusConflict:            "conflict",
	http.StatusServiceUnavailable:  "unavailable",
	http.StatusInternalServerError: "internal_error",
}

// domainErrors maps package sentinels onto statuses. The first match wins;
// anything unmatched is a 500.
var domainErrors = []struct {
	status int
	errs   []error
}{
	{http.StatusNotFound, []error{simulator.ErrResourceNotFound, client.ErrRemoteNotFound, history.ErrNotFound}},
	{http.StatusConflict, []error{client.ErrOperationInProgress, simulator.ErrAttributeExists}},
	{http.StatusBadRequest, []error{
		simulator.ErrInvalidArgument, simulator.ErrUnknownAttribute, simulator.ErrRejectedValue,
		client.ErrInvalidArgument, client.ErrNoRequestModel, history.ErrInvalidRecord,
	}},
	{http.StatusServiceUnavailable, []error{engine.ErrNoPlatform}},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v) //nolint:errcheck // client may be gone
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	code, ok := errorCodes[status]
	if !ok {
		code = "error"
	}
	writeJSON(w, status, Error{Status: status, Code: code, Message: message})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, message)
}

func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, message)
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, message)
}

func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, message)
}

// writeDomainError answers with the status domainErrors assigns to err.
func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, domainStatus(err), err.Error())
}

func domainStatus(err error) int {
	for _, d := range domainErrors {
		for _, target := range d.errs {
			if errors.Is(err, target) {
				return d.status
			}
		}
	}
	return http.StatusInternalServerError
}
