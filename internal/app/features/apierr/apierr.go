// Package apierr renders errors from the broker and stores as JSON
// responses with appropriate HTTP status codes.
package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dalemusser/civihub/internal/app/broker"
	groupstore "github.com/dalemusser/civihub/internal/app/store/groups"
	membershipstore "github.com/dalemusser/civihub/internal/app/store/memberships"
	userstore "github.com/dalemusser/civihub/internal/app/store/users"
	"github.com/dalemusser/civihub/internal/app/system/authz"
	"go.uber.org/zap"
)

// response is the JSON body for every error this package writes.
type response struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Write maps err to an HTTP status and writes a JSON error body.
// Unknown errors become 500 with a generic message and are logged.
func Write(w http.ResponseWriter, log *zap.Logger, err error) {
	status, code, msg := classify(err)
	if status == http.StatusInternalServerError && log != nil {
		log.Error("request failed", zap.Error(err))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response{Error: msg, Code: code})
}

func classify(err error) (status int, code, msg string) {
	var denied *authz.AccessDeniedError
	if errors.As(err, &denied) {
		return http.StatusForbidden, "access_denied", denied.Error()
	}
	var validation *broker.ValidationError
	if errors.As(err, &validation) {
		return http.StatusUnprocessableEntity, "validation_failed", validation.Error()
	}
	var invalid *broker.InvalidArgumentError
	if errors.As(err, &invalid) {
		return http.StatusBadRequest, "invalid_argument", invalid.Error()
	}
	var quota *broker.GroupSizeLimitExceededError
	if errors.As(err, &quota) {
		return http.StatusConflict, "group_size_limit", quota.Error()
	}
	var deact *broker.DeactivationNotAvailableError
	if errors.As(err, &deact) {
		return http.StatusConflict, "deactivation_not_available", deact.Error()
	}
	var token *broker.InvalidTokenError
	if errors.As(err, &token) {
		return http.StatusForbidden, "invalid_join_code", token.Error()
	}
	switch {
	case errors.Is(err, groupstore.ErrNotFound),
		errors.Is(err, membershipstore.ErrNotFound),
		errors.Is(err, userstore.ErrNotFound):
		return http.StatusNotFound, "not_found", err.Error()
	case errors.Is(err, membershipstore.ErrDuplicateMembership):
		return http.StatusConflict, "already_member", err.Error()
	}
	return http.StatusInternalServerError, "internal", "internal server error"
}
