package controlplane

import (
	"errors"
	"net/http"

	"github.com/fentz26/dagsmith/internal/deploy"
	"github.com/fentz26/dagsmith/internal/models"
	"github.com/fentz26/dagsmith/internal/store"
)

// Sentinel errors for control plane operations.
var (
	ErrBadRequest = errors.New("bad request")
	ErrNotFound   = errors.New("resource not found")
)

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrProjectNotFound),
		errors.Is(err, store.ErrDeploymentNotFound),
		errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidConfig),
		errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, deploy.ErrStepIncomplete),
		errors.Is(err, deploy.ErrNoPrevious),
		errors.Is(err, deploy.ErrTerminal),
		errors.Is(err, store.ErrDeploymentChanged):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
