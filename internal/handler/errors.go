package handler

import (
	"errors"

	"trendyol-sync-api/internal/model"
	"trendyol-sync-api/internal/service"
	"trendyol-sync-api/internal/trendyol"
	"trendyol-sync-api/pkg/apierror"
)

// mapError translates service/transport errors into structured API errors.
func mapError(err error) *apierror.Error {
	var apiErr *apierror.Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var remoteErr *trendyol.APIError
	switch {
	case errors.Is(err, service.ErrSyncInProgress):
		return apierror.SyncInProgress("")
	case errors.Is(err, service.ErrNotFound):
		return apierror.NotFound("")
	case errors.Is(err, service.ErrInvalidSignature):
		return apierror.Unauthorized("Invalid signature")
	case errors.Is(err, service.ErrNotRetryable):
		return apierror.Conflict(err.Error())
	case errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrMissingCredentials),
		errors.Is(err, model.ErrMissingKey),
		errors.Is(err, model.ErrInvalidQuantity),
		errors.Is(err, model.ErrInvalidPrice),
		errors.Is(err, model.ErrEmptyRecord):
		return apierror.ValidationError(err.Error())
	case errors.As(err, &remoteErr):
		return apierror.RemoteUnavailable(err.Error())
	}
	return apierror.InternalError("")
}
