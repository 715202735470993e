package service

import (
	"errors"

	"github.com/muni-gth/papeletas-api/internal/remote"
	appErrors "github.com/muni-gth/papeletas-api/pkg/errors"
)

// mapRemoteError translates remote client failures into the HTTP error
// taxonomy: rejections keep the remote's mensaje, anything else is a 502.
func mapRemoteError(err error) error {
	if err == nil {
		return nil
	}
	var rejected *remote.RejectedError
	if errors.As(err, &rejected) {
		return appErrors.Clone(appErrors.ErrRemoteRejected, rejected.Mensaje)
	}
	return appErrors.Wrap(err, appErrors.ErrRemoteUnavailable.Code, appErrors.ErrRemoteUnavailable.Status, appErrors.ErrRemoteUnavailable.Message)
}
