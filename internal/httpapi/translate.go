package httpapi

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/tonsurance/hedgeplane/internal/apperr"
)

// translate is the single place an *apperr.Error becomes an HTTP response
// (spec §7). Handlers never call huma.Error*/http.Error directly; they
// construct an *apperr.Error and hand it to translate on the way out.
func translate(err error) error {
	if err == nil {
		return nil
	}

	appErr := apperr.As(err)

	if appErr.Cause != nil {
		return huma.NewError(apperr.HTTPStatus(appErr.Kind), appErr.Message, appErr.Cause)
	}

	return huma.NewError(apperr.HTTPStatus(appErr.Kind), appErr.Message)
}
