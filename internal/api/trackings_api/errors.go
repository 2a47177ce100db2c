package trackings_api

import (
	"log/slog"
	"net/http"

	"github.com/BearBump/trackrecon/internal/integrations/carrier"
	"github.com/BearBump/trackrecon/internal/models"
	"github.com/BearBump/trackrecon/internal/services/reconcile"
	"github.com/BearBump/trackrecon/internal/services/trackings"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/pkg/errors"
	"google.golang.org/grpc/codes"
)

// codeOf maps domain errors onto gRPC codes; the gateway turns those into HTTP statuses.
func codeOf(err error) codes.Code {
	var fe *carrier.FetchError
	switch {
	case errors.Is(err, trackings.ErrInvalidArgument), errors.Is(err, trackings.ErrTooManyShipments):
		return codes.InvalidArgument
	case errors.Is(err, models.ErrNotFound):
		return codes.NotFound
	case errors.Is(err, carrier.ErrUnresolved):
		return codes.FailedPrecondition
	case errors.Is(err, reconcile.ErrSyncInProgress):
		return codes.Aborted
	case errors.As(err, &fe):
		switch fe.Kind {
		case carrier.KindNotFound:
			return codes.NotFound
		case carrier.KindNetwork:
			return codes.Unavailable
		}
		return codes.Internal
	default:
		return codes.Internal
	}
}

type errorBody struct {
	Code    int32  `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, err error) {
	c := codeOf(err)
	if c == codes.Internal {
		slog.Error("api request failed", "error", err.Error())
	}
	writeJSON(w, runtime.HTTPStatusFromCode(c), errorBody{Code: int32(c), Message: err.Error()})
}

func writeStatus(w http.ResponseWriter, httpCode int, msg string) {
	writeJSON(w, httpCode, errorBody{Code: int32(codes.InvalidArgument), Message: msg})
}
