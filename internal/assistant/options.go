package assistant

import (
	"net/http"

	"go.uber.org/zap"
)

// Options carries the transport and logger shared by every provider.
type Options struct {
	HTTPClient *http.Client
	Logger     *zap.Logger
}
