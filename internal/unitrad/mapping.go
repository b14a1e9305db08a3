// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package unitrad

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/pdiddy/unitrad/internal/httputil"
)

// FetchMapping requests the static mapping data for region and passes it to
// onResult. Failures are logged and dropped: there is no retry, no error
// return, and onResult is not called.
func FetchMapping(ctx context.Context, r Requester, logger *slog.Logger, region string, onResult func(json.RawMessage)) {
	if logger == nil {
		logger = slog.Default()
	}
	data, err := r.Request(ctx, CommandMapping, []httputil.Param{{Key: "region", Value: region}})
	if err != nil {
		logger.Warn("unitrad mapping fetch failed", "region", region, "error", err)
		return
	}
	onResult(data)
}
