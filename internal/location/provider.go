// Package location delivers live GPS fixes to an active trip as a lazy,
// cancellable stream.
package location

import (
	"context"
	"errors"

	"github.com/co2quest/carbon-tracker/internal/models"
)

var ErrPermissionDenied = errors.New("location permission denied")

// Subscription is a live stream of position fixes. Fixes delivers samples
// until Cancel is called; Cancel is idempotent and closes the channel.
type Subscription interface {
	Fixes() <-chan models.GeoSample
	Cancel()
}

// Provider opens a fix stream for a user's device. A provider that cannot
// authorize the stream returns ErrPermissionDenied and no subscription.
type Provider interface {
	Subscribe(ctx context.Context, userID string) (Subscription, error)
}
