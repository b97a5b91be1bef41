package storage

import (
	"context"
	"time"
)

// Observer receives one sample per remote call.
type Observer interface {
	ObserveStorage(provider, op string, err error, elapsed time.Duration)
}

type instrumented struct {
	Provider
	obs Observer
}

// Instrument wraps p so that every remote call is reported to obs. A nil
// obs returns p unchanged.
func Instrument(p Provider, obs Observer) Provider {
	if obs == nil {
		return p
	}
	return &instrumented{Provider: p, obs: obs}
}

func (i *instrumented) Upload(ctx context.Context, data []byte, opts UploadOptions) (*UploadResult, error) {
	start := time.Now()
	res, err := i.Provider.Upload(ctx, data, opts)
	i.obs.ObserveStorage(i.Name(), "upload", err, time.Since(start))
	return res, err
}

func (i *instrumented) Delete(ctx context.Context, cloudID string, opts DeleteOptions) error {
	start := time.Now()
	err := i.Provider.Delete(ctx, cloudID, opts)
	i.obs.ObserveStorage(i.Name(), "delete", err, time.Since(start))
	return err
}
