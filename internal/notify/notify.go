// Package notify delivers new-item notifications to the configured sinks.
//
// Delivery is best-effort by contract: a failed send is logged and dropped,
// never retried and never surfaced to the poll loop, because a retry could
// double-notify and a propagated error could stall the cycle.
package notify

import (
	"context"

	"golang.org/x/time/rate"

	"dropwatch/internal/catalog"
	logx "dropwatch/pkg/logx"
)

// Meta carries per-monitor presentation hints alongside the item.
type Meta struct {
	Monitor   string // monitor name, for logging
	Website   string // human source label shown in the message
	Probe     bool   // item is a probed image, not a catalog product
	FullImage bool   // render the image full-size instead of as a thumbnail
}

// Sink is one delivery channel.
type Sink interface {
	Name() string
	Send(ctx context.Context, it catalog.Item, meta Meta) error
}

type Service struct {
	sinks   []Sink
	limiter *rate.Limiter
	log     logx.Logger
}

// New builds the fan-out service. ratePerSec caps sends across all sinks;
// 0 means the default of 1/s.
func New(ratePerSec int, log logx.Logger, sinks ...Sink) *Service {
	if ratePerSec <= 0 {
		ratePerSec = 1
	}
	return &Service{
		sinks:   sinks,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec),
		log:     log,
	}
}

// Notify sends the item to every sink. It never returns an error.
func (s *Service) Notify(ctx context.Context, it catalog.Item, meta Meta) {
	if len(s.sinks) == 0 {
		return
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return
	}
	for _, sink := range s.sinks {
		if err := sink.Send(ctx, it, meta); err != nil {
			s.log.Warn("notification send failed",
				logx.String("sink", sink.Name()),
				logx.String("monitor", meta.Monitor),
				logx.String("item_id", it.ID),
				logx.Err(err))
			continue
		}
		s.log.Debug("notification sent",
			logx.String("sink", sink.Name()),
			logx.String("monitor", meta.Monitor),
			logx.String("item_id", it.ID))
	}
}
