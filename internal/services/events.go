package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/fathima-sithara/moms/internal/events"
	"github.com/fathima-sithara/moms/internal/models"
	"go.uber.org/zap"
)

// emitter publishes domain events after the write they describe has been
// committed. A failed publish is logged and never undoes the write.
type emitter struct {
	pub events.Publisher
	log *zap.Logger
}

func (e emitter) emit(ctx context.Context, ev *models.Event) {
	if e.pub == nil {
		return
	}
	if err := e.pub.Publish(context.WithoutCancel(ctx), ev); err != nil {
		e.log.Warn("event publish failed", zap.String("type", string(ev.Type)), zap.String("ref_id", ev.RefID), zap.Error(err))
	}
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func itoa(n int) string { return strconv.Itoa(n) }
