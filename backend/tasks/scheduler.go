package tasks

import (
	"context"
	"log"
	"time"

	subscriptionsvc "isolate/backend/service/subscription"
)

type Scheduler struct {
	subscription *subscriptionsvc.Service
}

func NewScheduler(subscriptionSvc *subscriptionsvc.Service) *Scheduler {
	return &Scheduler{
		subscription: subscriptionSvc,
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	if s == nil {
		return
	}

	if s.subscription != nil {
		go runWithTicker(ctx, time.Minute, "subscription sync", func(ctx context.Context) {
			s.subscription.SyncAll(ctx)
		})
	}
}

func runWithTicker(ctx context.Context, interval time.Duration, name string, fn func(context.Context)) {
	if interval <= 0 {
		interval = time.Minute
	}

	// 启动后先跑一次，避免“等待一个周期才生效”。
	safeRun(ctx, name, fn)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			safeRun(ctx, name, fn)
		}
	}
}

func safeRun(ctx context.Context, name string, fn func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[tasks] %s panicked: %v", name, r)
		}
	}()
	fn(ctx)
}
