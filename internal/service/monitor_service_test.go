package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestMonitorServicePublishSubscribe(t *testing.T) {
	_, rdb := newTestRedis(t)
	svc := NewMonitorService(rdb, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Run(ctx)

	events, err := svc.Subscribe(ctx, "t1")
	require.NoError(t, err)

	svc.Emit(MonitorEvent{Type: MonitorJoined, TestID: "other"})
	svc.Emit(MonitorEvent{Type: MonitorViolation, TestID: "t1", SessionID: "s1", ViolationCount: 2})

	select {
	case ev := <-events:
		require.Equal(t, MonitorViolation, ev.Type)
		require.Equal(t, "s1", ev.SessionID)
		require.Equal(t, 2, ev.ViolationCount)
		require.False(t, ev.Timestamp.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("no monitor event received")
	}

	cancel()
	require.Eventually(t, func() bool {
		_, open := <-events
		return !open
	}, time.Second, 10*time.Millisecond)
}
