package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daniel-p-green/skillvault/pkg/contracts"
	"github.com/daniel-p-green/skillvault/pkg/telemetry"
)

type fakeSink struct {
	batches [][]telemetry.Event
	fail    bool
}

func (f *fakeSink) Send(_ context.Context, events []telemetry.Event) error {
	if f.fail {
		return assertError
	}
	f.batches = append(f.batches, events)
	return nil
}

var assertError = errSentinel("sink unavailable")

type errSentinel string

func (e errSentinel) Error() string { return string(e) }

func TestMemoryOutbox_EnqueueIsIdempotentByID(t *testing.T) {
	outbox := telemetry.NewMemoryOutbox()
	ctx := context.Background()
	ev := telemetry.Event{BundleSha256: "abc", Verdict: contracts.VerdictPass, RiskTotal: 5}

	require.NoError(t, outbox.Enqueue(ctx, "id-1", ev))
	require.NoError(t, outbox.Enqueue(ctx, "id-1", telemetry.Event{BundleSha256: "different"}))

	pending, err := outbox.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "abc", pending[0].Event.BundleSha256)
}

func TestDrain_AcksOnSuccessfulSend(t *testing.T) {
	outbox := telemetry.NewMemoryOutbox()
	ctx := context.Background()
	require.NoError(t, outbox.Enqueue(ctx, "id-1", telemetry.Event{BundleSha256: "a"}))
	require.NoError(t, outbox.Enqueue(ctx, "id-2", telemetry.Event{BundleSha256: "b"}))

	sink := &fakeSink{}
	n, err := telemetry.Drain(ctx, outbox, sink)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	pending, err := outbox.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestDrain_LeavesRecordsPendingOnFailedSend(t *testing.T) {
	outbox := telemetry.NewMemoryOutbox()
	ctx := context.Background()
	require.NoError(t, outbox.Enqueue(ctx, "id-1", telemetry.Event{BundleSha256: "a"}))

	sink := &fakeSink{fail: true}
	_, err := telemetry.Drain(ctx, outbox, sink)
	require.Error(t, err)

	pending, err := outbox.Pending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1, "a failed send must not ack its records")
}

func TestDrain_NoPendingRecordsIsANoOp(t *testing.T) {
	outbox := telemetry.NewMemoryOutbox()
	sink := &fakeSink{}
	n, err := telemetry.Drain(context.Background(), outbox, sink)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, sink.batches)
}
