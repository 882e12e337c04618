package notification

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gardu-monitor-backend/internal/model"
	"gardu-monitor-backend/internal/revision"
	"gardu-monitor-backend/internal/store"
)

// mockSender is a mock implementation of the NotificationSender interface.
type mockSender struct {
	SendFunc func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return m.SendFunc(payload, sub, options)
}

type fakeStore struct {
	store.Store
	mu            sync.Mutex
	subscriptions map[int64][]model.PushSubscription
	substations   map[int64]model.Substation
	deleted       []string
}

func (f *fakeStore) SubscriptionsForSubstation(_ context.Context, id int64) ([]model.PushSubscription, error) {
	return f.subscriptions[id], nil
}

func (f *fakeStore) GetSubstation(_ context.Context, id int64) (model.Substation, error) {
	sub, ok := f.substations[id]
	if !ok {
		return model.Substation{}, store.ErrNotFound
	}
	return sub, nil
}

func (f *fakeStore) DeleteSubscription(_ context.Context, endpoint string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, endpoint)
	return nil
}

func (f *fakeStore) deletedEndpoints() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

func reply(status int) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(""))}
}

func TestWorkerPool_Dispatch(t *testing.T) {
	wp := NewWorkerPool(1, 1, &fakeStore{}, &webpush.Options{})

	wp.Dispatch(revision.Result{OldID: 1})
	// The queue is full and nobody is consuming; this must not block.
	wp.Dispatch(revision.Result{OldID: 2})

	select {
	case job := <-wp.jobs:
		assert.Equal(t, int64(1), job.OldID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for job to be dispatched")
	}
	assert.Empty(t, wp.jobs)
}

func TestWorkerPool_WorkerLogic(t *testing.T) {
	fs := &fakeStore{
		subscriptions: map[int64][]model.PushSubscription{
			7: {{Endpoint: "https://push.example/ok", P256DH: "k", Auth: "a"}},
			8: {{Endpoint: "https://push.example/gone", P256DH: "k", Auth: "a"}},
			9: {{Endpoint: "https://push.example/anon", P256DH: "k", Auth: "a"}},
		},
		substations: map[int64]model.Substation{7: {ID: 7, Name: "Pasar Baru"}, 8: {ID: 8, Name: "Terminal"}},
	}
	wp := NewWorkerPool(1, 4, fs, &webpush.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)

	t.Run("sends notification for one subscription", func(t *testing.T) {
		var wg sync.WaitGroup
		wg.Add(1)
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				defer wg.Done()
				assert.Equal(t, "https://push.example/ok", sub.Endpoint)

				var p Payload
				require.NoError(t, json.Unmarshal(payload, &p))
				assert.Equal(t, "Gardu Pasar Baru", p.Title)
				assert.Equal(t, "Unbalance siang A 2024-05 dikoreksi 65.00% → 92.30% oleh inspector7", p.Body)
				assert.Equal(t, int64(43), p.MeasurementID)
				return reply(http.StatusCreated), nil
			},
		}

		wp.Dispatch(revision.Result{OldID: 42, NewID: 43, SubstationID: 7, Period: model.PeriodSiang, RowCode: "A", Month: "2024-05", OldValue: 65, NewValue: 92.3, ChangedBy: "inspector7"})
		wg.Wait()
	})

	t.Run("deletes expired subscription", func(t *testing.T) {
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				return reply(http.StatusGone), nil
			},
		}

		wp.Dispatch(revision.Result{OldID: 1, NewID: 2, SubstationID: 8, Period: model.PeriodMalam})
		assert.Eventually(t, func() bool {
			return len(fs.deletedEndpoints()) == 1
		}, time.Second, 10*time.Millisecond)
		assert.Equal(t, []string{"https://push.example/gone"}, fs.deletedEndpoints())
	})

	t.Run("falls back to substation ID when lookup fails", func(t *testing.T) {
		var wg sync.WaitGroup
		wg.Add(1)
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				defer wg.Done()
				var p Payload
				require.NoError(t, json.Unmarshal(payload, &p))
				assert.Equal(t, "Gardu #9", p.Title)
				return nil, errors.New("network down")
			},
		}

		wp.Dispatch(revision.Result{OldID: 3, NewID: 4, SubstationID: 9})
		wg.Wait()
	})
}
