package internal

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gardu-monitor-backend/config"
	"gardu-monitor-backend/internal/db"
	"gardu-monitor-backend/internal/model"
	"gardu-monitor-backend/internal/notification"
	"gardu-monitor-backend/internal/revision"
	"gardu-monitor-backend/internal/store"
)

// browserKeys returns the p256dh and auth values a browser would register.
func browserKeys(t *testing.T) (string, string) {
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	secret := make([]byte, 16)
	_, err = rand.Read(secret)
	require.NoError(t, err)
	return base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
		base64.RawURLEncoding.EncodeToString(secret)
}

// TestRevisionLifecycle follows a measurement through two corrections, from
// the HTTP-free service call down to the push delivered to a subscriber, and
// verifies the database state at each step.
func TestRevisionLifecycle(t *testing.T) {
	// --- Test Setup ---

	// 1. Setup an in-memory SQLite database for testing.
	gormDB, err := db.Open(&config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	})
	require.NoError(t, err)
	defer db.Close(gormDB)
	require.NoError(t, db.Migrate(gormDB))

	// 2. Mock push service: accepts the first delivery, then reports the
	// subscription as gone.
	var deliveries atomic.Int32
	received := make(chan *http.Request, 4)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := deliveries.Add(1)
		received <- r
		if n == 1 {
			w.WriteHeader(http.StatusCreated)
			return
		}
		w.WriteHeader(http.StatusGone)
	}))
	defer server.Close()

	// 3. Wire the store, worker pool and revision service.
	appStore := store.NewGormStore(gormDB)
	vapidPrivate, vapidPublic, err := webpush.GenerateVAPIDKeys()
	require.NoError(t, err)
	options := &webpush.Options{
		VAPIDPublicKey:  vapidPublic,
		VAPIDPrivateKey: vapidPrivate,
		Subscriber:      "mailto:ops@example.com",
		TTL:             60,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool := notification.NewWorkerPool(2, 8, appStore, options)
	pool.Start(ctx)

	revisions := revision.NewService(appStore, config.RevisionConfig{}, pool)

	// 4. Pre-populate a substation, its day reading and a subscriber.
	sub := model.Substation{Code: "GD-042", Name: "Gardu Stasiun", CapacityKVA: 160}
	require.NoError(t, appStore.CreateSubstation(ctx, &sub))
	original := model.Measurement{
		SubstationID: sub.ID,
		Period:       model.PeriodSiang,
		RowCode:      "A",
		Month:        "2024-05",
		Readings:     model.Readings{R: 120, S: 100, T: 80, PN: 220},
		Derived:      model.Derived{Average: 100, Unbalanced: 13.33},
	}
	require.NoError(t, appStore.CreateMeasurement(ctx, &original))

	p256dh, auth := browserKeys(t)
	endpoint := server.URL + "/push/" + uuid.NewString()
	require.NoError(t, appStore.PutSubscription(ctx, &model.PushSubscription{
		Endpoint: endpoint,
		P256DH:   p256dh,
		Auth:     auth,
	}, []int64{sub.ID}))

	// --- Cycle 1: first correction is delivered ---
	var first revision.Result
	t.Run("Cycle 1: Correction Is Delivered", func(t *testing.T) {
		v := 9.5
		first, err = revisions.Revise(ctx, revision.Request{MeasurementID: original.ID, Unbalanced: &v, ChangedBy: "andi"})
		require.NoError(t, err)
		assert.Equal(t, original.ID, first.OldID)
		assert.Equal(t, 13.33, first.OldValue)
		assert.Equal(t, 9.5, first.NewValue)

		select {
		case r := <-received:
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "aes128gcm", r.Header.Get("Content-Encoding"))
			assert.Contains(t, r.Header.Get("Authorization"), "vapid")
		case <-time.After(5 * time.Second):
			t.Fatal("push was not delivered")
		}

		prev, err := appStore.GetMeasurement(ctx, original.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StatusSuperseded, prev.Status)

		logs, err := appStore.ListAuditLogs(ctx, original.ID)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, "andi", logs[0].ChangedBy)
		assert.Equal(t, "Koreksi nilai unbalance", logs[0].ChangeReason)
	})

	// --- Cycle 2: subscription expired at the push service ---
	t.Run("Cycle 2: Expired Subscription Is Removed", func(t *testing.T) {
		v := 4.25
		version := first.NewVersion
		second, err := revisions.Revise(ctx, revision.Request{MeasurementID: first.NewID, Unbalanced: &v, ExpectedVersion: &version})
		require.NoError(t, err)
		assert.Equal(t, first.NewID, second.OldID)

		select {
		case <-received:
		case <-time.After(5 * time.Second):
			t.Fatal("push was not attempted")
		}

		assert.Eventually(t, func() bool {
			_, err := appStore.GetSubscription(ctx, endpoint)
			return err == store.ErrNotFound
		}, 5*time.Second, 20*time.Millisecond, "410 from the push service should delete the subscription")

		active, err := appStore.ListMeasurements(ctx, store.MeasurementFilter{SubstationID: sub.ID})
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, second.NewID, active[0].ID)
		assert.Equal(t, 4.25, active[0].Unbalanced)
		assert.Equal(t, 120.0, active[0].R)

		chain, err := appStore.MeasurementChain(ctx, original.ID)
		require.NoError(t, err)
		assert.Len(t, chain, 3)
	})
}
