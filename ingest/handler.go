// Package ingest receives pushed producer payloads, classifies them as data
// or heartbeat, and records liveness on the owning subscription.
package ingest

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/avldao"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/errors"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/feed"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/siri"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/subscriptiondao"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// SubscriptionStore is the slice of the subscriptions DAO ingestion needs.
type SubscriptionStore interface {
	Get(ctx context.Context, subscriptionID string) (*subscriptiondao.Subscription, error)
	Put(ctx context.Context, sub subscriptiondao.Subscription) error
}

// RowStore receives the rows extracted from data payloads.
type RowStore interface {
	PutAll(ctx context.Context, rows []avldao.Row) error
}

// BlobStore persists raw payloads for replay and audit.
type BlobStore interface {
	PutRaw(ctx context.Context, subscriptionID string, timestamp time.Time, body []byte) error
}

// Handler is the ingestion endpoint for one feed kind.
type Handler struct {
	Kind   feed.Kind
	Subs   SubscriptionStore
	Rows   RowStore
	Blobs  BlobStore
	APIKey string
	Now    func() time.Time
	NextID func() int64
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *Handler) nextID() int64 {
	if h.NextID != nil {
		return h.NextID()
	}
	return time.Now().UnixNano()
}

// Routes mounts the ingestion endpoint: POST /{subscriptionID}?apiKey=...
func (h *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Post("/{subscriptionID}", h.handle)
	return router
}

func (h *Handler) handle(w http.ResponseWriter, req *http.Request) {
	logger := zerolog.Ctx(req.Context())

	if err := h.ingest(req); err != nil {
		logger.Error().Err(err).
			Str("subscription_id", chi.URLParam(req, "subscriptionID")).
			Msg("ingestion failed")
		errors.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) ingest(req *http.Request) error {
	ctx := req.Context()

	subscriptionID := chi.URLParam(req, "subscriptionID")
	if subscriptionID == "" {
		return errors.E(http.StatusBadRequest, "missing subscription id")
	}
	if req.URL.Query().Get("apiKey") != h.APIKey {
		return errors.E(http.StatusUnauthorized, "invalid api key")
	}

	body, err := io.ReadAll(req.Body)
	if err != nil {
		return errors.E(http.StatusBadRequest, err)
	}

	envelope, kind, err := siri.Parse(body)
	if err != nil {
		return errors.E(http.StatusBadRequest, err)
	}

	now := h.now()
	sub, err := h.Subs.Get(ctx, subscriptionID)
	if err != nil {
		return err
	}

	switch kind {
	case siri.KindHeartbeatNotification:
		// Producers must subscribe before heartbeating.
		if sub == nil {
			return errors.E(http.StatusNotFound, "unknown subscription")
		}
		if sub.Status.Terminal() {
			// A late duplicate push must not resurrect a terminated
			// subscription.
			return errors.E(http.StatusNotFound, "subscription inactive")
		}
		if err := h.Blobs.PutRaw(ctx, subscriptionID, now, body); err != nil {
			return err
		}
		sub.HeartbeatReceivedAt = now.Unix()
		return h.Subs.Put(ctx, *sub)

	case siri.KindServiceDelivery:
		rows := extractRows(h.Kind, subscriptionID, envelope.ServiceDelivery, h.nextID)
		if len(rows) == 0 {
			// Producers may legitimately send empty envelopes.
			return nil
		}
		if sub == nil {
			return errors.E(http.StatusNotFound, "unknown subscription")
		}
		if sub.Status.Terminal() {
			return errors.E(http.StatusNotFound, "subscription inactive")
		}
		if err := h.Blobs.PutRaw(ctx, subscriptionID, now, body); err != nil {
			return err
		}
		if err := h.Rows.PutAll(ctx, rows); err != nil {
			return err
		}
		// Liveness uses the ingestion timestamp, not the producer-claimed
		// one, so clock skew cannot game the health check.
		sub.LastDataReceivedAt = now.Unix()
		return h.Subs.Put(ctx, *sub)

	default:
		return errors.E(http.StatusBadRequest, "unsupported siri payload")
	}
}
