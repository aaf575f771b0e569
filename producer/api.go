package producer

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	bodssecret "github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/bods-secret"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/errors"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/subscriptiondao"
)

// API is the operator-facing admin surface for producer subscriptions:
// create, inspect, and terminate feeds.
type API struct {
	Subs         SubscriptionStore
	Subscriber   *Subscriber
	Unsubscriber *Unsubscriber
}

func (a *API) Routes() chi.Router {
	router := chi.NewRouter()
	router.Post("/subscriptions", a.subscribe)
	router.Get("/subscriptions", a.list)
	router.Get("/subscriptions/{subscriptionID}", a.get)
	router.Delete("/subscriptions/{subscriptionID}", a.unsubscribe)
	return router
}

// subscribeRequest is the admin payload for registering a producer feed.
type subscribeRequest struct {
	SubscriptionID   string   `json:"subscriptionId,omitempty"`
	URL              string   `json:"url"`
	Description      string   `json:"description,omitempty"`
	ShortDescription string   `json:"shortDescription,omitempty"`
	RequestorRef     string   `json:"requestorRef,omitempty"`
	PublisherID      string   `json:"publisherId,omitempty"`
	OperatorRefs     []string `json:"operatorRefs,omitempty"`
	Username         string   `json:"username"`
	Password         string   `json:"password"`
}

// subscriptionView hides nothing but the credential material, which never
// leaves the parameter store.
type subscriptionView struct {
	SubscriptionID      string `json:"subscriptionId"`
	Status              string `json:"status"`
	URL                 string `json:"url"`
	Description         string `json:"description,omitempty"`
	PublisherID         string `json:"publisherId,omitempty"`
	ServiceStartAt      int64  `json:"serviceStartDatetime,omitempty"`
	ServiceEndAt        int64  `json:"serviceEndDatetime,omitempty"`
	LastDataReceivedAt  int64  `json:"lastDataReceivedDateTime,omitempty"`
	HeartbeatReceivedAt int64  `json:"heartbeatLastReceivedDateTime,omitempty"`
}

func viewOf(sub subscriptiondao.Subscription) subscriptionView {
	return subscriptionView{
		SubscriptionID:      sub.ID,
		Status:              string(sub.Status),
		URL:                 sub.URL,
		Description:         sub.Description,
		PublisherID:         sub.PublisherID,
		ServiceStartAt:      sub.ServiceStartAt,
		ServiceEndAt:        sub.ServiceEndAt,
		LastDataReceivedAt:  sub.LastDataReceivedAt,
		HeartbeatReceivedAt: sub.HeartbeatReceivedAt,
	}
}

func (a *API) subscribe(w http.ResponseWriter, req *http.Request) {
	logger := zerolog.Ctx(req.Context())

	var body subscribeRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		errors.Write(w, errors.E(http.StatusBadRequest, err))
		return
	}
	if body.URL == "" || body.Username == "" || body.Password == "" {
		errors.Write(w, errors.E(http.StatusBadRequest, "url, username and password are required"))
		return
	}

	sub, err := a.Subscriber.Subscribe(req.Context(), SubscribeInput{
		SubscriptionID:   body.SubscriptionID,
		URL:              body.URL,
		Description:      body.Description,
		ShortDescription: body.ShortDescription,
		RequestorRef:     body.RequestorRef,
		PublisherID:      body.PublisherID,
		OperatorRefs:     body.OperatorRefs,
		Credentials: bodssecret.Credentials{
			Username: body.Username,
			Password: body.Password,
		},
	})
	if err != nil {
		logger.Error().Err(err).Msg("producer subscribe failed")
		errors.Write(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, viewOf(*sub))
}

func (a *API) list(w http.ResponseWriter, req *http.Request) {
	subs, err := a.Subs.ListNotInactive(req.Context())
	if err != nil {
		zerolog.Ctx(req.Context()).Error().Err(err).Msg("listing subscriptions failed")
		errors.Write(w, err)
		return
	}

	views := make([]subscriptionView, 0, len(subs))
	for _, sub := range subs {
		views = append(views, viewOf(sub))
	}
	writeJSON(w, http.StatusOK, views)
}

func (a *API) get(w http.ResponseWriter, req *http.Request) {
	sub, err := a.Subs.Get(req.Context(), chi.URLParam(req, "subscriptionID"))
	if err != nil {
		errors.Write(w, err)
		return
	}
	if sub == nil {
		errors.Write(w, errors.E(http.StatusNotFound, "unknown subscription"))
		return
	}
	writeJSON(w, http.StatusOK, viewOf(*sub))
}

func (a *API) unsubscribe(w http.ResponseWriter, req *http.Request) {
	logger := zerolog.Ctx(req.Context())

	sub, err := a.Subs.Get(req.Context(), chi.URLParam(req, "subscriptionID"))
	if err != nil {
		errors.Write(w, err)
		return
	}
	if sub == nil || sub.Status.Terminal() {
		errors.Write(w, errors.E(http.StatusNotFound, "unknown subscription"))
		return
	}

	if err := a.Unsubscriber.Unsubscribe(req.Context(), sub); err != nil {
		logger.Error().Err(err).Str("subscription_id", sub.ID).Msg("producer unsubscribe failed")
		errors.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(value)
}
