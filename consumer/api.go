package consumer

import (
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/avldao"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/errors"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/siri"
)

// API is the consumer-facing subscribe/unsubscribe endpoint. One POST route
// accepts either a SubscriptionRequest or a TerminateSubscriptionRequest and
// dispatches on the parsed kind.
type API struct {
	Subscriber   *Subscriber
	Unsubscriber *Unsubscriber
	ResponderRef string
}

func (a *API) Routes() chi.Router {
	router := chi.NewRouter()
	router.Post("/", a.handle)
	return router
}

func (a *API) handle(w http.ResponseWriter, req *http.Request) {
	logger := zerolog.Ctx(req.Context())

	body, err := io.ReadAll(req.Body)
	if err != nil {
		errors.Write(w, errors.E(http.StatusBadRequest, err))
		return
	}

	envelope, kind, err := siri.Parse(body)
	if err != nil {
		errors.Write(w, errors.E(http.StatusBadRequest, err))
		return
	}

	consumerKey := req.URL.Query().Get("consumerKey")

	switch kind {
	case siri.KindSubscriptionRequest:
		filter, err := parseFilter(req.URL.Query())
		if err != nil {
			errors.Write(w, errors.E(http.StatusBadRequest, err))
			return
		}
		sub, err := a.Subscriber.Subscribe(req.Context(), SubscribeInput{
			ConsumerKey: consumerKey,
			Request:     envelope.SubscriptionRequest,
			QueryParams: filter,
		})
		if err != nil {
			logger.Error().Err(err).Msg("consumer subscribe failed")
			errors.Write(w, err)
			return
		}

		response := siri.NewSubscriptionResponse(sub.ID, a.ResponderRef, envelope.SubscriptionRequest.MessageIdentifier, true, a.Subscriber.now())
		writeSiri(w, http.StatusCreated, response)

	case siri.KindTerminateSubscriptionRequest:
		if err := a.Unsubscriber.Unsubscribe(req.Context(), consumerKey, envelope.TerminateSubscriptionRequest); err != nil {
			logger.Error().Err(err).Msg("consumer unsubscribe failed")
			errors.Write(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		errors.Write(w, errors.E(http.StatusBadRequest, "unsupported siri payload"))
	}
}

func writeSiri(w http.ResponseWriter, status int, envelope *siri.Envelope) {
	body, err := siri.Marshal(envelope)
	if err != nil {
		errors.Write(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(status)
	w.Write(body)
}

// parseFilter reads the consumer's filter set from the request query string.
func parseFilter(query url.Values) (avldao.Filter, error) {
	filter := avldao.Filter{
		VehicleRef:     query.Get("vehicleRef"),
		LineRef:        query.Get("lineRef"),
		ProducerRef:    query.Get("producerRef"),
		OriginRef:      query.Get("originRef"),
		DestinationRef: query.Get("destinationRef"),
	}
	if refs := query.Get("operatorRef"); refs != "" {
		filter.OperatorRefs = strings.Split(refs, ",")
	}
	if ids := query.Get("subscriptionId"); ids != "" {
		filter.SubscriptionIDs = strings.Split(ids, ",")
	}
	if box := query.Get("boundingBox"); box != "" {
		parts := strings.Split(box, ",")
		if len(parts) != 4 {
			return avldao.Filter{}, errors.New("boundingBox must be minLon,minLat,maxLon,maxLat")
		}
		coords := make([]float64, 0, 4)
		for _, part := range parts {
			coord, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil {
				return avldao.Filter{}, errors.New("boundingBox must be numeric")
			}
			coords = append(coords, coord)
		}
		filter.BoundingBox = coords
	}
	return filter, nil
}
