package ingest

import (
	"encoding/xml"

	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/avldao"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/feed"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/siri"
)

// extractRows flattens a service delivery into queryable rows. Each row keeps
// the marshaled fragment so the dispatcher can rebuild outbound payloads
// verbatim.
func extractRows(kind feed.Kind, subscriptionID string, delivery *siri.ServiceDelivery, nextID func() int64) []avldao.Row {
	if delivery == nil {
		return nil
	}

	var rows []avldao.Row

	if vm := delivery.VehicleMonitoringDelivery; vm != nil {
		for _, activity := range vm.VehicleActivity {
			fragment, err := xml.Marshal(activity)
			if err != nil {
				continue
			}
			journey := activity.MonitoredVehicleJourney
			row := avldao.Row{
				FeedKind:       kind,
				ID:             nextID(),
				SubscriptionID: subscriptionID,
				OperatorRef:    journey.OperatorRef,
				VehicleRef:     journey.VehicleRef,
				LineRef:        journey.LineRef,
				ProducerRef:    delivery.ProducerRef,
				OriginRef:      journey.OriginRef,
				DestinationRef: journey.DestinationRef,
				RecordedAt:     activity.RecordedAtTime.Unix(),
				Body:           string(fragment),
			}
			if loc := journey.VehicleLocation; loc != nil {
				row.Longitude = loc.Longitude
				row.Latitude = loc.Latitude
			}
			rows = append(rows, row)
		}
	}

	if sx := delivery.SituationExchangeDelivery; sx != nil {
		for _, situation := range sx.Situations.PtSituationElement {
			fragment, err := xml.Marshal(situation)
			if err != nil {
				continue
			}
			row := avldao.Row{
				FeedKind:       kind,
				ID:             nextID(),
				SubscriptionID: subscriptionID,
				ProducerRef:    delivery.ProducerRef,
				RecordedAt:     situation.CreationTime.Unix(),
				Body:           string(fragment),
			}
			if affects := situation.Affects; affects != nil {
				if ops := affects.Operators; ops != nil && len(ops.AffectedOperator) > 0 {
					row.OperatorRef = ops.AffectedOperator[0].OperatorRef
				}
				if networks := affects.Networks; networks != nil && len(networks.AffectedNetwork) > 0 {
					if lines := networks.AffectedNetwork[0].AffectedLine; len(lines) > 0 {
						row.LineRef = lines[0].LineRef
					}
				}
			}
			rows = append(rows, row)
		}
	}

	return rows
}
