package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	lambdaevents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/shopspring/decimal"

	"github.com/bookcourier/courier-api/internal/aws"
	"github.com/bookcourier/courier-api/internal/events"
)

// Processor projects domain events from SQS into CloudWatch metrics.
type Processor struct {
	cw        aws.CloudWatchAPI
	namespace string
	log       *slog.Logger
}

// NewProcessor creates a new worker processor with the CloudWatch client injected.
func NewProcessor(cw aws.CloudWatchAPI, namespace string) *Processor {
	return &Processor{cw: cw, namespace: namespace, log: slog.Default()}
}

// Handle receives an SQS batch and reports the messages whose metrics could
// not be written, so only those are redelivered. Undecodable messages are
// logged and dropped.
func (p *Processor) Handle(ctx context.Context, ev lambdaevents.SQSEvent) (lambdaevents.SQSEventResponse, error) {
	var resp lambdaevents.SQSEventResponse
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			p.log.ErrorContext(ctx, "worker error", "message_id", rec.MessageId, "error", err)
			resp.BatchItemFailures = append(resp.BatchItemFailures, lambdaevents.SQSBatchItemFailure{
				ItemIdentifier: rec.MessageId,
			})
		}
	}
	return resp, nil
}

func (p *Processor) processMessage(ctx context.Context, rec lambdaevents.SQSMessage) error {
	var ev events.Event
	if err := json.Unmarshal([]byte(rec.Body), &ev); err != nil {
		p.log.WarnContext(ctx, "dropping undecodable message", "message_id", rec.MessageId, "error", err)
		return nil
	}

	data := p.datums(ev)
	if len(data) == 0 {
		p.log.InfoContext(ctx, "no metrics for event", "type", ev.Type, "event_id", ev.ID)
		return nil
	}

	_, err := p.cw.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  &p.namespace,
		MetricData: data,
	})
	if err != nil {
		return fmt.Errorf("put metric data for event %s: %w", ev.ID, err)
	}
	p.log.DebugContext(ctx, "event projected", "type", ev.Type, "event_id", ev.ID, "order_id", ev.OrderID)
	return nil
}

// datums maps one event onto the metrics it contributes to.
func (p *Processor) datums(ev events.Event) []cwtypes.MetricDatum {
	at := ev.OccurredAt
	count := func(name string) cwtypes.MetricDatum {
		return cwtypes.MetricDatum{
			MetricName: awsString(name),
			Value:      awsFloat(1),
			Unit:       cwtypes.StandardUnitCount,
			Timestamp:  &at,
		}
	}

	switch ev.Type {
	case events.TypeOrderPaid:
		data := []cwtypes.MetricDatum{count(MetricOrdersPaid)}
		if ev.AmountCents > 0 {
			currency := strings.ToUpper(ev.Currency)
			if currency == "" {
				currency = "UNKNOWN"
			}
			data = append(data, cwtypes.MetricDatum{
				MetricName: awsString(MetricRevenue),
				Value:      awsFloat(decimal.New(ev.AmountCents, -2).InexactFloat64()),
				Unit:       cwtypes.StandardUnitNone,
				Timestamp:  &at,
				Dimensions: []cwtypes.Dimension{
					{Name: awsString(DimensionCurrency), Value: awsString(currency)},
				},
			})
		}
		return data
	case events.TypeOrderCanceled:
		return []cwtypes.MetricDatum{count(MetricOrdersCanceled)}
	case events.TypeLibrarianApproved:
		return []cwtypes.MetricDatum{count(MetricLibrariansApproved)}
	default:
		return nil
	}
}

func awsString(s string) *string { return &s }

func awsFloat(f float64) *float64 { return &f }
