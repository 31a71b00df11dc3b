package main

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"leftmove.org/leftmove-web/internal/config"
	"leftmove.org/leftmove-web/internal/submission"
)

// openSinks builds the fan-out of configured submission sinks. The returned func
// stops publishers and closes the Google clients.
func openSinks(ctx context.Context, cfg config.Config, logger *zap.Logger) (submission.Sink, func(), error) {
	var (
		sinks   []submission.Sink
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	for _, name := range cfg.Submission.Sinks {
		switch name {
		case config.SinkLog:
			sinks = append(sinks, submission.NewLogSink(logger))
		case config.SinkWebhook:
			sink, err := submission.NewWebhookSink(cfg.Submission.WebhookURL, nil)
			if err != nil {
				closeAll()
				return nil, nil, err
			}
			sinks = append(sinks, sink)
		case config.SinkPubSub:
			client, err := pubsub.NewClient(ctx, cfg.Submission.ProjectID)
			if err != nil {
				closeAll()
				return nil, nil, fmt.Errorf("pubsub client: %w", err)
			}
			topic := client.Topic(cfg.Submission.PubSubTopic)
			closers = append(closers, func() {
				topic.Stop()
				if err := client.Close(); err != nil {
					logger.Warn("close pubsub client", zap.Error(err))
				}
			})
			sink, err := submission.NewPubSubSink(topic)
			if err != nil {
				closeAll()
				return nil, nil, err
			}
			sinks = append(sinks, sink)
		case config.SinkFirestore:
			client, err := firestore.NewClient(ctx, cfg.Submission.ProjectID)
			if err != nil {
				closeAll()
				return nil, nil, fmt.Errorf("firestore client: %w", err)
			}
			closers = append(closers, func() {
				if err := client.Close(); err != nil {
					logger.Warn("close firestore client", zap.Error(err))
				}
			})
			sink, err := submission.NewFirestoreSink(client, submission.WithCollection(cfg.Submission.FirestoreCollection))
			if err != nil {
				closeAll()
				return nil, nil, err
			}
			sinks = append(sinks, sink)
		default:
			closeAll()
			return nil, nil, fmt.Errorf("unknown submission sink %q", name)
		}
	}
	return submission.NewFanout(sinks...), closeAll, nil
}
