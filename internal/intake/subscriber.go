package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"

	"mailsentry/internal/triage/usecase"
)

// ChangeNotice is the Gmail watch payload published to the topic.
type ChangeNotice struct {
	EmailAddress string `json:"emailAddress"`
	HistoryID    uint64 `json:"historyId"`
}

// Subscriber receives mailbox change notices and feeds them to the sync
// service. Delivery is at-least-once: a notice is only acknowledged once the
// sync pass fully absorbed it, anything else is nacked for redelivery.
type Subscriber struct {
	pubsubClient *pubsub.Client
	sync         *usecase.SyncService
	topicName    string
	subName      string
}

// NewSubscriber creates a new Subscriber
func NewSubscriber(projectID, topicName, subName string, sync *usecase.SyncService, credentialsFile string) (*Subscriber, error) {
	ctx := context.Background()

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %v", err)
	}

	return &Subscriber{
		pubsubClient: client,
		sync:         sync,
		topicName:    topicName,
		subName:      subName,
	}, nil
}

// Start ensures the subscription exists and blocks receiving messages until
// the context is cancelled.
func (s *Subscriber) Start(ctx context.Context) {
	log.Printf("[Intake] Starting with topic: %s, subscription: %s", s.topicName, s.subName)

	sub := s.pubsubClient.Subscription(s.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		log.Printf("[Intake] Error checking subscription existence: %v", err)
		return
	}

	if !exists {
		topic := s.pubsubClient.Topic(s.topicName)
		topicExists, err := topic.Exists(ctx)
		if err != nil {
			log.Printf("[Intake] Error checking topic existence: %v", err)
			return
		}
		if !topicExists {
			log.Printf("[Intake] Topic %s does not exist, cannot create subscription", s.topicName)
			return
		}

		sub, err = s.pubsubClient.CreateSubscription(ctx, s.subName, pubsub.SubscriptionConfig{
			Topic:       topic,
			AckDeadline: 60 * time.Second,
		})
		if err != nil {
			log.Printf("[Intake] Failed to create subscription: %v", err)
			return
		}
		log.Printf("[Intake] Created subscription: %s", s.subName)
	}

	log.Printf("[Intake] Listening on subscription: %s", s.subName)
	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		s.handleMessage(ctx, msg)
	})
	if err != nil {
		log.Printf("[Intake] Error receiving messages: %v", err)
	}
}

func (s *Subscriber) handleMessage(ctx context.Context, msg *pubsub.Message) {
	var notice ChangeNotice
	if err := json.Unmarshal(msg.Data, &notice); err != nil {
		// Poison message, redelivery cannot fix it.
		log.Printf("[Intake] Dropping unparseable notice: %v", err)
		msg.Ack()
		return
	}

	if err := s.sync.HandleChangeNotice(ctx, notice.EmailAddress, notice.HistoryID); err != nil {
		log.Printf("[Intake] Sync failed for %s (historyId %d), nacking: %v", notice.EmailAddress, notice.HistoryID, err)
		msg.Nack()
		return
	}
	msg.Ack()
}

// Close releases the underlying Pub/Sub client.
func (s *Subscriber) Close() error {
	return s.pubsubClient.Close()
}
