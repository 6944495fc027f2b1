package config

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// RenumberMessage asks the renumber worker to reconcile the journal's
// sequence fields for one customer filter. Published on every snapshot
// change (when enabled) and on the explicit HTTP trigger; consumed by the
// Pub/Sub push endpoint in server.go.
type RenumberMessage struct {
	CustomerFilter string    `json:"customer_filter"`
	RequestedAt    time.Time `json:"requested_at"`
	CorrelationId  string    `json:"correlation_id"`
}

var (
	pubsubClient   *pubsub.Client
	pubsubClientMu sync.Mutex
)

func GetPubSubClient(ctx context.Context) (*pubsub.Client, error) {
	pubsubClientMu.Lock()
	if pubsubClient != nil {
		c := pubsubClient
		pubsubClientMu.Unlock()
		return c, nil
	}
	pubsubClientMu.Unlock()

	projectID := firestoreProjectID()
	if projectID == "" {
		return nil, errors.New("pubsub project id is not configured (set GOOGLE_CLOUD_PROJECT)")
	}

	var opts []option.ClientOption
	if credJSON := os.Getenv("PUBSUB_CREDENTIALS_JSON"); strings.TrimSpace(credJSON) != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credJSON)))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, err
	}

	pubsubClientMu.Lock()
	pubsubClient = client
	pubsubClientMu.Unlock()
	return client, nil
}

func RenumberTopicID() string {
	if v := os.Getenv("RENUMBER_TOPIC"); v != "" {
		return v
	}
	return "journal-renumber"
}

// PublishRenumber is best-effort: renumbering is a reconciliation job, a
// dropped message is repaired by the next snapshot or the manual trigger.
func PublishRenumber(ctx context.Context, msg RenumberMessage) error {
	client, err := GetPubSubClient(ctx)
	if err != nil {
		return err
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	topic := client.Topic(RenumberTopicID())
	defer topic.Stop()

	result := topic.Publish(ctx, &pubsub.Message{Data: data})
	_, err = result.Get(ctx)
	return err
}
