package config

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/joho/godotenv"
	"google.golang.org/api/option"
)

// ReportsCollection is the watched document collection. Reports are created
// there by the external submission flow; this service reads, patches,
// renumbers and deletes them.
const ReportsCollection = "unsubmitted_reports"

var (
	fsClient   *firestore.Client
	fsClientMu sync.Mutex
)

func init() {
	// Load env from .env
	godotenv.Load()
	// IMPORTANT (Cloud Run):
	// Do NOT block startup in init() waiting for Firestore.
	// Cloud Run requires the container to start listening on $PORT quickly.
}

func GetFirestore() *firestore.Client {
	fsClientMu.Lock()
	defer fsClientMu.Unlock()
	return fsClient
}

func firestoreProjectID() string {
	// Prefer explicit override.
	if v := os.Getenv("FIRESTORE_PROJECT_ID"); v != "" {
		return v
	}
	// Cloud Run/Cloud Functions often set this.
	if v := os.Getenv("GOOGLE_CLOUD_PROJECT"); v != "" {
		return v
	}
	// Common fallback.
	if v := os.Getenv("GCP_PROJECT"); v != "" {
		return v
	}
	return ""
}

// ConnectFirestoreWithRetry connects and sets the shared client.
// Call this from main() AFTER the HTTP server is listening.
func ConnectFirestoreWithRetry(ctx context.Context) {
	logger := GetLogger()
	projectID := firestoreProjectID()

	var opts []option.ClientOption
	// Uses Application Default Credentials unless FIRESTORE_CREDENTIALS_JSON is provided.
	if credJSON := os.Getenv("FIRESTORE_CREDENTIALS_JSON"); strings.TrimSpace(credJSON) != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credJSON)))
	}

	var attempt int
	for {
		attempt++
		client, err := firestore.NewClient(ctx, projectID, opts...)
		if err == nil {
			fsClientMu.Lock()
			fsClient = client
			fsClientMu.Unlock()
			return
		}

		LogError(logger, "firestore.go", "ConnectFirestoreWithRetry", "firestore.NewClient", map[string]any{
			"attempt":    attempt,
			"project_id": projectID,
		}, err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoffDelay(attempt)):
		}
	}
}

func backoffDelay(attempt int) time.Duration {
	d := time.Duration(attempt) * time.Second
	if d > 15*time.Second {
		d = 15 * time.Second
	}
	return d
}
