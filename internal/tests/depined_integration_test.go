//go:build integration

package tests

import (
	"context"
	"os"
	"testing"
	"time"

	"depined-bot/internal/clients_api/depined"
)

// Requires DEPINED_TOKEN with a real account token.
func integrationClient(t *testing.T) *depined.Client {
	t.Helper()
	token := os.Getenv("DEPINED_TOKEN")
	if token == "" {
		t.Skip("DEPINED_TOKEN not set")
	}
	return depined.NewClient(token, depined.Options{Timeout: 30 * time.Second})
}

func TestIntegration_Depined_GetUserDetails(t *testing.T) {
	client := integrationClient(t)
	details, err := client.GetUserDetails(context.Background())
	if err != nil {
		t.Fatalf("GetUserDetails failed: %v", err)
	}
	if details.Username == "" {
		t.Fatalf("expected username, got empty")
	}
}

func TestIntegration_Depined_HeartbeatAndEarnings(t *testing.T) {
	client := integrationClient(t)
	ctx := context.Background()
	if err := client.ConnectWidget(ctx); err != nil {
		t.Fatalf("ConnectWidget failed: %v", err)
	}
	earnings, err := client.GetEpochEarnings(ctx)
	if err != nil {
		t.Fatalf("GetEpochEarnings failed: %v", err)
	}
	if earnings.Epoch <= 0 {
		t.Fatalf("expected epoch > 0, got %d", earnings.Epoch)
	}
	if earnings.Earnings < 0 {
		t.Fatalf("expected non-negative earnings, got %v", earnings.Earnings)
	}
}
