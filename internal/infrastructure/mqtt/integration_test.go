//go:build integration

package mqtt

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// Integration tests against a live broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -count=1 -v ./internal/infrastructure/mqtt/...

func connectIntegration(t *testing.T, clientID string) *Client {
	t.Helper()
	cfg := testConfig()
	cfg.Broker.ClientID = clientID

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestIntegration_ConnectAndClose(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.ClientID = "mixlogic-int-close"

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if !client.IsConnected() {
		t.Error("IsConnected() = false, want true")
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
	if err := client.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() after Close error = %v, want ErrNotConnected", err)
	}
}

func TestIntegration_BrokerRefused(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.Port = 19998

	_, err := Connect(cfg)
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestIntegration_SubscriptionTracking(t *testing.T) {
	client := connectIntegration(t, "mixlogic-int-sub-track")

	topics := []string{Topics{}.Command("A"), Topics{}.Command("B"), Topics{}.Command("master")}
	handler := func(string, []byte) error { return nil }

	for _, topic := range topics {
		if err := client.Subscribe(topic, 1, handler); err != nil {
			t.Fatalf("Subscribe(%s) error = %v", topic, err)
		}
	}
	if client.SubscriptionCount() != len(topics) {
		t.Errorf("SubscriptionCount() = %d, want %d", client.SubscriptionCount(), len(topics))
	}

	if err := client.Unsubscribe(topics[0]); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}
	if client.HasSubscription(topics[0]) {
		t.Errorf("HasSubscription(%s) = true after unsubscribe", topics[0])
	}
}

func TestIntegration_CommandRoundtrip(t *testing.T) {
	pub := connectIntegration(t, "mixlogic-int-pub")
	sub := connectIntegration(t, "mixlogic-int-sub")

	received := make(chan string, 1)
	var once sync.Once
	err := sub.Subscribe(Topics{}.AllCommands(), 1, func(topic string, p []byte) error {
		once.Do(func() { received <- topic + " " + string(p) })
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	if err := pub.Publish(Topics{}.Command("B"), []byte(`{"command":"play"}`), 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case msg := <-received:
		if msg != `mixlogic/command/B {"command":"play"}` {
			t.Errorf("received %q", msg)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for command")
	}

	if got := pub.Stats().Published; got != 1 {
		t.Errorf("publisher Stats().Published = %d, want 1", got)
	}
	if got := sub.Stats().Received; got < 1 {
		t.Errorf("subscriber Stats().Received = %d, want >= 1", got)
	}
}

func TestIntegration_RetainedTrainingStatus(t *testing.T) {
	pub := connectIntegration(t, "mixlogic-int-retain-pub")
	if err := pub.PublishRetained(Topics{}.TrainingStatus(), []byte(`{"mode":"passive"}`)); err != nil {
		t.Fatalf("PublishRetained() error = %v", err)
	}

	late := connectIntegration(t, "mixlogic-int-retain-sub")
	received := make(chan []byte, 1)
	var once sync.Once
	err := late.Subscribe(Topics{}.TrainingStatus(), 1, func(_ string, p []byte) error {
		once.Do(func() { received <- p })
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	select {
	case p := <-received:
		if string(p) != `{"mode":"passive"}` {
			t.Errorf("retained payload = %s", p)
		}
	case <-time.After(5 * time.Second):
		t.Error("retained status not delivered to late subscriber")
	}
}
