// Package sse fans pairing-completion events out to parent devices. While a
// parent displays a QR code it holds an SSE stream open; when a child redeems
// the token, the redemption publishes through Redis and every stream the
// parent has open sees the event, whichever server instance handled the scan.
package sse

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/guardianai/pairing-server-go/internal/model"
	redisclient "github.com/guardianai/pairing-server-go/internal/redis"
)

const (
	HeartbeatInterval = 30 * time.Second

	EventPairingCompleted = "pairing_completed"
)

type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type Client struct {
	ParentID string
	Events   chan Event
	Done     chan struct{}
}

type Broker struct {
	redis   *redisclient.Client
	clients map[string]map[*Client]bool // parentID -> set of clients
	subs    map[string]chan struct{}    // parentID -> stop signal for the pubsub goroutine
	mu      sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewBroker(redisClient *redisclient.Client) *Broker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Broker{
		redis:   redisClient,
		clients: make(map[string]map[*Client]bool),
		subs:    make(map[string]chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (b *Broker) Subscribe(parentID string) *Client {
	client := &Client{
		ParentID: parentID,
		Events:   make(chan Event, 100),
		Done:     make(chan struct{}),
	}

	b.mu.Lock()
	if b.clients[parentID] == nil {
		b.clients[parentID] = make(map[*Client]bool)
		stop := make(chan struct{})
		b.subs[parentID] = stop
		go b.subscribeToRedis(parentID, stop)
	}
	b.clients[parentID][client] = true
	clientCount := len(b.clients[parentID])
	b.mu.Unlock()

	log.Info().
		Str("parentId", parentID).
		Int("clientCount", clientCount).
		Msg("sse client subscribed")

	return client
}

func (b *Broker) Unsubscribe(client *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if clients, ok := b.clients[client.ParentID]; ok {
		delete(clients, client)
		close(client.Done)

		// The last departure tears down the Redis subscription too;
		// otherwise a resubscribe would stack a second pubsub goroutine on
		// the same channel and every event would be delivered twice.
		if len(clients) == 0 {
			delete(b.clients, client.ParentID)
			if stop, ok := b.subs[client.ParentID]; ok {
				close(stop)
				delete(b.subs, client.ParentID)
			}
		}

		log.Info().
			Str("parentId", client.ParentID).
			Int("clientCount", len(clients)).
			Msg("sse client unsubscribed")
	}
}

// NotifyPaired implements service.PairingNotifier.
func (b *Broker) NotifyPaired(ctx context.Context, parentID string, link *model.DeviceLink) error {
	data, err := json.Marshal(link)
	if err != nil {
		return err
	}
	return b.Publish(ctx, parentID, Event{Type: EventPairingCompleted, Data: data})
}

func (b *Broker) Publish(ctx context.Context, parentID string, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	channel := redisclient.PairingChannel(parentID)
	return b.redis.Publish(ctx, channel, data).Err()
}

func (b *Broker) subscribeToRedis(parentID string, stop <-chan struct{}) {
	channel := redisclient.PairingChannel(parentID)
	pubsub := b.redis.Subscribe(b.ctx, channel)
	defer pubsub.Close()

	log.Debug().
		Str("parentId", parentID).
		Str("channel", channel).
		Msg("redis pubsub subscribed")

	ch := pubsub.Channel()

	for {
		select {
		case <-b.ctx.Done():
			return

		case <-stop:
			log.Debug().
				Str("parentId", parentID).
				Msg("redis pubsub unsubscribed")
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Error().Err(err).Msg("failed to unmarshal event")
				continue
			}

			b.broadcast(parentID, event)
		}
	}
}

func (b *Broker) broadcast(parentID string, event Event) {
	b.mu.RLock()
	clients := b.clients[parentID]
	b.mu.RUnlock()

	for client := range clients {
		select {
		case client.Events <- event:
		default:
			log.Warn().
				Str("parentId", parentID).
				Msg("client event buffer full, dropping event")
		}
	}
}

func (b *Broker) Close() {
	b.cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, clients := range b.clients {
		for client := range clients {
			close(client.Done)
		}
	}
	b.clients = make(map[string]map[*Client]bool)
	b.subs = make(map[string]chan struct{})
}

func (b *Broker) ClientCount(parentID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients[parentID])
}

func (b *Broker) TotalClients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	total := 0
	for _, clients := range b.clients {
		total += len(clients)
	}
	return total
}
