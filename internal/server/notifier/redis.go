package notifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/civicsync/internal/common"
	"github.com/dmitrijs2005/civicsync/internal/logging"
	"github.com/redis/go-redis/v9"
)

var _ Notifier = (*RedisNotifier)(nil)

// RedisNotifier fans signals out across processes over Redis pub/sub.
// Publish sends to the issue's channel; Start subscribes to all issue
// channels and replays what arrives into a local Hub, including signals
// this process published itself. Signals sent while the subscription is
// down are lost.
type RedisNotifier struct {
	rdb *redis.Client
	hub *Hub
	log logging.Logger

	mu     sync.Mutex
	pubsub *redis.PubSub
	done   chan struct{}
}

func NewRedisNotifier(rdb *redis.Client, log logging.Logger) *RedisNotifier {
	return &RedisNotifier{
		rdb: rdb,
		hub: NewHub(log),
		log: log.With("module", "notifier.redis"),
	}
}

func Channel(issueID string) string {
	return common.IssueChannelPrefix + issueID
}

func (n *RedisNotifier) Subscribe(issueID string, h Handler) CancelFunc {
	return n.hub.Subscribe(issueID, h)
}

func (n *RedisNotifier) Publish(ctx context.Context, issueID string) error {
	if err := n.rdb.Publish(ctx, Channel(issueID), issueID).Err(); err != nil {
		return fmt.Errorf("%w: publish: %w", common.ErrorBackendUnavailable, err)
	}
	return nil
}

// Start subscribes to every issue channel and returns once Redis has
// confirmed the subscription. Messages are dispatched until ctx ends or
// Close is called.
func (n *RedisNotifier) Start(ctx context.Context) error {
	pubsub := n.rdb.PSubscribe(ctx, common.IssueChannelPrefix+"*")

	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("%w: subscribe: %w", common.ErrorBackendUnavailable, err)
	}

	n.mu.Lock()
	n.pubsub = pubsub
	n.done = make(chan struct{})
	n.mu.Unlock()

	n.log.Info(ctx, "subscribed", "pattern", common.IssueChannelPrefix+"*")
	go n.listen(ctx, pubsub, n.done)
	return nil
}

func (n *RedisNotifier) listen(ctx context.Context, pubsub *redis.PubSub, done chan struct{}) {
	defer close(done)
	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			_ = pubsub.Close()
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			issueID := strings.TrimPrefix(msg.Channel, common.IssueChannelPrefix)
			if err := n.hub.Publish(ctx, issueID); err != nil {
				n.log.Warn(ctx, "local dispatch failed", "issue_id", issueID, "error", err)
			}
		}
	}
}

// Close stops the listener and waits for it to exit.
func (n *RedisNotifier) Close() error {
	n.mu.Lock()
	pubsub, done := n.pubsub, n.done
	n.pubsub = nil
	n.mu.Unlock()

	if pubsub == nil {
		return nil
	}
	err := pubsub.Close()
	<-done
	if errors.Is(err, redis.ErrClosed) {
		return nil
	}
	return err
}
