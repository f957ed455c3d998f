package pubsub

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisHub is a Hub backed by Redis pub/sub, shared by every replica
type RedisHub struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

var _ Hub = (*RedisHub)(nil)

// NewRedisHub connects to Redis and verifies the connection
func NewRedisHub(ctx context.Context, opts *redis.Options, logger *zap.Logger) (*RedisHub, error) {
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}
	return &RedisHub{client: client, prefix: "dubstudio:", logger: logger}, nil
}

func (h *RedisHub) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := h.client.Publish(ctx, h.prefix+topic, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

func (h *RedisHub) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	ps := h.client.Subscribe(ctx, h.prefix+topic)
	// wait for the subscription confirmation so later publishes are not missed
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", topic, err)
	}

	sub := &redisSub{ps: ps, out: make(chan []byte), stop: make(chan struct{})}
	go sub.pump(ps.Channel())
	return sub, nil
}

func (h *RedisHub) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := h.client.SetNX(ctx, h.prefix+"claim:"+key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	return ok, nil
}

func (h *RedisHub) Close() error {
	return h.client.Close()
}

type redisSub struct {
	ps   *redis.PubSub
	out  chan []byte
	stop chan struct{}
	once sync.Once
}

func (s *redisSub) pump(in <-chan *redis.Message) {
	defer close(s.out)
	for {
		select {
		case msg, ok := <-in:
			if !ok {
				return
			}
			select {
			case s.out <- []byte(msg.Payload):
			case <-s.stop:
				return
			}
		case <-s.stop:
			return
		}
	}
}

func (s *redisSub) C() <-chan []byte {
	return s.out
}

func (s *redisSub) Close() error {
	var err error
	s.once.Do(func() {
		close(s.stop)
		err = s.ps.Close()
	})
	return err
}
