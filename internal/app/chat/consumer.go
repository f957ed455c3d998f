package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"dubstudio/internal/app/metrics"
	"dubstudio/internal/app/model"
	"dubstudio/internal/app/pubsub"
	"dubstudio/internal/app/stage"
)

// claimTTL bounds how long a handled message stays claimed
const claimTTL = 24 * time.Hour

// Consumer runs a chat turn for every new user message on the session bus.
// Replicas share the bus; a claim makes sure only one of them replies.
type Consumer struct {
	hub     pubsub.Hub
	turn    *stage.ChatTurn
	logger  *zap.Logger
	metrics *metrics.Recorder
}

// NewConsumer creates a bus consumer running turn
func NewConsumer(hub pubsub.Hub, turn *stage.ChatTurn, logger *zap.Logger, recorder *metrics.Recorder) *Consumer {
	return &Consumer{hub: hub, turn: turn, logger: logger, metrics: recorder}
}

// Start subscribes to the bus and handles messages in the background until ctx
// is cancelled. The returned function waits for in-flight turns.
func (c *Consumer) Start(ctx context.Context) (wait func(), err error) {
	sub, err := c.hub.Subscribe(ctx, pubsub.SessionMessagesTopic)
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", pubsub.SessionMessagesTopic, err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case payload, ok := <-sub.C():
				if !ok {
					return
				}
				var msg model.ChatMessage
				if err := json.Unmarshal(payload, &msg); err != nil {
					c.logger.Warn("dropping malformed chat message event", zap.Error(err))
					continue
				}
				wg.Add(1)
				go func() {
					defer wg.Done()
					c.Handle(ctx, &msg)
				}()
			}
		}
	}()

	c.logger.Info("chat consumer started", zap.String("topic", pubsub.SessionMessagesTopic))
	return wg.Wait, nil
}

// Handle runs one turn for msg unless it is the assistant's own, empty, or
// already claimed by another consumer
func (c *Consumer) Handle(ctx context.Context, msg *model.ChatMessage) {
	if !stage.ShouldRespond(msg) {
		c.logger.Debug("message was sent by the assistant or has no content, skipping",
			zap.String("message_id", msg.ID))
		return
	}

	claimed, err := c.hub.Claim(ctx, "chat-turn:"+msg.ID, claimTTL)
	if err != nil {
		c.logger.Error("failed to claim chat message", zap.String("message_id", msg.ID), zap.Error(err))
		return
	}
	if !claimed {
		return
	}

	c.logger.Info("processing chat message",
		zap.String("session_id", msg.SessionID),
		zap.String("message_id", msg.ID),
		zap.String("user_id", msg.Sender))

	started := time.Now()
	reply, err := c.turn.Run(ctx, msg)
	c.metrics.StageObserved(stage.NameChatTurn, started, err)
	if err != nil {
		c.logger.Error("chat turn failed", zap.String("message_id", msg.ID), zap.Error(err))
		return
	}
	c.metrics.ChatTurn(reply.Error)
}
