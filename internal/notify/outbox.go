package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

var (
	// ErrOutboxClosed is returned once the outbox is shut down and drained.
	ErrOutboxClosed = errors.New("outbox closed")
	// ErrOutboxFull is returned by Enqueue when the buffer has no room.
	ErrOutboxFull = errors.New("outbox full")
)

// Outbox buffers messages between the request path and the mail workers.
type Outbox interface {
	// Enqueue never waits for buffer space.
	Enqueue(ctx context.Context, msg Message) error
	// Dequeue blocks until a message is available, ctx is done, or the
	// outbox is closed.
	Dequeue(ctx context.Context) (Message, error)
	Close() error
}

// --- in-process ---

type MemoryOutbox struct {
	ch     chan Message
	closed chan struct{}
}

func NewMemoryOutbox(size int) *MemoryOutbox {
	if size < 1 {
		size = 100
	}
	return &MemoryOutbox{ch: make(chan Message, size), closed: make(chan struct{})}
}

func (o *MemoryOutbox) Enqueue(ctx context.Context, msg Message) error {
	select {
	case <-o.closed:
		return ErrOutboxClosed
	default:
	}
	select {
	case o.ch <- msg:
		return nil
	default:
		return ErrOutboxFull
	}
}

// Dequeue keeps returning buffered messages after Close; ErrOutboxClosed
// only comes once the buffer is empty.
func (o *MemoryOutbox) Dequeue(ctx context.Context) (Message, error) {
	select {
	case msg := <-o.ch:
		return msg, nil
	default:
	}
	select {
	case msg := <-o.ch:
		return msg, nil
	case <-o.closed:
		select {
		case msg := <-o.ch:
			return msg, nil
		default:
			return Message{}, ErrOutboxClosed
		}
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

func (o *MemoryOutbox) Close() error {
	select {
	case <-o.closed:
	default:
		close(o.closed)
	}
	return nil
}

// --- redis ---

const (
	defaultOutboxKey = "account:mail:outbox"
	blockTimeout     = 5 * time.Second
)

// RedisOutbox keeps pending mail in a Redis list so it survives restarts and
// can be drained by any replica.
type RedisOutbox struct {
	client *redis.Client
	key    string
	closed chan struct{}
}

func NewRedisOutbox(client *redis.Client, key string) *RedisOutbox {
	if key == "" {
		key = defaultOutboxKey
	}
	return &RedisOutbox{client: client, key: key, closed: make(chan struct{})}
}

func (o *RedisOutbox) Enqueue(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := o.client.LPush(ctx, o.key, payload).Err(); err != nil {
		return fmt.Errorf("outbox push: %w", err)
	}
	return nil
}

func (o *RedisOutbox) Dequeue(ctx context.Context) (Message, error) {
	for {
		select {
		case <-o.closed:
			return Message{}, ErrOutboxClosed
		case <-ctx.Done():
			return Message{}, ctx.Err()
		default:
		}

		res, err := o.client.BRPop(ctx, blockTimeout, o.key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return Message{}, fmt.Errorf("outbox pop: %w", err)
		}

		// res is [key, value]
		var msg Message
		if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
			return Message{}, fmt.Errorf("outbox decode: %w", err)
		}
		return msg, nil
	}
}

func (o *RedisOutbox) Close() error {
	select {
	case <-o.closed:
	default:
		close(o.closed)
	}
	return nil
}
