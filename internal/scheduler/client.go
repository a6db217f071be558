package scheduler

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"pos_invoicing_backend/platform/apperr"
	"pos_invoicing_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const (
	defaultQueue = "invoicing"

	// createDedupWindow absorbs double submissions of the same sale.
	createDedupWindow = time.Minute
	checkDedupWindow  = 30 * time.Second
	createMaxRetry    = 5
	checkMaxRetry     = 2
)

// Client enqueues invoicing jobs.
type Client struct {
	client *asynq.Client
	redis  *redis.Client
	queue  string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	return &Client{
		client: asynq.NewClient(opt),
		redis: redis.NewClient(&redis.Options{
			Addr:      opt.Addr,
			Password:  opt.Password,
			DB:        opt.DB,
			TLSConfig: opt.TLSConfig,
		}),
		queue: queueName(cfg),
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return errors.Join(c.client.Close(), c.redis.Close())
}

// Ping checks the Redis connection behind the queue.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.redis == nil {
		return fmt.Errorf("queue client not configured")
	}
	return c.redis.Ping(ctx).Err()
}

// EnqueueCreateVoucher queues the one-shot creation job for a sale.
func (c *Client) EnqueueCreateVoucher(ctx context.Context, payload CreateVoucherPayload) (string, error) {
	if c == nil || c.client == nil {
		return "", fmt.Errorf("queue client not configured")
	}

	task, err := NewCreateVoucherTask(payload)
	if err != nil {
		return "", err
	}

	info, err := c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.MaxRetry(createMaxRetry),
		asynq.Unique(createDedupWindow),
	)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return "", apperr.Conflict("voucher creation already queued for this sale")
	}
	if err != nil {
		return "", apperr.Unavailable("enqueue voucher creation", err)
	}
	return info.ID, nil
}

// EnqueueCheck queues one out-of-band monitoring tick.
func (c *Client) EnqueueCheck(ctx context.Context, saleID string) (string, error) {
	if c == nil || c.client == nil {
		return "", fmt.Errorf("queue client not configured")
	}

	task, err := NewCheckVoucherTask(CheckVoucherPayload{SaleID: saleID})
	if err != nil {
		return "", err
	}

	info, err := c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.MaxRetry(checkMaxRetry),
		asynq.Unique(checkDedupWindow),
	)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return "", apperr.Conflict("a voucher check is already queued for this sale")
	}
	if err != nil {
		return "", apperr.Unavailable("enqueue voucher check", err)
	}
	return info.ID, nil
}

func queueName(cfg config.SchedulerConfig) string {
	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = defaultQueue
	}
	return queue
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
