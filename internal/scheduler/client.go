package scheduler

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"ims_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// dispatchDedupeWindow collapses bursts of nudges into one queued dispatch.
const dispatchDedupeWindow = 30 * time.Second

type Client struct {
	client *asynq.Client
	queue  string
}

// DispatchEnqueuer asks the worker for an immediate dispatcher run.
type DispatchEnqueuer interface {
	EnqueueDispatch(ctx context.Context, payload CampaignDispatchPayload) error
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
		queue:  queueName(cfg),
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueDispatch queues a dispatch task now. A task already queued within
// the dedupe window is enough.
func (c *Client) EnqueueDispatch(ctx context.Context, payload CampaignDispatchPayload) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewCampaignDispatchTask(CampaignDispatchPayload{Reason: payload.Reason})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue), asynq.Unique(dispatchDedupeWindow))
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	return err
}

func queueName(cfg config.SchedulerConfig) string {
	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
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
