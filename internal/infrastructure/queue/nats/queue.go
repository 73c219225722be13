package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/scan-classifier/internal/core/domain"
	"github.com/kirillkom/scan-classifier/internal/infrastructure/resilience"
)

const (
	queueGroup            = "workers"
	defaultRequestTimeout = 120 * time.Second
)

// Queue implements ports.JobQueue over NATS request/reply. Workers share a
// queue group, so each job is processed by exactly one of them.
type Queue struct {
	conn           *nats.Conn
	subject        string
	requestTimeout time.Duration
	concurrency    int
	executor       *resilience.Executor
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	RequestTimeout       time.Duration
	// Concurrency is the number of queue subscriptions Serve opens.
	Concurrency        int
	ResilienceExecutor *resilience.Executor
}

func NewWithOptions(url, subject string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	requestTimeout := options.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}

	conn, err := nats.Connect(
		url,
		nats.Name("scan-classifier"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:           conn,
		subject:        subject,
		requestTimeout: requestTimeout,
		concurrency:    max(options.Concurrency, 1),
		executor:       options.ResilienceExecutor,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

// Ping reports whether the connection is currently usable.
func (q *Queue) Ping() error {
	if q.conn == nil || !q.conn.IsConnected() {
		return domain.WrapError(domain.ErrTemporary, "nats ping", nats.ErrConnectionClosed)
	}
	return nil
}

// Submit sends job to a worker and waits for its reply. Only failures to
// reach a worker are retried; a timeout is final because the job may still
// be running.
func (q *Queue) Submit(ctx context.Context, job domain.ProcessJob) (*domain.ProcessResult, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal job: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, q.requestTimeout)
	defer cancel()

	msg, err := resilience.Do(reqCtx, q.executor, "nats.request", func(callCtx context.Context) (*nats.Msg, error) {
		reply, err := q.conn.RequestWithContext(callCtx, q.subject, payload)
		if err != nil {
			return nil, fmt.Errorf("nats request: %w", err)
		}
		return reply, nil
	}, classifyNATSError)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, domain.WrapError(domain.ErrTemporary, "nats request", fmt.Errorf("no reply within %s: %w", q.requestTimeout, err))
		}
		return nil, wrapTemporaryIfNeeded(err)
	}

	var reply jobReply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return nil, fmt.Errorf("decode job reply: %w", err)
	}
	return reply.unwrap()
}

// Serve subscribes to the job subject until ctx is done. Handler errors are
// sent back to the requester with their failure stage.
func (q *Queue) Serve(ctx context.Context, handler func(context.Context, domain.ProcessJob) (*domain.ProcessResult, error)) error {
	subs := make([]*nats.Subscription, 0, q.concurrency)
	for i := 0; i < q.concurrency; i++ {
		sub, err := q.conn.QueueSubscribe(q.subject, queueGroup, func(msg *nats.Msg) {
			if ctx.Err() != nil {
				return
			}
			reply := handleMessage(ctx, msg.Data, handler)
			data, err := json.Marshal(reply)
			if err != nil {
				slog.Error("job_reply_encode_failed", "error", err)
				return
			}
			if err := msg.Respond(data); err != nil {
				slog.Error("job_reply_failed", "error", err)
			}
		})
		if err != nil {
			return fmt.Errorf("nats subscribe: %w", err)
		}
		subs = append(subs, sub)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}
	slog.Info("nats_worker_subscribed", "subject", q.subject, "subscriptions", len(subs))

	<-ctx.Done()
	for _, sub := range subs {
		if err := sub.Drain(); err != nil {
			return fmt.Errorf("nats drain subscription: %w", err)
		}
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func handleMessage(ctx context.Context, data []byte, handler func(context.Context, domain.ProcessJob) (*domain.ProcessResult, error)) jobReply {
	var job domain.ProcessJob
	if err := json.Unmarshal(data, &job); err != nil {
		slog.Error("job_decode_failed", "error", err)
		return failedReply(domain.WrapError(domain.ErrInvalidInput, "decode job", err))
	}

	handlerCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	result, err := handler(handlerCtx, job)
	if err != nil {
		slog.Warn("job_failed", "job_id", job.ID, "filename", job.Filename, "stage", domain.Stage(err), "error", err)
		return failedReply(err)
	}
	return jobReply{Result: result}
}
