package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/cleanout-estimator/internal/core/domain"
	"github.com/kirillkom/cleanout-estimator/internal/infrastructure/resilience"
	"github.com/nats-io/nats.go"
)

const workerQueueGroup = "workers"

type Queue struct {
	conn     *nats.Conn
	subject  string
	executor *resilience.Executor
}

func New(url, subject string) (*Queue, error) {
	return NewWithOptions(url, subject, Options{})
}

type Options struct {
	ClientName           string
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

func NewWithOptions(url, subject string, options Options) (*Queue, error) {
	if strings.TrimSpace(subject) == "" {
		return nil, fmt.Errorf("nats subject is required")
	}
	clientName := options.ClientName
	if clientName == "" {
		clientName = "cleanout-estimator"
	}
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

	conn, err := nats.Connect(
		url,
		nats.Name(clientName),
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
		conn:     conn,
		subject:  subject,
		executor: options.ResilienceExecutor,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishRoomReprocess(ctx context.Context, req domain.ReprocessRequest) error {
	payload, err := encodeReprocessRequest(req)
	if err != nil {
		return err
	}

	call := func(_ context.Context) error {
		if err := q.conn.Publish(q.subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if q.executor != nil {
		err = q.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}

// SubscribeRoomReprocess blocks until ctx is cancelled, then drains the
// subscription so in-flight requests finish.
func (q *Queue) SubscribeRoomReprocess(ctx context.Context, handler func(context.Context, domain.ReprocessRequest) error) error {
	sub, err := q.conn.QueueSubscribe(q.subject, workerQueueGroup, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}

		req, err := decodeReprocessRequest(msg.Data)
		if err != nil {
			slog.Error("reprocess_message_invalid", "subject", msg.Subject, "error", err)
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler(handlerCtx, req); err != nil {
			slog.Error("reprocess_handler_failed",
				"room_id", req.RoomID,
				"request_id", req.RequestID,
				"error", err,
			)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func encodeReprocessRequest(req domain.ReprocessRequest) ([]byte, error) {
	if strings.TrimSpace(req.RoomID) == "" {
		return nil, domain.InvalidInput("nats publish", "room id is required")
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal reprocess request: %w", err)
	}
	return payload, nil
}

// decodeReprocessRequest also accepts a bare room id as the payload.
func decodeReprocessRequest(data []byte) (domain.ReprocessRequest, error) {
	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return domain.ReprocessRequest{}, fmt.Errorf("empty reprocess payload")
	}
	if !strings.HasPrefix(raw, "{") {
		return domain.ReprocessRequest{RoomID: raw}, nil
	}

	var req domain.ReprocessRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		return domain.ReprocessRequest{}, fmt.Errorf("decode reprocess payload: %w", err)
	}
	req.RoomID = strings.TrimSpace(req.RoomID)
	if req.RoomID == "" {
		return domain.ReprocessRequest{}, fmt.Errorf("reprocess payload has no room_id")
	}
	return req, nil
}
