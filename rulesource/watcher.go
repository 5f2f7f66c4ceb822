package rulesource

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"

	"github.com/aalemi-dev/apmbridge/observability"
	"github.com/aalemi-dev/apmbridge/rules"
)

const fetchRetryDelay = time.Second

// MessageReader is the part of *kafka.Reader the watcher uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Watcher applies rule tables published on a Kafka topic to a store. A table that
// fails validation, or is older than the active one, is logged and skipped; the
// active engine keeps serving.
type Watcher struct {
	reader   MessageReader
	store    *rules.Store
	topic    string
	commit   bool
	logger   Logger
	observer observability.Observer

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWatcher creates a Kafka reader for cfg. Nothing is read until Start.
func NewWatcher(cfg KafkaConfig, store *rules.Store) (*Watcher, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil, fmt.Errorf("%w: kafka brokers and topic", ErrMissingLocation)
	}
	reader, err := newKafkaReader(cfg)
	if err != nil {
		return nil, err
	}
	w := NewWatcherWithReader(reader, store, cfg.GroupID != "")
	w.topic = cfg.Topic
	return w, nil
}

// NewWatcherWithReader wraps an existing reader. commit must be false for readers
// without a consumer group.
func NewWatcherWithReader(reader MessageReader, store *rules.Store, commit bool) *Watcher {
	return &Watcher{reader: reader, store: store, commit: commit}
}

// WithLogger attaches a logger to the watcher.
func (w *Watcher) WithLogger(l Logger) *Watcher {
	w.logger = l
	return w
}

// WithObserver attaches an observer notified of every applied or rejected update.
func (w *Watcher) WithObserver(o observability.Observer) *Watcher {
	w.observer = o
	return w
}

// Start consumes updates in a background goroutine until Stop. Calling Start on a
// running watcher does nothing.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return
	}
	ctx, w.cancel = context.WithCancel(context.WithoutCancel(ctx))
	w.done = make(chan struct{})
	go func() {
		defer close(w.done)
		w.run(ctx)
	}()
}

// Stop ends the consume loop and closes the reader.
func (w *Watcher) Stop(ctx context.Context) error {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return w.reader.Close()
}

func (w *Watcher) run(ctx context.Context) {
	w.logInfo(ctx, "watching rule table updates", map[string]interface{}{"topic": w.topic})
	for {
		msg, err := w.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return
			}
			w.logWarn(ctx, "failed to fetch rule table update", err, map[string]interface{}{"topic": w.topic})
			select {
			case <-ctx.Done():
				return
			case <-time.After(fetchRetryDelay):
			}
			continue
		}

		_ = w.Apply(ctx, msg)

		if w.commit {
			if err := w.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
				w.logWarn(ctx, "failed to commit rule table update", err, map[string]interface{}{
					"topic":  msg.Topic,
					"offset": msg.Offset,
				})
			}
		}
	}
}

// Apply loads msg as a rule table and makes it active.
func (w *Watcher) Apply(ctx context.Context, msg kafka.Message) error {
	start := time.Now()
	e, err := w.store.Update(msg.Value)

	fields := map[string]interface{}{
		"topic":     msg.Topic,
		"partition": msg.Partition,
		"offset":    msg.Offset,
		"active":    w.store.Engine().Version(),
	}
	if err != nil {
		w.logWarn(ctx, "rule table update rejected", err, fields)
	} else {
		fields["rules"] = e.Len()
		w.logInfo(ctx, "rule table updated", fields)
	}

	if w.observer != nil {
		w.observer.ObserveOperation(observability.OperationContext{
			Component:   "rulesource",
			Operation:   "update",
			Resource:    msg.Topic,
			SubResource: strconv.Itoa(msg.Partition),
			Duration:    time.Since(start),
			Error:       err,
			Size:        int64(len(msg.Value)),
			Metadata:    map[string]interface{}{"offset": msg.Offset, "version": w.store.Engine().Version()},
		})
	}
	return err
}

func (w *Watcher) logInfo(ctx context.Context, msg string, fields map[string]interface{}) {
	if w.logger != nil {
		w.logger.InfoWithContext(ctx, msg, nil, fields)
	}
}

func (w *Watcher) logWarn(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if w.logger != nil {
		w.logger.WarnWithContext(ctx, msg, err, fields)
	}
}

func newKafkaReader(cfg KafkaConfig) (*kafka.Reader, error) {
	dialer, err := newDialer(cfg)
	if err != nil {
		return nil, err
	}

	minBytes := cfg.MinBytes
	if minBytes == 0 {
		minBytes = DefaultKafkaMinBytes
	}
	maxBytes := cfg.MaxBytes
	if maxBytes == 0 {
		maxBytes = DefaultKafkaMaxBytes
	}
	maxWait := cfg.MaxWait
	if maxWait == 0 {
		maxWait = DefaultKafkaMaxWait
	}
	startOffset := cfg.StartOffset
	if startOffset == 0 {
		startOffset = LastOffset
	}

	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		MinBytes:    minBytes,
		MaxBytes:    maxBytes,
		MaxWait:     maxWait,
		StartOffset: startOffset,
		Dialer:      dialer,
	}), nil
}

// newDialer builds the broker dialer. TLS and SASL apply only when enabled.
func newDialer(cfg KafkaConfig) (*kafka.Dialer, error) {
	dialer := &kafka.Dialer{Timeout: 10 * time.Second, DualStack: true}
	if cfg.TLS.Enabled {
		tlsConfig, err := brokerTLS(cfg.TLS)
		if err != nil {
			return nil, fmt.Errorf("%w: tls: %w", ErrInvalidBrokerAuth, err)
		}
		dialer.TLS = tlsConfig
	}
	if cfg.SASL.Enabled {
		mechanism, err := brokerSASL(cfg.SASL)
		if err != nil {
			return nil, fmt.Errorf("%w: sasl: %w", ErrInvalidBrokerAuth, err)
		}
		dialer.SASLMechanism = mechanism
	}
	return dialer, nil
}

// brokerTLS requires TLS 1.2. A client certificate needs both its cert and key files.
func brokerTLS(cfg TLSConfig) (*tls.Config, error) {
	out := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec
	}

	if cfg.CACertPath != "" {
		pem, err := os.ReadFile(cfg.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("read CA bundle %s: %w", cfg.CACertPath, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates in CA bundle %s", cfg.CACertPath)
		}
		out.RootCAs = pool
	}

	switch {
	case cfg.ClientCertPath == "" && cfg.ClientKeyPath == "":
	case cfg.ClientCertPath == "" || cfg.ClientKeyPath == "":
		return nil, errors.New("client certificate and key must be set together")
	default:
		cert, err := tls.LoadX509KeyPair(cfg.ClientCertPath, cfg.ClientKeyPath)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		out.Certificates = []tls.Certificate{cert}
	}
	return out, nil
}

// brokerSASL maps the mechanism name, case-insensitively, to a kafka-go mechanism.
// An empty name means PLAIN.
func brokerSASL(cfg SASLConfig) (sasl.Mechanism, error) {
	if cfg.Username == "" {
		return nil, errors.New("username is required")
	}
	switch strings.ToUpper(cfg.Mechanism) {
	case "", "PLAIN":
		return plain.Mechanism{Username: cfg.Username, Password: cfg.Password}, nil
	case "SCRAM-SHA-256":
		return scram.Mechanism(scram.SHA256, cfg.Username, cfg.Password)
	case "SCRAM-SHA-512":
		return scram.Mechanism(scram.SHA512, cfg.Username, cfg.Password)
	}
	return nil, fmt.Errorf("unsupported SASL mechanism %q", cfg.Mechanism)
}
