package relay

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/MrFixITslu/SIWM-Shipping-Inventory---warehouse-Management-sub001/metrics"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/google/uuid"
	skafka "github.com/segmentio/kafka-go"
)

// Writer is the subset of kafka.Writer the relay needs
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...skafka.Message) error
	Close() error
}

// Message is the JSON value mirrored to Kafka for every published event
type Message struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	PublishedAt time.Time       `json:"published_at"`
}

// KafkaRelay mirrors hub events to a Kafka topic. Publish never blocks the
// caller; messages are handed to a single background writer so per-shipment
// order is kept.
type KafkaRelay struct {
	writer       Writer
	queue        chan skafka.Message
	writeTimeout time.Duration
	logger       cmtlog.Logger
	metrics      *metrics.Metrics
	now          func() time.Time

	wg       sync.WaitGroup
	stopOnce sync.Once
	stop     chan struct{}
}

// NewKafkaRelay creates a relay writing to brokers/topic
func NewKafkaRelay(brokers []string, topic string, logger cmtlog.Logger, m *metrics.Metrics) *KafkaRelay {
	w := &skafka.Writer{
		Addr:     skafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &skafka.Hash{},
	}
	return NewKafkaRelayWithWriter(w, logger, m)
}

// NewKafkaRelayWithWriter allows injecting a test writer
func NewKafkaRelayWithWriter(w Writer, logger cmtlog.Logger, m *metrics.Metrics) *KafkaRelay {
	return &KafkaRelay{
		writer:       w,
		queue:        make(chan skafka.Message, 256),
		writeTimeout: 5 * time.Second,
		logger:       logger.With("module", "relay"),
		metrics:      m,
		now:          time.Now,
		stop:         make(chan struct{}),
	}
}

// Start launches the background writer
func (r *KafkaRelay) Start() {
	r.wg.Add(1)
	go r.run()
}

// Publish queues the event. Payloads carrying an "id" field are keyed by it so
// one shipment's events land on one partition.
func (r *KafkaRelay) Publish(eventType string, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		r.logger.Error("encoding relay payload", "type", eventType, "err", err)
		r.metrics.RelayResult("encode_error")
		return
	}
	value, err := json.Marshal(Message{
		ID:          uuid.NewString(),
		Type:        eventType,
		Payload:     raw,
		PublishedAt: r.now().UTC(),
	})
	if err != nil {
		r.logger.Error("encoding relay message", "type", eventType, "err", err)
		r.metrics.RelayResult("encode_error")
		return
	}

	msg := skafka.Message{Key: []byte(shipmentKey(raw)), Value: value}
	select {
	case r.queue <- msg:
	default:
		r.logger.Error("relay queue full, dropping event", "type", eventType)
		r.metrics.RelayResult("dropped")
	}
}

func (r *KafkaRelay) run() {
	defer r.wg.Done()
	for {
		select {
		case msg := <-r.queue:
			r.write(msg)
		case <-r.stop:
			for {
				select {
				case msg := <-r.queue:
					r.write(msg)
				default:
					return
				}
			}
		}
	}
}

func (r *KafkaRelay) write(msg skafka.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), r.writeTimeout)
	defer cancel()
	if err := r.writer.WriteMessages(ctx, msg); err != nil {
		r.logger.Error("kafka write error", "key", string(msg.Key), "err", err)
		r.metrics.RelayResult("error")
		return
	}
	r.metrics.RelayResult("ok")
}

// Close drains queued messages and closes the writer
func (r *KafkaRelay) Close() error {
	r.stopOnce.Do(func() { close(r.stop) })
	r.wg.Wait()
	return r.writer.Close()
}

func shipmentKey(payload json.RawMessage) string {
	var keyed struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(payload, &keyed); err != nil || keyed.ID == 0 {
		return ""
	}
	return strconv.FormatInt(keyed.ID, 10)
}
