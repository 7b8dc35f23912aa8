package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/avvvet/toywonder-assistant/internal/config"
	"github.com/avvvet/toywonder-assistant/internal/handlers"
	"github.com/avvvet/toywonder-assistant/internal/logger"
	"github.com/avvvet/toywonder-assistant/internal/models"
)

// Subject suffixes served under the configured prefix
const (
	SubjectSubmit          = "submit"
	SubjectFeedback        = "feedback"
	SubjectRate            = "rate"
	SubjectReset           = "reset"
	SubjectSnapshot        = "snapshot"
	SubjectView            = "view"
	SubjectRecommendations = "recommendations"
)

type operation func(ctx context.Context, req *models.AssistantRequest) *models.AssistantResponse

// NATSTransport serves session operations over NATS request/reply. Each
// request runs on its own goroutine; inflight bounds how many run at once.
type NATSTransport struct {
	conn     *nats.Conn
	config   *config.Config
	handler  *handlers.AssistantHandler
	logger   logger.Logger
	subs     []*nats.Subscription
	inflight chan struct{}
	wg       sync.WaitGroup
}

func NewNATSTransport(cfg *config.Config, handler *handlers.AssistantHandler, log logger.Logger) (*NATSTransport, error) {
	conn, err := nats.Connect(cfg.NatsURL,
		nats.Name(cfg.ServiceName),
		nats.Timeout(cfg.NatsTimeout),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.Info("Connected to NATS server", map[string]interface{}{"url": cfg.NatsURL})

	limit := cfg.NatsMaxInflight
	if limit < 1 {
		limit = 1
	}
	return &NATSTransport{
		conn:     conn,
		config:   cfg,
		handler:  handler,
		logger:   log.WithFields(map[string]interface{}{"component": "nats"}),
		inflight: make(chan struct{}, limit),
	}, nil
}

func (nt *NATSTransport) operations() map[string]operation {
	return map[string]operation{
		SubjectSubmit:          nt.handler.Submit,
		SubjectFeedback:        nt.handler.Feedback,
		SubjectRate:            nt.handler.Rate,
		SubjectReset:           nt.handler.Reset,
		SubjectSnapshot:        nt.handler.Snapshot,
		SubjectView:            nt.handler.RecordView,
		SubjectRecommendations: nt.handler.Recommendations,
	}
}

func (nt *NATSTransport) Start() error {
	for suffix, op := range nt.operations() {
		subject := nt.subject(suffix)
		op := op
		sub, err := nt.conn.Subscribe(subject, func(msg *nats.Msg) {
			nt.dispatch(op, msg.Data, func(out []byte) { nt.respond(msg, out) })
		})
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
		}
		nt.subs = append(nt.subs, sub)
		nt.logger.Info("Subscribed", map[string]interface{}{"subject": subject})
	}
	return nil
}

func (nt *NATSTransport) subject(suffix string) string {
	return nt.config.NatsSubjectPrefix + "." + suffix
}

// dispatch runs op on its own goroutine and passes the encoded response to
// reply. It blocks while every inflight slot is taken.
func (nt *NATSTransport) dispatch(op operation, data []byte, reply func([]byte)) {
	nt.inflight <- struct{}{}
	nt.wg.Add(1)
	go func() {
		defer func() {
			<-nt.inflight
			nt.wg.Done()
		}()
		reply(nt.process(op, data))
	}()
}

// process decodes one request, runs op and encodes the reply
func (nt *NATSTransport) process(op operation, data []byte) []byte {
	var request models.AssistantRequest
	var response *models.AssistantResponse

	if err := json.Unmarshal(data, &request); err != nil {
		nt.logger.Warn("Error parsing request", map[string]interface{}{"error": err})
		response = errorResponse(models.ErrorParseError, "Invalid request format")
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), nt.config.NatsTimeout)
		response = op(ctx, &request)
		cancel()
	}

	out, err := json.Marshal(response)
	if err != nil {
		nt.logger.Error("Failed to marshal response", map[string]interface{}{"error": err})
		out, _ = json.Marshal(errorResponse(models.ErrorInternal, "failed to encode response"))
	}
	return out
}

func (nt *NATSTransport) respond(msg *nats.Msg, data []byte) {
	if err := msg.Respond(data); err != nil {
		nt.logger.Error("Error sending response", map[string]interface{}{
			"subject": msg.Subject,
			"error":   err,
		})
	}
}

// Close stops new deliveries, waits for running requests to reply and then
// drains the connection.
func (nt *NATSTransport) Close() error {
	for _, sub := range nt.subs {
		if err := sub.Unsubscribe(); err != nil {
			nt.logger.Warn("Error unsubscribing", map[string]interface{}{
				"subject": sub.Subject,
				"error":   err,
			})
		}
	}
	nt.wg.Wait()

	if nt.conn != nil {
		if err := nt.conn.Drain(); err != nil {
			nt.conn.Close()
		}
		nt.logger.Info("NATS connection closed", nil)
	}
	return nil
}

func errorResponse(errorCode, errorMessage string) *models.AssistantResponse {
	return &models.AssistantResponse{
		Status:       models.StatusError,
		ErrorCode:    &errorCode,
		ErrorMessage: &errorMessage,
	}
}
