package live

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"tradesim/internal/clock"
	"tradesim/internal/core"
	"tradesim/internal/model"
	"tradesim/internal/serialization"
	"tradesim/pkg/apperrors"
)

// connectTimeout is how long after sending Connect the lost-connection alert
// fires.
const connectTimeout = 2 * time.Second

// ClientConfig parameterizes the messaging client.
type ClientConfig struct {
	ServerURL      string
	ClientID       model.ClientID
	Authentication string
	QueueCapacity  int
	SendRateLimit  rate.Limit
	SendBurst      int
}

// MessagingClient is the live transport boundary. Inbound frames are
// deserialized and posted to the in-process queue; outbound sends are rate
// limited and attempted up to 3 times (the first try plus 2 retries) before
// giving up.
type MessagingClient struct {
	cfg         ClientConfig
	clk         clock.Clock
	uuidFactory model.UUIDFactory
	compressor  serialization.Compressor
	logger      core.ILogger

	events *serialization.EventSerializer
	queue  *Queue

	limiter *rate.Limiter
	retry   retrypolicy.RetryPolicy[any]

	mu        sync.Mutex
	conn      *websocket.Conn
	sessionID model.SessionID
	connected bool
	readDone  chan struct{}
}

// NewMessagingClient creates a client. The compressor applies to both frames
// of every message.
func NewMessagingClient(
	cfg ClientConfig,
	clk clock.Clock,
	uuidFactory model.UUIDFactory,
	compressor serialization.Compressor,
	logger core.ILogger,
) (*MessagingClient, error) {
	if err := apperrors.NotEmpty(cfg.ServerURL, "server url"); err != nil {
		return nil, err
	}
	if err := apperrors.NotEmpty(string(cfg.ClientID), "client id"); err != nil {
		return nil, err
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 1024
	}
	if cfg.SendRateLimit <= 0 {
		cfg.SendRateLimit = rate.Limit(100)
	}
	if cfg.SendBurst <= 0 {
		cfg.SendBurst = 10
	}
	return &MessagingClient{
		cfg:         cfg,
		clk:         clk,
		uuidFactory: uuidFactory,
		compressor:  compressor,
		logger:      logger.WithField("component", "messaging_client"),
		events:      serialization.NewEventSerializer(),
		queue:       NewQueue(cfg.QueueCapacity),
		limiter:     rate.NewLimiter(cfg.SendRateLimit, cfg.SendBurst),
		retry:       retrypolicy.NewBuilder[any]().WithMaxRetries(2).Build(),
	}, nil
}

// SessionID returns the session id granted by the server.
func (c *MessagingClient) SessionID() model.SessionID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// IsConnected reports whether the handshake completed.
func (c *MessagingClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Connect dials the server and performs the session handshake. A timeout
// alert fires if no Connected reply arrives within two seconds.
func (c *MessagingClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected {
		return nil
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.cfg.ServerURL, nil)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", apperrors.ErrTransport, c.cfg.ServerURL, err)
	}
	c.conn = conn

	request := Connect{
		ClientID:       c.cfg.ClientID,
		Authentication: c.cfg.Authentication,
		ID:             c.uuidFactory.Generate(),
		Timestamp:      c.clk.TimeNow(),
	}
	alertName := "connect-timeout-" + request.ID.String()
	_ = c.clk.SetTimeAlert(alertName, request.Timestamp.Add(connectTimeout), func(event clock.TimeEvent) {
		c.logger.Error("no connected reply within timeout", "client_id", string(c.cfg.ClientID))
	})
	defer func() { _ = c.clk.CancelTimer(alertName) }()

	if err := c.writeMessage(serialization.MessageTypeRequest, typeConnect, SerializeConnect(request)); err != nil {
		_ = conn.Close()
		c.conn = nil
		return err
	}

	_ = conn.SetReadDeadline(time.Now().Add(connectTimeout))
	_, frame, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		c.conn = nil
		return fmt.Errorf("%w: read connected reply: %v", apperrors.ErrTransport, err)
	}
	_ = conn.SetReadDeadline(time.Time{})

	_, body, err := c.decodeFrame(frame)
	if err != nil {
		_ = conn.Close()
		c.conn = nil
		return err
	}
	reply, err := DeserializeConnected(body)
	if err != nil {
		_ = conn.Close()
		c.conn = nil
		return err
	}
	if reply.CorrelationID != request.ID {
		_ = conn.Close()
		c.conn = nil
		return fmt.Errorf("%w: connected reply correlates to %s, not %s", apperrors.ErrTransport, reply.CorrelationID, request.ID)
	}

	c.sessionID = reply.SessionID
	c.connected = true
	c.readDone = make(chan struct{})
	go c.readPump(c.conn, c.readDone)
	c.logger.Info("session connected", "session_id", string(reply.SessionID), "server_id", string(reply.ServerID))
	return nil
}

// Disconnect sends the symmetric disconnect pair and closes the socket.
func (c *MessagingClient) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return nil
	}
	request := Disconnect{
		ClientID:  c.cfg.ClientID,
		SessionID: c.sessionID,
		ID:        c.uuidFactory.Generate(),
		Timestamp: c.clk.TimeNow(),
	}
	if err := c.writeMessage(serialization.MessageTypeRequest, typeDisconnect, SerializeDisconnect(request)); err != nil {
		c.logger.Warn("disconnect send failed", "error", err.Error())
	}
	err := c.conn.Close()
	c.connected = false
	c.conn = nil
	c.sessionID = ""
	c.queue.Close()
	if err != nil {
		return fmt.Errorf("%w: close: %v", apperrors.ErrTransport, err)
	}
	return nil
}

// SendCommand serializes and sends a command frame.
func (c *MessagingClient) SendCommand(ctx context.Context, cmd model.Command, data []byte) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limiter: %v", apperrors.ErrTransport, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return fmt.Errorf("%w: not connected", apperrors.ErrTransport)
	}
	return c.writeMessage(serialization.MessageTypeRequest, fmt.Sprintf("%T", cmd), data)
}

// Run drains the inbound queue on the caller's thread. Handlers must not
// block.
func (c *MessagingClient) Run(ctx context.Context, handler func(model.Event)) {
	c.queue.Run(ctx, handler)
}

// writeMessage frames, compresses and writes one message, retrying a bounded
// number of times on transport failure.
func (c *MessagingClient) writeMessage(messageType, typeName string, body []byte) error {
	header := serialization.EncodeMap(map[string][]byte{
		serialization.LabelMessageType: []byte(messageType),
		serialization.LabelType:        []byte(typeName),
	})
	compressedHeader, err := c.compressor.Compress(header)
	if err != nil {
		return err
	}
	compressedBody, err := c.compressor.Compress(body)
	if err != nil {
		return err
	}
	frame := EncodeFrame(compressedHeader, compressedBody)

	err = failsafe.With(c.retry).Run(func() error {
		if writeErr := c.conn.WriteMessage(websocket.BinaryMessage, frame); writeErr != nil {
			c.logger.Warn("frame write failed, retrying", "type", typeName, "error", writeErr.Error())
			return writeErr
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: write %s: %v", apperrors.ErrTransport, typeName, err)
	}
	return nil
}

func (c *MessagingClient) decodeFrame(frame []byte) (map[string][]byte, []byte, error) {
	compressedHeader, compressedBody, err := DecodeFrame(frame)
	if err != nil {
		return nil, nil, err
	}
	headerBytes, err := c.compressor.Decompress(compressedHeader)
	if err != nil {
		return nil, nil, err
	}
	header, err := serialization.DecodeMap(headerBytes)
	if err != nil {
		return nil, nil, err
	}
	body, err := c.compressor.Decompress(compressedBody)
	if err != nil {
		return nil, nil, err
	}
	return header, body, nil
}

// readPump deserializes inbound frames and posts events to the queue.
func (c *MessagingClient) readPump(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			c.logger.Info("read pump stopped", "error", err.Error())
			return
		}
		header, body, err := c.decodeFrame(frame)
		if err != nil {
			c.logger.Error("inbound frame dropped", "error", err.Error())
			continue
		}
		messageType := string(header[serialization.LabelMessageType])
		if messageType != serialization.MessageTypeResponse && messageType != serialization.MessageTypeString {
			c.logger.Warn("unexpected inbound message type", "message_type", messageType)
			continue
		}
		event, err := c.events.Deserialize(body)
		if err != nil {
			c.logger.Error("inbound event dropped", "error", err.Error())
			continue
		}
		if err := c.queue.TryPublish(event); err != nil {
			c.logger.Error("inbound queue rejected event", "error", err.Error())
		}
	}
}
