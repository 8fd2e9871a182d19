// Package wsrpc exposes a Transport over a websocket. Handler serves any Transport;
// Client dials a Handler and implements Transport itself. Frames are CBOR encoded
// Request and Response values correlated by request id.
package wsrpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	gorilla "github.com/gorilla/websocket"

	"github.com/jackalope/jackalope.go/internal/codec"
	"github.com/jackalope/jackalope.go/internal/rand"
	"github.com/jackalope/jackalope.go/pkg/constants"
	"github.com/jackalope/jackalope.go/pkg/logger"
	"github.com/jackalope/jackalope.go/pkg/models"
	"github.com/jackalope/jackalope.go/pkg/nodetype"
	"github.com/jackalope/jackalope.go/pkg/transport"
)

// DefaultDialer is gorilla's default dialer with compression and the cbor subprotocol.
var DefaultDialer = &gorilla.Dialer{
	Proxy:             gorilla.DefaultDialer.Proxy,
	HandshakeTimeout:  gorilla.DefaultDialer.HandshakeTimeout,
	EnableCompression: true,
	Subprotocols:      []string{"cbor"},
}

type Option func(c *Client)

func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithTimeout bounds the wait for each response. Zero leaves it to the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

func WithDialer(d *gorilla.Dialer) Option {
	return func(c *Client) {
		c.dialer = d
	}
}

type Client struct {
	conn *gorilla.Conn
	// connLock serializes writes and guards conn against Close.
	connLock sync.Mutex
	dialer   *gorilla.Dialer
	codec    codec.Codec
	timeout  time.Duration
	logger   logger.Logger

	responseChannels     map[string]chan Response
	responseChannelsLock sync.RWMutex

	closeCh   chan struct{}
	closeOnce sync.Once
	closeErr  error
}

var (
	_ transport.Transport         = (*Client)(nil)
	_ transport.NodeTypeRegistrar = (*Client)(nil)
)

// Dial connects to the Handler at url, for example ws://localhost:8080/rpc.
func Dial(ctx context.Context, url string, opts ...Option) (*Client, error) {
	c := &Client{
		dialer:           DefaultDialer,
		codec:            codec.NewCBOR(),
		timeout:          constants.DefaultWSTimeout,
		logger:           logger.Nop(),
		responseChannels: make(map[string]chan Response),
		closeCh:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	conn, res, err := c.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %w", constants.ErrRepository, url, err)
	}
	defer res.Body.Close()
	c.conn = conn

	go c.readLoop()
	return c, nil
}

func (c *Client) FetchNode(ctx context.Context, workspace, path string) (*models.RawNode, error) {
	var raw models.RawNode
	if err := c.call(ctx, MethodFetchNode, Params{Workspace: workspace, Path: path}, &raw); err != nil {
		return nil, err
	}
	if err := raw.Normalize(); err != nil {
		return nil, err
	}
	return &raw, nil
}

func (c *Client) FetchNodeByIdentifier(ctx context.Context, workspace, id string) (*models.RawNode, error) {
	var raw models.RawNode
	if err := c.call(ctx, MethodFetchNodeByIdentifier, Params{Workspace: workspace, Identifier: id}, &raw); err != nil {
		return nil, err
	}
	if err := raw.Normalize(); err != nil {
		return nil, err
	}
	return &raw, nil
}

func (c *Client) FetchNodeTypeDefinitions(ctx context.Context, name string) ([]nodetype.Definition, error) {
	var defs []nodetype.Definition
	if err := c.call(ctx, MethodFetchNodeTypes, Params{Name: name}, &defs); err != nil {
		return nil, err
	}
	return defs, nil
}

func (c *Client) Dispatch(ctx context.Context, cs *models.ChangeSet) error {
	if cs.Empty() {
		return nil
	}
	return c.call(ctx, MethodDispatch, Params{Workspace: cs.Workspace, ChangeSet: cs}, nil)
}

func (c *Client) RegisterNodeTypes(ctx context.Context, defs []nodetype.Definition) error {
	return c.call(ctx, MethodRegisterNodeTypes, Params{Definitions: defs}, nil)
}

// call sends one request and decodes the result into result, unless it is nil.
//
// The ctx is wrapped with the client timeout when one is set; running out of it fails
// with ErrTimeout.
func (c *Client) call(ctx context.Context, method Method, params Params, result any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	select {
	case <-c.closeCh:
		return c.closedError()
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	id := rand.NewRequestID(constants.RequestIDLength)
	ch, err := c.createResponseChannel(id)
	if err != nil {
		return err
	}
	defer c.removeResponseChannel(id)

	if err := c.write(&Request{ID: id, Method: method, Params: params}); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s", constants.ErrTimeout, method)
		}
		return ctx.Err()
	case <-c.closeCh:
		return c.closedError()
	case res := <-ch:
		if res.Error != nil {
			return res.Error
		}
		if result == nil || len(res.Result) == 0 {
			return nil
		}
		if err := c.codec.Unmarshal(res.Result, result); err != nil {
			return fmt.Errorf("%w: decode %s result: %w", constants.ErrRepository, method, err)
		}
		return nil
	}
}

func (c *Client) createResponseChannel(id string) (chan Response, error) {
	c.responseChannelsLock.Lock()
	defer c.responseChannelsLock.Unlock()

	if _, ok := c.responseChannels[id]; ok {
		return nil, fmt.Errorf("%w: %v", constants.ErrIDInUse, id)
	}
	// buffered so a late response never blocks the reader
	ch := make(chan Response, 1)
	c.responseChannels[id] = ch
	return ch, nil
}

func (c *Client) removeResponseChannel(id string) {
	c.responseChannelsLock.Lock()
	defer c.responseChannelsLock.Unlock()
	delete(c.responseChannels, id)
}

func (c *Client) responseChannel(id string) (chan Response, bool) {
	c.responseChannelsLock.RLock()
	defer c.responseChannelsLock.RUnlock()
	ch, ok := c.responseChannels[id]
	return ch, ok
}

func (c *Client) write(req *Request) error {
	data, err := c.codec.Marshal(req)
	if err != nil {
		return err
	}

	c.connLock.Lock()
	defer c.connLock.Unlock()
	if c.conn == nil {
		return constants.ErrTransportClosed
	}
	err = c.conn.WriteMessage(gorilla.BinaryMessage, data)
	if errors.Is(err, gorilla.ErrCloseSent) {
		c.closeWithError(err)
	}
	return err
}

func (c *Client) closeWithError(err error) {
	c.closeOnce.Do(func() {
		c.closeErr = err
		close(c.closeCh)
	})
}

func (c *Client) closedError() error {
	if c.closeErr == nil || errors.Is(c.closeErr, net.ErrClosed) {
		return constants.ErrTransportClosed
	}
	return fmt.Errorf("%w: %w", constants.ErrTransportClosed, c.closeErr)
}

func (c *Client) readLoop() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) && !gorilla.IsCloseError(err, gorilla.CloseNormalClosure) {
				c.logger.Error("websocket read failed", "error", err)
			}
			c.closeWithError(err)
			return
		}
		c.handleResponse(data)
	}
}

func (c *Client) handleResponse(data []byte) {
	var res Response
	if err := c.codec.Unmarshal(data, &res); err != nil {
		c.logger.Error("malformed response", "error", err)
		return
	}
	ch, ok := c.responseChannel(res.ID)
	if !ok {
		c.logger.Warn("response for an unknown request", "id", res.ID)
		return
	}
	ch <- res
}

// Close sends a close frame, bounded by ctx, and closes the connection.
func (c *Client) Close(ctx context.Context) error {
	c.connLock.Lock()
	defer c.connLock.Unlock()
	conn := c.conn
	if conn == nil {
		return nil
	}
	c.conn = nil

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	} else {
		_ = conn.SetWriteDeadline(time.Now().Add(time.Second))
	}
	if err := conn.WriteMessage(gorilla.CloseMessage, gorilla.FormatCloseMessage(constants.CloseMessageCode, "")); err != nil {
		c.logger.Debug("failed to write close message", "error", err)
	}
	c.closeWithError(net.ErrClosed)
	return conn.Close()
}
