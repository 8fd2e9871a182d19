package wsrpc

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	gorilla "github.com/gorilla/websocket"

	"github.com/jackalope/jackalope.go/internal/codec"
	"github.com/jackalope/jackalope.go/pkg/constants"
	"github.com/jackalope/jackalope.go/pkg/logger"
	"github.com/jackalope/jackalope.go/pkg/transport"
)

type HandlerOption func(h *Handler)

func WithHandlerLogger(l logger.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = l
	}
}

// Handler serves a Transport to Clients. Each connection handles its requests
// concurrently; responses may arrive out of order.
type Handler struct {
	backend  transport.Transport
	codec    codec.Codec
	logger   logger.Logger
	upgrader gorilla.Upgrader
}

func NewHandler(backend transport.Transport, opts ...HandlerOption) *Handler {
	h := &Handler{
		backend: backend,
		codec:   codec.NewCBOR(),
		logger:  logger.Nop(),
		upgrader: gorilla.Upgrader{
			Subprotocols:      []string{"cbor"},
			EnableCompression: true,
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var (
		writeLock sync.Mutex
		inflight  sync.WaitGroup
	)
	reply := func(res *Response) {
		data, err := h.codec.Marshal(res)
		if err != nil {
			h.logger.Error("failed to encode response", "id", res.ID, "error", err)
			return
		}
		writeLock.Lock()
		defer writeLock.Unlock()
		if err := conn.WriteMessage(gorilla.BinaryMessage, data); err != nil {
			h.logger.Debug("failed to write response", "id", res.ID, "error", err)
		}
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !gorilla.IsCloseError(err, gorilla.CloseNormalClosure, gorilla.CloseGoingAway) {
				h.logger.Warn("websocket read failed", "remote", r.RemoteAddr, "error", err)
			}
			break
		}
		var req Request
		if err := h.codec.Unmarshal(data, &req); err != nil {
			h.logger.Warn("malformed request", "remote", r.RemoteAddr, "error", err)
			continue
		}
		inflight.Add(1)
		go func() {
			defer inflight.Done()
			reply(h.handle(ctx, &req))
		}()
	}
	cancel()
	inflight.Wait()
}

func (h *Handler) handle(ctx context.Context, req *Request) *Response {
	result, err := h.call(ctx, req)
	res := &Response{ID: req.ID}
	if err != nil {
		h.logger.Debug("request failed", "method", req.Method, "error", err)
		res.Error = newRPCError(err)
		return res
	}
	if result != nil {
		data, err := h.codec.Marshal(result)
		if err != nil {
			res.Error = newRPCError(fmt.Errorf("%w: encode result: %w", constants.ErrRepository, err))
			return res
		}
		res.Result = data
	}
	return res
}

func (h *Handler) call(ctx context.Context, req *Request) (any, error) {
	p := req.Params
	switch req.Method {
	case MethodFetchNode:
		return h.backend.FetchNode(ctx, p.Workspace, p.Path)
	case MethodFetchNodeByIdentifier:
		return h.backend.FetchNodeByIdentifier(ctx, p.Workspace, p.Identifier)
	case MethodFetchNodeTypes:
		return h.backend.FetchNodeTypeDefinitions(ctx, p.Name)
	case MethodDispatch:
		if p.ChangeSet == nil {
			return nil, fmt.Errorf("%w: dispatch without change set", constants.ErrRepository)
		}
		return nil, h.backend.Dispatch(ctx, p.ChangeSet)
	case MethodRegisterNodeTypes:
		reg, ok := h.backend.(transport.NodeTypeRegistrar)
		if !ok {
			return nil, fmt.Errorf("%w: %s", constants.ErrMethodNotAllowed, req.Method)
		}
		return nil, reg.RegisterNodeTypes(ctx, p.Definitions)
	}
	return nil, fmt.Errorf("%w: %q", constants.ErrMethodNotAllowed, req.Method)
}
