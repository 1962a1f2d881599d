package network

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"sync"

	"go.uber.org/zap"

	"simplerdb/pkg/api"
	"simplerdb/pkg/core"
	"simplerdb/pkg/logger"
	"simplerdb/pkg/protocol"
)

// TCPServer answers protocol frames. Each connection is served by its own
// goroutine; statements are serialized through the shared lock.
type TCPServer struct {
	db  *core.Locked
	log *zap.Logger

	mu       sync.Mutex
	listener net.Listener
	closed   bool
}

func NewTCPServer(db *core.Locked, log *zap.Logger) *TCPServer {
	return &TCPServer{db: db, log: logger.OrNop(log)}
}

func (s *TCPServer) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(listener)
}

// Serve accepts connections on l until Close is called.
func (s *TCPServer) Serve(l net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return l.Close()
	}
	s.listener = l
	s.mu.Unlock()
	s.log.Info("tcp listening", zap.String("addr", l.Addr().String()))

	for {
		conn, err := l.Accept()
		if err != nil {
			if s.isClosed() {
				return nil
			}
			s.log.Warn("accept failed", zap.Error(err))
			continue
		}
		go s.handleConn(conn)
	}
}

func (s *TCPServer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *TCPServer) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *TCPServer) handleConn(conn net.Conn) {
	defer conn.Close()

	for {
		req, err := protocol.Decode(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.log.Debug("decode failed", zap.String("remote", conn.RemoteAddr().String()), zap.Error(err))
			}
			return
		}

		if err := s.dispatch(conn, req); err != nil {
			s.log.Debug("write failed", zap.String("remote", conn.RemoteAddr().String()), zap.Error(err))
			return
		}
	}
}

func (s *TCPServer) dispatch(w io.Writer, req *protocol.Packet) error {
	switch req.Op {
	case protocol.OpQuery:
		res, err := s.db.ExecuteString(string(req.Value))
		if err != nil {
			return protocol.Encode(w, protocol.RespErr, []byte(core.Category(err)), []byte(err.Error()))
		}
		return encodeJSON(w, res)

	case protocol.OpTables:
		return encodeJSON(w, api.ListTables(s.db))

	case protocol.OpPing:
		return protocol.Encode(w, protocol.RespOK, nil, nil)

	default:
		return protocol.Encode(w, protocol.RespErr, []byte("protocol"), []byte("unknown op"))
	}
}

func encodeJSON(w io.Writer, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return protocol.Encode(w, protocol.RespErr, []byte("internal"), []byte(err.Error()))
	}
	return protocol.Encode(w, protocol.RespOK, nil, payload)
}
