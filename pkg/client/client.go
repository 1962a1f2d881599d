package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"simplerdb/pkg/api"
	"simplerdb/pkg/core"
	"simplerdb/pkg/protocol"
	"simplerdb/pkg/sql"
)

var (
	ErrUnexpectedResponse = errors.New("unexpected response")
	// ErrReplyLost means the request reached the server but the connection
	// broke before the reply arrived. The statement may have been applied.
	ErrReplyLost = errors.New("connection lost before reply")
)

// RemoteError is an error reported by the server. Category is the taxonomy
// branch ("syntax", "schema", "data", "query", "persistence").
type RemoteError struct {
	Category string
	Message  string
}

func (e *RemoteError) Error() string {
	return e.Message
}

type Client struct {
	conn net.Conn
	addr string
}

func Dial(addr string) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, err
	}
	return &Client{
		conn: conn,
		addr: addr,
	}, nil
}

// Query runs one statement on the server.
func (c *Client) Query(stmt string) (*core.Result, error) {
	var res core.Result
	if err := c.call(protocol.OpQuery, []byte(stmt), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Tables() ([]api.TableInfo, error) {
	var tables []api.TableInfo
	if err := c.call(protocol.OpTables, nil, &tables); err != nil {
		return nil, err
	}
	return tables, nil
}

func (c *Client) Ping() error {
	return c.call(protocol.OpPing, nil, nil)
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// call sends one request and decodes the answer into out. A request that
// could not be written is resent once on a fresh connection. A request whose
// reply was lost is only resent when running it twice is harmless.
func (c *Client) call(op byte, value []byte, out interface{}) error {
	resp, sent, err := c.roundTrip(op, value)
	if err != nil {
		if errors.Is(err, protocol.ErrFrameTooLarge) {
			return err
		}
		if sent && !repeatable(op, value) {
			c.reconnect()
			return fmt.Errorf("%w: %w", ErrReplyLost, err)
		}
		if err := c.reconnect(); err != nil {
			return err
		}
		if resp, _, err = c.roundTrip(op, value); err != nil {
			return err
		}
	}

	switch resp.Op {
	case protocol.RespOK:
		if out == nil || len(resp.Value) == 0 {
			return nil
		}
		return json.Unmarshal(resp.Value, out)
	case protocol.RespErr:
		return &RemoteError{Category: string(resp.Key), Message: string(resp.Value)}
	default:
		return fmt.Errorf("%w: op 0x%02x", ErrUnexpectedResponse, resp.Op)
	}
}

// roundTrip reports sent once the request has been fully written.
func (c *Client) roundTrip(op byte, value []byte) (*protocol.Packet, bool, error) {
	if err := protocol.Encode(c.conn, op, nil, value); err != nil {
		return nil, false, err
	}
	resp, err := protocol.Decode(c.conn)
	return resp, true, err
}

func (c *Client) reconnect() error {
	c.conn.Close()
	conn, err := net.DialTimeout("tcp", c.addr, 5*time.Second)
	if err != nil {
		return err
	}
	c.conn = conn
	return nil
}

// repeatable reports whether op can run again without changing the outcome.
// Statements that fail to parse are rejected by the server either way.
func repeatable(op byte, value []byte) bool {
	if op != protocol.OpQuery {
		return true
	}
	q, err := sql.Parse(string(value))
	return err != nil || !q.Mutates()
}
