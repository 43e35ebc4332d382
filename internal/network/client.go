package network

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/amalg/go-quadris/internal/game"
)

// Client connects to a host as a spectator and receives state updates.
type Client struct {
	conn        net.Conn
	spectatorID string
	room        string
	config      game.GameConfig
	stateCh     chan game.GameState
	done        chan struct{}
	closeOnce   sync.Once
	mu          sync.Mutex
	err         error
}

// NewClient connects to the host and joins as a spectator.
func NewClient(addr, name string) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", addr, err)
	}

	c := &Client{
		conn:    conn,
		stateCh: make(chan game.GameState, 1),
		done:    make(chan struct{}),
	}

	// Send join message
	if err := Encode(conn, MsgJoin, JoinMsg{Name: name}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send join: %w", err)
	}

	// Read welcome message
	env, err := Decode(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("read welcome: %w", err)
	}

	if env.Type == MsgError {
		var errMsg ErrorMsg
		DecodePayload(env, &errMsg)
		conn.Close()
		return nil, fmt.Errorf("server error: %s", errMsg.Message)
	}

	if env.Type != MsgWelcome {
		conn.Close()
		return nil, fmt.Errorf("expected welcome, got %s", env.Type)
	}

	var welcome WelcomeMsg
	if err := DecodePayload(env, &welcome); err != nil {
		conn.Close()
		return nil, fmt.Errorf("decode welcome: %w", err)
	}

	c.spectatorID = welcome.SpectatorID
	c.room = welcome.Room
	c.config = welcome.Config

	// Start receiving state updates
	go c.receiveLoop()

	return c, nil
}

// SpectatorID returns the id the host assigned to this client.
func (c *Client) SpectatorID() string {
	return c.spectatorID
}

// Room returns the host's room name.
func (c *Client) Room() string {
	return c.room
}

// Config returns the game configuration received from the host.
func (c *Client) Config() game.GameConfig {
	return c.config
}

// StateChan returns a channel that yields game state updates. Only the
// latest state is kept; it is closed when the connection ends.
func (c *Client) StateChan() <-chan game.GameState {
	return c.stateCh
}

// Err returns the reason the stream ended, if the host sent one.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close disconnects from the host.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

func (c *Client) receiveLoop() {
	defer close(c.stateCh)

	for {
		env, err := Decode(c.conn)
		if err != nil {
			select {
			case <-c.done:
			default:
				c.setErr(err)
			}
			return
		}

		switch env.Type {
		case MsgState:
			var stateMsg StateMsg
			if err := DecodePayload(env, &stateMsg); err != nil {
				continue
			}
			// Non-blocking send to state channel
			select {
			case c.stateCh <- stateMsg.State:
			default:
				// Drop the stale state if the consumer is slow
				select {
				case <-c.stateCh:
				default:
				}
				c.stateCh <- stateMsg.State
			}
		case MsgError:
			var errMsg ErrorMsg
			DecodePayload(env, &errMsg)
			c.setErr(errors.New(errMsg.Message))
		}
	}
}

func (c *Client) setErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		c.err = err
	}
}
