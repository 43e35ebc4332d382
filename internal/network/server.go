package network

import (
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/amalg/go-quadris/internal/game"
)

const writeTimeout = 2 * time.Second

// Server streams a host's playfield to read-only spectators.
type Server struct {
	addr     string
	room     string
	config   game.GameConfig
	listener net.Listener

	spectators map[string]*spectatorConn
	nextID     int
	latest     *game.GameState
	mu         sync.RWMutex

	dirty    chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	onChange func(count int)
}

// spectatorConn represents a connected spectator.
type spectatorConn struct {
	conn net.Conn
	id   string
	name string
	mu   sync.Mutex
}

// NewServer creates a spectator server for the named room.
func NewServer(addr, room string, config game.GameConfig) *Server {
	return &Server{
		addr:       addr,
		room:       room,
		config:     config,
		spectators: make(map[string]*spectatorConn),
		dirty:      make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

// OnSpectatorsChanged sets a callback invoked with the new spectator count
// whenever someone joins or leaves. Set it before Start.
func (s *Server) OnSpectatorsChanged(fn func(count int)) {
	s.onChange = fn
}

// Start begins accepting spectators and broadcasting published states.
func (s *Server) Start() error {
	var err error
	s.listener, err = net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	log.Printf("[SERVER] Listening on %s", s.listener.Addr())

	// Print local IPs for convenience
	printLocalIPs(s.listener.Addr().String())

	go s.acceptLoop()
	go s.broadcastLoop()

	return nil
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Stop shuts down the server and disconnects every spectator.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		if s.listener != nil {
			s.listener.Close()
		}
		s.mu.RLock()
		for _, sc := range s.spectators {
			sc.conn.Close()
		}
		s.mu.RUnlock()
	})
}

// Publish records the latest state. Spectators receive it on the next
// broadcast tick; states published in between are superseded.
func (s *Server) Publish(state game.GameState) {
	s.mu.Lock()
	s.latest = &state
	s.mu.Unlock()

	select {
	case s.dirty <- struct{}{}:
	default:
	}
}

// SpectatorCount returns the number of connected spectators.
func (s *Server) SpectatorCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.spectators)
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				log.Printf("[SERVER] Accept error: %v", err)
				continue
			}
		}
		go s.handleSpectator(conn)
	}
}

func (s *Server) handleSpectator(conn net.Conn) {
	defer conn.Close()

	// Read join message
	env, err := Decode(conn)
	if err != nil {
		log.Printf("[SERVER] Failed to read join message: %v", err)
		return
	}

	if env.Type != MsgJoin {
		log.Printf("[SERVER] Expected join message, got %s", env.Type)
		Encode(conn, MsgError, ErrorMsg{Message: "expected join message"})
		return
	}

	var joinMsg JoinMsg
	if err := DecodePayload(env, &joinMsg); err != nil {
		log.Printf("[SERVER] Failed to decode join message: %v", err)
		return
	}

	sc, latest, err := s.addSpectator(conn, joinMsg.Name)
	if err != nil {
		Encode(conn, MsgError, ErrorMsg{Message: err.Error()})
		return
	}
	log.Printf("[SERVER] Spectator joined: %s (%s)", sc.name, sc.id)

	// sc.mu is held from addSpectator, so broadcasts wait until the
	// welcome and the current state are on the wire.
	welcome := WelcomeMsg{
		SpectatorID: sc.id,
		Room:        s.room,
		Config:      s.config,
	}
	err = sc.write(MsgWelcome, welcome)
	if err == nil && latest != nil {
		err = sc.write(MsgState, StateMsg{State: *latest})
	}
	sc.mu.Unlock()
	if err != nil {
		log.Printf("[SERVER] Failed to greet %s: %v", sc.id, err)
		s.removeSpectator(sc.id)
		return
	}

	// Spectators never send after joining; a read only returns on disconnect
	for {
		if _, err := Decode(conn); err != nil {
			log.Printf("[SERVER] Spectator %s disconnected: %v", sc.id, err)
			s.removeSpectator(sc.id)
			return
		}
	}
}

// addSpectator registers a spectator and returns it with its write lock
// held, along with the state to greet it with. The caller must unlock sc.mu.
func (s *Server) addSpectator(conn net.Conn, name string) (*spectatorConn, *game.GameState, error) {
	s.mu.Lock()
	if s.config.MaxSpectators > 0 && len(s.spectators) >= s.config.MaxSpectators {
		s.mu.Unlock()
		return nil, nil, fmt.Errorf("room is full (%d spectators)", s.config.MaxSpectators)
	}
	s.nextID++
	sc := &spectatorConn{
		conn: conn,
		id:   fmt.Sprintf("s%d", s.nextID),
		name: name,
	}
	sc.mu.Lock()
	s.spectators[sc.id] = sc
	latest := s.latest
	count := len(s.spectators)
	s.mu.Unlock()

	s.notify(count)
	return sc, latest, nil
}

func (s *Server) removeSpectator(id string) {
	s.mu.Lock()
	sc, ok := s.spectators[id]
	if ok {
		sc.conn.Close()
		delete(s.spectators, id)
	}
	count := len(s.spectators)
	s.mu.Unlock()

	if ok {
		log.Printf("[SERVER] Spectator removed: %s", id)
		s.notify(count)
	}
}

func (s *Server) notify(count int) {
	if s.onChange != nil {
		s.onChange(count)
	}
}

// broadcastLoop sends the latest published state at most BroadcastRate
// times per second.
func (s *Server) broadcastLoop() {
	rate := s.config.BroadcastRate
	if rate <= 0 {
		rate = 10
	}
	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()

	pending := false
	for {
		select {
		case <-s.done:
			return
		case <-s.dirty:
			pending = true
		case <-ticker.C:
			if !pending {
				continue
			}
			pending = false
			s.mu.RLock()
			state := *s.latest
			s.mu.RUnlock()
			s.broadcastState(state)
		}
	}
}

func (s *Server) broadcastState(state game.GameState) {
	s.mu.RLock()
	targets := make([]*spectatorConn, 0, len(s.spectators))
	for _, sc := range s.spectators {
		targets = append(targets, sc)
	}
	s.mu.RUnlock()

	msg := StateMsg{State: state}
	for _, sc := range targets {
		if err := s.send(sc, MsgState, msg); err != nil {
			log.Printf("[SERVER] Failed to send state to %s: %v", sc.id, err)
			s.removeSpectator(sc.id)
		}
	}
}

func (s *Server) send(sc *spectatorConn, msgType MsgType, payload interface{}) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.write(msgType, payload)
}

// write sends one frame. The caller holds sc.mu.
func (sc *spectatorConn) write(msgType MsgType, payload interface{}) error {
	sc.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return Encode(sc.conn, msgType, payload)
}

// printLocalIPs logs the local network addresses spectators can connect to.
func printLocalIPs(addr string) {
	_, port, _ := net.SplitHostPort(addr)

	log.Println("[SERVER] Spectators can connect using:")
	for _, a := range LocalAddrs(port) {
		log.Printf("[SERVER]   %s", a)
	}
}

// LocalAddrs lists host:port for every non-loopback IPv4 interface address.
func LocalAddrs(port string) []string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil
	}

	var out []string
	for _, a := range addrs {
		if ipnet, ok := a.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipnet.IP.To4() != nil {
				out = append(out, net.JoinHostPort(ipnet.IP.String(), port))
			}
		}
	}
	return out
}
