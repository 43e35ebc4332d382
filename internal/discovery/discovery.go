package discovery

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"slices"
	"sync"
	"time"
)

const (
	// BroadcastPort is the UDP port used for room discovery.
	BroadcastPort = 9998
	// BroadcastInterval is how often hosts advertise their room.
	BroadcastInterval = 1 * time.Second
	// RoomExpiry is how long a room stays visible after its last broadcast.
	RoomExpiry = 4 * time.Second
)

// RoomInfo describes a running game that accepts spectators.
type RoomInfo struct {
	RoomName   string `json:"room_name"`
	HostName   string `json:"host_name"`
	Spectators int    `json:"spectators"`
	Level      int    `json:"level"`
	GameAddr   string `json:"game_addr"` // TCP host:port of the spectator stream
}

// --- Broadcaster ---

// Broadcaster periodically sends UDP broadcast packets with room info.
type Broadcaster struct {
	Port int

	info RoomInfo
	done chan struct{}
	once sync.Once
	mu   sync.Mutex
}

// NewBroadcaster creates a new room broadcaster.
func NewBroadcaster(info RoomInfo) *Broadcaster {
	return &Broadcaster{
		Port: BroadcastPort,
		info: info,
		done: make(chan struct{}),
	}
}

// UpdateSpectators updates the advertised spectator count.
func (b *Broadcaster) UpdateSpectators(count int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.info.Spectators = count
}

// UpdateLevel updates the advertised level.
func (b *Broadcaster) UpdateLevel(level int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.info.Level = level
}

// Start begins broadcasting room info via UDP.
func (b *Broadcaster) Start() error {
	// Use ListenPacket (not DialUDP) so broadcast works on Linux.
	// DialUDP to 255.255.255.255 silently fails without SO_BROADCAST.
	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return fmt.Errorf("create broadcast socket: %w", err)
	}
	go b.broadcastLoop(conn)
	return nil
}

// Stop stops the broadcaster.
func (b *Broadcaster) Stop() {
	b.once.Do(func() { close(b.done) })
}

func (b *Broadcaster) broadcastLoop(conn net.PacketConn) {
	defer conn.Close()

	ticker := time.NewTicker(BroadcastInterval)
	defer ticker.Stop()

	// Send immediately on start, then on tick
	b.sendBroadcast(conn)

	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
			b.sendBroadcast(conn)
		}
	}
}

func (b *Broadcaster) sendBroadcast(conn net.PacketConn) {
	b.mu.Lock()
	data, err := json.Marshal(b.info)
	b.mu.Unlock()
	if err != nil {
		return
	}

	// 1. Always send to loopback for same-machine discovery
	//    (255.255.255.255 broadcast is often dropped by Linux firewall)
	conn.WriteTo(data, &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: b.Port})

	// 2. Try global broadcast
	conn.WriteTo(data, &net.UDPAddr{IP: net.IPv4bcast, Port: b.Port})

	// 3. Also broadcast on each interface's specific broadcast address
	for _, ip := range interfaceBroadcasts() {
		conn.WriteTo(data, &net.UDPAddr{IP: ip, Port: b.Port})
	}
}

// interfaceBroadcasts lists the broadcast address of every IPv4 network
// on an up, broadcast-capable interface.
func interfaceBroadcasts() []net.IP {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil
	}

	var out []net.IP
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagBroadcast == 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok {
				if ip := broadcastAddr(ipnet); ip != nil {
					out = append(out, ip)
				}
			}
		}
	}
	return out
}

// broadcastAddr computes IP | ^Mask, or nil for non-IPv4 networks.
func broadcastAddr(ipnet *net.IPNet) net.IP {
	ip4 := ipnet.IP.To4()
	if ip4 == nil {
		return nil
	}
	mask := ipnet.Mask
	if len(mask) == net.IPv6len {
		mask = mask[12:]
	}
	if len(mask) != net.IPv4len {
		return nil
	}

	broadcast := make(net.IP, net.IPv4len)
	for i := range broadcast {
		broadcast[i] = ip4[i] | ^mask[i]
	}
	return broadcast
}

// --- Listener ---

// discoveredRoom holds a room and when it was last seen.
type discoveredRoom struct {
	Info     RoomInfo
	LastSeen time.Time
}

// Listener listens for UDP broadcast room advertisements.
type Listener struct {
	Port int

	rooms map[string]*discoveredRoom // keyed by GameAddr
	mu    sync.RWMutex
	conn  *net.UDPConn
	done  chan struct{}
	once  sync.Once
}

// NewListener creates a new room listener.
func NewListener() *Listener {
	return &Listener{
		Port:  BroadcastPort,
		rooms: make(map[string]*discoveredRoom),
		done:  make(chan struct{}),
	}
}

// Start begins listening for room broadcasts.
func (l *Listener) Start() error {
	addr := &net.UDPAddr{
		Port: l.Port,
		IP:   net.IPv4zero,
	}

	var err error
	l.conn, err = net.ListenUDP("udp4", addr)
	if err != nil {
		return fmt.Errorf("listen UDP on port %d: %w (is another instance browsing?)", l.Port, err)
	}

	go l.listenLoop()
	go l.cleanupLoop()

	return nil
}

// Stop stops the listener.
func (l *Listener) Stop() {
	l.once.Do(func() {
		close(l.done)
		if l.conn != nil {
			l.conn.Close()
		}
	})
}

// Rooms returns a snapshot of currently visible rooms, sorted by name.
func (l *Listener) Rooms() []RoomInfo {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rooms := make([]RoomInfo, 0, len(l.rooms))
	for _, dr := range l.rooms {
		rooms = append(rooms, dr.Info)
	}
	slices.SortFunc(rooms, func(a, b RoomInfo) int {
		return cmp.Or(cmp.Compare(a.RoomName, b.RoomName), cmp.Compare(a.GameAddr, b.GameAddr))
	})
	return rooms
}

// WaitForRoom blocks until a room is visible. An empty name matches any
// room; otherwise the room name must match exactly.
func (l *Listener) WaitForRoom(ctx context.Context, name string) (RoomInfo, error) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		for _, room := range l.Rooms() {
			if name == "" || room.RoomName == name {
				return room, nil
			}
		}
		select {
		case <-ctx.Done():
			if name == "" {
				return RoomInfo{}, fmt.Errorf("no rooms found: %w", ctx.Err())
			}
			return RoomInfo{}, fmt.Errorf("room %q not found: %w", name, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *Listener) listenLoop() {
	buf := make([]byte, 4096)
	for {
		select {
		case <-l.done:
			return
		default:
		}

		l.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		n, _, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			continue
		}

		var info RoomInfo
		if err := json.Unmarshal(buf[:n], &info); err != nil || info.GameAddr == "" {
			continue
		}

		l.record(info, time.Now())
	}
}

func (l *Listener) record(info RoomInfo, seen time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.rooms[info.GameAddr]; !ok {
		log.Printf("[DISCOVERY] Found room %q at %s", info.RoomName, info.GameAddr)
	}
	l.rooms[info.GameAddr] = &discoveredRoom{
		Info:     info,
		LastSeen: seen,
	}
}

func (l *Listener) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case now := <-ticker.C:
			l.expireRooms(now)
		}
	}
}

// expireRooms drops rooms not heard from within RoomExpiry of now.
func (l *Listener) expireRooms(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for addr, dr := range l.rooms {
		if now.Sub(dr.LastSeen) > RoomExpiry {
			delete(l.rooms, addr)
		}
	}
}
