package ble

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	blecrypto "github.com/ewoodruff/holdvox/internal/ble/crypto"
	"github.com/ewoodruff/holdvox/internal/ble/protocol"
	"github.com/ewoodruff/holdvox/internal/keyevent"
)

// protocolVersion is sent in the host hello.
const protocolVersion = 1

// RemoteOptions configures the trigger remote client.
type RemoteOptions struct {
	ReconnectMax int    // max reconnect backoff in seconds
	DefaultKey   string // key name emitted when a packet carries none
	HostName     string // advertised in the hello packet
}

// DefaultRemoteOptions returns sensible defaults.
func DefaultRemoteOptions() RemoteOptions {
	return RemoteOptions{
		ReconnectMax: 30,
		DefaultKey:   "f13",
		HostName:     "holdvox",
	}
}

// Remote receives encrypted button notifications from a provisioned BLE
// trigger device and republishes them as key events. The hotkey loop treats
// them exactly like keyboard input, so a remote button can hold a capture.
type Remote struct {
	adapter   Adapter
	deviceMAC string
	key       []byte // 32-byte AES encryption key
	emit      func(keyevent.Event)
	opts      RemoteOptions

	mu        sync.Mutex
	conn      Connection
	connected bool
	closed    bool
	lastPkt   uint32 // replay guard, highest packet number seen
}

// NewRemote creates a client for the provisioned remote. The key must be
// exactly 32 bytes (AES-256); derive it from the config secret with
// crypto.DeriveEncryptionKey. emit is called on the notification goroutine.
func NewRemote(adapter Adapter, deviceMAC string, key []byte, emit func(keyevent.Event), opts RemoteOptions) (*Remote, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("ble: key must be 32 bytes, got %d", len(key))
	}
	if emit == nil {
		return nil, fmt.Errorf("ble: emit callback is required")
	}
	if opts.ReconnectMax <= 0 {
		opts.ReconnectMax = 30
	}
	if opts.DefaultKey == "" {
		opts.DefaultKey = "f13"
	}
	return &Remote{
		adapter:   adapter,
		deviceMAC: deviceMAC,
		key:       key,
		emit:      emit,
		opts:      opts,
	}, nil
}

// Connect establishes the initial BLE connection and subscribes to trigger
// notifications. Drops reconnect automatically until Close.
func (r *Remote) Connect() error {
	if err := r.adapter.Enable(); err != nil {
		return fmt.Errorf("ble: enable adapter: %w", err)
	}

	ctx := context.Background()
	conn, err := r.adapter.Connect(ctx, r.deviceMAC)
	if err != nil {
		return fmt.Errorf("ble: connect to %s: %w", r.deviceMAC, err)
	}

	if err := r.setConnected(conn); err != nil {
		conn.Disconnect()
		return err
	}

	conn.OnDisconnect(r.onDisconnect)
	slog.Info("[BLE] remote connected", "mac", r.deviceMAC)
	return nil
}

// setConnected subscribes to the trigger characteristic and announces the
// host on the status characteristic.
func (r *Remote) setConnected(conn Connection) error {
	trigChar, err := conn.DiscoverCharacteristic(ServiceUUID, TriggerCharUUID)
	if err != nil {
		return fmt.Errorf("ble: discover trigger characteristic: %w", err)
	}
	if err := trigChar.Subscribe(r.handleNotification); err != nil {
		return fmt.Errorf("ble: subscribe to triggers: %w", err)
	}

	// Hello is best effort; old firmware has no status characteristic.
	if statusChar, err := conn.DiscoverCharacteristic(ServiceUUID, StatusCharUUID); err == nil {
		if err := statusChar.Write(protocol.MarshalHello(r.opts.HostName, protocolVersion)); err != nil {
			slog.Debug("[BLE] hello write failed", "error", err)
		}
	}

	r.mu.Lock()
	r.conn = conn
	r.connected = true
	r.mu.Unlock()
	return nil
}

func (r *Remote) setDisconnected() {
	r.mu.Lock()
	r.conn = nil
	r.connected = false
	r.mu.Unlock()
}

// Connected reports whether the remote link is up.
func (r *Remote) Connected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connected
}

// handleNotification decrypts one trigger notification and emits it as a key
// event. Bad packets are logged and dropped; a hostile or corrupted packet
// must never reach the hotkey loop.
func (r *Remote) handleNotification(data []byte) {
	pkt, err := protocol.UnmarshalDataPacket(data)
	if err != nil {
		slog.Warn("[BLE] malformed packet", "error", err)
		return
	}

	if !r.acceptPacketNum(pkt.PacketNum) {
		slog.Warn("[BLE] replayed or stale packet dropped", "packet_num", pkt.PacketNum)
		return
	}

	plaintext, err := blecrypto.Decrypt(r.key, pkt.IV, pkt.Encrypted, pkt.Tag)
	if err != nil {
		slog.Warn("[BLE] packet failed authentication", "error", err)
		return
	}

	trigger, err := protocol.UnmarshalTriggerPacket(plaintext)
	if err != nil {
		slog.Warn("[BLE] malformed trigger payload", "error", err)
		return
	}

	key := trigger.Key
	if key == "" {
		key = r.opts.DefaultKey
	}
	edge := keyevent.Press
	if trigger.Edge == protocol.EdgeRelease {
		edge = keyevent.Release
	}

	r.emit(keyevent.Event{
		Key:  keyevent.Normalize(key),
		Edge: edge,
		When: time.Now(),
	})
}

// acceptPacketNum enforces strictly increasing packet numbers per link. The
// counter restarts when the remote reboots, so a number far below the last
// seen one is treated as a fresh session.
func (r *Remote) acceptPacketNum(num uint32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if num > r.lastPkt || num < r.lastPkt/2 {
		r.lastPkt = num
		return true
	}
	return false
}

func (r *Remote) onDisconnect() {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return
	}
	slog.Warn("[BLE] remote disconnected, reconnecting...")
	r.setDisconnected()
	go r.reconnectLoop()
}

// reconnectLoop attempts to reconnect with exponential backoff.
func (r *Remote) reconnectLoop() {
	for attempt := 0; ; attempt++ {
		r.mu.Lock()
		closed := r.closed
		r.mu.Unlock()
		if closed {
			return
		}

		// On the first attempt, try immediately; subsequent attempts use backoff.
		if attempt > 0 {
			delay := backoffDelay(attempt-1, r.opts.ReconnectMax)
			slog.Info("[BLE] reconnect backoff", "attempt", attempt+1, "delay", delay)
			time.Sleep(delay)
		}

		conn, err := r.adapter.Connect(context.Background(), r.deviceMAC)
		if err != nil {
			slog.Warn("[BLE] reconnect failed", "error", err, "attempt", attempt+1)
			continue
		}

		if err := r.setConnected(conn); err != nil {
			slog.Warn("[BLE] reconnect subscribe failed", "error", err, "attempt", attempt+1)
			conn.Disconnect()
			continue
		}

		conn.OnDisconnect(r.onDisconnect)
		slog.Info("[BLE] remote reconnected", "mac", r.deviceMAC)
		return
	}
}

// Close disconnects and stops reconnection attempts.
func (r *Remote) Close() error {
	r.mu.Lock()
	r.closed = true
	conn := r.conn
	r.conn = nil
	r.connected = false
	r.mu.Unlock()

	if conn != nil {
		return conn.Disconnect()
	}
	return nil
}

// ScanForRemotes scans for peripherals advertising the HoldVox remote service.
func ScanForRemotes(adapter Adapter, timeout time.Duration) ([]Device, error) {
	if err := adapter.Enable(); err != nil {
		return nil, fmt.Errorf("ble: enable adapter: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	devices, err := adapter.Scan(ctx, ServiceUUID)
	if err != nil {
		return nil, fmt.Errorf("ble: scan: %w", err)
	}
	return devices, nil
}

// backoffDelay returns the reconnection delay for attempt n, capped at maxSeconds.
func backoffDelay(attempt int, maxSeconds int) time.Duration {
	if attempt > 30 {
		attempt = 30
	}
	delay := time.Duration(1<<uint(attempt)) * time.Second
	max := time.Duration(maxSeconds) * time.Second
	if delay > max {
		return max
	}
	return delay
}
