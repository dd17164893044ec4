// Package sensor bridges swing-sensor devices to the session engine. A device
// is an accelerometer-equipped microcontroller that opens a WebSocket to this
// service and pushes a notification when it detects a swing motion. The
// bridge owns the connection lifecycle and debounce; the engine only ever
// sees debounced swing requests.
package sensor

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"swing-trainer/game"
)

// LinkState describes one device connection, for display only. The engine
// never reads it; batting stays fully usable from keyboard input regardless.
type LinkState string

const (
	StateIdle         LinkState = "idle"
	StateConnecting   LinkState = "connecting"
	StateConnected    LinkState = "connected"
	StateDisconnected LinkState = "disconnected"
	StateError        LinkState = "error"
)

const (
	// Time allowed to read the next message from a device before the
	// connection is considered dead.
	readWait = 90 * time.Second

	// Maximum message size allowed from a device.
	maxMessageSize = 1024

	// Devices that have not been seen for this long are swept from the
	// registry.
	staleAfter = 10 * time.Minute

	sweepInterval = time.Minute
)

// Frame is a message from a device
type Frame struct {
	Type      string `json:"type"` // "hello", "swing", "battery", "ping"
	DeviceID  string `json:"device_id,omitempty"`
	Firmware  string `json:"firmware,omitempty"`
	Timestamp int64  `json:"ts,omitempty"` // device clock, informational
	Battery   int    `json:"battery,omitempty"`
}

// DeviceStatus is the exported view of one known device
type DeviceStatus struct {
	DeviceID string    `json:"device_id"`
	Firmware string    `json:"firmware,omitempty"`
	State    LinkState `json:"state"`
	Battery  int       `json:"battery"`
	LastSeen time.Time `json:"last_seen"`
	Swings   int       `json:"swings"`
}

// Service tracks connected swing sensors and forwards debounced swing events
type Service struct {
	mu      sync.RWMutex
	devices map[string]*DeviceStatus

	debounce *game.Debouncer
	onSwing  func()
	onChange func()

	now func() time.Time
}

// NewService creates a sensor bridge. The debouncer is shared with the other
// input paths so that a sensor swing and a keyboard swing inside one window
// still coalesce; onSwing is invoked once per accepted event. onChange fires
// when a device's link state changes and may be nil.
func NewService(onSwing func(), debounce *game.Debouncer) *Service {
	if debounce == nil {
		debounce = game.NewDebouncer(game.DefaultDebounceWindow)
	}
	return &Service{
		devices:  make(map[string]*DeviceStatus),
		debounce: debounce,
		onSwing:  onSwing,
		now:      time.Now,
	}
}

// SetOnChange registers a callback for device state changes
func (s *Service) SetOnChange(fn func()) {
	s.onChange = fn
}

// StartSweep starts a background goroutine that drops devices not seen for a
// while, so the status display does not accumulate dead entries.
func (s *Service) StartSweep() {
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()

		for range ticker.C {
			if removed := s.sweepStale(); removed > 0 {
				log.Printf("Sensor registry swept: %d stale devices removed", removed)
			}
		}
	}()
}

// HandleConn runs the read loop for one device connection. It returns when
// the device disconnects or errors out. The caller owns the upgrade.
func (s *Service) HandleConn(conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(s.now().Add(readWait))

	deviceID := conn.RemoteAddr().String() // until the device introduces itself
	s.setState(deviceID, StateConnecting)

	defer func() {
		s.setState(deviceID, StateDisconnected)
		_ = conn.Close()
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("Sensor %s read error: %v", deviceID, err)
				s.setState(deviceID, StateError)
			}
			return
		}
		_ = conn.SetReadDeadline(s.now().Add(readWait))

		var frame Frame
		if err := json.Unmarshal(payload, &frame); err != nil {
			log.Printf("Sensor %s sent malformed frame: %v", deviceID, err)
			continue
		}

		switch frame.Type {
		case "hello":
			if frame.DeviceID != "" && frame.DeviceID != deviceID {
				s.rename(deviceID, frame.DeviceID)
				deviceID = frame.DeviceID
			}
			s.handleHello(deviceID, frame)

		case "swing":
			s.handleSwing(deviceID)

		case "battery":
			s.handleBattery(deviceID, frame.Battery)

		case "ping":
			s.touch(deviceID)

		default:
			log.Printf("Sensor %s sent unknown frame type %q", deviceID, frame.Type)
		}
	}
}

// Devices returns the status of every known device
func (s *Service) Devices() []DeviceStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statuses := make([]DeviceStatus, 0, len(s.devices))
	for _, d := range s.devices {
		statuses = append(statuses, *d)
	}
	return statuses
}

// Connected reports whether at least one device link is live
func (s *Service) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, d := range s.devices {
		if d.State == StateConnected {
			return true
		}
	}
	return false
}

func (s *Service) handleHello(deviceID string, frame Frame) {
	s.mu.Lock()
	d := s.ensureLocked(deviceID)
	d.Firmware = frame.Firmware
	d.State = StateConnected
	d.LastSeen = s.now()
	s.mu.Unlock()

	log.Printf("Sensor %s connected (firmware %s)", deviceID, frame.Firmware)
	s.notify()
}

func (s *Service) handleSwing(deviceID string) {
	now := s.now()

	s.mu.Lock()
	d := s.ensureLocked(deviceID)
	d.State = StateConnected
	d.LastSeen = now
	accepted := s.debounce.Allow(now)
	if accepted {
		d.Swings++
	}
	s.mu.Unlock()

	if accepted && s.onSwing != nil {
		s.onSwing()
	}
}

func (s *Service) handleBattery(deviceID string, level int) {
	s.mu.Lock()
	d := s.ensureLocked(deviceID)
	d.Battery = level
	d.LastSeen = s.now()
	s.mu.Unlock()
}

func (s *Service) touch(deviceID string) {
	s.mu.Lock()
	d := s.ensureLocked(deviceID)
	d.LastSeen = s.now()
	s.mu.Unlock()
}

func (s *Service) setState(deviceID string, state LinkState) {
	s.mu.Lock()
	d := s.ensureLocked(deviceID)
	d.State = state
	d.LastSeen = s.now()
	s.mu.Unlock()

	s.notify()
}

func (s *Service) rename(oldID, newID string) {
	s.mu.Lock()
	if d, ok := s.devices[oldID]; ok {
		delete(s.devices, oldID)
		d.DeviceID = newID
		s.devices[newID] = d
	}
	s.mu.Unlock()
}

// ensureLocked returns the entry for a device, creating it if needed.
// Callers must hold s.mu.
func (s *Service) ensureLocked(deviceID string) *DeviceStatus {
	d, ok := s.devices[deviceID]
	if !ok {
		d = &DeviceStatus{DeviceID: deviceID, State: StateIdle}
		s.devices[deviceID] = d
	}
	return d
}

func (s *Service) sweepStale() int {
	cutoff := s.now().Add(-staleAfter)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, d := range s.devices {
		if d.State != StateConnected && d.LastSeen.Before(cutoff) {
			delete(s.devices, id)
			removed++
		}
	}
	return removed
}

func (s *Service) notify() {
	if s.onChange != nil {
		s.onChange()
	}
}
