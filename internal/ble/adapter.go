// Package ble connects to an auxiliary trigger remote: a small BLE
// peripheral (ESP32 pedal, macro pad) whose encrypted button notifications
// feed the hotkey loop as ordinary key events. This lets a capture be held
// from a device that is not the keyboard.
package ble

import "context"

// HoldVox remote GATT UUIDs.
const (
	ServiceUUID     = "7c340000-55b1-4f12-9e30-d25c8a3f0e41"
	TriggerCharUUID = "7c340001-55b1-4f12-9e30-d25c8a3f0e41"
	StatusCharUUID  = "7c340002-55b1-4f12-9e30-d25c8a3f0e41"
)

// Characteristic represents a BLE GATT characteristic.
type Characteristic interface {
	// Write sends data to the characteristic.
	Write(data []byte) error
	// Subscribe registers a callback for notifications on this characteristic.
	Subscribe(callback func(data []byte)) error
}

// Device represents a discovered BLE peripheral.
type Device struct {
	Name string
	MAC  string
	RSSI int
}

// Connection represents an active BLE connection to a peripheral.
type Connection interface {
	// DiscoverCharacteristic finds a characteristic by UUID within a service.
	DiscoverCharacteristic(serviceUUID, charUUID string) (Characteristic, error)
	// Disconnect terminates the connection.
	Disconnect() error
	// OnDisconnect registers a callback invoked when the connection drops.
	OnDisconnect(callback func())
}

// Adapter abstracts the BLE hardware adapter for testing.
type Adapter interface {
	// Enable powers on the BLE adapter.
	Enable() error
	// Scan discovers BLE peripherals advertising the given service UUID.
	// Returns discovered devices until ctx is cancelled or timeout.
	Scan(ctx context.Context, serviceUUID string) ([]Device, error)
	// Connect establishes a connection to the device with the given MAC address.
	Connect(ctx context.Context, mac string) (Connection, error)
}
