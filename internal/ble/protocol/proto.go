// Package protocol implements protobuf encoding for the HoldVox remote BLE
// protocol. The messages are small and fixed, so framing is hand-rolled
// rather than generated.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Edge is the button transition carried in a TriggerPacket.
type Edge uint32

const (
	EdgePress   Edge = 0
	EdgeRelease Edge = 1
)

// TriggerPacket is one button transition from the remote.
type TriggerPacket struct {
	Key  string // remote-assigned key name; empty means the host default
	Edge Edge
}

// MarshalTriggerPacket encodes a TriggerPacket.
//
//	field 1 (string): key
//	field 2 (uint32): edge
func MarshalTriggerPacket(p TriggerPacket) []byte {
	var buf []byte
	if p.Key != "" {
		// Field 1: tag = (1 << 3) | 2 = 0x0a, length-delimited
		buf = append(buf, 0x0a)
		buf = appendVarint(buf, uint64(len(p.Key)))
		buf = append(buf, p.Key...)
	}
	// Field 2: tag = (2 << 3) | 0 = 0x10, varint
	buf = append(buf, 0x10)
	buf = appendVarint(buf, uint64(p.Edge))
	return buf
}

// UnmarshalTriggerPacket decodes a TriggerPacket from raw protobuf bytes.
func UnmarshalTriggerPacket(data []byte) (TriggerPacket, error) {
	var p TriggerPacket
	for len(data) > 0 {
		tag, n, err := readVarint(data)
		if err != nil {
			return p, fmt.Errorf("protocol: reading tag: %w", err)
		}
		data = data[n:]
		fieldNum := uint8(tag >> 3)
		wireType := uint8(tag & 0x07)

		switch wireType {
		case 0: // varint
			val, n, err := readVarint(data)
			if err != nil {
				return p, fmt.Errorf("protocol: reading varint for field %d: %w", fieldNum, err)
			}
			data = data[n:]
			if fieldNum == 2 {
				if val > uint64(EdgeRelease) {
					return p, fmt.Errorf("protocol: invalid edge %d", val)
				}
				p.Edge = Edge(val)
			}
		case 2: // length-delimited
			length, n, err := readVarint(data)
			if err != nil {
				return p, fmt.Errorf("protocol: reading length for field %d: %w", fieldNum, err)
			}
			data = data[n:]
			if uint64(len(data)) < length {
				return p, fmt.Errorf("protocol: field %d length %d exceeds remaining %d bytes", fieldNum, length, len(data))
			}
			if fieldNum == 1 {
				p.Key = string(data[:length])
			}
			data = data[length:]
		default:
			return p, fmt.Errorf("protocol: unsupported wire type %d for field %d", wireType, fieldNum)
		}
	}
	return p, nil
}

// MarshalHello encodes the host hello written to the status characteristic
// after connecting, so the remote can show a link indicator.
//
//	field 1 (string): host name
//	field 2 (uint32): protocol version
func MarshalHello(host string, version uint32) []byte {
	var buf []byte
	buf = append(buf, 0x0a)
	buf = appendVarint(buf, uint64(len(host)))
	buf = append(buf, host...)
	buf = append(buf, 0x10)
	buf = appendVarint(buf, uint64(version))
	return buf
}

// DataPacket is the outer encrypted wrapper around a TriggerPacket.
type DataPacket struct {
	IV        []byte // 12 bytes
	Tag       []byte // 16 bytes
	Encrypted []byte
	PacketNum uint32
}

// MarshalDataPacket encodes a DataPacket.
//
//	field 1 (bytes): iv (12 bytes)
//	field 2 (bytes): tag (16 bytes)
//	field 3 (bytes): encrypted data
//	field 4 (uint32): packet_num
func MarshalDataPacket(iv, tag, encrypted []byte, packetNum uint32) ([]byte, error) {
	if len(iv) != 12 {
		return nil, fmt.Errorf("protocol: iv must be 12 bytes, got %d", len(iv))
	}
	if len(tag) != 16 {
		return nil, fmt.Errorf("protocol: tag must be 16 bytes, got %d", len(tag))
	}
	var buf []byte
	// Field 1: iv
	buf = append(buf, 0x0a)
	buf = appendVarint(buf, uint64(len(iv)))
	buf = append(buf, iv...)
	// Field 2: tag
	buf = append(buf, 0x12)
	buf = appendVarint(buf, uint64(len(tag)))
	buf = append(buf, tag...)
	// Field 3: encrypted
	buf = append(buf, 0x1a)
	buf = appendVarint(buf, uint64(len(encrypted)))
	buf = append(buf, encrypted...)
	// Field 4: packet_num
	buf = append(buf, 0x20)
	buf = appendVarint(buf, uint64(packetNum))
	return buf, nil
}

// UnmarshalDataPacket decodes a DataPacket from raw protobuf bytes.
func UnmarshalDataPacket(data []byte) (*DataPacket, error) {
	pkt := &DataPacket{}
	for len(data) > 0 {
		tag, n, err := readVarint(data)
		if err != nil {
			return nil, fmt.Errorf("protocol: reading tag: %w", err)
		}
		data = data[n:]
		fieldNum := uint8(tag >> 3)
		wireType := uint8(tag & 0x07)

		switch wireType {
		case 0: // varint
			val, n, err := readVarint(data)
			if err != nil {
				return nil, fmt.Errorf("protocol: reading varint for field %d: %w", fieldNum, err)
			}
			data = data[n:]
			if fieldNum == 4 {
				pkt.PacketNum = uint32(val)
			}
		case 2: // length-delimited
			length, n, err := readVarint(data)
			if err != nil {
				return nil, fmt.Errorf("protocol: reading length for field %d: %w", fieldNum, err)
			}
			data = data[n:]
			if uint64(len(data)) < length {
				return nil, fmt.Errorf("protocol: field %d length %d exceeds remaining %d bytes", fieldNum, length, len(data))
			}
			field := make([]byte, length)
			copy(field, data[:length])
			switch fieldNum {
			case 1:
				pkt.IV = field
			case 2:
				pkt.Tag = field
			case 3:
				pkt.Encrypted = field
			}
			data = data[length:]
		default:
			return nil, fmt.Errorf("protocol: unsupported wire type %d for field %d", wireType, fieldNum)
		}
	}
	if len(pkt.IV) != 12 {
		return nil, fmt.Errorf("protocol: iv must be 12 bytes, got %d", len(pkt.IV))
	}
	if len(pkt.Tag) != 16 {
		return nil, fmt.Errorf("protocol: tag must be 16 bytes, got %d", len(pkt.Tag))
	}
	return pkt, nil
}

// appendVarint appends a protobuf varint to buf.
func appendVarint(buf []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}

// readVarint reads a protobuf varint from data, returning value and bytes consumed.
func readVarint(data []byte) (uint64, int, error) {
	val, n := binary.Uvarint(data)
	if n <= 0 {
		return 0, 0, errors.New("protocol: invalid varint")
	}
	return val, n, nil
}
