// Package audio provides microphone capture and waveform playback.
//
// The Sampler keeps one capture device running for the life of the process
// and accumulates frames only while armed, so arming a capture session is a
// cheap flag flip rather than a device init.
package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/gen2brain/malgo"
)

// Sampler continuously reads mono audio from the default microphone and
// buffers float32 samples while armed.
type Sampler struct {
	ctx        *malgo.AllocatedContext
	device     *malgo.Device
	sampleRate uint32
	channels   uint32

	mu    sync.Mutex
	buf   []float32
	armed bool
}

// NewSampler opens the default capture device and starts the stream.
// Call Close() when done. An error here is fatal for the run loop: without
// the microphone there is nothing to capture.
func NewSampler(sampleRate, channels uint32) (*Sampler, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("audio: initializing context: %w", err)
	}

	s := &Sampler{
		ctx:        ctx,
		sampleRate: sampleRate,
		channels:   channels,
	}

	deviceCfg := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceCfg.Capture.Format = malgo.FormatF32
	deviceCfg.Capture.Channels = channels
	deviceCfg.SampleRate = sampleRate

	callbacks := malgo.DeviceCallbacks{
		Data: s.onData,
	}

	device, err := malgo.InitDevice(ctx.Context, deviceCfg, callbacks)
	if err != nil {
		s.teardownContext()
		return nil, fmt.Errorf("audio: initializing capture device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		s.teardownContext()
		return nil, fmt.Errorf("audio: starting capture device: %w", err)
	}
	s.device = device

	return s, nil
}

// SampleRate returns the capture sample rate in Hz.
func (s *Sampler) SampleRate() uint32 {
	return s.sampleRate
}

// Arm clears the buffer and starts accumulating incoming frames.
// Arming an already-armed sampler is an error; the state machine guarantees
// at most one capture session, so this signals a bug upstream.
func (s *Sampler) Arm() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.armed {
		return fmt.Errorf("audio: already capturing")
	}
	s.buf = s.buf[:0] // keep capacity across sessions
	s.armed = true
	return nil
}

// Disarm stops accumulation and returns a copy of the captured samples.
// Returns nil if the sampler was not armed.
func (s *Sampler) Disarm() []float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.armed {
		return nil
	}
	s.armed = false

	out := make([]float32, len(s.buf))
	copy(out, s.buf)
	return out
}

// Armed reports whether a capture is in progress.
func (s *Sampler) Armed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.armed
}

// Close stops the device and releases all audio resources.
func (s *Sampler) Close() error {
	s.mu.Lock()
	if s.device != nil {
		s.device.Uninit()
		s.device = nil
	}
	s.armed = false
	s.mu.Unlock()

	return s.teardownContext()
}

func (s *Sampler) teardownContext() error {
	if s.ctx == nil {
		return nil
	}
	if err := s.ctx.Uninit(); err != nil {
		return fmt.Errorf("audio: uninitializing context: %w", err)
	}
	s.ctx.Free()
	s.ctx = nil
	return nil
}

// onData is the malgo callback invoked as audio frames arrive.
func (s *Sampler) onData(_, pSample []byte, frameCount uint32) {
	s.ingest(bytesToFloat32(pSample, frameCount*s.channels))
}

// ingest appends samples to the buffer while armed. Split from onData so the
// accumulation policy is testable without a live device.
func (s *Sampler) ingest(samples []float32) {
	s.mu.Lock()
	if s.armed {
		s.buf = append(s.buf, samples...)
	}
	s.mu.Unlock()
}

// bytesToFloat32 converts raw little-endian float32 bytes to a sample slice.
func bytesToFloat32(data []byte, sampleCount uint32) []float32 {
	samples := make([]float32, 0, sampleCount)
	for i := uint32(0); i < sampleCount; i++ {
		offset := i * 4
		if offset+4 > uint32(len(data)) {
			break
		}
		bits := binary.LittleEndian.Uint32(data[offset : offset+4])
		samples = append(samples, math.Float32frombits(bits))
	}
	return samples
}
