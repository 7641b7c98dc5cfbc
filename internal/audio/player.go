package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// outputRate is the fixed playback rate. Waveforms at other rates are
// resampled on the way in; the oto context can only be created once per
// process, so it cannot follow each backend's native rate.
const outputRate = 44100

// Player plays mono float32 waveforms on the default output device.
// It is the uniform playback sink for TTS backends that synthesize to an
// in-memory waveform instead of driving the speakers themselves.
type Player struct {
	mu  sync.Mutex
	ctx *oto.Context
}

// NewPlayer initializes the output device context and waits for it to be ready.
func NewPlayer() (*Player, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   outputRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("audio: initializing playback context: %w", err)
	}
	<-ready
	return &Player{ctx: ctx}, nil
}

// Play blocks until the waveform has finished playing. Concurrent calls are
// serialized so two replies never talk over each other.
func (p *Player) Play(samples []float32, sampleRate int) error {
	if len(samples) == 0 {
		return nil
	}
	if sampleRate <= 0 {
		return fmt.Errorf("audio: invalid sample rate %d", sampleRate)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	pcm := toPCM16(resampleLinear(samples, sampleRate, outputRate))
	player := p.ctx.NewPlayer(bytes.NewReader(pcm))
	player.Play()
	for player.IsPlaying() {
		time.Sleep(10 * time.Millisecond)
	}
	return player.Close()
}

// resampleLinear converts samples from one rate to another by linear
// interpolation. Quality is fine for speech; no filtering needed.
func resampleLinear(in []float32, from, to int) []float32 {
	if from == to || len(in) == 0 {
		return in
	}
	outLen := int(int64(len(in)) * int64(to) / int64(from))
	if outLen == 0 {
		return nil
	}
	out := make([]float32, outLen)
	step := float64(from) / float64(to)
	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		if j >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		frac := float32(pos - float64(j))
		out[i] = in[j]*(1-frac) + in[j+1]*frac
	}
	return out
}

// toPCM16 converts float32 samples in [-1, 1] to little-endian signed 16-bit.
func toPCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(s * 32767)
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}
