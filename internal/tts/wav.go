package tts

import (
	"bytes"
	"fmt"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// decodeWAV converts a RIFF/WAVE byte stream into mono float32 samples plus
// the source sample rate. Multi-channel input is averaged down to mono so the
// playback path only ever deals with one channel.
func decodeWAV(data []byte) ([]float32, int, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("tts: invalid wav data")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("tts: decode wav: %w", err)
	}
	fbuf := buf.AsFloat32Buffer()

	channels := buf.Format.NumChannels
	if channels <= 1 {
		return normalizePCM(fbuf, dec.BitDepth), int(dec.SampleRate), nil
	}

	mono := make([]float32, 0, len(fbuf.Data)/channels)
	for i := 0; i+channels <= len(fbuf.Data); i += channels {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += fbuf.Data[i+c]
		}
		mono = append(mono, sum/float32(channels))
	}
	scaled := &goaudio.Float32Buffer{Data: mono, Format: fbuf.Format}
	return normalizePCM(scaled, dec.BitDepth), int(dec.SampleRate), nil
}

// normalizePCM rescales integer PCM magnitudes into [-1, 1]. 8-bit WAV PCM
// is unsigned (0..255), so it is re-centered around zero before scaling.
func normalizePCM(buf *goaudio.Float32Buffer, bitDepth uint16) []float32 {
	scale := float32(1)
	offset := float32(0)
	switch bitDepth {
	case 8:
		scale = 1 << 7
		offset = 128
	case 16:
		scale = 1 << 15
	case 24:
		scale = 1 << 23
	case 32:
		scale = 1 << 31
	}
	out := make([]float32, len(buf.Data))
	for i, s := range buf.Data {
		out[i] = (s - offset) / scale
	}
	return out
}
