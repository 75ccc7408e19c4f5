package transcription

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/wav"
)

// ErrUnsupportedAudio is returned when an audio file is not a readable PCM WAV file.
var ErrUnsupportedAudio = errors.New("unsupported audio file")

// AudioClip is a decoded audio file
type AudioClip struct {
	SampleRate int
	Channels   int
	BitDepth   int
	// Samples holds mono 16-bit samples (channels are averaged).
	Samples []int16
	// Raw is the original file content.
	Raw []byte
}

// PCM16LE returns the samples as little-endian 16-bit PCM
func (c *AudioClip) PCM16LE() []byte {
	out := make([]byte, len(c.Samples)*2)
	for i, s := range c.Samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// PCM16BE returns the samples as big-endian 16-bit PCM (audio/l16)
func (c *AudioClip) PCM16BE() []byte {
	out := make([]byte, len(c.Samples)*2)
	for i, s := range c.Samples {
		binary.BigEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// LoadAudioFile decodes a PCM WAV file
func LoadAudioFile(path string) (*AudioClip, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read audio file: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not a PCM WAV file", ErrUnsupportedAudio)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedAudio, err)
	}

	channels := int(dec.NumChans)
	if channels < 1 {
		channels = 1
	}
	bitDepth := int(dec.BitDepth)

	samples := make([]int16, 0, len(buf.Data)/channels)
	for i := 0; i+channels <= len(buf.Data); i += channels {
		sum := 0
		for ch := 0; ch < channels; ch++ {
			sum += buf.Data[i+ch]
		}
		samples = append(samples, toInt16(sum/channels, bitDepth))
	}

	return &AudioClip{
		SampleRate: int(dec.SampleRate),
		Channels:   channels,
		BitDepth:   bitDepth,
		Samples:    samples,
		Raw:        raw,
	}, nil
}

// toInt16 rescales a sample of the given bit depth to 16 bits.
// 8-bit WAV samples are unsigned.
func toInt16(v, bitDepth int) int16 {
	switch {
	case bitDepth == 8:
		return int16((v - 128) << 8)
	case bitDepth > 16:
		return int16(v >> (bitDepth - 16))
	case bitDepth < 16 && bitDepth > 0:
		return int16(v << (16 - bitDepth))
	default:
		return int16(v)
	}
}
