// Package wav assembles playable WAV containers from raw decoded PCM
// samples, trimming pathological trailing silence and repairing frame
// alignment along the way.
package wav

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"time"

	"github.com/dgnsrekt/bookvoice/synth"
)

// HeaderSize is the fixed RIFF/WAVE header length for linear PCM.
const HeaderSize = 44

const pcmFormatCode = 1 // uncompressed linear PCM

// Header holds the format fields of a parsed WAV header.
type Header struct {
	FormatCode    uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	DataSize      uint32
}

// ErrMalformedHeader is returned by ParseHeader for non-WAV input.
var ErrMalformedHeader = errors.New("malformed WAV header")

// Encoder builds WAV artifacts. The zero value encodes without silence
// trimming; NewEncoder returns one with the default trim thresholds.
type Encoder struct {
	// TrimSilence enables trailing-silence removal for 16-bit audio.
	TrimSilence bool
	// AmplitudeThreshold is the absolute sample value at or below which a
	// sample counts as silence.
	AmplitudeThreshold int16
	// RunThreshold is the minimum trailing silence duration that triggers
	// trimming. Quiet passages shorter than this are left alone.
	RunThreshold time.Duration
	// Padding is the silence duration retained after the last loud sample.
	Padding time.Duration
}

// NewEncoder returns an Encoder with the default trim thresholds: trailing
// silence longer than 2 seconds is cut back to half a second.
func NewEncoder() *Encoder {
	return &Encoder{
		TrimSilence:        true,
		AmplitudeThreshold: 327, // ~1% of full scale
		RunThreshold:       2 * time.Second,
		Padding:            500 * time.Millisecond,
	}
}

// Encode produces a complete WAV artifact from raw samples. It never
// fails: empty input yields a header-only artifact, and misaligned input
// is truncated to whole frames. Callers must treat header-only output as
// not playable.
func (e *Encoder) Encode(raw []byte, p synth.AudioParams) []byte {
	data := raw
	if len(data) > 0 && e.TrimSilence && p.BitDepth == 16 {
		data = e.trimTrailingSilence(data, p)
	}

	if fs := p.FrameSize(); fs > 0 && len(data)%fs != 0 {
		data = data[:len(data)/fs*fs] // partial trailing frame clicks
	}

	out := make([]byte, 0, HeaderSize+len(data))
	out = appendHeader(out, p, len(data))
	return append(out, data...)
}

// EncodeBase64 decodes base64 sample data and encodes it. Malformed input
// degrades to a zero-length artifact; callers must check for it.
func (e *Encoder) EncodeBase64(b64 string, p synth.AudioParams) []byte {
	if b64 == "" {
		return e.Encode(nil, p)
	}
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil
	}
	return e.Encode(raw, p)
}

// trimTrailingSilence scans backward for the last sample louder than the
// amplitude threshold. If the trailing near-silent run exceeds the run
// threshold, the buffer is cut to that sample plus the configured padding.
// Samples here are 2 bytes little-endian signed, counted across channels;
// frame alignment is restored by the caller.
func (e *Encoder) trimTrailingSilence(data []byte, p synth.AudioParams) []byte {
	total := len(data) / 2
	lastLoud := -1
	for i := total - 1; i >= 0; i-- {
		s := int16(binary.LittleEndian.Uint16(data[i*2:]))
		if s < 0 {
			if s == -32768 {
				s = 32767
			} else {
				s = -s
			}
		}
		if s > e.AmplitudeThreshold {
			lastLoud = i
			break
		}
	}

	samplesPerSecond := p.SampleRate * p.Channels
	runLimit := int(e.RunThreshold.Seconds() * float64(samplesPerSecond))
	if total-(lastLoud+1) <= runLimit {
		return data // legitimate quiet tail, keep it
	}

	pad := int(e.Padding.Seconds() * float64(samplesPerSecond))
	end := lastLoud + 1 + pad
	if end > total {
		end = total
	}
	return data[:end*2]
}

func appendHeader(out []byte, p synth.AudioParams, dataLen int) []byte {
	byteRate := p.SampleRate * p.Channels * p.BitDepth / 8
	blockAlign := p.FrameSize()

	out = append(out, "RIFF"...)
	out = binary.LittleEndian.AppendUint32(out, uint32(36+dataLen))
	out = append(out, "WAVE"...)
	out = append(out, "fmt "...)
	out = binary.LittleEndian.AppendUint32(out, 16) // PCM format chunk size
	out = binary.LittleEndian.AppendUint16(out, pcmFormatCode)
	out = binary.LittleEndian.AppendUint16(out, uint16(p.Channels))
	out = binary.LittleEndian.AppendUint32(out, uint32(p.SampleRate))
	out = binary.LittleEndian.AppendUint32(out, uint32(byteRate))
	out = binary.LittleEndian.AppendUint16(out, uint16(blockAlign))
	out = binary.LittleEndian.AppendUint16(out, uint16(p.BitDepth))
	out = append(out, "data"...)
	out = binary.LittleEndian.AppendUint32(out, uint32(dataLen))
	return out
}

// ParseHeader reads the fixed 44-byte header of a WAV artifact.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, ErrMalformedHeader
	}
	if string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" ||
		string(b[12:16]) != "fmt " || string(b[36:40]) != "data" {
		return Header{}, ErrMalformedHeader
	}
	return Header{
		FormatCode:    binary.LittleEndian.Uint16(b[20:22]),
		Channels:      binary.LittleEndian.Uint16(b[22:24]),
		SampleRate:    binary.LittleEndian.Uint32(b[24:28]),
		ByteRate:      binary.LittleEndian.Uint32(b[28:32]),
		BlockAlign:    binary.LittleEndian.Uint16(b[32:34]),
		BitsPerSample: binary.LittleEndian.Uint16(b[34:36]),
		DataSize:      binary.LittleEndian.Uint32(b[40:44]),
	}, nil
}

// Duration computes the playing time of dataLen bytes of raw samples.
func Duration(dataLen int, p synth.AudioParams) time.Duration {
	fs := p.FrameSize()
	if p.SampleRate <= 0 || fs <= 0 {
		return 0
	}
	frames := dataLen / fs
	return time.Duration(float64(frames) / float64(p.SampleRate) * float64(time.Second))
}
