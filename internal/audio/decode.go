package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os/exec"
	"strings"
)

// DecodedAudio holds raw PCM decoded from a source recording. All channel
// slices have the same length and values are normalized to [-1.0, 1.0].
// The value is produced once per file and never mutated after creation.
type DecodedAudio struct {
	SampleRate        int
	ChannelCount      int
	DurationSeconds   float64
	SamplesPerChannel [][]float64
}

// DecodeError marks a recording the decoder could not handle (unsupported
// codec or corrupt container). It is terminal for the whole pipeline.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// DecodeFile decodes an audio or video file into raw PCM using ffmpeg.
// The source sample rate and channel layout are preserved; downmix and
// resampling happen later in EncodeWAV.
func DecodeFile(ctx context.Context, path string) (*DecodedAudio, error) {
	// ffmpeg -i input -vn -acodec pcm_s16le -f wav pipe:1
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", path,
		"-vn",
		"-acodec", "pcm_s16le",
		"-fflags", "+bitexact",
		"-f", "wav",
		"pipe:1",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, &DecodeError{Path: path, Err: fmt.Errorf("ffmpeg: %w: %s", err, lastLine(stderr.String()))}
	}

	decoded, err := parseWAVStream(stdout.Bytes())
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}

	return decoded, nil
}

// fmtChunk mirrors the PCM "fmt " sub-chunk layout.
type fmtChunk struct {
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// parseWAVStream parses the WAV container ffmpeg writes to stdout. Chunk
// sizes are placeholders when the output is not seekable, so the actual byte
// length wins over the declared data size.
func parseWAVStream(data []byte) (*DecodedAudio, error) {
	if len(data) < 12 {
		return nil, fmt.Errorf("WAV stream too short: got %d bytes", len(data))
	}

	if string(data[0:4]) != "RIFF" {
		return nil, fmt.Errorf("invalid WAV stream: missing RIFF header")
	}

	if string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("invalid WAV stream: missing WAVE format")
	}

	var format *fmtChunk
	var pcm []byte

	// Walk the sub-chunks; ffmpeg may emit metadata chunks between fmt and data.
	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := data[offset+8:]

		switch chunkID {
		case "fmt ":
			if len(body) < 16 {
				return nil, fmt.Errorf("fmt chunk too short: got %d bytes", len(body))
			}
			var fc fmtChunk
			if err := binary.Read(bytes.NewReader(body[:16]), binary.LittleEndian, &fc); err != nil {
				return nil, fmt.Errorf("failed to read fmt chunk: %w", err)
			}
			format = &fc
		case "data":
			// 0 and 0xFFFFFFFF are the placeholder sizes ffmpeg writes on an
			// unseekable output, where data is always the final chunk; only
			// then does reading to EOF stand in for the declared size.
			if chunkSize > 0 && uint32(chunkSize) != 0xFFFFFFFF && chunkSize <= len(body) {
				pcm = body[:chunkSize]
			} else {
				pcm = body
			}
			offset = len(data)
			continue
		}

		if chunkSize <= 0 || chunkSize > len(body) {
			break
		}
		offset += 8 + chunkSize + chunkSize%2
	}

	if format == nil {
		return nil, fmt.Errorf("invalid WAV stream: missing fmt chunk")
	}

	if format.AudioFormat != 1 {
		return nil, fmt.Errorf("unsupported audio format: %d (only PCM is supported)", format.AudioFormat)
	}

	if format.BitsPerSample != 16 {
		return nil, fmt.Errorf("unsupported bit depth: %d (only 16-bit is supported)", format.BitsPerSample)
	}

	if format.NumChannels < 1 {
		return nil, fmt.Errorf("invalid channel count: %d", format.NumChannels)
	}

	if format.SampleRate == 0 {
		return nil, fmt.Errorf("invalid sample rate: 0")
	}

	if len(pcm) == 0 {
		return nil, fmt.Errorf("no audio data found")
	}

	channels := int(format.NumChannels)
	frames := len(pcm) / (2 * channels) // drop any trailing partial frame
	if frames == 0 {
		return nil, fmt.Errorf("no audio data found")
	}

	samples := make([][]float64, channels)
	for c := range samples {
		samples[c] = make([]float64, frames)
	}

	// Normalize with the same 32767 scale the encoder quantizes with; only
	// the single -32768 value needs clamping to stay inside [-1.0, 1.0].
	for f := 0; f < frames; f++ {
		for c := 0; c < channels; c++ {
			off := (f*channels + c) * 2
			s := int16(pcm[off]) | int16(pcm[off+1])<<8
			v := float64(s) / 32767.0
			if v < -1.0 {
				v = -1.0
			}
			samples[c][f] = v
		}
	}

	return &DecodedAudio{
		SampleRate:        int(format.SampleRate),
		ChannelCount:      channels,
		DurationSeconds:   float64(frames) / float64(format.SampleRate),
		SamplesPerChannel: samples,
	}, nil
}

// lastLine extracts the final non-empty line of ffmpeg's stderr, which
// carries the actual failure reason.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
