package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

// buildInterleavedWAV constructs a WAV buffer with the given PCM frames,
// interleaved across channels.
func buildInterleavedWAV(t *testing.T, sampleRate int, channels int, frames [][]int16, dataSize uint32, extraChunk bool) []byte {
	t.Helper()

	var pcm []byte
	for _, frame := range frames {
		for _, sample := range frame {
			pcm = append(pcm, byte(sample), byte(uint16(sample)>>8))
		}
	}

	out := []byte("RIFF")
	out = binary.LittleEndian.AppendUint32(out, uint32(36+len(pcm)))
	out = append(out, []byte("WAVE")...)

	out = append(out, []byte("fmt ")...)
	out = binary.LittleEndian.AppendUint32(out, 16)
	out = binary.LittleEndian.AppendUint16(out, 1) // PCM
	out = binary.LittleEndian.AppendUint16(out, uint16(channels))
	out = binary.LittleEndian.AppendUint32(out, uint32(sampleRate))
	out = binary.LittleEndian.AppendUint32(out, uint32(sampleRate*channels*2))
	out = binary.LittleEndian.AppendUint16(out, uint16(channels*2))
	out = binary.LittleEndian.AppendUint16(out, 16)

	if extraChunk {
		// Metadata chunk between fmt and data, as ffmpeg emits.
		out = append(out, []byte("LIST")...)
		out = binary.LittleEndian.AppendUint32(out, 4)
		out = append(out, []byte("INFO")...)
	}

	out = append(out, []byte("data")...)
	out = binary.LittleEndian.AppendUint32(out, dataSize)
	out = append(out, pcm...)

	return out
}

func TestParseWAVStream(t *testing.T) {
	frames := [][]int16{
		{16384, -16384},
		{0, 32767},
		{-32768, 8192},
	}

	data := buildInterleavedWAV(t, 44100, 2, frames, uint32(len(frames)*4), false)

	decoded, err := parseWAVStream(data)
	if err != nil {
		t.Fatalf("parseWAVStream failed: %v", err)
	}

	if decoded.SampleRate != 44100 {
		t.Errorf("Expected sample rate 44100, got %d", decoded.SampleRate)
	}

	if decoded.ChannelCount != 2 {
		t.Errorf("Expected 2 channels, got %d", decoded.ChannelCount)
	}

	if len(decoded.SamplesPerChannel[0]) != len(frames) {
		t.Fatalf("Expected %d frames, got %d", len(frames), len(decoded.SamplesPerChannel[0]))
	}

	expectedDuration := float64(len(frames)) / 44100.0
	if math.Abs(decoded.DurationSeconds-expectedDuration) > 1e-9 {
		t.Errorf("Expected duration %.9f, got %.9f", expectedDuration, decoded.DurationSeconds)
	}

	// Spot-check normalization on both channels.
	if got := decoded.SamplesPerChannel[0][0]; math.Abs(got-0.5) > 0.001 {
		t.Errorf("Expected first left sample near 0.5, got %f", got)
	}

	if got := decoded.SamplesPerChannel[1][2]; math.Abs(got-0.25) > 0.001 {
		t.Errorf("Expected third right sample near 0.25, got %f", got)
	}

	if got := decoded.SamplesPerChannel[0][2]; math.Abs(got-(-1.0)) > 0.001 {
		t.Errorf("Expected third left sample near -1.0, got %f", got)
	}
}

func TestParseWAVStreamPlaceholderSize(t *testing.T) {
	// Unseekable outputs carry a placeholder data size; the actual byte
	// length wins.
	frames := [][]int16{{100}, {200}, {300}, {400}}
	data := buildInterleavedWAV(t, 8000, 1, frames, 0xFFFFFFFF, false)

	decoded, err := parseWAVStream(data)
	if err != nil {
		t.Fatalf("parseWAVStream failed: %v", err)
	}

	if len(decoded.SamplesPerChannel[0]) != 4 {
		t.Errorf("Expected 4 samples, got %d", len(decoded.SamplesPerChannel[0]))
	}
}

func TestParseWAVStreamTrailingChunkNotDecoded(t *testing.T) {
	// With a real data size, bytes of a chunk following data are not audio.
	frames := [][]int16{{100}, {200}, {300}, {400}}
	data := buildInterleavedWAV(t, 8000, 1, frames, uint32(len(frames)*2), false)

	data = append(data, []byte("LIST")...)
	data = binary.LittleEndian.AppendUint32(data, 4)
	data = append(data, []byte("INFO")...)

	decoded, err := parseWAVStream(data)
	if err != nil {
		t.Fatalf("parseWAVStream failed: %v", err)
	}

	if len(decoded.SamplesPerChannel[0]) != 4 {
		t.Errorf("Expected 4 samples, trailing chunk leaked into audio: got %d", len(decoded.SamplesPerChannel[0]))
	}
}

func TestParseWAVStreamSkipsMetadataChunks(t *testing.T) {
	frames := [][]int16{{1}, {2}}
	data := buildInterleavedWAV(t, 16000, 1, frames, 4, true)

	decoded, err := parseWAVStream(data)
	if err != nil {
		t.Fatalf("parseWAVStream failed: %v", err)
	}

	if len(decoded.SamplesPerChannel[0]) != 2 {
		t.Errorf("Expected 2 samples, got %d", len(decoded.SamplesPerChannel[0]))
	}
}

func TestParseWAVStreamRoundTrip(t *testing.T) {
	original := sineWave(TargetSampleRate, 0.1, 440.0)

	wavData, err := EncodeWAV([][]float64{original}, TargetSampleRate)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	decoded, err := parseWAVStream(wavData)
	if err != nil {
		t.Fatalf("parseWAVStream failed: %v", err)
	}

	if decoded.SampleRate != TargetSampleRate {
		t.Errorf("Expected sample rate %d, got %d", TargetSampleRate, decoded.SampleRate)
	}

	if len(decoded.SamplesPerChannel[0]) != len(original) {
		t.Fatalf("Expected %d samples, got %d", len(original), len(decoded.SamplesPerChannel[0]))
	}

	for i, want := range original {
		got := decoded.SamplesPerChannel[0][i]
		if math.Abs(got-want) > 1.0/32767.0 {
			t.Fatalf("Sample %d: expected %f within quantization error, got %f", i, want, got)
		}
	}
}

func TestParseWAVStreamInvalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"too short", []byte("RIFF")},
		{"not RIFF", append([]byte("JUNKxxxxWAVE"), make([]byte, 64)...)},
		{"no fmt chunk", append([]byte("RIFF\x00\x00\x00\x00WAVE"), make([]byte, 8)...)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseWAVStream(tt.data); err == nil {
				t.Error("Expected parse error")
			}
		})
	}
}

func TestDecodeFileMissing(t *testing.T) {
	// ffmpeg failures (or its absence) must surface as a DecodeError.
	_, err := DecodeFile(context.Background(), "testdata/does-not-exist.mp4")
	if err == nil {
		t.Fatal("Expected decode error for missing file")
	}

	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("Expected *DecodeError, got %T: %v", err, err)
	}
}
