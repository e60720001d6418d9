package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Fixed output format for every encoded segment. The minutes backend expects
// mono 16 kHz 16-bit PCM regardless of what the source recording contained.
const (
	TargetSampleRate = 16000
	targetChannels   = 1
	bitsPerSample    = 16
)

// WAVHeader represents the header structure of a WAV file
type WAVHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // File size - 8 bytes
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16  // Number of channels
	SampleRate    uint32  // Sample rate
	ByteRate      uint32  // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16  // NumChannels * BitsPerSample / 8
	BitsPerSample uint16  // Bits per sample
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // Number of bytes in the data
}

// EncodeWAV converts decoded float samples into a mono 16 kHz 16-bit PCM WAV
// buffer. All input channels are averaged sample-by-sample, the mix is
// resampled to the target rate and quantized to signed 16-bit PCM.
// The function has no shared state and is safe to call concurrently for
// independent inputs.
func EncodeWAV(samplesPerChannel [][]float64, sourceSampleRate int) ([]byte, error) {
	if len(samplesPerChannel) == 0 || len(samplesPerChannel[0]) == 0 {
		return nil, fmt.Errorf("cannot encode empty audio samples")
	}

	if sourceSampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sourceSampleRate)
	}

	mono := downmix(samplesPerChannel)
	resampled := resample(mono, sourceSampleRate, TargetSampleRate)
	samples := quantize(resampled)

	// Calculate sizes
	numChannels := uint16(targetChannels)
	dataSize := uint32(len(samples) * 2) // 2 bytes per sample
	fileSize := 36 + dataSize            // WAV header is 44 bytes, data starts at offset 44

	// Create WAV header
	header := WAVHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     fileSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1, // PCM
		NumChannels:   numChannels,
		SampleRate:    uint32(TargetSampleRate),
		ByteRate:      uint32(TargetSampleRate) * uint32(numChannels) * uint32(bitsPerSample) / 8,
		BlockAlign:    numChannels * bitsPerSample / 8,
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	// Create buffer for the entire WAV file
	buf := bytes.NewBuffer(make([]byte, 0, 44+len(samples)*2))

	// Write WAV header
	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("failed to write WAV header: %w", err)
	}

	// Write audio data (PCM samples)
	if err := binary.Write(buf, binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}

	return buf.Bytes(), nil
}

// downmix averages all channels into a single mono channel.
func downmix(channels [][]float64) []float64 {
	if len(channels) == 1 {
		return channels[0]
	}

	n := len(channels[0])
	mono := make([]float64, n)
	for i := 0; i < n; i++ {
		var sum float64
		for _, ch := range channels {
			if i < len(ch) {
				sum += ch[i]
			}
		}
		mono[i] = sum / float64(len(channels))
	}

	return mono
}

// resample selects the nearest source sample for each output position:
// source index = floor(i * srcRate / dstRate). No interpolation filter is
// applied; aliasing is an accepted trade-off for size reduction.
func resample(samples []float64, srcRate, dstRate int) []float64 {
	if srcRate == dstRate {
		return samples
	}

	outLen := int(int64(len(samples)) * int64(dstRate) / int64(srcRate))
	out := make([]float64, outLen)
	for i := range out {
		out[i] = samples[int(int64(i)*int64(srcRate)/int64(dstRate))]
	}

	return out
}

// quantize clamps each sample to [-1.0, 1.0] and scales to signed 16-bit PCM.
// Rounding to the nearest step keeps the error within half an LSB, so a
// decode with the same 32767 scale recovers the input to within one step.
func quantize(samples []float64) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		out[i] = int16(math.Round(s * 32767))
	}

	return out
}

// ValidateWAV validates a WAV buffer without decoding the audio data
func ValidateWAV(data []byte) error {
	if len(data) < 44 {
		return fmt.Errorf("WAV data too short: need at least 44 bytes, got %d", len(data))
	}

	// Check RIFF header
	if string(data[0:4]) != "RIFF" {
		return fmt.Errorf("invalid WAV file: missing RIFF header")
	}

	// Check WAVE format
	if string(data[8:12]) != "WAVE" {
		return fmt.Errorf("invalid WAV file: missing WAVE format")
	}

	// Check fmt chunk
	if string(data[12:16]) != "fmt " {
		return fmt.Errorf("invalid WAV file: missing fmt chunk")
	}

	return nil
}

// WAVInfo contains basic information about a WAV buffer
type WAVInfo struct {
	SampleRate    uint32  `json:"sample_rate"`
	Channels      uint16  `json:"channels"`
	BitsPerSample uint16  `json:"bits_per_sample"`
	Duration      float64 `json:"duration_seconds"`
	DataSize      uint32  `json:"data_size_bytes"`
	NumSamples    uint32  `json:"num_samples"`
}

// GetWAVInfo extracts metadata from a WAV buffer
func GetWAVInfo(data []byte) (*WAVInfo, error) {
	if err := ValidateWAV(data); err != nil {
		return nil, err
	}

	buf := bytes.NewReader(data)
	var header WAVHeader

	if err := binary.Read(buf, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read WAV header: %w", err)
	}

	if string(header.Subchunk2ID[:]) != "data" {
		return nil, fmt.Errorf("invalid WAV file: missing data chunk")
	}

	// Calculate derived values
	bytesPerFrame := uint32(header.BitsPerSample) / 8 * uint32(header.NumChannels)
	numSamples := header.Subchunk2Size / bytesPerFrame
	duration := float64(numSamples) / float64(header.SampleRate)

	return &WAVInfo{
		SampleRate:    header.SampleRate,
		Channels:      header.NumChannels,
		BitsPerSample: header.BitsPerSample,
		Duration:      duration,
		DataSize:      header.Subchunk2Size,
		NumSamples:    numSamples,
	}, nil
}
