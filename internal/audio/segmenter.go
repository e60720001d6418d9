package audio

import (
	"fmt"
	"math"
)

// DefaultSegmentSeconds is the nominal segment duration the backend is tuned
// for (five minutes).
const DefaultSegmentSeconds = 300.0

// Segment is a time-bounded slice of a recording, independently encoded as
// WAV. Index order is the only ordering guarantee downstream merge relies on
// and must never be re-sorted by size or name.
type Segment struct {
	Index           int
	WAVBytes        []byte
	ApproxSizeBytes int
}

// SegmentAudio partitions decoded audio into fixed-duration segments, each
// re-encoded via EncodeWAV. It produces exactly ceil(duration/maxSegmentSeconds)
// segments in index order; the final segment may be shorter than the nominal
// duration but is never dropped or padded.
func SegmentAudio(decoded *DecodedAudio, maxSegmentSeconds float64) ([]Segment, error) {
	if decoded == nil || len(decoded.SamplesPerChannel) == 0 || len(decoded.SamplesPerChannel[0]) == 0 {
		return nil, fmt.Errorf("cannot segment empty audio")
	}

	if maxSegmentSeconds <= 0 {
		return nil, fmt.Errorf("segment duration must be positive, got %f", maxSegmentSeconds)
	}

	total := decoded.DurationSeconds
	rate := float64(decoded.SampleRate)
	numSamples := len(decoded.SamplesPerChannel[0])

	count := int(math.Ceil(total / maxSegmentSeconds))
	if count < 1 {
		count = 1
	}

	segments := make([]Segment, 0, count)
	for i := 0; i < count; i++ {
		start := int(float64(i) * maxSegmentSeconds * rate)
		end := int(math.Min(float64(i+1)*maxSegmentSeconds, total) * rate)
		if end > numSamples {
			end = numSamples
		}
		if start >= end {
			break
		}

		ranged := make([][]float64, decoded.ChannelCount)
		for c := 0; c < decoded.ChannelCount; c++ {
			ranged[c] = decoded.SamplesPerChannel[c][start:end]
		}

		wav, err := EncodeWAV(ranged, decoded.SampleRate)
		if err != nil {
			return nil, fmt.Errorf("failed to encode segment %d: %w", i, err)
		}

		segments = append(segments, Segment{
			Index:           i,
			WAVBytes:        wav,
			ApproxSizeBytes: len(wav),
		})
	}

	return segments, nil
}
