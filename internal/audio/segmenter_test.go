package audio

import (
	"math"
	"testing"
)

// testAudio builds a DecodedAudio of the given duration without going
// through ffmpeg.
func testAudio(sampleRate, channels int, seconds float64) *DecodedAudio {
	samples := make([][]float64, channels)
	for c := range samples {
		samples[c] = sineWave(sampleRate, seconds, 220.0)
	}

	return &DecodedAudio{
		SampleRate:        sampleRate,
		ChannelCount:      channels,
		DurationSeconds:   float64(len(samples[0])) / float64(sampleRate),
		SamplesPerChannel: samples,
	}
}

func TestSegmentAudioCount(t *testing.T) {
	tests := []struct {
		name            string
		durationSeconds float64
		segmentSeconds  float64
		expectedCount   int
	}{
		{"shorter than one segment", 2.0, 3.0, 1},
		{"exactly one segment", 3.0, 3.0, 1},
		{"just over one segment", 3.1, 3.0, 2},
		{"several segments", 8.1, 3.0, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded := testAudio(800, 1, tt.durationSeconds)

			segments, err := SegmentAudio(decoded, tt.segmentSeconds)
			if err != nil {
				t.Fatalf("SegmentAudio failed: %v", err)
			}

			if len(segments) != tt.expectedCount {
				t.Fatalf("Expected %d segments, got %d", tt.expectedCount, len(segments))
			}

			for i, seg := range segments {
				if seg.Index != i {
					t.Errorf("Expected contiguous index %d, got %d", i, seg.Index)
				}
				if seg.ApproxSizeBytes != len(seg.WAVBytes) {
					t.Errorf("Segment %d: size %d does not match payload %d", i, seg.ApproxSizeBytes, len(seg.WAVBytes))
				}
			}
		})
	}
}

func TestSegmentAudioDurations(t *testing.T) {
	// An 810 second recording with five-minute segments yields 300, 300 and
	// 210 seconds, in that order.
	decoded := testAudio(200, 2, 810.0)

	segments, err := SegmentAudio(decoded, 300.0)
	if err != nil {
		t.Fatalf("SegmentAudio failed: %v", err)
	}

	if len(segments) != 3 {
		t.Fatalf("Expected 3 segments, got %d", len(segments))
	}

	expected := []float64{300.0, 300.0, 210.0}
	var total float64

	for i, seg := range segments {
		info, err := GetWAVInfo(seg.WAVBytes)
		if err != nil {
			t.Fatalf("Segment %d is not valid WAV: %v", i, err)
		}

		if math.Abs(info.Duration-expected[i]) > 0.01 {
			t.Errorf("Segment %d: expected duration %.1f, got %.3f", i, expected[i], info.Duration)
		}

		total += info.Duration
	}

	if math.Abs(total-decoded.DurationSeconds) > 0.01 {
		t.Errorf("Segment durations sum to %.3f, expected %.3f", total, decoded.DurationSeconds)
	}
}

func TestSegmentAudioFinalSegmentNotPadded(t *testing.T) {
	decoded := testAudio(1000, 1, 2.5)

	segments, err := SegmentAudio(decoded, 1.0)
	if err != nil {
		t.Fatalf("SegmentAudio failed: %v", err)
	}

	if len(segments) != 3 {
		t.Fatalf("Expected 3 segments, got %d", len(segments))
	}

	info, err := GetWAVInfo(segments[2].WAVBytes)
	if err != nil {
		t.Fatalf("Final segment is not valid WAV: %v", err)
	}

	if math.Abs(info.Duration-0.5) > 0.001 {
		t.Errorf("Final segment: expected duration 0.5, got %.3f", info.Duration)
	}
}

func TestSegmentAudioInvalidInput(t *testing.T) {
	if _, err := SegmentAudio(nil, 300.0); err == nil {
		t.Error("Expected error for nil audio")
	}

	if _, err := SegmentAudio(&DecodedAudio{}, 300.0); err == nil {
		t.Error("Expected error for empty audio")
	}

	if _, err := SegmentAudio(testAudio(800, 1, 1.0), 0); err == nil {
		t.Error("Expected error for zero segment duration")
	}
}
