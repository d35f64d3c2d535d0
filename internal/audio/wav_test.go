package audio

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// sine generates a tone at the given rate and amplitude.
func sine(sampleRate int, seconds, freq, amplitude float64) []float32 {
	n := int(float64(sampleRate) * seconds)
	out := make([]float32, n)
	for i := range out {
		t := float64(i) / float64(sampleRate)
		out[i] = float32(amplitude * math.Sin(2*math.Pi*freq*t))
	}
	return out
}

func writeTempWAV(t *testing.T, buf *Buffer) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tone.wav")
	if err := WriteWAVFile(path, buf); err != nil {
		t.Fatalf("WriteWAVFile failed: %v", err)
	}
	return path
}

func readWAVFile(t *testing.T, path string) *Buffer {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	buf, err := DecodeWAV(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}
	return buf
}

func TestWAVRoundTrip(t *testing.T) {
	original := &Buffer{Samples: sine(8000, 0.1, 440, 0.5), SampleRate: 8000}

	decoded := readWAVFile(t, writeTempWAV(t, original))

	if decoded.SampleRate != original.SampleRate {
		t.Errorf("Expected sample rate %d, got %d", original.SampleRate, decoded.SampleRate)
	}
	if decoded.Len() != original.Len() {
		t.Fatalf("Expected %d samples, got %d", original.Len(), decoded.Len())
	}

	const tolerance = 2.0 / 32768
	for i := range original.Samples {
		if diff := math.Abs(float64(decoded.Samples[i] - original.Samples[i])); diff > tolerance {
			t.Fatalf("sample %d: expected %f, got %f", i, original.Samples[i], decoded.Samples[i])
		}
	}
}

func TestWriteWAVSaturates(t *testing.T) {
	buf := &Buffer{Samples: []float32{2.5, -3.0, 0.5}, SampleRate: 16000}

	decoded := readWAVFile(t, writeTempWAV(t, buf))

	if decoded.Samples[0] < 0.999 {
		t.Errorf("Expected positive overflow to saturate near 1.0, got %f", decoded.Samples[0])
	}
	if decoded.Samples[1] > -0.999 {
		t.Errorf("Expected negative overflow to saturate near -1.0, got %f", decoded.Samples[1])
	}
	if math.Abs(float64(decoded.Samples[2])-0.5) > 0.001 {
		t.Errorf("Expected 0.5, got %f", decoded.Samples[2])
	}
}

func writePCM16(t *testing.T, path string, data []int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, 16000, 16, 1, 1)
	pcm := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: 16000},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(pcm); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
}

func readPCM16(t *testing.T, path string) []int {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	defer f.Close()

	pcm, err := wav.NewDecoder(f).FullPCMBuffer()
	if err != nil {
		t.Fatalf("failed to read PCM: %v", err)
	}
	return pcm.Data
}

func TestPCM16RoundTripIsExact(t *testing.T) {
	input := []int{math.MinInt16, -16384, -1, 0, 1, 12345, 32766, math.MaxInt16}
	path := filepath.Join(t.TempDir(), "in.wav")
	writePCM16(t, path, input)

	// several decode/encode cycles must not drift
	for cycle := 1; cycle <= 3; cycle++ {
		next := filepath.Join(t.TempDir(), "cycle.wav")
		if err := WriteWAVFile(next, readWAVFile(t, path)); err != nil {
			t.Fatalf("WriteWAVFile failed: %v", err)
		}
		path = next

		got := readPCM16(t, path)
		if len(got) != len(input) {
			t.Fatalf("cycle %d: expected %d samples, got %d", cycle, len(input), len(got))
		}
		for i := range input {
			if got[i] != input[i] {
				t.Errorf("cycle %d, sample %d: expected %d, got %d", cycle, i, input[i], got[i])
			}
		}
	}
}

func TestFloatToPCM16(t *testing.T) {
	tests := []struct {
		in   float32
		want int
	}{
		{0, 0},
		{0.5, 16384},
		{-1, math.MinInt16},
		{1, math.MaxInt16},
		{float32(math.MaxInt16) / 32768, math.MaxInt16},
		{4, math.MaxInt16},
		{-4, math.MinInt16},
		{float32(math.NaN()), 0},
	}

	for _, tt := range tests {
		if got := floatToPCM16(tt.in); got != tt.want {
			t.Errorf("floatToPCM16(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestWriteWAVRejectsBadRate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	if err := WriteWAVFile(path, &Buffer{Samples: []float32{0}, SampleRate: 0}); err == nil {
		t.Error("Expected error for zero sample rate")
	}
}

func TestDecodeWAVDownmixesStereo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}

	enc := wav.NewEncoder(f, 44100, 16, 2, 1)
	// left = 0.5, right = -0.5 then left = right = 0.25
	pcm := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 2, SampleRate: 44100},
		Data:           []int{16384, -16384, 8192, 8192},
		SourceBitDepth: 16,
	}
	if err := enc.Write(pcm); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	f.Close()

	buf := readWAVFile(t, path)
	if buf.SampleRate != 44100 {
		t.Errorf("Expected native rate 44100, got %d", buf.SampleRate)
	}
	if buf.Len() != 2 {
		t.Fatalf("Expected 2 mono frames, got %d", buf.Len())
	}
	if math.Abs(float64(buf.Samples[0])) > 1e-6 {
		t.Errorf("Expected opposite channels to cancel, got %f", buf.Samples[0])
	}
	if math.Abs(float64(buf.Samples[1])-0.25) > 1e-4 {
		t.Errorf("Expected 0.25, got %f", buf.Samples[1])
	}
}

func TestDecodeWAVInvalidData(t *testing.T) {
	_, err := DecodeWAV(bytes.NewReader([]byte("definitely not a wav file, just text")))
	if err == nil {
		t.Fatal("Expected error for invalid data")
	}
	if errors.Is(err, ErrUnsupportedWAV) {
		t.Error("garbage input should not be reported as an unsupported encoding")
	}
}

func TestIntsToMono8Bit(t *testing.T) {
	out := intsToMono([]int{128, 255, 0}, 1, 8)
	if out[0] != 0 {
		t.Errorf("Expected unsigned midpoint to map to 0, got %f", out[0])
	}
	if out[1] < 0.99 {
		t.Errorf("Expected near 1.0, got %f", out[1])
	}
	if out[2] != -1 {
		t.Errorf("Expected -1.0, got %f", out[2])
	}
}
