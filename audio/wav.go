// Package audio reads and writes 16-bit PCM mono WAV data.
package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/up-zero/gotool/mediautil"
)

// WAVHeader holds the parsed RIFF/WAV header fields.
type WAVHeader struct {
	SampleRate    uint32
	BitsPerSample uint16
	NumChannels   uint16
	NumSamples    int
}

// ReadWAV reads a 16-bit PCM mono WAV file at any sample rate and returns
// samples in [-1.0, 1.0].
func ReadWAV(r io.ReadSeeker) ([]float64, WAVHeader, error) {
	var header WAVHeader
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, header, errors.New("not a WAVE file")
	}
	header.SampleRate = d.SampleRate
	header.NumChannels = d.NumChans
	header.BitsPerSample = d.BitDepth
	if d.WavAudioFormat != 1 {
		return nil, header, fmt.Errorf("unsupported audio format %d (only PCM=1 supported)", d.WavAudioFormat)
	}
	if d.NumChans != 1 {
		return nil, header, fmt.Errorf("unsupported channel count %d (only mono supported)", d.NumChans)
	}
	if d.BitDepth != 16 {
		return nil, header, fmt.Errorf("unsupported bits per sample %d (only 16 supported)", d.BitDepth)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, header, fmt.Errorf("read PCM data: %w", err)
	}
	header.NumSamples = len(buf.Data)
	samples := make([]float64, len(buf.Data))
	for i, s := range buf.Data {
		samples[i] = float64(s) / 32768.0
	}
	return samples, header, nil
}

// ReadWAVFile is a convenience wrapper that opens a file path.
func ReadWAVFile(path string) ([]float64, WAVHeader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, WAVHeader{}, err
	}
	defer f.Close()
	return ReadWAV(f)
}

// toPCM16 clamps samples to [-1, 1] and scales them to 16-bit integers.
func toPCM16(samples []float64) []int {
	out := make([]int, len(samples))
	for i, s := range samples {
		out[i] = int(clamp(s) * 32767)
	}
	return out
}

func clamp(s float64) float64 {
	switch {
	case s > 1:
		return 1
	case s < -1:
		return -1
	}
	return s
}

// WriteWAV encodes samples as 16-bit PCM mono. Values outside [-1, 1] are
// clamped.
func WriteWAV(w io.WriteSeeker, samples []float64, sampleRate int) error {
	enc := wav.NewEncoder(w, sampleRate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Data:           toPCM16(samples),
		Format:         &goaudio.Format{SampleRate: sampleRate, NumChannels: 1},
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	return enc.Close()
}

// WriteWAVFile writes samples to path.
func WriteWAVFile(path string, samples []float64, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}
	if err := WriteWAV(f, samples, sampleRate); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// EncodeWAV returns the samples as an in-memory 16-bit PCM mono WAV file.
func EncodeWAV(samples []float64, sampleRate int) ([]byte, error) {
	pcm := make([]float32, len(samples))
	for i, s := range samples {
		pcm[i] = float32(clamp(s))
	}
	data, err := mediautil.Float32ToWavBytes(pcm, sampleRate, 1, 16)
	if err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	return data, nil
}
