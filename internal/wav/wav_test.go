package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPutLE(t *testing.T) {
	b16 := make([]byte, 2)
	PutLE16(b16, 0x1234)
	if !bytes.Equal(b16, []byte{0x34, 0x12}) {
		t.Errorf("PutLE16(0x1234) = %v", b16)
	}

	b32 := make([]byte, 4)
	PutLE32(b32, 0x12345678)
	if !bytes.Equal(b32, []byte{0x78, 0x56, 0x34, 0x12}) {
		t.Errorf("PutLE32(0x12345678) = %v", b32)
	}
}

func TestWrapRawPCM(t *testing.T) {
	pcmData := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	wavData := WrapRawPCM(pcmData, 44100, 2, 16)

	if len(wavData) != HeaderSize+len(pcmData) {
		t.Fatalf("expected %d bytes, got %d", HeaderSize+len(pcmData), len(wavData))
	}
	if !bytes.Equal(wavData[0:4], []byte("RIFF")) || !bytes.Equal(wavData[8:12], []byte("WAVE")) {
		t.Error("missing RIFF/WAVE header")
	}
	if got := binary.LittleEndian.Uint32(wavData[28:32]); got != 176400 {
		t.Errorf("byte rate = %d, want 176400", got)
	}
	if got := binary.LittleEndian.Uint16(wavData[32:34]); got != 4 {
		t.Errorf("block align = %d, want 4", got)
	}
	if !bytes.Equal(wavData[HeaderSize:], pcmData) {
		t.Error("PCM data mismatch")
	}
}

func TestFromSamples(t *testing.T) {
	data := FromSamples([]float32{0, 1, -1, 2, -2, 0.5}, DefaultSampleRate)

	if len(data) != HeaderSize+6*2 {
		t.Fatalf("length = %d, want %d", len(data), HeaderSize+12)
	}

	want := []int16{0, 32767, -32767, 32767, -32767, 16384}
	for i, w := range want {
		got := int16(binary.LittleEndian.Uint16(data[HeaderSize+i*2:]))
		if got != w {
			t.Errorf("sample %d = %d, want %d", i, got, w)
		}
	}
}

func TestReadInfo(t *testing.T) {
	data := FromSamples(make([]float32, 48000), DefaultSampleRate)

	info, err := ReadInfo(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadInfo() error: %v", err)
	}
	if info.AudioFormat != FormatPCM || info.Channels != 1 || info.SampleRate != 24000 || info.BitsPerSample != 16 {
		t.Errorf("unexpected info: %+v", info)
	}
	if info.Frames() != 48000 {
		t.Errorf("Frames() = %d, want 48000", info.Frames())
	}
	if info.Duration() != 2*time.Second {
		t.Errorf("Duration() = %v, want 2s", info.Duration())
	}
}

func TestReadInfo_SkipsUnknownChunks(t *testing.T) {
	plain := CreateMinimal(10, 16000, 1, 16)

	// Insert an odd-sized LIST chunk between fmt and data.
	list := []byte("LIST\x03\x00\x00\x00abc\x00")
	var buf bytes.Buffer
	buf.Write(plain[:36])
	buf.Write(list)
	buf.Write(plain[36:])

	info, err := ReadInfo(&buf)
	if err != nil {
		t.Fatalf("ReadInfo() error: %v", err)
	}
	if info.SampleRate != 16000 || info.Frames() != 10 {
		t.Errorf("unexpected info: %+v", info)
	}
}

func TestReadInfo_Errors(t *testing.T) {
	if _, err := ReadInfo(bytes.NewReader([]byte("ID3\x03 not a wav file"))); !errors.Is(err, ErrNotWAV) {
		t.Errorf("expected ErrNotWAV, got %v", err)
	}

	truncated := CreateMinimal(10, 16000, 1, 16)[:36]
	if _, err := ReadInfo(bytes.NewReader(truncated)); !errors.Is(err, ErrMissingChunk) {
		t.Errorf("expected ErrMissingChunk, got %v", err)
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.wav")

	if err := WriteFile(path, make([]float32, 2400), DefaultSampleRate); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	info, err := ReadInfoFile(path)
	if err != nil {
		t.Fatalf("ReadInfoFile() error: %v", err)
	}
	if info.Duration() != 100*time.Millisecond {
		t.Errorf("Duration() = %v, want 100ms", info.Duration())
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected only the output file, found %d entries", len(entries))
	}
}

func TestCreateMinimal(t *testing.T) {
	wav := CreateMinimal(100, 44100, 2, 16)

	expectedSize := HeaderSize + 100*2*2
	if len(wav) != expectedSize {
		t.Errorf("CreateMinimal(100, 44100, 2, 16) length = %d, want %d", len(wav), expectedSize)
	}

	for i := HeaderSize; i < len(wav); i++ {
		if wav[i] != 0 {
			t.Errorf("CreateMinimal should produce silence, got non-zero at byte %d", i)
			break
		}
	}
}

func TestCreateTone(t *testing.T) {
	tone := CreateTone(500*time.Millisecond, 440, 16000)

	info, err := ReadInfo(bytes.NewReader(tone))
	if err != nil {
		t.Fatalf("ReadInfo() error: %v", err)
	}
	if info.Frames() != 8000 {
		t.Errorf("Frames() = %d, want 8000", info.Frames())
	}

	silent := true
	for _, b := range tone[HeaderSize:] {
		if b != 0 {
			silent = false
			break
		}
	}
	if silent {
		t.Error("CreateTone produced silence")
	}
}
