package audio

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
)

// afconvertFormats maps output extensions to afconvert file and data formats.
var afconvertFormats = map[string][2]string{
	"wav":  {"WAVE", "LEI16"},
	"aiff": {"AIFF", "BEI16"},
	"m4a":  {"m4af", "aac"},
	"flac": {"flac", "flac"},
}

// afconvertInputs lists the inputs Core Audio can read.
var afconvertInputs = map[string]bool{
	"wav": true, "aiff": true, "aif": true, "m4a": true, "mp3": true, "flac": true, "caf": true, "aac": true,
}

// Afconvert converts with the macOS afconvert tool.
type Afconvert struct {
	path string
}

// NewAfconvert locates afconvert. It is only ever available on macOS.
func NewAfconvert() *Afconvert {
	if runtime.GOOS != "darwin" {
		return &Afconvert{}
	}
	path, err := exec.LookPath("afconvert")
	if err != nil {
		return &Afconvert{}
	}
	return &Afconvert{path: path}
}

func (c *Afconvert) Name() string { return "afconvert" }

func (c *Afconvert) Available() bool { return c.path != "" }

func (c *Afconvert) Supports(srcExt, dstExt string) bool {
	_, ok := afconvertFormats[dstExt]
	return ok && afconvertInputs[srcExt]
}

// Convert runs afconvert -f <file> -d <data>[@rate] [-c ch] src dst.
func (c *Afconvert) Convert(ctx context.Context, req Request) error {
	format, ok := afconvertFormats[Ext(req.Dst)]
	if !ok {
		return fmt.Errorf("%w: unsupported output .%s", ErrConversionFailed, Ext(req.Dst))
	}

	data := format[1]
	if req.SampleRate > 0 {
		data += "@" + strconv.Itoa(req.SampleRate)
	}
	args := []string{"-f", format[0], "-d", data}
	if req.Channels > 0 {
		args = append(args, "-c", strconv.Itoa(req.Channels))
	}
	args = append(args, req.Src, req.Dst)

	cmd := exec.CommandContext(ctx, c.path, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s", ErrConversionFailed, bytes.TrimSpace(stderr.Bytes()))
	}
	return nil
}
