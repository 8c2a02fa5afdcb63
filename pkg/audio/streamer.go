package audio

import (
	"bufio"
	"context"
	"encoding/binary"
	stderrors "errors"
	"fmt"
	"io"
	"os/exec"

	"github.com/IsekaiTavern/TavernBotGo/pkg/logger"
	"github.com/IsekaiTavern/TavernBotGo/pkg/music"
	"layeh.com/gopus"
)

// DefaultBitrate is the opus bitrate used when none is configured
const DefaultBitrate = 128000

// Streamer decodes a stream with ffmpeg and encodes it to opus
type Streamer struct {
	ffmpegPath string
	bitrate    int
}

// NewStreamer uses the ffmpeg binary at path (or on $PATH when empty)
func NewStreamer(ffmpegPath string, bitrate int) *Streamer {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if bitrate <= 0 {
		bitrate = DefaultBitrate
	}
	return &Streamer{ffmpegPath: ffmpegPath, bitrate: bitrate}
}

var _ music.Streamer = (*Streamer)(nil)

// ffmpegArgs returns the command line that decodes streamURL to raw s16le
func ffmpegArgs(streamURL string) []string {
	return []string{
		"-reconnect", "1",
		"-reconnect_streamed", "1",
		"-reconnect_delay_max", "5",
		"-i", streamURL,
		"-vn",
		"-loglevel", "error",
		"-f", "s16le",
		"-ar", fmt.Sprint(SampleRate),
		"-ac", fmt.Sprint(Channels),
		"pipe:1",
	}
}

// Stream sends opus frames of streamURL until it ends or ctx is cancelled
func (s *Streamer) Stream(ctx context.Context, streamURL string, control music.PlaybackControl, send func(frame []byte) error) error {
	encoder, err := gopus.NewEncoder(SampleRate, Channels, gopus.Audio)
	if err != nil {
		return fmt.Errorf("create opus encoder: %w", err)
	}
	encoder.SetBitrate(s.bitrate)

	cmd := exec.CommandContext(ctx, s.ffmpegPath, ffmpegArgs(streamURL)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}
	defer func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	}()

	reader := bufio.NewReaderSize(stdout, 16384)
	pcm := make([]int16, FrameSize*Channels)

	for {
		if err := control.WaitResumed(ctx); err != nil {
			return err
		}

		err := binary.Read(reader, binary.LittleEndian, pcm)
		if stderrors.Is(err, io.EOF) || stderrors.Is(err, io.ErrUnexpectedEOF) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Debug("Fin del stream de ffmpeg", "Audio")
			return nil
		}
		if err != nil {
			return fmt.Errorf("read pcm: %w", err)
		}

		ScaleVolume(pcm, control.Volume())

		frame, err := encoder.Encode(pcm, FrameSize, MaxFrameBytes)
		if err != nil {
			return fmt.Errorf("encode opus: %w", err)
		}
		if err := send(frame); err != nil {
			return err
		}
	}
}
