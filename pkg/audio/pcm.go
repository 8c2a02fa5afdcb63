// Package audio turns remote audio streams into opus frames for Discord
// voice connections using ffmpeg and libopus.
package audio

// Discord voice expects 20ms stereo frames at 48kHz
const (
	SampleRate = 48000
	Channels   = 2
	FrameSize  = 960
	// MaxFrameBytes bounds the size of one encoded opus frame
	MaxFrameBytes = FrameSize * Channels * 2
)

// ScaleVolume applies volume (0..100) to pcm in place
func ScaleVolume(pcm []int16, volume int) {
	if volume >= 100 {
		return
	}
	if volume <= 0 {
		for i := range pcm {
			pcm[i] = 0
		}
		return
	}
	v := int32(volume)
	for i, s := range pcm {
		pcm[i] = int16(int32(s) * v / 100)
	}
}
