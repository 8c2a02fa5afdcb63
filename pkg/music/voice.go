package music

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// VoiceConn is the part of a Discord voice connection the player drives
type VoiceConn interface {
	ChannelID() string
	Speaking(speaking bool) error
	OpusSend() chan<- []byte
	ChangeChannel(channelID string, mute, deaf bool) error
	Disconnect() error
}

// VoiceJoiner opens voice connections
type VoiceJoiner interface {
	JoinVoice(guildID, channelID string) (VoiceConn, error)
}

// Resolver turns a user supplied URL into a playable track
type Resolver interface {
	Resolve(ctx context.Context, url string) (*Track, error)
}

// PlaybackControl is what a Streamer consults while sending audio
type PlaybackControl interface {
	// Volume returns the current volume between 0 and 100
	Volume() int
	// WaitResumed blocks while playback is paused
	WaitResumed(ctx context.Context) error
}

// Streamer decodes a stream URL and hands opus frames to send until the
// stream ends or ctx is cancelled
type Streamer interface {
	Stream(ctx context.Context, streamURL string, control PlaybackControl, send func(frame []byte) error) error
}

// discordVoice adapts *discordgo.VoiceConnection to VoiceConn
type discordVoice struct {
	vc *discordgo.VoiceConnection
}

// WrapVoice adapts a discordgo voice connection
func WrapVoice(vc *discordgo.VoiceConnection) VoiceConn {
	return &discordVoice{vc: vc}
}

func (d *discordVoice) ChannelID() string {
	d.vc.RLock()
	defer d.vc.RUnlock()
	return d.vc.ChannelID
}

func (d *discordVoice) Speaking(speaking bool) error {
	return d.vc.Speaking(speaking)
}

func (d *discordVoice) OpusSend() chan<- []byte {
	return d.vc.OpusSend
}

func (d *discordVoice) ChangeChannel(channelID string, mute, deaf bool) error {
	return d.vc.ChangeChannel(channelID, mute, deaf)
}

func (d *discordVoice) Disconnect() error {
	return d.vc.Disconnect()
}

// SessionJoiner joins voice channels through a discordgo session
type SessionJoiner struct {
	Session *discordgo.Session
}

// JoinVoice connects self-deafened to the channel
func (j SessionJoiner) JoinVoice(guildID, channelID string) (VoiceConn, error) {
	vc, err := j.Session.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return nil, err
	}
	return WrapVoice(vc), nil
}
