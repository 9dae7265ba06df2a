package wschannel

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/coder/websocket"
)

// Frame kinds identify the first byte of an inbound binary message.
const (
	kindVideo byte = 0x01
	kindAudio byte = 0x02
)

// InboundVideoFrame is a decoded video frame as handed off by the wire
// reader: raw raster bytes plus the dimensions needed to interpret them.
type InboundVideoFrame struct {
	Width, Height int
	Data          []byte
}

// InboundAudioFrame is a decoded audio frame as handed off by the wire
// reader: raw s16le PCM bytes plus the format needed to interpret them.
type InboundAudioFrame struct {
	SampleRate int
	Channels   int
	PCM16      []byte
}

// Dispatch receives decoded frames read off the wire.
type Dispatch struct {
	OnVideo func(InboundVideoFrame)
	OnAudio func(InboundAudioFrame)
}

// ErrConnClosed is returned, wrapped, from ServeConn when the connection
// ends other than by a normal closure or cancellation.
var ErrConnClosed = errors.New("wschannel: connection closed")

// ServeConn reads binary frames off conn until ctx is cancelled or the
// connection closes, dispatching each to d. It returns nil on a normal
// peer-initiated close, ErrConnClosed wrapped on an abnormal one, or the
// ctx error on cancellation.
//
// Wire format per binary message:
//
//	video: 0x01 | width uint32 BE | height uint32 BE | raw raster bytes
//	audio: 0x02 | sampleRate uint32 BE | channels byte | raw s16le PCM bytes
func ServeConn(ctx context.Context, conn *websocket.Conn, d Dispatch) error {
	for {
		msgType, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var closeErr websocket.CloseError
			if errors.As(err, &closeErr) && closeErr.Code == websocket.StatusNormalClosure {
				return nil
			}
			return fmt.Errorf("%w: %v", ErrConnClosed, err)
		}
		if msgType != websocket.MessageBinary || len(data) == 0 {
			continue
		}

		switch data[0] {
		case kindVideo:
			if len(data) < 9 {
				continue
			}
			width := int(binary.BigEndian.Uint32(data[1:5]))
			height := int(binary.BigEndian.Uint32(data[5:9]))
			if d.OnVideo != nil {
				d.OnVideo(InboundVideoFrame{Width: width, Height: height, Data: data[9:]})
			}
		case kindAudio:
			if len(data) < 6 {
				continue
			}
			sampleRate := int(binary.BigEndian.Uint32(data[1:5]))
			channels := int(data[5])
			if d.OnAudio != nil {
				d.OnAudio(InboundAudioFrame{SampleRate: sampleRate, Channels: channels, PCM16: data[6:]})
			}
		}
	}
}
