package media

import (
	"context"
	"errors"
	"io"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"

	"github.com/shoplive/liveroom/pkg/log"
)

// CaptureSource delivers RTP packets from a local capture device. The
// device itself belongs to the external media provider; the engine only
// pumps its packets into the published track.
type CaptureSource interface {
	ReadRTP() (*rtp.Packet, error)
	Close() error
}

// Forward pumps packets from a capture source into a published local
// track until the source ends or the context is cancelled. The source
// is closed on every exit path.
func Forward(ctx context.Context, source CaptureSource, track *webrtc.TrackLocalStaticRTP) error {
	defer source.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		packet, err := source.ReadRTP()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return newConnectionError("publish", err)
		}

		if err := track.WriteRTP(packet); err != nil {
			if errors.Is(err, io.ErrClosedPipe) {
				// Track unpublished while forwarding; not a failure.
				return nil
			}
			log.Ctx(ctx).Warn().Err(err).Msg("failed to write rtp packet")
			return newConnectionError("publish", err)
		}
	}
}
