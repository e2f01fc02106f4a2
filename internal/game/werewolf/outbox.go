package werewolf

import (
	"context"
	"time"
)

type muteOp struct {
	player PlayerID
	mute   bool
}

// outbox buffers side effects produced while a session is locked. They
// are delivered in order once the lock is released.
type outbox struct {
	events []Event
	mutes  []muteOp
	result *Result
	closed bool
}

func (o *outbox) mute(id PlayerID)   { o.mutes = append(o.mutes, muteOp{player: id, mute: true}) }
func (o *outbox) unmute(id PlayerID) { o.mutes = append(o.mutes, muteOp{player: id}) }

// deliver flushes ob to the host. Sink errors are logged as
// *PlatformNotifyFailure and otherwise ignored.
func (s *Session) deliver(ctx context.Context, ob *outbox) {
	ctx = context.WithoutCancel(ctx)

	for _, ev := range ob.events {
		if ev.Visibility == Public {
			if err := s.notifier.Broadcast(ctx, s.chatID, ev); err != nil {
				s.sinkFailed("broadcast", s.chatID, err)
			}
			continue
		}
		for _, id := range ev.Audience {
			if err := s.notifier.Notify(ctx, id, ev); err != nil {
				s.sinkFailed("notify", int64(id), err)
			}
		}
	}

	for _, op := range ob.mutes {
		var err error
		if op.mute {
			err = s.muter.Mute(ctx, s.chatID, op.player)
		} else {
			err = s.muter.Unmute(ctx, s.chatID, op.player)
		}
		if err != nil {
			s.sinkFailed("mute", int64(op.player), err)
		}
	}

	if ob.result != nil {
		start := time.Now()
		if err := s.recorder.RecordResult(ctx, *ob.result); err != nil {
			s.sinkFailed("record result", s.chatID, err)
		} else {
			s.log.Info().
				Str("winner", ob.result.Winner.String()).
				Dur("took", time.Since(start)).
				Msg("Result recorded")
		}
	}

	if ob.closed && s.onClose != nil {
		s.onClose(s)
	}
}

func (s *Session) sinkFailed(op string, target int64, err error) {
	failure := &PlatformNotifyFailure{Op: op, Target: target, Err: err}
	s.log.Error().Err(failure).Str("op", op).Int64("target", target).Msg("Host sink failed")
}
