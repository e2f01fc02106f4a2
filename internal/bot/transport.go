package bot

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"werewolf-bot/internal/game/werewolf"
)

// Sender is the part of *tele.Bot the transport uses.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Restrict(chat *tele.Chat, member *tele.ChatMember) error
}

// Directory finds the session behind a chat or player so events can be
// rendered with seat numbers. *werewolf.Manager implements it.
type Directory interface {
	SessionForPlayer(player werewolf.PlayerID) (string, bool)
	SessionForChat(chatID int64) (string, bool)
	Snapshot(ctx context.Context, id string) (werewolf.Snapshot, error)
}

// Transport delivers engine events over Telegram. It implements
// werewolf.Notifier and werewolf.Muter.
type Transport struct {
	sender Sender
	dir    Directory
}

// NewTransport creates a Transport. The directory is attached later with
// SetDirectory because the manager needs the transport to be built.
func NewTransport(sender Sender) *Transport {
	return &Transport{sender: sender}
}

// SetDirectory attaches the session directory. Call before any session
// starts.
func (t *Transport) SetDirectory(dir Directory) {
	t.dir = dir
}

func (t *Transport) book(ctx context.Context, id string, ok bool) SeatBook {
	if !ok || t.dir == nil {
		return SeatBook{}
	}
	snap, err := t.dir.Snapshot(ctx, id)
	if err != nil {
		log.Debug().Err(err).Str("session_id", id).Msg("No snapshot for rendering")
		return SeatBook{}
	}
	return NewSeatBook(snap)
}

// Notify sends a private event to one player.
func (t *Transport) Notify(ctx context.Context, player werewolf.PlayerID, ev werewolf.Event) error {
	var book SeatBook
	if t.dir != nil {
		id, ok := t.dir.SessionForPlayer(player)
		book = t.book(ctx, id, ok)
	}
	return t.send(tele.ChatID(player), ev, book)
}

// Broadcast sends a public event to the game chat.
func (t *Transport) Broadcast(ctx context.Context, chatID int64, ev werewolf.Event) error {
	var book SeatBook
	if t.dir != nil {
		id, ok := t.dir.SessionForChat(chatID)
		book = t.book(ctx, id, ok)
	}
	return t.send(tele.ChatID(chatID), ev, book)
}

func (t *Transport) send(to tele.ChatID, ev werewolf.Event, book SeatBook) error {
	text := Render(ev, book)
	if text == "" {
		return nil
	}
	var err error
	if kb := Keyboard(ev, book); kb != nil {
		_, err = t.sender.Send(to, text, kb)
	} else {
		_, err = t.sender.Send(to, text)
	}
	return err
}

// Mute removes a player's right to write in the game chat.
func (t *Transport) Mute(_ context.Context, chatID int64, player werewolf.PlayerID) error {
	return t.restrict(chatID, player, tele.NoRights())
}

// Unmute restores a player's right to write in the game chat.
func (t *Transport) Unmute(_ context.Context, chatID int64, player werewolf.PlayerID) error {
	return t.restrict(chatID, player, tele.NoRestrictions())
}

func (t *Transport) restrict(chatID int64, player werewolf.PlayerID, rights tele.Rights) error {
	// Private test chats and bots cannot be restricted.
	if chatID > 0 || player < 0 {
		return nil
	}
	err := t.sender.Restrict(&tele.Chat{ID: chatID}, &tele.ChatMember{
		User:            &tele.User{ID: int64(player)},
		Rights:          rights,
		RestrictedUntil: tele.Forever(),
	})
	if err != nil {
		return fmt.Errorf("restrict chat member %d: %w", player, err)
	}
	return nil
}
