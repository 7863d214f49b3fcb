package cli

import (
	"context"
	"fmt"
)

// ListChats refreshes and prints chat threads.
func (a *App) ListChats(ctx context.Context) error {
	if err := a.chat.FetchThreads(ctx); err != nil {
		return err
	}

	threads := a.chat.Threads()
	if len(threads) == 0 {
		printlnFn("No chats yet. Accepting an invite starts one.")
		return nil
	}
	for _, th := range threads {
		printlnFn(fmt.Sprintf("%s  %s + %s", th.ID, th.UserA, th.UserB))
	}
	return nil
}

// ShowMessages prints the messages of one thread.
func (a *App) ShowMessages(ctx context.Context, threadID string) error {
	msgs, err := a.chat.FetchMessages(ctx, threadID)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		printlnFn("No messages yet")
		return nil
	}
	for _, m := range msgs {
		printlnFn(fmt.Sprintf("%s  %s: %s", m.SentAt.Format("15:04"), m.Sender, m.Text))
	}
	return nil
}

// Say posts a message to a thread.
func (a *App) Say(ctx context.Context, threadID, text string) error {
	return a.chat.SendMessage(ctx, threadID, text)
}
