package bot

import (
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

// handleThreadUpdate deletes verification help threads as soon as they
// archive; a finished conversation has no value and clutters the channel.
func (b *Bot) handleThreadUpdate(s *discordgo.Session, t *discordgo.ThreadUpdate) {
	channelID := b.config.Verification.Channels.VerificationChannel
	if channelID == "" || t.ParentID != channelID {
		return
	}
	if t.ThreadMetadata == nil || !t.ThreadMetadata.Archived {
		return
	}
	if t.BeforeUpdate != nil && t.BeforeUpdate.ThreadMetadata != nil && t.BeforeUpdate.ThreadMetadata.Archived {
		return
	}

	if _, err := s.ChannelDelete(t.ID); err != nil {
		slog.Error("Failed to delete archived verification thread", "thread", t.ID, "error", err)
		return
	}
	slog.Info("Deleted archived verification thread", "thread", t.ID)
}

// threadSweeper periodically clears archived threads left under the
// verification channel, catching anything the archive event missed (for
// example threads archived while the bot was offline).
type threadSweeper struct {
	session   *discordgo.Session
	channelID string
	interval  time.Duration

	stopChan chan struct{}
	wg       sync.WaitGroup
}

func newThreadSweeper(session *discordgo.Session, channelID string) *threadSweeper {
	return &threadSweeper{
		session:   session,
		channelID: channelID,
		interval:  time.Hour,
		stopChan:  make(chan struct{}),
	}
}

// Start begins the sweep loop
func (w *threadSweeper) Start() {
	if w.channelID == "" {
		slog.Debug("No verification channel configured, thread sweeper idle")
		return
	}
	slog.Info("Starting thread sweeper", "interval", w.interval)

	w.wg.Add(1)
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.sweep()

	for {
		select {
		case <-w.stopChan:
			slog.Info("Thread sweeper stopped")
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

// Stop signals the sweeper to stop
func (w *threadSweeper) Stop() {
	close(w.stopChan)
	w.wg.Wait()
}

// sweep deletes every archived thread under the verification channel.
func (w *threadSweeper) sweep() {
	deleted := 0
	deleted += w.deleteArchived(func() (*discordgo.ThreadsList, error) {
		return w.session.ThreadsArchived(w.channelID, nil, 100)
	})
	deleted += w.deleteArchived(func() (*discordgo.ThreadsList, error) {
		return w.session.ThreadsPrivateArchived(w.channelID, nil, 100)
	})
	if deleted > 0 {
		slog.Info("Swept archived verification threads", "count", deleted)
	}
}

func (w *threadSweeper) deleteArchived(list func() (*discordgo.ThreadsList, error)) int {
	threads, err := list()
	if err != nil {
		slog.Error("Failed to list archived threads", "channel", w.channelID, "error", err)
		return 0
	}

	deleted := 0
	for _, thread := range threads.Threads {
		if _, err := w.session.ChannelDelete(thread.ID); err != nil {
			slog.Error("Failed to delete archived thread", "thread", thread.ID, "error", err)
			continue
		}
		deleted++
	}
	return deleted
}
