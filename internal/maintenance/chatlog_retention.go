package maintenance

import (
	"context"
	"fmt"
	"log"
	"time"

	"fintrack/internal/chatlog"
	"fintrack/internal/config"
)

// ChatLogRetentionTask deletes chat exchanges older than the retention period.
type ChatLogRetentionTask struct {
	store         chatlog.Store
	retentionDays int
	now           func() time.Time
}

// NewChatLogRetentionTask creates a retention task over store.
func NewChatLogRetentionTask(store chatlog.Store, retentionDays int) *ChatLogRetentionTask {
	return &ChatLogRetentionTask{store: store, retentionDays: retentionDays, now: time.Now}
}

func (t *ChatLogRetentionTask) Name() string {
	return "chat_log_retention"
}

func (t *ChatLogRetentionTask) Description() string {
	return fmt.Sprintf("Delete chat exchanges older than %d days", t.retentionDays)
}

func (t *ChatLogRetentionTask) Execute(ctx context.Context) TaskResult {
	if t.retentionDays <= 0 {
		return TaskResult{Success: true, Message: "Retention disabled"}
	}

	cutoff := t.now().AddDate(0, 0, -t.retentionDays)
	removed, err := t.store.Prune(ctx, cutoff)
	if err != nil {
		return TaskResult{Success: false, Message: "Failed to prune chat log", Error: err}
	}

	return TaskResult{
		Success:          true,
		Message:          fmt.Sprintf("Removed %d exchanges older than %s", removed, cutoff.Format(time.DateOnly)),
		RecordsProcessed: removed,
	}
}

// ForChatLog builds a scheduler that applies the chat log retention policy.
// It returns nil when there is no store or no retention period.
func ForChatLog(cfg config.ChatLogConfig, store chatlog.Store, logger *log.Logger) (*Scheduler, error) {
	if store == nil || cfg.RetentionDays <= 0 {
		return nil, nil
	}
	s, err := NewScheduler(Config{Enabled: true, Schedule: cfg.PruneSchedule}, logger)
	if err != nil {
		return nil, err
	}
	s.RegisterTask(NewChatLogRetentionTask(store, cfg.RetentionDays))
	return s, nil
}
