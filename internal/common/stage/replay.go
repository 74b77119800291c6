package stage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	apperrors "loan-prequal/internal/common/errors"
	"loan-prequal/internal/common/logger"
	"loan-prequal/internal/common/messaging"
	"loan-prequal/internal/models"
)

// DefaultReplayCodes are the failure kinds that can succeed on a second
// delivery once the dependency recovers.
var DefaultReplayCodes = []string{
	string(apperrors.ErrCodeStorageFailed),
	string(apperrors.ErrCodeChannelFailed),
	string(apperrors.ErrCodeCircuitOpen),
}

type ReplayOptions struct {
	Codes   []string
	Service string
	// Max stops after this many entries have been scanned. Zero means no limit.
	Max int
	// Idle ends the run when no entry arrives for this long.
	Idle   time.Duration
	DryRun bool
}

type ReplayResult struct {
	Scanned  int
	Replayed int
	Skipped  int
}

// Replay drains dead-letter entries from reader and republishes the original
// payload of every matching entry to its source topic under the original key.
// Entries are committed once handled. A dry run neither publishes nor commits.
func Replay(ctx context.Context, reader messaging.Reader, publisher messaging.Publisher, opts ReplayOptions, log logger.Logger) (ReplayResult, error) {
	var res ReplayResult
	if opts.Idle <= 0 {
		opts.Idle = 5 * time.Second
	}
	codes := opts.Codes
	if len(codes) == 0 {
		codes = DefaultReplayCodes
	}
	wanted := make(map[string]bool, len(codes))
	for _, c := range codes {
		wanted[c] = true
	}

	for opts.Max <= 0 || res.Scanned < opts.Max {
		fetchCtx, cancel := context.WithTimeout(ctx, opts.Idle)
		msg, err := reader.FetchMessage(fetchCtx)
		cancel()
		if err != nil {
			if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
				return res, nil
			}
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			return res, apperrors.NewChannelError("fetch", err)
		}
		res.Scanned++

		var entry models.DeadLetterEntry
		if err := json.Unmarshal(msg.Value, &entry); err != nil {
			log.Warn("unreadable dead-letter entry", map[string]interface{}{"offset": msg.Offset, "error": err.Error()})
			res.Skipped++
		} else if reason := skipReason(entry, wanted, opts.Service); reason != "" {
			log.Debug("dead-letter entry skipped", map[string]interface{}{
				"offset": msg.Offset,
				"reason": reason,
				"code":   entry.ErrorCode,
			})
			res.Skipped++
		} else {
			if !opts.DryRun {
				if err := publisher.Publish(ctx, entry.SourceTopic, entry.Key, entry.OriginalMessage); err != nil {
					return res, err
				}
			}
			log.Info("dead-letter entry replayed", map[string]interface{}{
				"offset":      msg.Offset,
				"sourceTopic": entry.SourceTopic,
				"key":         entry.Key,
				"code":        entry.ErrorCode,
				"dryRun":      opts.DryRun,
			})
			res.Replayed++
		}

		if opts.DryRun {
			continue
		}
		if err := reader.CommitMessages(ctx, msg); err != nil {
			return res, apperrors.NewChannelError("commit", err)
		}
	}
	return res, nil
}

func skipReason(entry models.DeadLetterEntry, codes map[string]bool, service string) string {
	switch {
	case !codes[entry.ErrorCode]:
		return "error code not selected"
	case service != "" && entry.Service != service:
		return "different service"
	case entry.SourceTopic == "":
		return "no source topic"
	case !bytes.HasPrefix(bytes.TrimSpace(entry.OriginalMessage), []byte("{")):
		return "original message is not a JSON object"
	}
	return ""
}
