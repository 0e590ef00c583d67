package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/GVMBT/seo-master-sub005/internal/logger"
	"github.com/GVMBT/seo-master-sub005/internal/metrics"
)

const (
	queueKey       = "notifications"
	failedQueueKey = "notifications:failed"
	maxTries       = 3
)

type NotificationJob struct {
	UserID  int64     `json:"user_id"`
	Kind    string    `json:"kind"`
	Text    string    `json:"text"`
	Tries   int       `json:"tries"`
	Created time.Time `json:"created"`
}

// Service queues notifications in redis and delivers them to Telegram
// from a background worker, so webhook handlers never block on the
// Telegram API.
type Service struct {
	redis      *redis.Client
	httpClient *http.Client
	apiBase    string
	botToken   string
}

func New(botToken, redisAddr string) *Service {
	return &Service{
		redis: redis.NewClient(&redis.Options{
			Addr: redisAddr,
		}),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		apiBase:    "https://api.telegram.org",
		botToken:   botToken,
	}
}

func (s *Service) Send(ctx context.Context, userID int64, kind, text string) error {
	job := NotificationJob{
		UserID:  userID,
		Kind:    kind,
		Text:    text,
		Tries:   0,
		Created: time.Now(),
	}

	data, err := json.Marshal(job)
	if err != nil {
		logger.Errorf("Failed to marshal notification job: %v", err)
		return err
	}

	if err := s.redis.LPush(ctx, queueKey, data).Err(); err != nil {
		logger.Errorf("Failed to queue %s notification for user %d: %v", kind, userID, err)
		metrics.RecordNotification(kind, "queue_error")
		return err
	}

	logger.Infof("Notification queued: %s for user %d", kind, userID)
	metrics.RecordNotification(kind, "queued")
	return nil
}

func (s *Service) Start(ctx context.Context) {
	logger.Info("Notification worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Notification worker stopped")
			return
		default:
			s.processNext(ctx)
		}
	}
}

func (s *Service) processNext(ctx context.Context) {
	result, err := s.redis.BRPop(ctx, 2*time.Second, queueKey).Result()
	if err != nil {
		return
	}

	var job NotificationJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		logger.Errorf("Bad notification data: %v", err)
		return
	}

	job.Tries++
	if err := s.sendNow(ctx, job); err != nil {
		logger.Errorf("Failed to deliver notification to user %d: %v", job.UserID, err)

		if job.Tries < maxTries {
			time.Sleep(5 * time.Second)
			data, _ := json.Marshal(job)
			s.redis.LPush(context.Background(), queueKey, data)
			logger.Infof("Retrying notification to user %d (attempt %d)", job.UserID, job.Tries+1)
		} else {
			logger.Errorf("Notification to user %d failed after %d attempts", job.UserID, maxTries)
			metrics.RecordNotification(job.Kind, "failed")
			s.saveFailed(job, err)
		}
		return
	}

	metrics.RecordNotification(job.Kind, "delivered")
	logger.Infof("Notification delivered to user %d", job.UserID)
}

func (s *Service) sendNow(ctx context.Context, job NotificationJob) error {
	payload, err := json.Marshal(map[string]interface{}{
		"chat_id": job.UserID,
		"text":    job.Text,
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.apiBase, s.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram sendMessage returned status %d", resp.StatusCode)
	}
	return nil
}

func (s *Service) saveFailed(job NotificationJob, sendErr error) {
	failed := map[string]interface{}{
		"job":   job,
		"error": sendErr.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)
	s.redis.LPush(context.Background(), failedQueueKey, data)
	logger.Errorf("Notification moved to failed queue: user %d", job.UserID)
}

func (s *Service) QueueLength(ctx context.Context) int64 {
	length, _ := s.redis.LLen(ctx, queueKey).Result()
	metrics.NotificationQueueLength.Set(float64(length))
	return length
}

func (s *Service) Close() error {
	return s.redis.Close()
}
