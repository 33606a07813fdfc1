package visits

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/logger"
	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/models"
	amqp "github.com/rabbitmq/amqp091-go"
	"gorm.io/gorm"
)

const (
	DefaultBatchSize  = 100
	DefaultFlushEvery = 2 * time.Second
)

// ErrDeliveriesClosed is returned by Run when the broker closes the channel.
var ErrDeliveriesClosed = errors.New("deliveries channel closed")

// Consumer drains visit events and applies them to the database in batches.
type Consumer struct {
	db         *gorm.DB
	log        logger.Logger
	BatchSize  int
	FlushEvery time.Duration
}

func NewConsumer(db *gorm.DB, log logger.Logger) *Consumer {
	return &Consumer{
		db:         db,
		log:        log,
		BatchSize:  DefaultBatchSize,
		FlushEvery: DefaultFlushEvery,
	}
}

// Run blocks until ctx is cancelled or msgs is closed. Pending events are
// flushed before returning.
func (c *Consumer) Run(ctx context.Context, msgs <-chan amqp.Delivery) error {
	var (
		events     []Event
		deliveries []amqp.Delivery
	)
	flush := func() {
		if len(events) == 0 {
			return
		}
		c.processBatch(events, deliveries)
		events, deliveries = nil, nil
	}

	ticker := time.NewTicker(c.FlushEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flush()
			return nil
		case d, ok := <-msgs:
			if !ok {
				flush()
				return ErrDeliveriesClosed
			}
			var ev Event
			if err := json.Unmarshal(d.Body, &ev); err != nil || ev.BookmarkID == 0 {
				c.log.Warn("rejecting malformed visit event", logger.String("body", string(d.Body)))
				_ = d.Reject(false)
				continue
			}
			events = append(events, ev)
			deliveries = append(deliveries, d)

			if len(events) >= c.BatchSize {
				flush()
				ticker.Reset(c.FlushEvery)
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (c *Consumer) processBatch(events []Event, deliveries []amqp.Delivery) {
	applied, err := ApplyBatch(c.db, events)
	if err != nil {
		c.log.Error("failed to apply visit batch, requeueing", logger.Error(err), logger.Int("count", len(events)))
		for _, d := range deliveries {
			_ = d.Nack(false, true)
		}
		return
	}
	for _, d := range deliveries {
		_ = d.Ack(false)
	}
	if dropped := len(events) - applied; dropped > 0 {
		c.log.Info("dropped visits for deleted bookmarks", logger.Int("count", dropped))
	}
	c.log.Debug("visit batch applied", logger.Int("count", applied))
}

// ApplyBatch inserts the visits and increments each bookmark counter by its
// share of the batch, all in one transaction. Events whose bookmark no longer
// exists are skipped. It returns how many events were applied.
func ApplyBatch(db *gorm.DB, events []Event) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	counts := make(map[uint]int64)
	for _, ev := range events {
		counts[ev.BookmarkID]++
	}
	ids := make([]uint, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}

	applied := 0
	err := db.Transaction(func(tx *gorm.DB) error {
		var live []uint
		if err := tx.Model(&models.Bookmark{}).Where("id IN ?", ids).Pluck("id", &live).Error; err != nil {
			return err
		}
		exists := make(map[uint]bool, len(live))
		for _, id := range live {
			exists[id] = true
		}

		rows := make([]models.Visit, 0, len(events))
		for _, ev := range events {
			if exists[ev.BookmarkID] {
				rows = append(rows, models.Visit{BookmarkID: ev.BookmarkID, VisitingHours: ev.VisitedAt.UTC()})
			}
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(&rows, DefaultBatchSize).Error; err != nil {
			return err
		}

		for _, id := range live {
			if err := tx.Model(&models.Bookmark{}).
				Where("id = ?", id).
				UpdateColumn("visits", gorm.Expr("visits + ?", counts[id])).Error; err != nil {
				return err
			}
		}
		applied = len(rows)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return applied, nil
}
