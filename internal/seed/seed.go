package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tixora/internal/config"
	eventdomain "github.com/smallbiznis/tixora/internal/event/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultEventName = "Tixora Demo Night"

var defaultTicketTypes = []struct {
	Name      string
	BasePrice string
	Quantity  int
}{
	{Name: "General Admission", BasePrice: "100.00", Quantity: 500},
	{Name: "VIP", BasePrice: "250.00", Quantity: 50},
	{Name: "Community", BasePrice: "0.00", Quantity: 25},
}

// Module seeds a demo catalog at startup when SEED_DEMO_ORGANIZER_ID is set
// outside production.
var Module = fx.Module("seed",
	fx.Invoke(func(db *gorm.DB, node *snowflake.Node, cfg config.Config, log *zap.Logger) error {
		organizerID := strings.TrimSpace(cfg.DemoOrganizerID)
		if organizerID == "" || cfg.IsProduction() {
			return nil
		}
		event, err := EnsureDemoCatalog(context.Background(), db, node, organizerID)
		if err != nil {
			return err
		}
		log.Info("demo catalog ready",
			zap.String("event_id", event.ID.String()),
			zap.String("organizer_id", organizerID),
		)
		return nil
	}),
)

// EnsureDemoCatalog creates a published demo event owned by organizerID with a
// few ticket types. It is idempotent per organizer.
func EnsureDemoCatalog(ctx context.Context, db *gorm.DB, node *snowflake.Node, organizerID string) (*eventdomain.Event, error) {
	if db == nil {
		return nil, errors.New("seed database handle is required")
	}
	organizerID = strings.TrimSpace(organizerID)
	if organizerID == "" {
		return nil, errors.New("seed organizer id is required")
	}

	var event eventdomain.Event
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.WithContext(ctx).
			Where("organizer_id = ? AND name = ?", organizerID, defaultEventName).
			First(&event).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		now := time.Now().UTC()
		event = eventdomain.Event{
			ID:          node.Generate(),
			OrganizerID: organizerID,
			Name:        defaultEventName,
			Published:   true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.WithContext(ctx).Create(&event).Error; err != nil {
			return err
		}

		for _, tt := range defaultTicketTypes {
			ticketType := eventdomain.TicketType{
				ID:        node.Generate(),
				EventID:   event.ID,
				Name:      tt.Name,
				BasePrice: decimal.RequireFromString(tt.BasePrice),
				Quantity:  tt.Quantity,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := tx.WithContext(ctx).Create(&ticketType).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &event, nil
}
