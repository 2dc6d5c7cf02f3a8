// Package testutil holds helpers shared by package tests that need a real database.
package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

const schema = `
CREATE TABLE events (
	id INTEGER PRIMARY KEY,
	organizer_id TEXT NOT NULL,
	name TEXT NOT NULL,
	published BOOLEAN NOT NULL DEFAULT 0,
	sales_start DATETIME,
	sales_end DATETIME,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE ticket_types (
	id INTEGER PRIMARY KEY,
	event_id INTEGER NOT NULL REFERENCES events(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	base_price NUMERIC NOT NULL,
	quantity INTEGER NOT NULL,
	sold INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	CHECK (sold <= quantity)
);
CREATE TABLE discounts (
	id INTEGER PRIMARY KEY,
	ticket_type_id INTEGER NOT NULL REFERENCES ticket_types(id) ON DELETE CASCADE,
	discount_type TEXT NOT NULL,
	value NUMERIC NOT NULL,
	valid_from DATETIME NOT NULL,
	valid_to DATETIME NOT NULL,
	active BOOLEAN NOT NULL DEFAULT 1,
	description TEXT NOT NULL DEFAULT '',
	metadata TEXT NOT NULL DEFAULT '{}',
	created_by TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE UNIQUE INDEX ux_discounts_active_ticket_type ON discounts (ticket_type_id) WHERE active = 1;
CREATE TABLE invite_codes (
	id INTEGER PRIMARY KEY,
	code TEXT NOT NULL UNIQUE,
	role_name TEXT NOT NULL,
	event_id INTEGER REFERENCES events(id) ON DELETE CASCADE,
	status TEXT NOT NULL DEFAULT 'PENDING',
	created_by TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	expires_at DATETIME NOT NULL,
	redeemed_by TEXT,
	redeemed_at DATETIME,
	revoked_at DATETIME,
	revoked_reason TEXT,
	version INTEGER NOT NULL DEFAULT 0,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE tickets (
	id INTEGER PRIMARY KEY,
	ticket_type_id INTEGER NOT NULL REFERENCES ticket_types(id),
	event_id INTEGER NOT NULL REFERENCES events(id),
	buyer_id TEXT NOT NULL,
	discount_id INTEGER,
	original_price NUMERIC NOT NULL,
	price_paid NUMERIC NOT NULL,
	discount_applied NUMERIC NOT NULL,
	purchased_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE audit_logs (
	id INTEGER PRIMARY KEY,
	actor_type TEXT NOT NULL,
	actor_id TEXT,
	action TEXT NOT NULL,
	target_type TEXT NOT NULL,
	target_id TEXT,
	metadata TEXT NOT NULL DEFAULT '{}',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// NewDB opens an isolated in-memory sqlite database with the ticketing schema.
// A single connection is used so concurrent tests serialize like row locks would.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := fmt.Sprintf("file:tixora_%d_%d?mode=memory&cache=shared", time.Now().UnixNano(), dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(name), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v\n%s", err, stmt)
		}
	}
	return db
}

type EventFixture struct {
	ID          snowflake.ID
	OrganizerID string
	Published   bool
	SalesStart  *time.Time
	SalesEnd    *time.Time
}

func SeedEvent(t testing.TB, db *gorm.DB, e EventFixture) {
	t.Helper()
	if err := db.Exec(
		`INSERT INTO events (id, organizer_id, name, published, sales_start, sales_end) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.OrganizerID, fmt.Sprintf("event-%d", e.ID), e.Published, e.SalesStart, e.SalesEnd,
	).Error; err != nil {
		t.Fatalf("seed event: %v", err)
	}
}

func SeedTicketType(t testing.TB, db *gorm.DB, id, eventID snowflake.ID, basePrice string, quantity int) {
	t.Helper()
	if err := db.Exec(
		`INSERT INTO ticket_types (id, event_id, name, base_price, quantity, sold) VALUES (?, ?, ?, ?, ?, 0)`,
		id, eventID, fmt.Sprintf("tt-%d", id), decimal.RequireFromString(basePrice), quantity,
	).Error; err != nil {
		t.Fatalf("seed ticket type: %v", err)
	}
}

// NewNode returns a snowflake node for tests.
func NewNode(t testing.TB) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return node
}
