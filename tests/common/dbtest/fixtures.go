//go:build unit || e2e

package dbtest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// password123
const testPasswordHash = "$2a$12$uhAjVE9f92IGYv3E25pJNetg.27lVt0p7jmLWjqjmhOg92ldPS0A."

func CreateTestUser(t *testing.T, db DBLike, email, role string) uuid.UUID {
	t.Helper()

	userID := uuid.New()
	ctx := context.Background()

	tag, err := db.Exec(ctx, "INSERT INTO users (id, email, password_hash, role, is_active) VALUES ($1, $2, $3, $4, true) ON CONFLICT (email) WHERE is_active = true DO NOTHING",
		userID, email, testPasswordHash, role)
	require.NoError(t, err)

	if tag.RowsAffected() == 0 {
		_ = db.QueryRow(ctx, "SELECT id FROM users WHERE email = $1 AND is_active = true", email).Scan(&userID)
	}

	return userID
}

// CreateTestSlot publishes a capacity slot for a partner window.
func CreateTestSlot(t *testing.T, db DBLike, partnerID uuid.UUID, start, end time.Time, serviceType string, maxUnits int32) {
	t.Helper()

	_, err := db.Exec(context.Background(), `
		INSERT INTO capacity_slots (partner_id, window_start, window_end, service_type, max_units)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (partner_id, window_start, window_end) DO UPDATE SET max_units = EXCLUDED.max_units`,
		partnerID, start.UTC(), end.UTC(), serviceType, maxUnits)
	require.NoError(t, err)
}

// SlotReservedUnits reads the reserved counter of a slot.
func SlotReservedUnits(t *testing.T, db DBLike, partnerID uuid.UUID, start, end time.Time) int32 {
	t.Helper()

	var reserved int32
	err := db.QueryRow(context.Background(),
		"SELECT reserved_units FROM capacity_slots WHERE partner_id = $1 AND window_start = $2 AND window_end = $3",
		partnerID, start.UTC(), end.UTC()).Scan(&reserved)
	require.NoError(t, err)
	return reserved
}

// OrderStatus reads the persisted status of an order.
func OrderStatus(t *testing.T, db DBLike, orderID uuid.UUID) string {
	t.Helper()

	var status string
	err := db.QueryRow(context.Background(), "SELECT status FROM orders WHERE id = $1", orderID).Scan(&status)
	require.NoError(t, err)
	return status
}

// inserts basic reference data needed by tests
func SeedReferenceData(pool *pgxpool.Pool) error {
	ctx := context.Background()

	// active cancellation policies, version 1
	_, err := pool.Exec(ctx, `
		INSERT INTO cancellation_policies (id, service_type, version, notice_hours, fee_percent, active) VALUES
		    (gen_random_uuid(), 'laundry', 1, 2, 0, true),
		    (gen_random_uuid(), 'cleaning', 1, 24, 50, true)
		ON CONFLICT (service_type, version) DO NOTHING;
	`)
	if err != nil {
		return err
	}

	return nil
}

var (
	buildTruncateOnce sync.Once
	truncateSQL       atomic.Value // string
)

// truncates all tables and reseeds reference data
func ResetDB(pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	buildTruncateOnce.Do(func() {
		rows, err := pool.Query(ctx, `
		  SELECT 'public.' || quote_ident(tablename)
		  FROM pg_tables
		  WHERE schemaname = 'public'
		    AND tablename NOT IN ('schema_migrations')`)
		if err != nil {
			truncateSQL.Store("")
			return
		}
		defer rows.Close()
		var tables []string
		for rows.Next() {
			var t string
			if err := rows.Scan(&t); err != nil {
				truncateSQL.Store("")
				return
			}
			tables = append(tables, t)
		}
		if rows.Err() != nil {
			truncateSQL.Store("")
			return
		}
		if len(tables) == 0 {
			truncateSQL.Store("SELECT 1")
			return
		}
		truncateSQL.Store("TRUNCATE " + strings.Join(tables, ", ") + " RESTART IDENTITY CASCADE;")
	})
	sqlAny := truncateSQL.Load()
	if sqlAny == nil || sqlAny.(string) == "" {
		return fmt.Errorf("failed to build TRUNCATE SQL")
	}
	if _, err := pool.Exec(ctx, sqlAny.(string)); err != nil {
		return err
	}

	return SeedReferenceData(pool)
}
