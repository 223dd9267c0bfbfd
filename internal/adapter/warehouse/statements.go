package warehouse

import (
	"fmt"
	"strings"
	"time"

	"github.com/semmidev/bqvault/internal/config"
	"github.com/semmidev/bqvault/internal/domain"
)

const timestampLayout = "2006-01-02 15:04:05+00"

func quoteTable(project, dataset, table string) string {
	return "`" + project + "." + dataset + "." + table + "`"
}

func sqlTimestamp(t time.Time) string {
	return "TIMESTAMP '" + t.UTC().Format(timestampLayout) + "'"
}

func snapshotStatement(
	project string,
	source domain.MemberRef,
	container string,
	instant time.Time,
	expiration *time.Time,
) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "CREATE SNAPSHOT TABLE %s\nCLONE %s\nFOR SYSTEM_TIME AS OF %s",
		quoteTable(project, container, source.MemberID),
		quoteTable(project, source.ResourceID, source.MemberID),
		sqlTimestamp(instant),
	)
	if expiration != nil {
		fmt.Fprintf(&sb, "\nOPTIONS (expiration_timestamp = %s)", sqlTimestamp(*expiration))
	}
	return sb.String()
}

// cloneStatement uses CREATE OR REPLACE for overwrites so the target table is
// swapped atomically.
func cloneStatement(project string, snapshot domain.MemberRef, targetResource, targetMember string, overwrite bool) string {
	verb := "CREATE TABLE"
	if overwrite {
		verb = "CREATE OR REPLACE TABLE"
	}
	return fmt.Sprintf("%s %s\nCLONE %s",
		verb,
		quoteTable(project, targetResource, targetMember),
		quoteTable(project, snapshot.ResourceID, snapshot.MemberID),
	)
}

func withReservation(sql string, pricing config.PricingConfig) string {
	if pricing.DefaultPricingMode != config.PricingReservation || len(pricing.ReservationIDs) == 0 {
		return sql
	}
	return fmt.Sprintf("SET @@reservation = '%s';\n%s;", pricing.ReservationIDs[0], sql)
}

func pricingLabel(pricing config.PricingConfig) string {
	mode := pricing.DefaultPricingMode
	if mode == "" {
		mode = config.PricingOnDemand
	}
	return strings.ReplaceAll(mode, "_", "-")
}
