package warehouse

import (
	"errors"
	"testing"
	"time"

	bigquery "google.golang.org/api/bigquery/v2"
	"google.golang.org/api/googleapi"

	"github.com/semmidev/bqvault/internal/config"
	"github.com/semmidev/bqvault/internal/domain"
	. "github.com/smartystreets/goconvey/convey"
)

func TestStatements(t *testing.T) {
	Convey("Given a source table", t, func() {
		instant := time.Date(2024, 12, 15, 14, 30, 22, 0, time.UTC)
		source := domain.MemberRef{ResourceID: "analytics", MemberID: "events", Location: "EU"}

		Convey("snapshotStatement without expiration", func() {
			So(snapshotStatement("p", source, "zzz_backup_20241215_143022_analytics", instant, nil), ShouldEqual,
				"CREATE SNAPSHOT TABLE `p.zzz_backup_20241215_143022_analytics.events`\n"+
					"CLONE `p.analytics.events`\n"+
					"FOR SYSTEM_TIME AS OF TIMESTAMP '2024-12-15 14:30:22+00'")
		})

		Convey("snapshotStatement with expiration", func() {
			exp := instant.AddDate(0, 0, 7)
			stmt := snapshotStatement("p", source, "bk", instant, &exp)
			So(stmt, ShouldEndWith, "OPTIONS (expiration_timestamp = TIMESTAMP '2024-12-22 14:30:22+00')")
		})

		Convey("cloneStatement", func() {
			snap := domain.MemberRef{ResourceID: "bk", MemberID: "events"}
			So(cloneStatement("p", snap, "analytics", "events", false), ShouldEqual,
				"CREATE TABLE `p.analytics.events`\nCLONE `p.bk.events`")
			So(cloneStatement("p", snap, "analytics", "events", true), ShouldStartWith, "CREATE OR REPLACE TABLE")
		})

		Convey("withReservation", func() {
			So(withReservation("SELECT 1", config.PricingConfig{DefaultPricingMode: config.PricingOnDemand, ReservationIDs: []string{"r"}}),
				ShouldEqual, "SELECT 1")
			So(withReservation("SELECT 1", config.PricingConfig{DefaultPricingMode: config.PricingReservation}), ShouldEqual, "SELECT 1")
			So(withReservation("SELECT 1", config.PricingConfig{DefaultPricingMode: config.PricingReservation, ReservationIDs: []string{"r1", "r2"}}),
				ShouldEqual, "SET @@reservation = 'r1';\nSELECT 1;")
		})
	})
}

func TestErrorMapping(t *testing.T) {
	Convey("mapError", t, func() {
		So(errors.Is(mapError(&googleapi.Error{Code: 404}), domain.ErrNotFound), ShouldBeTrue)
		So(errors.Is(mapError(&googleapi.Error{Code: 409}), domain.ErrAlreadyExists), ShouldBeTrue)

		other := &googleapi.Error{Code: 403, Message: "denied"}
		So(mapError(other), ShouldEqual, other)

		plain := errors.New("boom")
		So(mapError(plain), ShouldEqual, plain)
	})

	Convey("jobError", t, func() {
		So(jobError(nil), ShouldBeNil)
		So(errors.Is(jobError(&bigquery.ErrorProto{Reason: "notFound"}), domain.ErrNotFound), ShouldBeTrue)
		So(errors.Is(jobError(&bigquery.ErrorProto{Reason: "duplicate"}), domain.ErrAlreadyExists), ShouldBeTrue)
		So(jobError(&bigquery.ErrorProto{Reason: "invalidQuery", Message: "bad"}).Error(), ShouldContainSubstring, "invalidQuery")
	})
}
