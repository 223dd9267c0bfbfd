package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/semmidev/bqvault/internal/domain"
	. "github.com/smartystreets/goconvey/convey"
)

type upperCompressor struct{}

func (upperCompressor) Compress(data []byte) ([]byte, error)   { return bytes.ToUpper(data), nil }
func (upperCompressor) Decompress(data []byte) ([]byte, error) { return bytes.ToLower(data), nil }
func (upperCompressor) Extension() string                      { return ".up" }

func TestReporter(t *testing.T) {
	Convey("Given a reporter with a local store and two targets", t, func() {
		ctx := context.Background()
		local := newMemoryStore()
		good := newMemoryStore()
		bad := newMemoryStore()
		bad.putErr = errors.New("unreachable")

		started := time.Date(2024, 12, 15, 14, 30, 22, 0, time.UTC)
		report := NewReport(domain.OperationBackup, started, started)
		report.ID = "3f2a9c1e-7b44-4d0a-9e51-0c6d2b8f1a77"
		report.Backups = []domain.BatchResult{{SourceResourceID: "a", SuccessCount: 2, FailureCount: 1}}
		Summarize(report)

		Convey("When publishing without compression", func() {
			uc := NewReporter(local, []ReportTarget{{Name: "good", Store: good}, {Name: "bad", Store: bad}}, nil, nopLogger{})
			name, err := uc.Publish(ctx, report)

			Convey("It should write locally and to healthy targets", func() {
				So(err, ShouldBeNil)
				So(name, ShouldEqual, "bqvault_backup_20241215_143022_3f2a9c1e.json")
				So(good.objects, ShouldContainKey, name)
				So(bad.objects, ShouldBeEmpty)

				var decoded domain.Report
				So(json.Unmarshal(local.objects[name], &decoded), ShouldBeNil)
				So(decoded.Success, ShouldBeFalse)
				So(decoded.Backups[0].FailureCount, ShouldEqual, 1)
			})
		})

		Convey("When publishing with compression", func() {
			uc := NewReporter(local, nil, upperCompressor{}, nopLogger{})
			name, err := uc.Publish(ctx, report)

			So(err, ShouldBeNil)
			So(name, ShouldEqual, "bqvault_backup_20241215_143022_3f2a9c1e.json.up")
			So(strings.Contains(string(local.objects[name]), `"OPERATION": "BACKUP"`), ShouldBeTrue)
		})

		Convey("When two runs start in the same second", func() {
			uc := NewReporter(local, nil, nil, nopLogger{})
			other := NewReport(domain.OperationBackup, started, started)

			first, err := uc.Publish(ctx, report)
			So(err, ShouldBeNil)
			second, err := uc.Publish(ctx, other)
			So(err, ShouldBeNil)

			So(second, ShouldNotEqual, first)
			So(len(local.objects), ShouldEqual, 2)

			ts, err := extractTimestamp(second)
			So(err, ShouldBeNil)
			So(ts.Equal(started), ShouldBeTrue)
		})

		Convey("When the local store fails", func() {
			local.putErr = errors.New("disk full")
			uc := NewReporter(local, []ReportTarget{{Name: "good", Store: good}}, nil, nopLogger{})
			_, err := uc.Publish(ctx, report)

			So(err, ShouldNotBeNil)
			So(good.objects, ShouldBeEmpty)
		})
	})

	Convey("Summarize", t, func() {
		report := &domain.Report{Restores: []domain.RestoreOutcome{{Success: true}}}
		Summarize(report)
		So(report.Success, ShouldBeTrue)

		report.Deletion = &domain.DeleteResult{FailureCount: 1}
		Summarize(report)
		So(report.Success, ShouldBeFalse)
	})
}
