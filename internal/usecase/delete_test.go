package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/semmidev/bqvault/internal/domain"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDelete(t *testing.T) {
	Convey("Given backup containers", t, func() {
		ctx := context.Background()
		wh := newFakeWarehouse()
		wh.addDataset("zzz_backup_20241215_143022_a", "EU", map[string]string{"t": domain.TypeSnapshot})
		wh.addDataset("zzz_backup_20241215_143022_b", "EU", nil)
		uc := NewDelete(wh, nopLogger{}, 2)

		containers := []domain.BackupContainer{
			{ID: "zzz_backup_20241215_143022_a"},
			{ID: "zzz_backup_20241215_143022_b"},
			{ID: "zzz_backup_20241215_143022_gone"},
		}

		Convey("When every container can be deleted", func() {
			result := uc.Execute(ctx, containers)

			Convey("It should treat a missing container as already deleted", func() {
				So(result.SuccessCount, ShouldEqual, 3)
				So(result.FailureCount, ShouldEqual, 0)
				So(result.Success(), ShouldBeTrue)
				So(wh.hasDataset("zzz_backup_20241215_143022_a"), ShouldBeFalse)
			})
		})

		Convey("When one delete fails", func() {
			wh.deleteErr["zzz_backup_20241215_143022_b"] = errors.New("permission denied")
			result := uc.Execute(ctx, containers)

			Convey("It should keep going and report the failure", func() {
				So(result.SuccessCount, ShouldEqual, 2)
				So(result.FailureCount, ShouldEqual, 1)
				So(result.Errors[0], ShouldContainSubstring, "permission denied")
				So(wh.hasDataset("zzz_backup_20241215_143022_a"), ShouldBeFalse)
			})
		})
	})
}
