package usecase

import (
	"fmt"
	"regexp"
	"time"

	"github.com/semmidev/bqvault/internal/naming"
)

var reportTimestampPattern = regexp.MustCompile(`_(\d{8})_(\d{6})`)

// extractTimestamp reads the run time embedded in a report name such as
// bqvault_backup_20241215_143022.json.gz.
func extractTimestamp(name string) (time.Time, error) {
	matches := reportTimestampPattern.FindStringSubmatch(name)
	if len(matches) < 3 {
		return time.Time{}, fmt.Errorf("invalid report name %q: no timestamp found", name)
	}
	return time.ParseInLocation(naming.Layout, matches[1]+"_"+matches[2], time.UTC)
}
