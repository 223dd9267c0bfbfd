package warehouse

import (
	"errors"
	"fmt"
	"net/http"

	bigquery "google.golang.org/api/bigquery/v2"
	"google.golang.org/api/googleapi"

	"github.com/semmidev/bqvault/internal/domain"
)

// mapError attaches the domain sentinel matching an API error so callers can
// branch with errors.Is.
func mapError(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	switch apiErr.Code {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, apiErr.Message)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", domain.ErrAlreadyExists, apiErr.Message)
	default:
		return err
	}
}

func isStatus(err error, code int) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == code
}

func jobError(e *bigquery.ErrorProto) error {
	if e == nil {
		return nil
	}
	switch e.Reason {
	case "notFound":
		return fmt.Errorf("%w: %s", domain.ErrNotFound, e.Message)
	case "duplicate":
		return fmt.Errorf("%w: %s", domain.ErrAlreadyExists, e.Message)
	default:
		return fmt.Errorf("job failed (%s): %s", e.Reason, e.Message)
	}
}
