package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/semmidev/bqvault/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

const listBucketXML = `<?xml version="1.0" encoding="UTF-8"?>
<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">
  <Name>reports</Name>
  <Prefix>bqvault</Prefix>
  <KeyCount>2</KeyCount>
  <MaxKeys>1000</MaxKeys>
  <IsTruncated>false</IsTruncated>
  <Contents>
    <Key>bqvault/bqvault_backup_20241101_000000.json.gz</Key>
    <LastModified>2024-11-01T00:00:00.000Z</LastModified>
    <Size>120</Size>
  </Contents>
  <Contents>
    <Key>bqvault/bqvault_backup_20241215_143022.json.gz</Key>
    <LastModified>2024-12-15T14:30:22.000Z</LastModified>
    <Size>140</Size>
  </Contents>
</ListBucketResult>`

func TestS3Storage(t *testing.T) {
	Convey("Given an S3Storage against an S3-compatible server", t, func() {
		var mu sync.Mutex
		var deleted []string

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				w.Header().Set("Content-Type", "application/xml")
				w.Write([]byte(listBucketXML))
			case http.MethodDelete:
				mu.Lock()
				deleted = append(deleted, r.URL.Path)
				mu.Unlock()
				w.WriteHeader(http.StatusNoContent)
			default:
				w.WriteHeader(http.StatusMethodNotAllowed)
			}
		}))
		defer srv.Close()

		ctx := context.Background()
		storage, err := NewS3(ctx, &config.ReportTarget{
			Type:      "s3",
			Region:    "us-east-1",
			Endpoint:  srv.URL,
			Bucket:    "reports",
			Prefix:    "bqvault",
			AccessKey: "test",
			SecretKey: "test",
		})
		So(err, ShouldBeNil)

		Convey("List should strip the prefix", func() {
			files, err := storage.List(ctx)
			So(err, ShouldBeNil)
			So(files, ShouldResemble, []string{
				"bqvault_backup_20241101_000000.json.gz",
				"bqvault_backup_20241215_143022.json.gz",
			})
		})

		Convey("ListOlderThan should filter on modification time", func() {
			files, err := storage.ListOlderThan(ctx, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC))
			So(err, ShouldBeNil)
			So(files, ShouldResemble, []string{"bqvault_backup_20241101_000000.json.gz"})
		})

		Convey("Delete should address the prefixed key", func() {
			err := storage.Delete(ctx, "bqvault_backup_20241101_000000.json.gz")
			So(err, ShouldBeNil)
			So(deleted, ShouldResemble, []string{"/reports/bqvault/bqvault_backup_20241101_000000.json.gz"})
		})
	})
}
