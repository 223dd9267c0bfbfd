package warehouse

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	bigquery "google.golang.org/api/bigquery/v2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/semmidev/bqvault/internal/config"
	"github.com/semmidev/bqvault/internal/domain"
)

const defaultPollInterval = 2 * time.Second

// BigQuery implements domain.Catalog and domain.Snapshotter on top of the
// BigQuery v2 REST API. Snapshots and clones are DDL statements run as jobs.
type BigQuery struct {
	service      *bigquery.Service
	project      string
	location     string
	pricing      config.PricingConfig
	pollInterval time.Duration
}

func NewBigQuery(ctx context.Context, cfg *config.WarehouseConfig, opts ...option.ClientOption) (*BigQuery, error) {
	clientOpts, err := credentialOptions(ctx, cfg)
	if err != nil {
		return nil, err
	}
	clientOpts = append(clientOpts, opts...)

	service, err := bigquery.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create bigquery service: %w", err)
	}

	poll := cfg.JobPollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}

	return &BigQuery{
		service:      service,
		project:      cfg.ProjectID,
		location:     cfg.Location,
		pricing:      cfg.Pricing,
		pollInterval: poll,
	}, nil
}

func credentialOptions(ctx context.Context, cfg *config.WarehouseConfig) ([]option.ClientOption, error) {
	switch {
	case cfg.OAuth.RefreshToken != "":
		oauthCfg, err := OAuthConfig(cfg.OAuth.ClientSecretFile)
		if err != nil {
			return nil, err
		}
		ts := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.OAuth.RefreshToken})
		return []option.ClientOption{option.WithTokenSource(ts)}, nil

	case cfg.CredentialsFile != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		creds, err := google.CredentialsFromJSON(ctx, data, bigquery.BigqueryScope)
		if err != nil {
			return nil, fmt.Errorf("failed to parse credentials: %w", err)
		}
		return []option.ClientOption{option.WithCredentials(creds)}, nil

	default:
		return nil, nil
	}
}

// OAuthConfig reads an installed-app client secret scoped to BigQuery.
func OAuthConfig(clientSecretPath string) (*oauth2.Config, error) {
	if clientSecretPath == "" {
		return nil, fmt.Errorf("client secret path cannot be empty")
	}
	b, err := os.ReadFile(clientSecretPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret: %w", err)
	}
	cfg, err := google.ConfigFromJSON(b, bigquery.BigqueryScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret: %w", err)
	}
	return cfg, nil
}

func (b *BigQuery) ListResources(ctx context.Context) ([]domain.ResourceInfo, error) {
	var out []domain.ResourceInfo
	err := b.service.Datasets.List(b.project).Context(ctx).Pages(ctx, func(page *bigquery.DatasetList) error {
		for _, ds := range page.Datasets {
			if ds.DatasetReference == nil {
				continue
			}
			out = append(out, domain.ResourceInfo{ID: ds.DatasetReference.DatasetId, Location: ds.Location})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", mapError(err))
	}
	return out, nil
}

func (b *BigQuery) GetResource(ctx context.Context, id string) (*domain.ResourceInfo, error) {
	ds, err := b.service.Datasets.Get(b.project, id).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get dataset %s: %w", id, mapError(err))
	}
	return &domain.ResourceInfo{ID: id, Location: ds.Location}, nil
}

func (b *BigQuery) CreateResource(ctx context.Context, id, location string) error {
	if location == "" {
		location = b.location
	}
	ds := &bigquery.Dataset{
		DatasetReference: &bigquery.DatasetReference{ProjectId: b.project, DatasetId: id},
		Location:         location,
		Labels:           map[string]string{"managed-by": "bqvault"},
	}
	if _, err := b.service.Datasets.Insert(b.project, ds).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to create dataset %s: %w", id, mapError(err))
	}
	return nil
}

func (b *BigQuery) ResourceExists(ctx context.Context, id string) (bool, error) {
	_, err := b.service.Datasets.Get(b.project, id).Fields("id").Context(ctx).Do()
	if err == nil {
		return true, nil
	}
	if isStatus(err, http.StatusNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check dataset %s: %w", id, mapError(err))
}

func (b *BigQuery) ListMembers(ctx context.Context, resourceID string) ([]domain.MemberInfo, error) {
	var out []domain.MemberInfo
	err := b.service.Tables.List(b.project, resourceID).Context(ctx).Pages(ctx, func(page *bigquery.TableList) error {
		for _, t := range page.Tables {
			if t.TableReference == nil {
				continue
			}
			out = append(out, domain.MemberInfo{ID: t.TableReference.TableId, Type: t.Type})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tables of %s: %w", resourceID, mapError(err))
	}
	return out, nil
}

func (b *BigQuery) GetMemberMetadata(ctx context.Context, resourceID, memberID string) (*domain.MemberMetadata, error) {
	t, err := b.service.Tables.Get(b.project, resourceID, memberID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get table %s.%s: %w", resourceID, memberID, mapError(err))
	}

	meta := &domain.MemberMetadata{ID: memberID, Type: t.Type}
	if mv := t.MaterializedView; mv != nil {
		enabled := mv.EnableRefresh
		interval := mv.RefreshIntervalMs
		meta.View = &domain.DerivedViewDefinition{
			ViewID:            memberID,
			Query:             mv.Query,
			RefreshEnabled:    &enabled,
			RefreshIntervalMs: &interval,
		}
	}
	return meta, nil
}

func (b *BigQuery) DeleteMember(ctx context.Context, resourceID, memberID string) error {
	if err := b.service.Tables.Delete(b.project, resourceID, memberID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete table %s.%s: %w", resourceID, memberID, mapError(err))
	}
	return nil
}

func (b *BigQuery) CreateDerivedView(ctx context.Context, resourceID string, def domain.DerivedViewDefinition) error {
	mv := &bigquery.MaterializedViewDefinition{Query: def.Query}
	if def.RefreshEnabled != nil {
		mv.EnableRefresh = *def.RefreshEnabled
		mv.ForceSendFields = append(mv.ForceSendFields, "EnableRefresh")
	}
	if def.RefreshIntervalMs != nil && *def.RefreshIntervalMs > 0 {
		mv.RefreshIntervalMs = *def.RefreshIntervalMs
	}

	table := &bigquery.Table{
		TableReference:   &bigquery.TableReference{ProjectId: b.project, DatasetId: resourceID, TableId: def.ViewID},
		MaterializedView: mv,
	}
	if _, err := b.service.Tables.Insert(b.project, resourceID, table).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to create materialized view %s.%s: %w", resourceID, def.ViewID, mapError(err))
	}
	return nil
}

func (b *BigQuery) CreateSnapshot(
	ctx context.Context,
	source domain.MemberRef,
	targetContainer string,
	instant time.Time,
	expiration *time.Time,
) error {
	stmt := snapshotStatement(b.project, source, targetContainer, instant, expiration)
	if err := b.runStatement(ctx, stmt, source.Location); err != nil {
		return fmt.Errorf("snapshot %s.%s: %w", source.ResourceID, source.MemberID, err)
	}
	return nil
}

func (b *BigQuery) CloneBack(
	ctx context.Context,
	snapshot domain.MemberRef,
	targetResource, targetMemberID string,
	overwrite bool,
) error {
	stmt := cloneStatement(b.project, snapshot, targetResource, targetMemberID, overwrite)
	if err := b.runStatement(ctx, stmt, snapshot.Location); err != nil {
		return fmt.Errorf("clone %s.%s: %w", snapshot.ResourceID, snapshot.MemberID, err)
	}
	return nil
}

func (b *BigQuery) DeleteResource(ctx context.Context, id string) error {
	if err := b.service.Datasets.Delete(b.project, id).DeleteContents(true).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete dataset %s: %w", id, mapError(err))
	}
	return nil
}

// runStatement submits sql as a query job and blocks until it finishes.
func (b *BigQuery) runStatement(ctx context.Context, sql, location string) error {
	if location == "" {
		location = b.location
	}

	job := &bigquery.Job{
		JobReference: &bigquery.JobReference{
			ProjectId: b.project,
			JobId:     "bqvault_" + uuid.NewString(),
			Location:  location,
		},
		Configuration: &bigquery.JobConfiguration{
			Labels: map[string]string{
				"managed-by":   "bqvault",
				"pricing-mode": pricingLabel(b.pricing),
			},
			Query: &bigquery.JobConfigurationQuery{
				Query:        withReservation(sql, b.pricing),
				UseLegacySql: googleapi.Bool(false),
			},
		},
	}

	inserted, err := b.service.Jobs.Insert(b.project, job).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("submit job: %w", mapError(err))
	}
	return b.waitForJob(ctx, inserted)
}

func (b *BigQuery) waitForJob(ctx context.Context, job *bigquery.Job) error {
	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	for {
		if job.Status != nil && job.Status.State == "DONE" {
			return jobError(job.Status.ErrorResult)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		ref := job.JobReference
		next, err := b.service.Jobs.Get(ref.ProjectId, ref.JobId).Location(ref.Location).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("poll job %s: %w", ref.JobId, mapError(err))
		}
		job = next
	}
}
