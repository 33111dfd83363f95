package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kendra"
	"github.com/aws/aws-sdk-go-v2/service/kendra/types"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	statusCacheSize = 4
	statusCacheTTL  = 15 * time.Second

	runningCacheKey = "running"
)

// KendraConfig identifies the index/data-source pair to sync.
type KendraConfig struct {
	IndexID      string
	DataSourceID string
	Region       string
}

// IsConfigured reports whether both identifiers are present.
func (c *KendraConfig) IsConfigured() bool {
	return c.IndexID != "" && c.DataSourceID != ""
}

// KendraSync drives data-source sync jobs on a Kendra index. Status
// lookups are cached briefly since the UI polls them.
type KendraSync struct {
	client *kendra.Client
	config *KendraConfig
	status *expirable.LRU[string, bool]
}

func NewKendraSync(ctx context.Context, cfg *KendraConfig) (*KendraSync, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &KendraSync{
		client: kendra.NewFromConfig(awsCfg),
		config: cfg,
		status: expirable.NewLRU[string, bool](statusCacheSize, nil, statusCacheTTL),
	}, nil
}

// StartSync kicks off a data-source sync job and returns its execution id.
func (k *KendraSync) StartSync(ctx context.Context) (string, error) {
	resp, err := k.client.StartDataSourceSyncJob(ctx, &kendra.StartDataSourceSyncJobInput{
		Id:      &k.config.DataSourceID,
		IndexId: &k.config.IndexID,
	})
	if err != nil {
		return "", fmt.Errorf("start kendra sync job: %w", err)
	}
	k.status.Remove(runningCacheKey)
	return aws.ToString(resp.ExecutionId), nil
}

// Running reports whether a sync or sync-indexing job is in flight.
func (k *KendraSync) Running(ctx context.Context) (bool, error) {
	if cached, ok := k.status.Get(runningCacheKey); ok {
		return cached, nil
	}

	for _, filter := range []types.DataSourceSyncJobStatus{
		types.DataSourceSyncJobStatusSyncing,
		types.DataSourceSyncJobStatusSyncingIndexing,
	} {
		resp, err := k.client.ListDataSourceSyncJobs(ctx, &kendra.ListDataSourceSyncJobsInput{
			Id:           &k.config.DataSourceID,
			IndexId:      &k.config.IndexID,
			StatusFilter: filter,
		})
		if err != nil {
			return false, fmt.Errorf("list kendra sync jobs: %w", err)
		}
		if len(resp.History) > 0 {
			k.status.Add(runningCacheKey, true)
			return true, nil
		}
	}

	k.status.Add(runningCacheKey, false)
	return false, nil
}

// LastSync returns the end time of the most recent succeeded sync job.
func (k *KendraSync) LastSync(ctx context.Context) (time.Time, error) {
	resp, err := k.client.ListDataSourceSyncJobs(ctx, &kendra.ListDataSourceSyncJobsInput{
		Id:           &k.config.DataSourceID,
		IndexId:      &k.config.IndexID,
		StatusFilter: types.DataSourceSyncJobStatusSucceeded,
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("list kendra sync jobs: %w", err)
	}
	if len(resp.History) == 0 || resp.History[0].EndTime == nil {
		return time.Time{}, fmt.Errorf("no succeeded kendra sync jobs")
	}
	return *resp.History[0].EndTime, nil
}

var _ Trigger = (*KendraSync)(nil)
