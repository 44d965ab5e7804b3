package credentials

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	grafanaapi "github.com/grafana/grafana-api-golang-client"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/sre-platform/healthreview/ent"
	"github.com/sre-platform/healthreview/ent/awsintegration"
	"github.com/sre-platform/healthreview/ent/datadogintegration"
	"github.com/sre-platform/healthreview/ent/grafanaintegration"
	"github.com/sre-platform/healthreview/ent/newrelicintegration"
)

// ErrRefreshFailed wraps credentials_refresh_failed (spec §4.2): a
// refresh failure aborts the dependent call but never marks the
// integration inactive.
var ErrRefreshFailed = fmt.Errorf("credentials_refresh_failed")

// Service is C2, the credential and client cache: get_client /
// clear (spec §4.2).
type Service struct {
	db      *ent.Client
	cache   *clientCache
	cipher  *Cipher
	assumer *AWSAssumer

	// One breaker per provider kind so a failing Datadog account
	// doesn't trip calls to a healthy CloudWatch integration —
	// grounded on kubernaut's per-dependency gobreaker wiring.
	breakers map[ClientKind]*gobreaker.CircuitBreaker
}

// NewService constructs the credential cache service.
func NewService(db *ent.Client, cipher *Cipher, assumer *AWSAssumer) *Service {
	if db == nil {
		panic("credentials.NewService: db must not be nil")
	}
	if cipher == nil {
		panic("credentials.NewService: cipher must not be nil")
	}
	return &Service{
		db:       db,
		cache:    newClientCache(),
		cipher:   cipher,
		assumer:  assumer,
		breakers: make(map[ClientKind]*gobreaker.CircuitBreaker),
	}
}

func (s *Service) breaker(kind ClientKind) *gobreaker.CircuitBreaker {
	if b, ok := s.breakers[kind]; ok {
		return b
	}
	b := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    string(kind),
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	s.breakers[kind] = b
	return b
}

// GetClient returns a ready-to-use client for (workspace, kind),
// reusing the cached entry when it is not within five minutes of
// expiry, otherwise building a fresh one and caching it.
func (s *Service) GetClient(ctx context.Context, workspaceID uuid.UUID, kind ClientKind) (*Client, error) {
	key := cacheKey{workspaceID: workspaceID, kind: kind}
	if cached, ok := s.cache.get(key); ok {
		return cached, nil
	}

	br := s.breaker(kind)
	result, err := br.Execute(func() (any, error) {
		return s.buildClient(ctx, workspaceID, kind)
	})
	if err != nil {
		return nil, err
	}

	client := result.(*Client)
	s.cache.put(key, client)
	return client, nil
}

// Clear invalidates one, some, or all cache entries (spec §4.2). A nil
// workspaceID or kind is a wildcard.
func (s *Service) Clear(workspaceID *uuid.UUID, kind *ClientKind) {
	s.cache.clear(workspaceID, kind)
}

func (s *Service) buildClient(ctx context.Context, workspaceID uuid.UUID, kind ClientKind) (*Client, error) {
	switch kind {
	case KindCloudWatchLogs, KindCloudWatchMetrics:
		return s.buildAWSClient(ctx, workspaceID, kind)
	case KindDatadogLogs, KindDatadogMetrics:
		return s.buildDatadogClient(ctx, workspaceID, kind)
	case KindNewRelicLogs, KindNewRelicMetrics:
		return s.buildNewRelicClient(ctx, workspaceID, kind)
	case KindGrafanaLogs, KindGrafanaMetrics:
		return s.buildGrafanaClient(ctx, workspaceID, kind)
	default:
		return nil, fmt.Errorf("credentials: unknown client kind %q", kind)
	}
}

func (s *Service) buildAWSClient(ctx context.Context, workspaceID uuid.UUID, kind ClientKind) (*Client, error) {
	integ, err := s.db.AWSIntegration.Query().
		Where(awsintegration.WorkspaceIDEQ(workspaceID), awsintegration.ActiveEQ(true)).
		Only(ctx)
	if err != nil {
		return nil, fmt.Errorf("credentials: load aws integration: %w", err)
	}

	creds, externalID, err := s.decryptAWS(integ)
	if err != nil {
		return nil, fmt.Errorf("credentials: decrypt aws integration: %w", err)
	}

	needsRefresh := integ.CredentialsExpiration == nil ||
		time.Now().Add(reuseMargin).After(*integ.CredentialsExpiration)

	if needsRefresh {
		fresh, assumeErr := s.assumer.AssumeClientRole(ctx, integ.Region, integ.RoleArn, externalID, 3600)
		if assumeErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrRefreshFailed, assumeErr)
		}
		if err := s.persistAWSRefresh(ctx, integ, fresh); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRefreshFailed, err)
		}
		creds = fresh
	}

	var awsCfg aws.Config
	err = WithoutEndpointOverride(func() error {
		var loadErr error
		awsCfg, loadErr = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(integ.Region),
			awsconfig.WithCredentialsProvider(aws2StaticCreds(creds)),
		)
		return loadErr
	})
	if err != nil {
		return nil, fmt.Errorf("credentials: load aws sdk config: %w", err)
	}

	client := &Client{Kind: kind, expiry: creds.Expiration}
	switch kind {
	case KindCloudWatchLogs:
		client.CloudWatchLogs = cloudwatchlogs.NewFromConfig(awsCfg)
	case KindCloudWatchMetrics:
		client.CloudWatchMetrics = cloudwatch.NewFromConfig(awsCfg)
	}
	return client, nil
}

func (s *Service) decryptAWS(integ *ent.AWSIntegration) (assumedCredentials, string, error) {
	var creds assumedCredentials
	var externalID string

	if integ.EncryptedAccessKeyID != nil {
		ak, err := s.cipher.Decrypt(*integ.EncryptedAccessKeyID)
		if err != nil {
			return creds, "", err
		}
		creds.AccessKeyID = ak
	}
	if integ.EncryptedSecretAccessKey != nil {
		sk, err := s.cipher.Decrypt(*integ.EncryptedSecretAccessKey)
		if err != nil {
			return creds, "", err
		}
		creds.SecretAccessKey = sk
	}
	if integ.EncryptedSessionToken != nil {
		st, err := s.cipher.Decrypt(*integ.EncryptedSessionToken)
		if err != nil {
			return creds, "", err
		}
		creds.SessionToken = st
	}
	if integ.CredentialsExpiration != nil {
		creds.Expiration = *integ.CredentialsExpiration
	}
	if integ.EncryptedExternalID != nil {
		id, err := s.cipher.Decrypt(*integ.EncryptedExternalID)
		if err != nil {
			return creds, "", err
		}
		externalID = id
	}
	return creds, externalID, nil
}

func (s *Service) persistAWSRefresh(ctx context.Context, integ *ent.AWSIntegration, fresh assumedCredentials) error {
	ak, err := s.cipher.Encrypt(fresh.AccessKeyID)
	if err != nil {
		return err
	}
	sk, err := s.cipher.Encrypt(fresh.SecretAccessKey)
	if err != nil {
		return err
	}
	st, err := s.cipher.Encrypt(fresh.SessionToken)
	if err != nil {
		return err
	}
	_, err = integ.Update().
		SetEncryptedAccessKeyID(ak).
		SetEncryptedSecretAccessKey(sk).
		SetEncryptedSessionToken(st).
		SetCredentialsExpiration(fresh.Expiration).
		Save(ctx)
	return err
}

func (s *Service) buildDatadogClient(ctx context.Context, workspaceID uuid.UUID, kind ClientKind) (*Client, error) {
	integ, err := s.db.DatadogIntegration.Query().
		Where(datadogintegration.WorkspaceIDEQ(workspaceID), datadogintegration.ActiveEQ(true)).
		Only(ctx)
	if err != nil {
		return nil, fmt.Errorf("credentials: load datadog integration: %w", err)
	}
	apiKey, err := s.cipher.Decrypt(integ.EncryptedAPIKey)
	if err != nil {
		return nil, err
	}
	appKey, err := s.cipher.Decrypt(integ.EncryptedAppKey)
	if err != nil {
		return nil, err
	}
	return &Client{
		Kind:    kind,
		Datadog: NewDatadogClient(integ.Site, apiKey, appKey),
		expiry:  time.Now().Add(24 * time.Hour),
	}, nil
}

func (s *Service) buildNewRelicClient(ctx context.Context, workspaceID uuid.UUID, kind ClientKind) (*Client, error) {
	integ, err := s.db.NewRelicIntegration.Query().
		Where(newrelicintegration.WorkspaceIDEQ(workspaceID), newrelicintegration.ActiveEQ(true)).
		Only(ctx)
	if err != nil {
		return nil, fmt.Errorf("credentials: load newrelic integration: %w", err)
	}
	apiKey, err := s.cipher.Decrypt(integ.EncryptedAPIKey)
	if err != nil {
		return nil, err
	}
	return &Client{
		Kind:     kind,
		NewRelic: NewNewRelicClient(integ.AccountID, apiKey),
		expiry:   time.Now().Add(24 * time.Hour),
	}, nil
}

func (s *Service) buildGrafanaClient(ctx context.Context, workspaceID uuid.UUID, kind ClientKind) (*Client, error) {
	integ, err := s.db.GrafanaIntegration.Query().
		Where(grafanaintegration.WorkspaceIDEQ(workspaceID), grafanaintegration.ActiveEQ(true)).
		Only(ctx)
	if err != nil {
		return nil, fmt.Errorf("credentials: load grafana integration: %w", err)
	}
	token, err := s.cipher.Decrypt(integ.EncryptedAPIToken)
	if err != nil {
		return nil, err
	}
	gc, err := grafanaapi.New(integ.BaseURL, grafanaapi.Config{APIKey: token})
	if err != nil {
		return nil, fmt.Errorf("credentials: new grafana client: %w", err)
	}
	return &Client{
		Kind:         kind,
		Grafana:      gc,
		GrafanaQuery: NewGrafanaQueryClient(integ.BaseURL, token),
		expiry:       time.Now().Add(24 * time.Hour),
	}, nil
}
