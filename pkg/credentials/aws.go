package credentials

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	ststypes "github.com/aws/aws-sdk-go-v2/service/sts/types"
)

// endpointOverrideEnv is the development-time env var that points the
// AWS SDK at a local emulator for queue-style services. Any call that
// performs role assumption or reads real AWS state must not see it —
// spec §4.2's "bypass any development-time endpoint override".
const endpointOverrideEnv = "AWS_ENDPOINT_URL"

// AWSEnvironment selects which of spec §4.2's two assumption modes
// applies.
type AWSEnvironment string

const (
	EnvDevelopment AWSEnvironment = "development"
	EnvProduction  AWSEnvironment = "production"
)

// AWSAssumerConfig configures owner-role assumption (dev/staging only).
type AWSAssumerConfig struct {
	Environment AWSEnvironment

	OwnerRoleARN             string
	OwnerRoleSessionName     string
	OwnerRoleDurationSeconds int32
	OwnerRoleExternalID      string
}

// assumedCredentials is the normalized result of one AssumeRole call.
type assumedCredentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Expiration      time.Time
}

// AWSAssumer implements spec §4.2's two-stage role assumption: host
// credentials -> owner role (cached) -> tenant client role, grounded on
// the original AWSIntegrationService.assume_owner_role /
// assume_role / _bypass_localstack.
type AWSAssumer struct {
	cfg AWSAssumerConfig

	mu                   sync.Mutex
	ownerCreds           *assumedCredentials
	ownerCredsExpiration time.Time
}

// NewAWSAssumer builds an assumer for the given environment/owner-role
// configuration. cfg.OwnerRole* are unused (and may be zero) in
// production mode.
func NewAWSAssumer(cfg AWSAssumerConfig) *AWSAssumer {
	return &AWSAssumer{cfg: cfg}
}

// WithoutEndpointOverride temporarily clears AWS_ENDPOINT_URL for the
// duration of fn, restoring the original value on every exit path —
// the Go equivalent of the Python original's `_bypass_localstack`
// contextmanager, generalized to Go's defer-based scoped-acquisition
// idiom. AWS_ENDPOINT_URL is process-global, so this holds a package
// level lock for its duration to keep concurrent bypasses from
// clobbering each other.
var endpointOverrideMu sync.Mutex

func WithoutEndpointOverride(fn func() error) error {
	endpointOverrideMu.Lock()
	defer endpointOverrideMu.Unlock()

	original, had := os.LookupEnv(endpointOverrideEnv)
	if had {
		os.Unsetenv(endpointOverrideEnv)
	}
	defer func() {
		if had {
			os.Setenv(endpointOverrideEnv, original)
		}
	}()
	return fn()
}

// AssumeOwnerRole returns cached owner-role credentials if they are
// still valid beyond the five-minute safety margin, otherwise assumes
// OwnerRoleARN fresh and caches the result. Only meaningful in
// EnvDevelopment; callers must not invoke this in production.
func (a *AWSAssumer) AssumeOwnerRole(ctx context.Context, region string) (assumedCredentials, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.ownerCreds != nil && time.Now().Add(reuseMargin).Before(a.ownerCredsExpiration) {
		return *a.ownerCreds, nil
	}

	var creds assumedCredentials
	err := WithoutEndpointOverride(func() error {
		cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
		if err != nil {
			return fmt.Errorf("load host config: %w", err)
		}
		client := sts.NewFromConfig(cfg)

		input := &sts.AssumeRoleInput{
			RoleArn:         &a.cfg.OwnerRoleARN,
			RoleSessionName: &a.cfg.OwnerRoleSessionName,
			DurationSeconds: &a.cfg.OwnerRoleDurationSeconds,
		}
		if a.cfg.OwnerRoleExternalID != "" {
			input.ExternalId = &a.cfg.OwnerRoleExternalID
		}

		out, err := client.AssumeRole(ctx, input)
		if err != nil {
			return fmt.Errorf("sts assume owner role: %w", err)
		}
		creds = fromSTSCredentials(out.Credentials)
		return nil
	})
	if err != nil {
		return assumedCredentials{}, fmt.Errorf("credentials: assume owner role: %w", err)
	}

	a.ownerCreds = &creds
	a.ownerCredsExpiration = creds.Expiration
	return creds, nil
}

// AssumeClientRole performs the second (or only) stage of spec §4.2's
// role assumption: in development, via the cached owner role's
// credentials; in production, directly under the host's instance/task
// role.
func (a *AWSAssumer) AssumeClientRole(ctx context.Context, region, roleARN, externalID string, durationSeconds int32) (assumedCredentials, error) {
	if durationSeconds <= 0 {
		durationSeconds = 3600
	}
	sessionName := "healthreview-client-session"

	var creds assumedCredentials
	err := WithoutEndpointOverride(func() error {
		var cfg awsConfigLoader
		if a.cfg.Environment == EnvDevelopment {
			owner, err := a.AssumeOwnerRole(ctx, region)
			if err != nil {
				return err
			}
			cfg = staticCredsLoader{region: region, creds: owner}
		} else {
			cfg = hostCredsLoader{region: region}
		}

		awsCfg, err := cfg.load(ctx)
		if err != nil {
			return fmt.Errorf("load assumer config: %w", err)
		}

		client := sts.NewFromConfig(awsCfg)
		input := &sts.AssumeRoleInput{
			RoleArn:         &roleARN,
			RoleSessionName: &sessionName,
			DurationSeconds: &durationSeconds,
		}
		if externalID != "" {
			input.ExternalId = &externalID
		}
		out, err := client.AssumeRole(ctx, input)
		if err != nil {
			return fmt.Errorf("sts assume client role: %w", err)
		}
		creds = fromSTSCredentials(out.Credentials)
		return nil
	})
	if err != nil {
		return assumedCredentials{}, fmt.Errorf("credentials: assume client role: %w", err)
	}
	return creds, nil
}

func fromSTSCredentials(c *ststypes.Credentials) assumedCredentials {
	return assumedCredentials{
		AccessKeyID:     *c.AccessKeyId,
		SecretAccessKey: *c.SecretAccessKey,
		SessionToken:    *c.SessionToken,
		Expiration:      *c.Expiration,
	}
}

// awsConfigLoader abstracts over "load host config" vs "load config
// using already-assumed owner credentials" so AssumeClientRole doesn't
// branch on environment twice.
type awsConfigLoader interface {
	load(ctx context.Context) (aws.Config, error)
}

type hostCredsLoader struct{ region string }

func (l hostCredsLoader) load(ctx context.Context) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(l.region))
}

type staticCredsLoader struct {
	region string
	creds  assumedCredentials
}

func (l staticCredsLoader) load(ctx context.Context) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(l.region),
		awsconfig.WithCredentialsProvider(aws2StaticCreds(l.creds)),
	)
}

func aws2StaticCreds(c assumedCredentials) credentials.StaticCredentialsProvider {
	return credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, c.SessionToken)
}
