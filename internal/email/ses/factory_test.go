package ses_test

import (
	"context"
	"encoding/json"
	"encoding/pem"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostedid/sesmail/internal/email"
	"github.com/hostedid/sesmail/internal/email/ses"
)

func TestNewFactory_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  ses.Config
		wantErr bool
		errMsg  string
	}{
		{
			name:   "region",
			config: ses.Config{Region: "eu-west-1"},
		},
		{
			name:   "partitioned region",
			config: ses.Config{Region: "us-gov-west-1"},
		},
		{
			name:   "no region",
			config: ses.Config{},
		},
		{
			name:    "uppercase region",
			config:  ses.Config{Region: "EU_WEST_1"},
			wantErr: true,
			errMsg:  "malformed region",
		},
		{
			name:    "region with spaces",
			config:  ses.Config{Region: "eu west 1"},
			wantErr: true,
			errMsg:  "malformed region",
		},
		{
			name:    "trailing dash",
			config:  ses.Config{Region: "eu-west-"},
			wantErr: true,
			errMsg:  "malformed region",
		},
		{
			name:    "access key without secret",
			config:  ses.Config{Region: "eu-west-1", AccessKeyID: "AKID"},
			wantErr: true,
			errMsg:  "must be set together",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			factory, err := ses.NewFactory(context.Background(), tt.config, ses.WithClient(&mockClient{}))
			if !tt.wantErr {
				require.NoError(t, err)
				assert.NotNil(t, factory)
				return
			}

			require.Error(t, err)
			assert.ErrorIs(t, err, email.ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestFactory_OperationalInfo(t *testing.T) {
	t.Parallel()

	withRegion, err := ses.NewFactory(context.Background(), ses.Config{Region: "eu-west-1"}, ses.WithClient(&mockClient{}))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"region": "eu-west-1"}, withRegion.OperationalInfo())

	// Callers cannot change the factory's view of its configuration
	info := withRegion.OperationalInfo()
	info["region"] = "us-east-1"
	assert.Equal(t, "eu-west-1", withRegion.OperationalInfo()["region"])

	ambient, err := ses.NewFactory(context.Background(), ses.Config{}, ses.WithClient(&mockClient{}))
	require.NoError(t, err)
	assert.Empty(t, ambient.OperationalInfo())
}

func TestFactory_Lifecycle(t *testing.T) {
	t.Parallel()

	factory, err := ses.NewFactory(context.Background(), ses.Config{Region: "eu-west-1"}, ses.WithClient(&mockClient{}))
	require.NoError(t, err)

	assert.Equal(t, "aws-ses", factory.ID())
	assert.NotSame(t, factory.Create(), factory.Create())
	assert.NoError(t, factory.Close())
	assert.NoError(t, factory.Close())
}

// fakeSES records SendEmail calls made by the real SDK client.
type fakeSES struct {
	mu       sync.Mutex
	requests []map[string]any
	status   int
	errType  string
}

func (f *fakeSES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	var req map[string]any
	_ = json.Unmarshal(body, &req)

	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if f.status != 0 {
		w.Header().Set("X-Amzn-ErrorType", f.errType)
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(`{"message":"Email address is not verified."}`))
		return
	}
	_, _ = w.Write([]byte(`{"MessageId":"0100018c-test"}`))
}

func newEndpointFactory(t *testing.T, handler http.Handler) *ses.Factory {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	factory, err := ses.NewFactory(context.Background(), ses.Config{
		Region:          "eu-west-1",
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
		Endpoint:        srv.URL,
	}, ses.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return factory
}

func TestFactory_SDKRoundTrip(t *testing.T) {
	t.Parallel()

	fake := &fakeSES{}
	factory := newEndpointFactory(t, fake)

	cfg := email.SendConfig{
		"from":            "john@example.com",
		"fromDisplayName": "Keycloak Test",
		"replyTo":         "support@example.com",
	}
	require.NoError(t, factory.Create().Send(context.Background(), cfg, testMessage()))

	require.Len(t, fake.requests, 1)
	req := fake.requests[0]
	assert.Equal(t, `"Keycloak Test" <john@example.com>`, req["FromEmailAddress"])
	assert.Equal(t, []any{"support@example.com"}, req["ReplyToAddresses"])
	assert.Equal(t, map[string]any{"ToAddresses": []any{"user@example.com"}}, req["Destination"])

	simple := req["Content"].(map[string]any)["Simple"].(map[string]any)
	assert.Equal(t, map[string]any{"Charset": "UTF-8", "Data": "Subject"}, simple["Subject"])
	body := simple["Body"].(map[string]any)
	assert.Equal(t, map[string]any{"Charset": "UTF-8", "Data": "Html Body"}, body["Html"])
	assert.Equal(t, map[string]any{"Charset": "UTF-8", "Data": "Text Body"}, body["Text"])
}

func TestFactory_SDKRejection(t *testing.T) {
	t.Parallel()

	fake := &fakeSES{status: http.StatusBadRequest, errType: "MessageRejected"}
	factory := newEndpointFactory(t, fake)

	err := factory.Create().Send(context.Background(), email.SendConfig{"from": "john@example.com"}, testMessage())
	require.Error(t, err)
	assert.ErrorIs(t, err, email.ErrSendFailed)

	var apiErr smithy.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "MessageRejected", apiErr.ErrorCode())
	assert.Len(t, fake.requests, 1, "rejections are not retried")
}

func TestFactory_CustomCABundle(t *testing.T) {
	fake := &fakeSES{}
	srv := httptest.NewTLSServer(fake)
	t.Cleanup(srv.Close)

	bundle := filepath.Join(t.TempDir(), "ca.pem")
	block := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw})
	require.NoError(t, os.WriteFile(bundle, block, 0o600))
	t.Setenv("AWS_CA_BUNDLE", bundle)

	cfg := ses.Config{
		Region:          "eu-west-1",
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
		Endpoint:        srv.URL,
	}

	tests := []struct {
		name string
		opts []ses.Option
	}{
		{name: "sdk client trusts the bundle"},
		{name: "custom client", opts: []ses.Option{ses.WithHTTPClient(srv.Client())}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory, err := ses.NewFactory(context.Background(), cfg, tt.opts...)
			require.NoError(t, err)

			err = factory.Create().Send(context.Background(), email.SendConfig{"from": "john@example.com"}, testMessage())
			require.NoError(t, err)
		})
	}

	assert.Len(t, fake.requests, len(tests))
}
