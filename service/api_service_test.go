package service

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/zkvote/api"
	"github.com/vocdoni/zkvote/auth"
	"github.com/vocdoni/zkvote/identity"
	"github.com/vocdoni/zkvote/session"
)

type rejectAll struct{}

func (rejectAll) Verify(context.Context, *identity.Submission) (*identity.Result, error) {
	return &identity.Result{}, nil
}

func TestAPIService(t *testing.T) {
	c := qt.New(t)
	tl := newTestLedger()
	defer tl.storage.Close()

	issuer, err := auth.NewIssuer("service-test-secret", auth.DefaultTTL)
	c.Assert(err, qt.IsNil)

	// Port 0 lets the OS choose an available port
	apiService := NewAPI(&api.APIConfig{
		Host:      "127.0.0.1",
		Port:      0,
		Storage:   tl.storage,
		Sessions:  session.NewMemoryStore(session.DefaultTTL),
		Issuer:    issuer,
		Verifier:  rejectAll{},
		Ledger:    tl.contracts,
		Encryptor: tl.enc,
	})
	host, port := apiService.HostPort()
	c.Assert(host, qt.Equals, "127.0.0.1")
	c.Assert(port, qt.Equals, 0)
	c.Assert(apiService.Addr(), qt.IsNil)

	ctx := context.Background()
	c.Assert(apiService.Start(ctx), qt.IsNil)
	defer apiService.Stop()

	ping := func() error {
		resp, err := http.Get(fmt.Sprintf("http://%s%s", apiService.Addr(), api.PingEndpoint))
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return nil
	}
	c.Assert(ping(), qt.IsNil)

	// Test stopping and restarting
	addr := apiService.Addr().String()
	apiService.Stop()
	c.Assert(apiService.Addr(), qt.IsNil)
	_, err = http.Get("http://" + addr + api.PingEndpoint)
	c.Assert(err, qt.IsNotNil)

	c.Assert(apiService.Start(ctx), qt.IsNil)
	c.Assert(ping(), qt.IsNil)

	// Test starting an already running service
	c.Assert(apiService.Start(ctx), qt.ErrorMatches, "service already running")
}

func TestAPIServiceInvalidConfig(t *testing.T) {
	c := qt.New(t)
	apiService := NewAPI(&api.APIConfig{Host: "127.0.0.1"})
	c.Assert(apiService.Start(context.Background()), qt.ErrorMatches, "failed to create API server: .*")
	// a failed start leaves the service stopped
	apiService.Stop()
}
