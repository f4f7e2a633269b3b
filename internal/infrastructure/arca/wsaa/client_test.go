package wsaa

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eudyespinoza/MyPOS/internal/core/apperror"
	"github.com/eudyespinoza/MyPOS/internal/domain/fiscalconfig"
	"github.com/eudyespinoza/MyPOS/internal/infrastructure/arca/credential"
)

const testBundlePassword = "testpass"

func testBundle(t *testing.T) credential.Bundle {
	t.Helper()
	data, err := os.ReadFile("../credential/testdata/bundle.pfx")
	require.NoError(t, err)
	return credential.Bundle{Data: data, Password: testBundlePassword}
}

// loginResponse renders the authority's reply: an outer SOAP envelope whose
// loginCmsReturn element carries the escaped inner ticket document.
func loginResponse(token, sign, expiration string) string {
	inner := fmt.Sprintf(`&lt;?xml version="1.0" encoding="UTF-8"?&gt;
&lt;loginTicketResponse version="1.0"&gt;
&lt;header&gt;&lt;source&gt;authority&lt;/source&gt;&lt;expirationTime&gt;%s&lt;/expirationTime&gt;&lt;/header&gt;
&lt;credentials&gt;&lt;token&gt;%s&lt;/token&gt;&lt;sign&gt;%s&lt;/sign&gt;&lt;/credentials&gt;
&lt;/loginTicketResponse&gt;`, expiration, token, sign)

	return `<?xml version="1.0" encoding="UTF-8"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/">
<soapenv:Body>
<loginCmsResponse xmlns="https://wsaa.view.sua.dvadac.desein.afip.gov">
<loginCmsReturn>` + inner + `</loginCmsReturn>
</loginCmsResponse>
</soapenv:Body>
</soapenv:Envelope>`
}

func newLoginServer(t *testing.T, hits *atomic.Int64, body string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.Header.Get("SOAPAction"), "LoginCms")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func newTestClient(endpoint string) *Client {
	cfg := DefaultConfig()
	cfg.Endpoint = endpoint
	return NewClient(cfg, NewMemoryStore())
}

func TestGetTicketLoginAndCache(t *testing.T) {
	expiration := time.Now().Add(11 * time.Hour).UTC().Format("2006-01-02T15:04:05Z")
	var hits atomic.Int64
	server := newLoginServer(t, &hits, loginResponse("tok-1", "sig-1", expiration), http.StatusOK)
	defer server.Close()

	client := newTestClient(server.URL)
	bundle := testBundle(t)

	ticket, err := client.GetTicket(context.Background(), fiscalconfig.EnvHomologacion, bundle)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", ticket.Token)
	assert.Equal(t, "sig-1", ticket.Sign)
	assert.False(t, ticket.Expired(time.Now()))
	assert.Equal(t, int64(1), hits.Load())

	// Second call is served from the cache.
	again, err := client.GetTicket(context.Background(), fiscalconfig.EnvHomologacion, bundle)
	require.NoError(t, err)
	assert.Equal(t, ticket.Token, again.Token)
	assert.Equal(t, int64(1), hits.Load(), "cached ticket must not hit the network")
}

func TestGetTicketSingleRegenerationUnderConcurrency(t *testing.T) {
	expiration := time.Now().Add(11 * time.Hour).UTC().Format("2006-01-02T15:04:05Z")
	var hits atomic.Int64
	server := newLoginServer(t, &hits, loginResponse("tok-c", "sig-c", expiration), http.StatusOK)
	defer server.Close()

	client := newTestClient(server.URL)
	bundle := testBundle(t)

	const callers = 10
	var wg sync.WaitGroup
	errs := make([]error, callers)
	tokens := make([]string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ticket, err := client.GetTicket(context.Background(), fiscalconfig.EnvHomologacion, bundle)
			errs[i] = err
			if err == nil {
				tokens[i] = ticket.Token
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "tok-c", tokens[i])
	}
	assert.Equal(t, int64(1), hits.Load(), "exactly one login for concurrent callers")
}

func TestGetTicketExpiredTriggersRegeneration(t *testing.T) {
	expiration := time.Now().Add(11 * time.Hour).UTC().Format("2006-01-02T15:04:05Z")
	var hits atomic.Int64
	server := newLoginServer(t, &hits, loginResponse("tok-fresh", "sig-fresh", expiration), http.StatusOK)
	defer server.Close()

	store := NewMemoryStore()
	cfg := DefaultConfig()
	cfg.Endpoint = server.URL
	client := NewClient(cfg, store)
	bundle := testBundle(t)

	// Seed an expired ticket under the client's own identity key.
	identity := string(fiscalconfig.EnvHomologacion) + ":" + bundle.Identity()
	require.NoError(t, store.Put(context.Background(), identity, &Ticket{
		Token:     "tok-stale",
		Sign:      "sig-stale",
		ExpiresAt: time.Now().Add(-time.Minute),
	}))

	ticket, err := client.GetTicket(context.Background(), fiscalconfig.EnvHomologacion, bundle)
	require.NoError(t, err)
	assert.Equal(t, "tok-fresh", ticket.Token)
	assert.Equal(t, int64(1), hits.Load())
}

func TestGetTicketTransportError(t *testing.T) {
	var hits atomic.Int64
	server := newLoginServer(t, &hits, "internal failure", http.StatusInternalServerError)
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.GetTicket(context.Background(), fiscalconfig.EnvHomologacion, testBundle(t))
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeTicketRequest))
}

func TestGetTicketUnparseableResponse(t *testing.T) {
	var hits atomic.Int64
	server := newLoginServer(t, &hits, "this is not xml at all", http.StatusOK)
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.GetTicket(context.Background(), fiscalconfig.EnvHomologacion, testBundle(t))
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeTicketParse))
}

func TestGetTicketBadCredentialBundle(t *testing.T) {
	var hits atomic.Int64
	server := newLoginServer(t, &hits, "unused", http.StatusOK)
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.GetTicket(context.Background(), fiscalconfig.EnvHomologacion, credential.Bundle{
		Data:     []byte("garbage"),
		Password: "nope",
	})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeCertificate))
	assert.Equal(t, int64(0), hits.Load(), "bad bundle must fail before the network")
}

func TestEndpointSelection(t *testing.T) {
	assert.Equal(t, EndpointHomologacion, Endpoint(fiscalconfig.EnvHomologacion))
	assert.Equal(t, EndpointProduccion, Endpoint(fiscalconfig.EnvProduccion))
}
