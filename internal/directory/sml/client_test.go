package sml

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smp/internal/identifier"
	"smp/pkg/platform/circuit"
	"smp/pkg/platform/sentinel"
)

const notFoundFault = `<?xml version="1.0"?>
<S:Envelope xmlns:S="http://schemas.xmlsoap.org/soap/envelope/">
  <S:Body>
    <S:Fault>
      <faultcode>S:Server</faultcode>
      <faultstring>The participant identifier does not exist</faultstring>
      <detail>
        <NotFoundFault xmlns="http://busdox.org/serviceMetadata/ManageServiceMetadataService/1.0/">
          <FaultMessage>not found</FaultMessage>
        </NotFoundFault>
      </detail>
    </S:Fault>
  </S:Body>
</S:Envelope>`

type captured struct {
	action string
	body   []byte
}

func participant(t *testing.T) identifier.ParticipantID {
	t.Helper()
	p, err := identifier.ParseParticipant(identifier.Peppol{}, "iso6523-actorid-upis::9915:test")
	require.NoError(t, err)
	return p
}

func newServer(t *testing.T, status int, body string, calls *[]captured) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload, _ := io.ReadAll(r.Body)
		*calls = append(*calls, captured{action: r.Header.Get("SOAPAction"), body: payload})
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_RegisterSendsCreateEnvelope(t *testing.T) {
	var calls []captured
	srv := newServer(t, http.StatusOK, "", &calls)
	client, err := New(Config{URL: srv.URL, SMPID: "SMP-1"})
	require.NoError(t, err)

	require.NoError(t, client.Register(context.Background(), participant(t)))

	require.Len(t, calls, 1)
	assert.Equal(t, `"`+actionCreate+`"`, calls[0].action)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(calls[0].body))
	pid := doc.FindElement("//CreateParticipantIdentifier/ParticipantIdentifier")
	require.NotNil(t, pid)
	assert.Equal(t, "iso6523-actorid-upis", pid.SelectAttrValue("scheme", ""))
	assert.Equal(t, "9915:test", pid.Text())
	smp := doc.FindElement("//ServiceMetadataPublisherID")
	require.NotNil(t, smp)
	assert.Equal(t, "SMP-1", smp.Text())
}

func TestClient_UndoCallsAreInverse(t *testing.T) {
	var calls []captured
	srv := newServer(t, http.StatusOK, "", &calls)
	client, err := New(Config{URL: srv.URL, SMPID: "SMP-1"})
	require.NoError(t, err)

	require.NoError(t, client.UndoRegister(context.Background(), participant(t)))
	require.NoError(t, client.UndoUnregister(context.Background(), participant(t)))

	require.Len(t, calls, 2)
	assert.Equal(t, `"`+actionDelete+`"`, calls[0].action)
	assert.Equal(t, `"`+actionCreate+`"`, calls[1].action)
}

func TestClient_FaultIsRejection(t *testing.T) {
	var calls []captured
	srv := newServer(t, http.StatusInternalServerError, notFoundFault, &calls)
	client, err := New(Config{URL: srv.URL, SMPID: "SMP-1"})
	require.NoError(t, err)

	err = client.Unregister(context.Background(), participant(t))
	require.ErrorIs(t, err, sentinel.ErrRejected)
	assert.Contains(t, err.Error(), "NotFoundFault")
	assert.Contains(t, err.Error(), "does not exist")
}

func TestClient_UnreachableIsUnavailable(t *testing.T) {
	var calls []captured
	srv := newServer(t, http.StatusBadGateway, "<html>proxy error</html>", &calls)
	client, err := New(Config{URL: srv.URL, SMPID: "SMP-1"})
	require.NoError(t, err)

	err = client.Register(context.Background(), participant(t))
	require.ErrorIs(t, err, sentinel.ErrUnavailable)
}

func TestClient_RequestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client, err := New(Config{URL: srv.URL, SMPID: "SMP-1", RequestTimeout: 20 * time.Millisecond})
	require.NoError(t, err)

	err = client.Register(context.Background(), participant(t))
	require.ErrorIs(t, err, sentinel.ErrUnavailable)
}

func TestClient_BreakerFailsFast(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	breaker := circuit.New("sml", circuit.WithFailureThreshold(2), circuit.WithCoolDown(time.Hour))
	client, err := New(Config{URL: srv.URL, SMPID: "SMP-1"}, WithBreaker(breaker))
	require.NoError(t, err)

	for range 2 {
		require.ErrorIs(t, client.Register(context.Background(), participant(t)), sentinel.ErrUnavailable)
	}
	assert.True(t, breaker.IsOpen())

	err = client.Register(context.Background(), participant(t))
	require.ErrorIs(t, err, sentinel.ErrUnavailable)
	assert.Equal(t, int32(2), hits.Load(), "open breaker must not reach the directory")

	require.Error(t, client.UndoRegister(context.Background(), participant(t)))
	assert.Equal(t, int32(3), hits.Load(), "compensations bypass the breaker")
}

func TestNew_RequiresURLAndSMPID(t *testing.T) {
	_, err := New(Config{SMPID: "x"})
	require.Error(t, err)
	_, err = New(Config{URL: "http://localhost"})
	require.Error(t, err)
}
