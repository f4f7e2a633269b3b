package wsfe

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eudyespinoza/MyPOS/internal/core/apperror"
	"github.com/eudyespinoza/MyPOS/internal/domain/billing"
	"github.com/eudyespinoza/MyPOS/internal/domain/fiscalconfig"
	"github.com/eudyespinoza/MyPOS/internal/domain/sequence"
)

func testFiscalConfig() *fiscalconfig.Config {
	return &fiscalconfig.Config{
		StoreID:     "store-1",
		CUIT:        "20123456789",
		PointOfSale: "0001",
		Environment: fiscalconfig.EnvHomologacion,
		Mode:        fiscalconfig.ModeCAE,
	}
}

func testTicket() billing.Ticket {
	return billing.Ticket{Token: "tok", Sign: "sig"}
}

func testSubmission(number int64) *billing.Submission {
	return &billing.Submission{
		Header: billing.Header{
			PointOfSale:  1,
			InvoiceType:  sequence.InvoiceB,
			Concept:      1,
			BuyerDocType: billing.DocTypeDNI,
			BuyerDocNum:  30123456,
			IssueDate:    time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC),
			NetAmount:    decimal.RequireFromString("100.00"),
			VATAmount:    decimal.RequireFromString("21.00"),
			TotalAmount:  decimal.RequireFromString("121.00"),
			Currency:     "PES",
			ExchangeRate: decimal.NewFromInt(1),
		},
		InvoiceNumber: number,
	}
}

func soapBody(inner string) string {
	return `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
<soap:Body>` + inner + `</soap:Body>
</soap:Envelope>`
}

func caeResponse(resultado, cae, vto, obs string) string {
	return soapBody(`<FECAESolicitarResponse xmlns="http://ar.gov.afip.dif.FEV1/">
<FECAESolicitarResult>
<FeCabResp><Resultado>` + resultado + `</Resultado><CantReg>1</CantReg></FeCabResp>
<FeDetResp><FECAEDetResponse>
<Resultado>` + resultado + `</Resultado>
<CbteDesde>7</CbteDesde><CbteHasta>7</CbteHasta>
<CAE>` + cae + `</CAE><CAEFchVto>` + vto + `</CAEFchVto>
` + obs + `
</FECAEDetResponse></FeDetResp>
</FECAESolicitarResult>
</FECAESolicitarResponse>`)
}

func newSoapServer(t *testing.T, body string, capture *[]byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if capture != nil {
			raw, _ := io.ReadAll(r.Body)
			*capture = raw
		}
		w.Header().Set("Content-Type", "text/xml; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}))
}

func TestSubmitAuthorized(t *testing.T) {
	var requestBody []byte
	server := newSoapServer(t, caeResponse("A", "71234567890123", "20260910", ""), &requestBody)
	defer server.Close()

	client := NewClient(Config{Endpoint: server.URL})
	res, err := client.Submit(context.Background(), testFiscalConfig(), testTicket(), testSubmission(7))
	require.NoError(t, err)

	assert.Equal(t, billing.StatusAuthorized, res.Status)
	assert.Equal(t, "71234567890123", res.Code)
	assert.Equal(t, "20260910", res.CodeExpiresAt)
	assert.Equal(t, int64(7), res.InvoiceNumber)

	// The request wire format: one record, matching range ends, amounts
	// with two decimals and the standard VAT bucket.
	wire := string(requestBody)
	assert.Contains(t, wire, "<ar:CantReg>1</ar:CantReg>")
	assert.Contains(t, wire, "<ar:CbteDesde>7</ar:CbteDesde>")
	assert.Contains(t, wire, "<ar:CbteHasta>7</ar:CbteHasta>")
	assert.Contains(t, wire, "<ar:CbteFch>20260828</ar:CbteFch>")
	assert.Contains(t, wire, "<ar:ImpTotal>121.00</ar:ImpTotal>")
	assert.Contains(t, wire, "<ar:ImpNeto>100.00</ar:ImpNeto>")
	assert.Contains(t, wire, "<ar:ImpIVA>21.00</ar:ImpIVA>")
	assert.Contains(t, wire, "<ar:MonId>PES</ar:MonId>")
	assert.Contains(t, wire, "<ar:Id>5</ar:Id>")
	assert.Contains(t, wire, "<ar:Cuit>20123456789</ar:Cuit>")
	assert.NotContains(t, wire, "FECAEASolicitar")
}

func TestSubmitObserved(t *testing.T) {
	obs := `<Observaciones><Obs><Code>10063</Code><Msg>pending review</Msg></Obs></Observaciones>`
	server := newSoapServer(t, caeResponse("A", "71234567890123", "20260910", obs), nil)
	defer server.Close()

	client := NewClient(Config{Endpoint: server.URL})
	res, err := client.Submit(context.Background(), testFiscalConfig(), testTicket(), testSubmission(7))
	require.NoError(t, err)

	assert.Equal(t, billing.StatusObserved, res.Status)
	assert.Equal(t, "71234567890123", res.Code)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, 10063, res.Warnings[0].Code)
	assert.Equal(t, "pending review", res.Warnings[0].Message)
}

func TestSubmitRejected(t *testing.T) {
	obs := `<Observaciones><Obs><Code>10048</Code><Msg>document number invalid</Msg></Obs></Observaciones>`
	server := newSoapServer(t, caeResponse("R", "", "", obs), nil)
	defer server.Close()

	client := NewClient(Config{Endpoint: server.URL})
	res, err := client.Submit(context.Background(), testFiscalConfig(), testTicket(), testSubmission(7))
	require.NoError(t, err)

	assert.Equal(t, billing.StatusRejected, res.Status)
	assert.Equal(t, 10048, res.ReasonCode)
	assert.Equal(t, "document number invalid", res.Message)
}

func TestSubmitSequenceMismatch(t *testing.T) {
	body := soapBody(`<FECAESolicitarResponse xmlns="http://ar.gov.afip.dif.FEV1/">
<FECAESolicitarResult>
<Errors><Err><Code>10016</Code>
<Msg>El numero o fecha del comprobante no se corresponde con el proximo a autorizar</Msg>
</Err></Errors>
</FECAESolicitarResult>
</FECAESolicitarResponse>`)
	server := newSoapServer(t, body, nil)
	defer server.Close()

	client := NewClient(Config{Endpoint: server.URL})
	res, err := client.Submit(context.Background(), testFiscalConfig(), testTicket(), testSubmission(7))
	require.NoError(t, err)
	assert.Equal(t, billing.StatusSequenceMismatch, res.Status)
}

func TestSubmitUnparseableResponseRejected(t *testing.T) {
	server := newSoapServer(t, "not xml", nil)
	defer server.Close()

	client := NewClient(Config{Endpoint: server.URL})
	res, err := client.Submit(context.Background(), testFiscalConfig(), testTicket(), testSubmission(7))
	require.NoError(t, err)
	assert.Equal(t, billing.StatusRejected, res.Status)
}

func TestSubmitTransportFailureIsAmbiguous(t *testing.T) {
	server := newSoapServer(t, "", nil)
	server.Close() // refuse connections

	client := NewClient(Config{Endpoint: server.URL})
	_, err := client.Submit(context.Background(), testFiscalConfig(), testTicket(), testSubmission(7))
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeAmbiguousSubmission))
}

func TestLastAuthorized(t *testing.T) {
	body := soapBody(`<FECompUltimoAutorizadoResponse xmlns="http://ar.gov.afip.dif.FEV1/">
<FECompUltimoAutorizadoResult>
<PtoVta>1</PtoVta><CbteTipo>6</CbteTipo><CbteNro>41</CbteNro>
</FECompUltimoAutorizadoResult>
</FECompUltimoAutorizadoResponse>`)
	server := newSoapServer(t, body, nil)
	defer server.Close()

	client := NewClient(Config{Endpoint: server.URL})
	last, err := client.LastAuthorized(context.Background(), testFiscalConfig(), testTicket(), 1, 6)
	require.NoError(t, err)
	assert.Equal(t, int64(41), last)
}

func TestLastAuthorizedError(t *testing.T) {
	body := soapBody(`<FECompUltimoAutorizadoResponse xmlns="http://ar.gov.afip.dif.FEV1/">
<FECompUltimoAutorizadoResult>
<Errors><Err><Code>600</Code><Msg>token invalido</Msg></Err></Errors>
</FECompUltimoAutorizadoResult>
</FECompUltimoAutorizadoResponse>`)
	server := newSoapServer(t, body, nil)
	defer server.Close()

	client := NewClient(Config{Endpoint: server.URL})
	_, err := client.LastAuthorized(context.Background(), testFiscalConfig(), testTicket(), 1, 6)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeAuthorizationRejected))
}

func TestRequestCAEA(t *testing.T) {
	var requestBody []byte
	body := soapBody(`<FECAEASolicitarResponse xmlns="http://ar.gov.afip.dif.FEV1/">
<FECAEASolicitarResult>
<ResultGet>
<CAEA>21234567890123</CAEA>
<Periodo>202608</Periodo><Orden>2</Orden>
<FchVigDesde>20260816</FchVigDesde><FchVigHasta>20260831</FchVigHasta>
</ResultGet>
</FECAEASolicitarResult>
</FECAEASolicitarResponse>`)
	server := newSoapServer(t, body, &requestBody)
	defer server.Close()

	client := NewClient(Config{Endpoint: server.URL})
	alloc, err := client.RequestCAEA(context.Background(), testFiscalConfig(), testTicket(), "202608", 2)
	require.NoError(t, err)

	assert.Equal(t, "21234567890123", alloc.Code)
	assert.Equal(t, "202608", alloc.Period)
	assert.Equal(t, 2, alloc.Order)
	assert.Equal(t, "20260831", alloc.ValidUntil)

	wire := string(requestBody)
	assert.Contains(t, wire, "<ar:Periodo>202608</ar:Periodo>")
	assert.Contains(t, wire, "<ar:Orden>2</ar:Orden>")
}

func TestRequestCAEAAuthorityError(t *testing.T) {
	body := soapBody(`<FECAEASolicitarResponse xmlns="http://ar.gov.afip.dif.FEV1/">
<FECAEASolicitarResult>
<Errors><Err><Code>15008</Code><Msg>CAEA ya otorgado para el periodo</Msg></Err></Errors>
</FECAEASolicitarResult>
</FECAEASolicitarResponse>`)
	server := newSoapServer(t, body, nil)
	defer server.Close()

	client := NewClient(Config{Endpoint: server.URL})
	_, err := client.RequestCAEA(context.Background(), testFiscalConfig(), testTicket(), "202608", 2)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeAuthorizationRejected))
}

func TestEndpointSelection(t *testing.T) {
	assert.Equal(t, EndpointHomologacion, Endpoint(fiscalconfig.EnvHomologacion))
	assert.Equal(t, EndpointProduccion, Endpoint(fiscalconfig.EnvProduccion))
}
