package wsaa

import (
	"encoding/xml"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/eudyespinoza/MyPOS/internal/core/apperror"
)

// loginTicketRequest is the body signed and submitted to the login service.
type loginTicketRequest struct {
	XMLName xml.Name  `xml:"loginTicketRequest"`
	Version string    `xml:"version,attr"`
	Header  ltrHeader `xml:"header"`
	Service string    `xml:"service"`
}

type ltrHeader struct {
	UniqueID       int64  `xml:"uniqueId"`
	GenerationTime string `xml:"generationTime"`
	ExpirationTime string `xml:"expirationTime"`
}

// timeLayout is the authority's expected timestamp format: UTC with a
// literal Z suffix. Local offsets are rejected as generationTime.invalid.
const timeLayout = "2006-01-02T15:04:05Z"

// buildLoginTicketRequest renders the request body. The generation time sits
// skew in the past and the expiration window in the future to absorb clock
// drift between this process and the authority.
func buildLoginTicketRequest(service string, now time.Time, skew, window time.Duration) ([]byte, error) {
	nowUTC := now.UTC()
	req := loginTicketRequest{
		Version: "1.0",
		Header: ltrHeader{
			UniqueID:       nowUTC.Unix(),
			GenerationTime: nowUTC.Add(-skew).Format(timeLayout),
			ExpirationTime: nowUTC.Add(window).Format(timeLayout),
		},
		Service: service,
	}

	body, err := xml.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal login ticket request: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

// soapNamespace is the login service's namespace.
const soapNamespace = "http://wsaa.view.sua.dvadac.desein.afip.gov.ar/"

// SOAPAction header value required by the login endpoint.
const soapAction = soapNamespace + "ws/services/LoginCms/loginCms"

// wrapLoginCms wraps the base64-encoded CMS blob in the authority's
// required SOAP envelope.
func wrapLoginCms(cmsBase64 string) []byte {
	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString(`<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:ser="`)
	b.WriteString(soapNamespace)
	b.WriteString("\">\n")
	b.WriteString("  <soapenv:Header/>\n  <soapenv:Body>\n    <ser:loginCms>\n      <in0>")
	b.WriteString(cmsBase64)
	b.WriteString("</in0>\n    </ser:loginCms>\n  </soapenv:Body>\n</soapenv:Envelope>")
	return []byte(b.String())
}

// loginCmsEnvelope is the first parse pass: outer SOAP envelope whose
// loginCmsReturn element carries an escaped XML document.
type loginCmsEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Return  string   `xml:"Body>loginCmsResponse>loginCmsReturn"`
}

// loginTicketResponse is the second parse pass: the unescaped inner document.
type loginTicketResponse struct {
	XMLName xml.Name `xml:"loginTicketResponse"`
	Header  struct {
		GenerationTime string `xml:"generationTime"`
		ExpirationTime string `xml:"expirationTime"`
	} `xml:"header"`
	Credentials struct {
		Token string `xml:"token"`
		Sign  string `xml:"sign"`
	} `xml:"credentials"`
}

// parseTicketResponse decodes the nested XML-escaped-XML response shape in
// two sequential passes and extracts token, sign and expiration.
func parseTicketResponse(raw []byte, now time.Time) (*Ticket, error) {
	var envelope loginCmsEnvelope
	if err := xml.Unmarshal(raw, &envelope); err != nil {
		return nil, apperror.NewTicketParse("malformed login response envelope", err)
	}
	if strings.TrimSpace(envelope.Return) == "" {
		return nil, apperror.NewTicketParse("login response carries no ticket payload", nil)
	}

	// The XML decoder already resolved one entity layer; some gateways
	// escape the payload twice.
	payload := envelope.Return
	if strings.Contains(payload, "&lt;") {
		payload = html.UnescapeString(payload)
	}

	var inner loginTicketResponse
	if err := xml.Unmarshal([]byte(payload), &inner); err != nil {
		return nil, apperror.NewTicketParse("malformed ticket payload", err)
	}

	if inner.Credentials.Token == "" || inner.Credentials.Sign == "" {
		return nil, apperror.NewTicketParse("ticket payload missing token or sign", nil)
	}
	if inner.Header.ExpirationTime == "" {
		return nil, apperror.NewTicketParse("ticket payload missing expiration time", nil)
	}

	expiresAt, err := parseAuthorityTime(inner.Header.ExpirationTime)
	if err != nil {
		return nil, apperror.NewTicketParse("unparseable ticket expiration time", err)
	}

	generatedAt := now
	if inner.Header.GenerationTime != "" {
		if t, err := parseAuthorityTime(inner.Header.GenerationTime); err == nil {
			generatedAt = t
		}
	}

	return &Ticket{
		Token:       inner.Credentials.Token,
		Sign:        inner.Credentials.Sign,
		GeneratedAt: generatedAt,
		ExpiresAt:   expiresAt,
		Raw:         raw,
	}, nil
}

// parseAuthorityTime accepts the authority's ISO 8601 variants, with and
// without sub-second precision.
func parseAuthorityTime(value string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05.999-07:00", timeLayout} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}
