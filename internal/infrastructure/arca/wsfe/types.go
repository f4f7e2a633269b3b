package wsfe

import "encoding/xml"

// Service namespace of the electronic invoicing endpoint. Every operation's
// SOAPAction is this namespace followed by the operation name.
const serviceNamespace = "http://ar.gov.afip.dif.FEV1/"

const soapEnvelopeNS = "http://schemas.xmlsoap.org/soap/envelope/"

// Request side. The authority's ASMX endpoint requires qualified elements,
// so the marshal structs carry explicit prefixes.

type requestEnvelope struct {
	XMLName xml.Name    `xml:"soapenv:Envelope"`
	NSSoap  string      `xml:"xmlns:soapenv,attr"`
	NSAr    string      `xml:"xmlns:ar,attr"`
	Body    requestBody `xml:"soapenv:Body"`
}

type requestBody struct {
	CAE  *caeRequest  `xml:"ar:FECAESolicitar,omitempty"`
	CAEA *caeaRequest `xml:"ar:FECAEASolicitar,omitempty"`
	Last *lastRequest `xml:"ar:FECompUltimoAutorizado,omitempty"`
}

type authPayload struct {
	Token string `xml:"ar:Token"`
	Sign  string `xml:"ar:Sign"`
	Cuit  int64  `xml:"ar:Cuit"`
}

type caeRequest struct {
	Auth authPayload `xml:"ar:Auth"`
	Req  caeBatch    `xml:"ar:FeCAEReq"`
}

type caeBatch struct {
	Header  batchHeader `xml:"ar:FeCabReq"`
	Details []caeDetail `xml:"ar:FeDetReq>ar:FECAEDetRequest"`
}

type batchHeader struct {
	CantReg  int `xml:"ar:CantReg"`
	PtoVta   int `xml:"ar:PtoVta"`
	CbteTipo int `xml:"ar:CbteTipo"`
}

type caeDetail struct {
	Concepto               int           `xml:"ar:Concepto"`
	DocTipo                int           `xml:"ar:DocTipo"`
	DocNro                 int64         `xml:"ar:DocNro"`
	CbteDesde              int64         `xml:"ar:CbteDesde"`
	CbteHasta              int64         `xml:"ar:CbteHasta"`
	CbteFch                string        `xml:"ar:CbteFch"` // yyyymmdd
	ImpTotal               string        `xml:"ar:ImpTotal"`
	ImpTotConc             string        `xml:"ar:ImpTotConc"`
	ImpNeto                string        `xml:"ar:ImpNeto"`
	ImpOpEx                string        `xml:"ar:ImpOpEx"`
	ImpIVA                 string        `xml:"ar:ImpIVA"`
	ImpTrib                string        `xml:"ar:ImpTrib"`
	MonID                  string        `xml:"ar:MonId"`
	MonCotiz               string        `xml:"ar:MonCotiz"`
	CondicionIVAReceptorID int           `xml:"ar:CondicionIVAReceptorId"`
	VAT                    *vatBreakdown `xml:"ar:Iva,omitempty"`
}

type vatBreakdown struct {
	Entries []vatEntry `xml:"ar:AlicIva"`
}

type vatEntry struct {
	ID      int    `xml:"ar:Id"`
	BaseImp string `xml:"ar:BaseImp"`
	Importe string `xml:"ar:Importe"`
}

type caeaRequest struct {
	Auth    authPayload `xml:"ar:Auth"`
	Periodo int         `xml:"ar:Periodo"` // YYYYMM
	Orden   int         `xml:"ar:Orden"`   // 1 or 2
}

type lastRequest struct {
	Auth     authPayload `xml:"ar:Auth"`
	PtoVta   int         `xml:"ar:PtoVta"`
	CbteTipo int         `xml:"ar:CbteTipo"`
}

// Response side. Decoded by local element name so the authority's default
// namespace does not matter.

type authorityMessage struct {
	Code int    `xml:"Code"`
	Msg  string `xml:"Msg"`
}

type caeResponseEnvelope struct {
	Result caeResult `xml:"Body>FECAESolicitarResponse>FECAESolicitarResult"`
}

type caeResult struct {
	Header  caeResultHeader     `xml:"FeCabResp"`
	Details []caeDetailResponse `xml:"FeDetResp>FECAEDetResponse"`
	Errors  []authorityMessage  `xml:"Errors>Err"`
	Events  []authorityMessage  `xml:"Events>Evt"`
}

type caeResultHeader struct {
	Resultado string `xml:"Resultado"` // A | R | P
	CantReg   int    `xml:"CantReg"`
}

type caeDetailResponse struct {
	Resultado     string             `xml:"Resultado"`
	CbteDesde     int64              `xml:"CbteDesde"`
	CbteHasta     int64              `xml:"CbteHasta"`
	CAE           string             `xml:"CAE"`
	CAEFchVto     string             `xml:"CAEFchVto"` // yyyymmdd
	Observaciones []authorityMessage `xml:"Observaciones>Obs"`
}

type caeaResponseEnvelope struct {
	Result caeaResult `xml:"Body>FECAEASolicitarResponse>FECAEASolicitarResult"`
}

type caeaResult struct {
	Get    caeaGet            `xml:"ResultGet"`
	Errors []authorityMessage `xml:"Errors>Err"`
}

type caeaGet struct {
	CAEA        string `xml:"CAEA"`
	Periodo     int    `xml:"Periodo"`
	Orden       int    `xml:"Orden"`
	FchVigDesde string `xml:"FchVigDesde"`
	FchVigHasta string `xml:"FchVigHasta"`
}

type lastResponseEnvelope struct {
	Result lastResult `xml:"Body>FECompUltimoAutorizadoResponse>FECompUltimoAutorizadoResult"`
}

type lastResult struct {
	PtoVta   int                `xml:"PtoVta"`
	CbteTipo int                `xml:"CbteTipo"`
	CbteNro  int64              `xml:"CbteNro"`
	Errors   []authorityMessage `xml:"Errors>Err"`
}
