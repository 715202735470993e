package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/muni-gth/papeletas-api/internal/models"
	"github.com/muni-gth/papeletas-api/pkg/config"
)

// Actions understood by the legacy papeletas controller.
const (
	accionResumenInicial = "obtenerResumenInicial"
	accionListar         = "listarPapeletas"
	accionRegistrar      = "registrar"
	accionGenerarPDF     = "generarPapeletaPDF"
)

// RejectedError is returned when the remote service answered with a
// non-zero codigo. Mensaje carries the human-readable reason.
type RejectedError struct {
	Codigo  int
	Mensaje string
}

func (e *RejectedError) Error() string {
	if e.Mensaje != "" {
		return e.Mensaje
	}
	return fmt.Sprintf("remote rejected request (codigo %d)", e.Codigo)
}

// Observer receives remote-call timing, wired to the metrics service.
type Observer interface {
	ObserveRemoteCall(accion, outcome string, duration time.Duration)
}

// Client talks to the legacy PHP papeletas controller. Every operation is
// a POST carrying an `accion` discriminator; responses are the JSON
// envelope {codigo, mensaje, data}.
type Client struct {
	http     *http.Client
	baseURL  string
	logger   *zap.Logger
	observer Observer
}

// New builds a Client against the configured base URL.
func New(cfg config.RemoteConfig, logger *zap.Logger, observer Observer) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http:     &http.Client{Timeout: cfg.Timeout},
		baseURL:  cfg.BaseURL,
		logger:   logger,
		observer: observer,
	}
}

// envelope is the remote wire contract. codigo arrives as either a JSON
// number or a string depending on the code path server-side, so it is kept
// raw and normalised once at this boundary.
type envelope struct {
	Codigo  json.RawMessage `json:"codigo"`
	Mensaje string          `json:"mensaje"`
	Data    json.RawMessage `json:"data"`
}

func (e *envelope) codigo() (int, error) {
	raw := bytes.TrimSpace(e.Codigo)
	if len(raw) == 0 {
		return 0, fmt.Errorf("missing codigo")
	}
	raw = bytes.Trim(raw, `"`)
	code, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, fmt.Errorf("unparseable codigo %q", e.Codigo)
	}
	return code, nil
}

// flexString tolerates remote fields that arrive as either JSON strings or
// numbers (numeric ids are not quoted consistently).
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if string(trimmed) == "null" {
		*f = ""
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type papeletaWire struct {
	IDPapeleta     flexString `json:"id_papeleta"`
	NumeroPapeleta flexString `json:"numero_papeleta"`
	FechaPapeleta  string     `json:"fecha_papeleta"`
	HoraSalida     string     `json:"hora_salida"`
	HoraRetorno    string     `json:"hora_retorno"`
	LugarDestino   string     `json:"lugar_destino"`
	MotivoNombre   string     `json:"motivo_nombre"`
	Motivo         *string    `json:"motivo"`
	Estado         flexString `json:"estado"`
}

func (w papeletaWire) toModel() models.Papeleta {
	p := models.Papeleta{
		IDPapeleta:     string(w.IDPapeleta),
		NumeroPapeleta: string(w.NumeroPapeleta),
		FechaPapeleta:  w.FechaPapeleta,
		HoraSalida:     w.HoraSalida,
		HoraRetorno:    w.HoraRetorno,
		LugarDestino:   w.LugarDestino,
		MotivoNombre:   w.MotivoNombre,
		Estado:         models.NormalizeEstado(string(w.Estado)),
	}
	if w.Motivo != nil {
		p.Motivo = *w.Motivo
	}
	return p
}

type paginationWire struct {
	TotalRecords int `json:"totalRecords"`
	TotalPages   int `json:"totalPages"`
	CurrentPage  int `json:"currentPage"`
}

// Resumen is the payload of the authentication/lookup action.
type Resumen struct {
	Identity   models.Identity
	Papeletas  []models.Papeleta
	Pagination models.Pagination
}

// RegistroResult carries the server-assigned identifiers of a new papeleta.
type RegistroResult struct {
	IDPapeleta     string
	NumeroPapeleta string
	Mensaje        string
}

// ResumenInicial authenticates a document id and returns the session
// identity with the initial papeleta page. A missing contrato payload is
// treated as a rejection even when codigo is zero.
func (c *Client) ResumenInicial(ctx context.Context, nroDocumento string) (*Resumen, error) {
	form := url.Values{}
	form.Set("accion", accionResumenInicial)
	form.Set("nro_documento", nroDocumento)

	env, err := c.postForm(ctx, accionResumenInicial, form)
	if err != nil {
		return nil, err
	}

	var data struct {
		Contrato  *models.Contrato `json:"contrato"`
		Motivos   []models.Motivo  `json:"motivos"`
		Papeletas []papeletaWire   `json:"papeletas"`
		Paging    *paginationWire  `json:"pagination"`
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("decode resumen payload: %w", err)
		}
	}
	if data.Contrato == nil {
		return nil, &RejectedError{Codigo: -1, Mensaje: env.Mensaje}
	}

	res := &Resumen{
		Identity: models.Identity{
			NroDocumento: nroDocumento,
			Contrato:     *data.Contrato,
			Motivos:      data.Motivos,
		},
		Papeletas: make([]models.Papeleta, 0, len(data.Papeletas)),
	}
	for _, w := range data.Papeletas {
		res.Papeletas = append(res.Papeletas, w.toModel())
	}
	if data.Paging != nil {
		res.Pagination = models.Pagination(*data.Paging)
	}
	return res, nil
}

// Listar fetches one page of papeletas. The page number is forwarded
// unmodified; the server is authoritative for out-of-range pages.
func (c *Client) Listar(ctx context.Context, q models.ListQuery) ([]models.Papeleta, models.Pagination, error) {
	form := url.Values{}
	form.Set("accion", accionListar)
	form.Set("nro_documento", q.NroDocumento)
	form.Set("pagina", strconv.Itoa(q.Page))
	form.Set("limite", strconv.Itoa(q.PageSize))
	form.Set("filtro_estado", strconv.Itoa(q.StatusFilter))
	form.Set("busqueda", q.Search)

	env, err := c.postForm(ctx, accionListar, form)
	if err != nil {
		return nil, models.Pagination{}, err
	}

	var data struct {
		Papeletas []papeletaWire  `json:"papeletas"`
		Paging    *paginationWire `json:"pagination"`
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, models.Pagination{}, fmt.Errorf("decode listing payload: %w", err)
		}
	}

	papeletas := make([]models.Papeleta, 0, len(data.Papeletas))
	for _, w := range data.Papeletas {
		papeletas = append(papeletas, w.toModel())
	}
	var pagination models.Pagination
	if data.Paging != nil {
		pagination = models.Pagination(*data.Paging)
	}
	return papeletas, pagination, nil
}

// Registrar submits a new papeleta, multipart when an attachment rides
// along, and returns the server-assigned identifiers.
func (c *Client) Registrar(ctx context.Context, reg models.RegistroPapeleta, attachment *models.Attachment) (*RegistroResult, error) {
	fields := map[string]string{
		"accion":              accionRegistrar,
		"id_empleadocontrato": reg.IDEmpleadoContrato,
		"id_motivo":           reg.IDMotivo,
		"fecha_papeleta":      reg.FechaPapeleta,
		"hora_salida":         reg.HoraSalida,
		"hora_retorno":        reg.HoraRetorno,
		"lugar_destino":       reg.LugarDestino,
		"motivo":              reg.MotivoDetalle,
	}

	var env *envelope
	var err error
	if attachment != nil {
		env, err = c.postMultipart(ctx, accionRegistrar, fields, attachment)
	} else {
		form := url.Values{}
		for k, v := range fields {
			form.Set(k, v)
		}
		env, err = c.postForm(ctx, accionRegistrar, form)
	}
	if err != nil {
		return nil, err
	}

	result := &RegistroResult{Mensaje: env.Mensaje}
	if len(env.Data) > 0 {
		var data struct {
			IDPapeleta     flexString `json:"id_papeleta"`
			NumeroPapeleta flexString `json:"numero_papeleta"`
		}
		if err := json.Unmarshal(env.Data, &data); err == nil {
			result.IDPapeleta = string(data.IDPapeleta)
			result.NumeroPapeleta = string(data.NumeroPapeleta)
		}
	}
	if result.NumeroPapeleta == "" {
		// Compatibility shim: older controller revisions only return the
		// assigned number as the trailing segment of the success message.
		result.NumeroPapeleta = numeroFromMensaje(env.Mensaje)
	}
	return result, nil
}

// GenerarPDF asks the remote service to render a papeleta as a PDF and
// returns the raw bytes. No gateway state is touched.
func (c *Client) GenerarPDF(ctx context.Context, idPapeleta string) ([]byte, error) {
	form := url.Values{}
	form.Set("accion", accionGenerarPDF)
	form.Set("id_papeleta", idPapeleta)

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build pdf request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(accionGenerarPDF, "transport_error", start)
		return nil, fmt.Errorf("remote pdf request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		c.observe(accionGenerarPDF, "http_error", start)
		return nil, fmt.Errorf("remote pdf request: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.observe(accionGenerarPDF, "transport_error", start)
		return nil, fmt.Errorf("read pdf body: %w", err)
	}

	// The controller answers JSON (with an error envelope) when generation
	// fails, and raw PDF bytes when it succeeds.
	if looksLikeJSON(body) {
		var env envelope
		if err := json.Unmarshal(body, &env); err == nil {
			c.observe(accionGenerarPDF, "rejected", start)
			code, _ := env.codigo()
			return nil, &RejectedError{Codigo: code, Mensaje: env.Mensaje}
		}
	}

	c.observe(accionGenerarPDF, "ok", start)
	return body, nil
}

func (c *Client) postForm(ctx context.Context, accion string, form url.Values) (*envelope, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", accion, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, accion, start)
}

func (c *Client) postMultipart(ctx context.Context, accion string, fields map[string]string, attachment *models.Attachment) (*envelope, error) {
	start := time.Now()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("write multipart field %s: %w", k, err)
		}
	}
	part, err := writer.CreateFormFile("archivo", attachment.Filename)
	if err != nil {
		return nil, fmt.Errorf("create multipart file: %w", err)
	}
	if _, err := part.Write(attachment.Data); err != nil {
		return nil, fmt.Errorf("write multipart file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", accion, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return c.do(req, accion, start)
}

func (c *Client) do(req *http.Request, accion string, start time.Time) (*envelope, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(accion, "transport_error", start)
		return nil, fmt.Errorf("remote %s request: %w", accion, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		c.observe(accion, "http_error", start)
		return nil, fmt.Errorf("remote %s request: status %d", accion, resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		c.observe(accion, "decode_error", start)
		return nil, fmt.Errorf("decode %s response: %w", accion, err)
	}

	code, err := env.codigo()
	if err != nil {
		c.observe(accion, "decode_error", start)
		return nil, fmt.Errorf("%s response: %w", accion, err)
	}
	if code != 0 {
		c.observe(accion, "rejected", start)
		c.logger.Debug("remote rejected request",
			zap.String("accion", accion),
			zap.Int("codigo", code),
			zap.String("mensaje", env.Mensaje))
		return nil, &RejectedError{Codigo: code, Mensaje: env.Mensaje}
	}

	c.observe(accion, "ok", start)
	return &env, nil
}

func (c *Client) observe(accion, outcome string, start time.Time) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveRemoteCall(accion, outcome, time.Since(start))
}

func numeroFromMensaje(mensaje string) string {
	idx := strings.LastIndex(mensaje, ": ")
	if idx < 0 || idx+2 >= len(mensaje) {
		return ""
	}
	return strings.TrimSpace(mensaje[idx+2:])
}

func looksLikeJSON(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
}
