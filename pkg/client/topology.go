// pkg/client/topology.go
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/paulmach/orb"
)

// Street улица в запросе плана
type Street struct {
	ID       string      `json:"id"`
	Name     string      `json:"name,omitempty"`
	Category string      `json:"category,omitempty"`
	Points   []orb.Point `json:"points"`
}

// Asset точечный объект: источник или потребитель
type Asset struct {
	ID       string    `json:"id"`
	Name     string    `json:"name,omitempty"`
	Kind     string    `json:"kind"`
	Point    orb.Point `json:"point"`
	DemandKW float64   `json:"demand_kw,omitempty"`
}

// PlanOptions параметры построения. Отсутствующие поля сервер заполняет
// значениями из своей конфигурации, поэтому числовые поля - указатели:
// явный ноль и пропуск различаются.
type PlanOptions struct {
	QuantizeTolerance  *float64 `json:"quantize_tolerance,omitempty"`
	MaxBridgeDistance  *float64 `json:"max_bridge_distance,omitempty"`
	MaxSnapDistance    *float64 `json:"max_snap_distance,omitempty"`
	SupplyTemperatureC *float64 `json:"supply_temperature_c,omitempty"`
	ReturnTemperatureC *float64 `json:"return_temperature_c,omitempty"`
	DemandAttachment   string   `json:"demand_attachment,omitempty"`
	MaxRouteWorkers    int      `json:"max_route_workers,omitempty"`
}

// PlanRequest запрос на построение плана сети
type PlanRequest struct {
	Name    string       `json:"name,omitempty"`
	Streets []Street     `json:"streets"`
	Assets  []Asset      `json:"assets"`
	Options *PlanOptions `json:"options,omitempty"`
}

// ServiceConnection точка подключения объекта к уличному графу
type ServiceConnection struct {
	AssetID   string    `json:"asset_id"`
	NodeID    int64     `json:"node_id"`
	Point     orb.Point `json:"point"`
	Distance  float64   `json:"distance"`
	SegmentID string    `json:"segment_id,omitempty"`
	DemandKW  float64   `json:"demand_kw,omitempty"`
}

// RoutedPath путь от источника до объекта
type RoutedPath struct {
	AssetID string  `json:"asset_id"`
	Nodes   []int64 `json:"nodes"`
	Length  float64 `json:"length"`
}

// PipeSegment сегмент трубопровода одного контура
type PipeSegment struct {
	Circuit      string    `json:"circuit"`
	FromID       int64     `json:"from_id"`
	ToID         int64     `json:"to_id"`
	From         orb.Point `json:"from"`
	To           orb.Point `json:"to"`
	Length       float64   `json:"length"`
	SegmentID    string    `json:"segment_id,omitempty"`
	Kind         string    `json:"kind"`
	TemperatureC float64   `json:"temperature_c"`
	ServedAssets []string  `json:"served_assets"`
	DemandKW     float64   `json:"demand_kw"`
}

// Diagnostic нефатальный отказ обработки одного объекта
type Diagnostic struct {
	AssetID  string  `json:"asset_id"`
	Code     string  `json:"code"`
	Message  string  `json:"message"`
	Distance float64 `json:"distance,omitempty"`
}

// NetworkStats сводная статистика плана
type NetworkStats struct {
	NodeCount            int64   `json:"node_count"`
	EdgeCount            int64   `json:"edge_count"`
	ComponentCount       int64   `json:"component_count"`
	BridgeCount          int64   `json:"bridge_count"`
	AssetsTotal          int64   `json:"assets_total"`
	AssetsServed         int64   `json:"assets_served"`
	AssetsFailed         int64   `json:"assets_failed"`
	Coverage             float64 `json:"coverage"`
	SupplyLength         float64 `json:"supply_length"`
	ReturnLength         float64 `json:"return_length"`
	TrenchLength         float64 `json:"trench_length"`
	ServiceLength        float64 `json:"service_length"`
	TotalDemandKW        float64 `json:"total_demand_kw"`
	ServedDemandKW       float64 `json:"served_demand_kw"`
	PipeSegmentCount     int64   `json:"pipe_segment_count"`
	AverageSegmentLength float64 `json:"average_segment_length"`
	MaxPathLength        float64 `json:"max_path_length"`
	AveragePathLength    float64 `json:"average_path_length"`

	ConnectionCount         int64   `json:"connection_count"`
	AverageConnectionLength float64 `json:"average_connection_length"`
	MaxConnectionLength     float64 `json:"max_connection_length"`

	FailuresByCode map[string]int64 `json:"failures_by_code,omitempty"`
}

// PlanResult полный результат построения плана
type PlanResult struct {
	ID          string               `json:"id"`
	Name        string               `json:"name,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	DurationMs  int64                `json:"duration_ms"`
	Cached      bool                 `json:"cached,omitempty"`
	Source      *ServiceConnection   `json:"source"`
	Connections []*ServiceConnection `json:"connections"`
	Paths       []*RoutedPath        `json:"paths"`
	Pipes       []*PipeSegment       `json:"pipes"`
	Stats       *NetworkStats        `json:"stats"`
	Diagnostics []*Diagnostic        `json:"diagnostics,omitempty"`
}

// PlanSummary краткая запись плана в списке
type PlanSummary struct {
	ID            string    `json:"id"`
	Name          string    `json:"name,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	CreatedBy     string    `json:"created_by,omitempty"`
	DurationMs    int64     `json:"duration_ms"`
	AssetsTotal   int64     `json:"assets_total"`
	AssetsServed  int64     `json:"assets_served"`
	TrenchLength  float64   `json:"trench_length"`
	TotalDemandKW float64   `json:"total_demand_kw"`
}

// PlanList страница сохранённых планов
type PlanList struct {
	Plans  []*PlanSummary `json:"plans"`
	Total  int64          `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// ValidationReport отчёт проверки входных данных без построения
type ValidationReport struct {
	Valid    bool               `json:"valid"`
	Errors   []*ValidationIssue `json:"errors,omitempty"`
	Warnings []*ValidationIssue `json:"warnings,omitempty"`
}

// ValidationIssue одна проблема входных данных
type ValidationIssue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// TokenResponse выпущенный токен доступа
type TokenResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int64  `json:"expires_in"`
}

// InfoResponse информация о сервисе
type InfoResponse struct {
	Service     string `json:"service"`
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

// APIError ошибка, возвращённая сервером
type APIError struct {
	Status  int
	Code    string
	Message string
}

// Error возвращает строковое представление ошибки
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d [%s]: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// IsNotFound проверяет, является ли ошибка ответом 404
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// TopologyClient клиент для topology-svc
type TopologyClient struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

// TopologyClientConfig конфигурация клиента
type TopologyClientConfig struct {
	BaseURL      string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	Token        string
}

// DefaultTopologyClientConfig возвращает конфигурацию по умолчанию
func DefaultTopologyClientConfig() *TopologyClientConfig {
	return &TopologyClientConfig{
		BaseURL:      "http://localhost:8080",
		Timeout:      30 * time.Second,
		MaxRetries:   3,
		RetryBackoff: 100 * time.Millisecond,
	}
}

// NewTopologyClient создаёт нового клиента
func NewTopologyClient(cfg *TopologyClientConfig) *TopologyClient {
	if cfg == nil {
		cfg = DefaultTopologyClientConfig()
	}

	return &TopologyClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: NewHTTPClient(ClientConfig{
			Timeout:      cfg.Timeout,
			MaxRetries:   cfg.MaxRetries,
			RetryBackoff: cfg.RetryBackoff,
		}),
		token: cfg.Token,
	}
}

// SetToken устанавливает токен для последующих запросов
func (c *TopologyClient) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *TopologyClient) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Close освобождает соединения клиента
func (c *TopologyClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// IssueToken выпускает токен доступа и запоминает его для следующих запросов
func (c *TopologyClient) IssueToken(ctx context.Context, clientID, name, role string) (*TokenResponse, error) {
	req := map[string]string{"client_id": clientID, "name": name, "role": role}

	var out TokenResponse
	if err := c.do(ctx, http.MethodPost, "/v1/tokens", req, &out); err != nil {
		return nil, err
	}

	c.SetToken(out.Token)
	return &out, nil
}

// ExchangeAPIKey обменивает API-ключ клиента на токен доступа и
// запоминает его для следующих запросов
func (c *TopologyClient) ExchangeAPIKey(ctx context.Context, clientID, apiKey, role string) (*TokenResponse, error) {
	req := map[string]string{"client_id": clientID, "api_key": apiKey, "role": role}

	var out TokenResponse
	if err := c.do(ctx, http.MethodPost, "/v1/tokens", req, &out); err != nil {
		return nil, err
	}

	c.SetToken(out.Token)
	return &out, nil
}

// CreatePlan строит план сети
func (c *TopologyClient) CreatePlan(ctx context.Context, req *PlanRequest) (*PlanResult, error) {
	var out PlanResult
	if err := c.do(ctx, http.MethodPost, "/v1/plans", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ValidatePlan проверяет входные данные без построения сети
func (c *TopologyClient) ValidatePlan(ctx context.Context, req *PlanRequest) (*ValidationReport, error) {
	var out ValidationReport
	if err := c.do(ctx, http.MethodPost, "/v1/plans/validate", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPlan возвращает сохранённый план
func (c *TopologyClient) GetPlan(ctx context.Context, id string) (*PlanResult, error) {
	var out PlanResult
	if err := c.do(ctx, http.MethodGet, "/v1/plans/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListPlans возвращает страницу сохранённых планов
func (c *TopologyClient) ListPlans(ctx context.Context, limit, offset int) (*PlanList, error) {
	path := fmt.Sprintf("/v1/plans?limit=%d&offset=%d", limit, offset)

	var out PlanList
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeletePlan удаляет сохранённый план
func (c *TopologyClient) DeletePlan(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/plans/"+url.PathEscape(id), nil, nil)
}

// ExportGeoJSON возвращает план как GeoJSON FeatureCollection.
// circuit ограничивает экспорт одним контуром ("supply" или "return"),
// пустое значение выгружает оба.
func (c *TopologyClient) ExportGeoJSON(ctx context.Context, id, circuit string) ([]byte, error) {
	path := "/v1/plans/" + url.PathEscape(id) + "/export/geojson"
	if circuit != "" {
		path += "?circuit=" + url.QueryEscape(circuit)
	}

	var raw []byte
	if err := c.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// Info возвращает информацию о сервисе
func (c *TopologyClient) Info(ctx context.Context) (*InfoResponse, error) {
	var out InfoResponse
	if err := c.do(ctx, http.MethodGet, "/v1/info", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health проверяет liveness сервиса
func (c *TopologyClient) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

func (c *TopologyClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.currentToken(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= http.StatusBadRequest {
		return parseAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if raw, ok := out.(*[]byte); ok {
		data, rerr := io.ReadAll(resp.Body)
		if rerr != nil {
			return rerr
		}
		*raw = data
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// parseAPIError разбирает конверт ошибки; не-JSON тело попадает в Message
func parseAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Error.Code != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(data))
	}

	return apiErr
}
