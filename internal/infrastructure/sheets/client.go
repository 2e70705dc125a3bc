package sheets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/frontandrew/parkpos/internal/domain"
)

// scriptPrefix - допустимое начало адреса веб-приложения Apps Script
const scriptPrefix = "https://script.google.com"

// maxRetries - попыток на один запрос к таблице
const maxRetries = 3

var newID = uuid.NewString

// Settings - настройки в облачной копии; пустые поля означают "не задано"
type Settings struct {
	Tariffs       domain.Tariffs        `json:"tariffs,omitempty"`
	PrintSettings *domain.PrintSettings `json:"printSettings,omitempty"`
	Currency      string                `json:"currency,omitempty"`
}

// Payload - содержимое облачной копии: строки стоянок и настройки
type Payload struct {
	Data     []*domain.ParkingRecord `json:"data"`
	Settings *Settings               `json:"settings,omitempty"`
}

// Client - интерфейс для работы с таблицей Google через Apps Script
type Client interface {
	// Fetch читает строки и настройки из таблицы
	Fetch(ctx context.Context) (*Payload, error)

	// Save перезаписывает таблицу содержимым payload
	Save(ctx context.Context, payload *Payload) error
}

// httpClient - HTTP реализация клиента таблицы
type httpClient struct {
	endpoint   string
	httpClient *http.Client
	now        func() time.Time
	backoff    time.Duration
}

// CleanURL проверяет адрес Apps Script и отбрасывает строку запроса
func CleanURL(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	if !strings.HasPrefix(clean, scriptPrefix) {
		return "", domain.ErrInvalidSheetURL
	}
	if i := strings.IndexByte(clean, '?'); i >= 0 {
		clean = clean[:i]
	}
	return clean, nil
}

// NewHTTPClient создает клиент таблицы для адреса веб-приложения Apps Script
func NewHTTPClient(scriptURL string, timeout time.Duration) (Client, error) {
	endpoint, err := CleanURL(scriptURL)
	if err != nil {
		return nil, err
	}

	return newClient(endpoint, &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        2,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}), nil
}

func newClient(endpoint string, hc *http.Client) *httpClient {
	return &httpClient{
		endpoint:   endpoint,
		httpClient: hc,
		now:        time.Now,
		backoff:    time.Second,
	}
}

// response - ответ скрипта
type response struct {
	Status   string      `json:"status"`
	Message  string      `json:"message,omitempty"`
	Data     []remoteRow `json:"data"`
	Settings *Settings   `json:"settings"`
}

// Fetch читает таблицу: GET ?action=read&t=<ms>
// Строки без id получают новый UUID, нечисловой Total становится 0.
func (c *httpClient) Fetch(ctx context.Context) (*Payload, error) {
	url := fmt.Sprintf("%s?action=read&t=%d", c.endpoint, c.now().UnixMilli())

	body, err := c.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sheet response: %w", err)
	}
	if resp.Status != "success" {
		return nil, fmt.Errorf("%w: %s", domain.ErrRemoteRejected, resp.Message)
	}

	payload := &Payload{
		Data:     make([]*domain.ParkingRecord, 0, len(resp.Data)),
		Settings: resp.Settings,
	}
	for _, row := range resp.Data {
		payload.Data = append(payload.Data, row.toRecord())
	}

	return payload, nil
}

// Save отправляет полную копию данных: POST с JSON в теле (text/plain, как ждет Apps Script)
func (c *httpClient) Save(ctx context.Context, payload *Payload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	body, err := c.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "text/plain;charset=utf-8")
		return req, nil
	})
	if err != nil {
		return err
	}

	// Старые версии скрипта отвечают HTML; отказ считаем только по явному status=error
	var resp response
	if err := json.Unmarshal(body, &resp); err == nil && resp.Status == "error" {
		return fmt.Errorf("%w: %s", domain.ErrRemoteRejected, resp.Message)
	}

	return nil
}

// do выполняет запрос с повторами; запрос собирается заново на каждую попытку
func (c *httpClient) do(ctx context.Context, build func() (*http.Request, error)) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * c.backoff
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := build()
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		var body []byte
		body, lastErr = c.doRequest(req)
		if lastErr == nil {
			return body, nil
		}

		if !isRetryable(lastErr) {
			return nil, lastErr
		}
	}

	return nil, fmt.Errorf("sheet request failed after %d attempts: %w", maxRetries, lastErr)
}

// statusError - неуспешный HTTP статус от скрипта
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("sheet returned status %d: %s", e.code, e.body)
}

func (c *httpClient) doRequest(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode, body: truncate(string(body), 200)}
	}

	return body, nil
}

// isRetryable - повторяем сетевые ошибки и 5xx/429, остальное окончательно
func isRetryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500 || se.code == http.StatusTooManyRequests
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr) || strings.Contains(err.Error(), "failed to send request")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// remoteRow - строка таблицы; значения ячеек бывают числами, строками или пустыми
type remoteRow struct {
	ID          cell `json:"id"`
	Plate       cell `json:"Placa"`
	Vehicle     cell `json:"Vehiculo"`
	VehicleType cell `json:"Tipo"`
	EntryAt     cell `json:"Entrada"`
	ExitAt      cell `json:"Salida"`
	Status      cell `json:"Estado"`
	Total       cell `json:"Total"`
}

func (r remoteRow) toRecord() *domain.ParkingRecord {
	id := r.ID.String()
	if id == "" {
		id = newID()
	}

	exit := r.ExitAt.String()
	if exit == "" {
		exit = domain.NoExit
	}

	return &domain.ParkingRecord{
		ID:          id,
		Plate:       domain.NormalizePlate(r.Plate.String()),
		Vehicle:     r.Vehicle.String(),
		VehicleType: r.VehicleType.String(),
		EntryAt:     r.EntryAt.String(),
		ExitAt:      exit,
		Status:      domain.RecordStatus(r.Status.String()),
		Total:       r.Total.Number(),
	}
}

// cell - значение ячейки таблицы в исходном JSON виде
type cell struct {
	raw json.RawMessage
}

func (c *cell) UnmarshalJSON(data []byte) error {
	c.raw = append(c.raw[:0], data...)
	return nil
}

// String возвращает ячейку как строку (числа - в десятичной записи)
func (c cell) String() string {
	if len(c.raw) == 0 || string(c.raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(c.raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(string(c.raw))
}

// Number возвращает ячейку как число; нечисловое значение - 0
func (c cell) Number() float64 {
	s := c.String()
	if s == "" {
		return 0
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return n
}
