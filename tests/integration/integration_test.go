//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go/modules/compose"
	"github.com/testcontainers/testcontainers-go/wait"
)

// seededProducts is the size of db/seed/products.json.
const seededProducts = 6

var (
	baseURL    string
	httpClient = &http.Client{Timeout: 10 * time.Second}
)

// Wire shapes of the register API. The tests only see what a client sees.

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

type productResponse struct {
	Barcode   string `json:"barcode"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unitPrice"`
	Display   string `json:"display"`
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type lineItem struct {
	Barcode   string `json:"barcode"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
	Subtotal  int64  `json:"subtotal"`
}

type cartResponse struct {
	SessionID string     `json:"sessionId"`
	Items     []lineItem `json:"items"`
	Total     int64      `json:"total"`
	Units     int        `json:"units"`
	Display   struct {
		Total string `json:"total"`
	} `json:"display"`
}

type receiptResponse struct {
	ID        string     `json:"id"`
	Items     []lineItem `json:"items"`
	Total     int64      `json:"total"`
	Units     int        `json:"units"`
	Timestamp time.Time  `json:"timestamp"`
}

// stack is the compose project under test: postgres, the one-shot
// seed-catalog job and the register API.
type stack struct {
	compose *tc.DockerCompose
	api     interface {
		Stop(ctx context.Context, timeout *time.Duration) error
	}
}

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	s, err := startStack(ctx)
	if err != nil {
		cancel()
		log.Fatalf("start stack: %v", err)
	}

	code := m.Run()
	s.stop(ctx)
	cancel()
	os.Exit(code)
}

// startStack brings the register up and returns once the seeded catalog is
// being served. The api service only starts after the seed job has exited.
func startStack(ctx context.Context) (*stack, error) {
	// GOCOVERDIR of the api container is bind-mounted here.
	if err := os.MkdirAll("coverdir", 0o777); err != nil {
		return nil, errors.Wrap(err, "coverdir")
	}

	dc, err := tc.NewDockerCompose("docker-compose.test.yml")
	if err != nil {
		return nil, errors.Wrap(err, "load compose file")
	}
	if err := dc.
		WaitForService("api", wait.ForHTTP("/readyz").WithPort("8080/tcp")).
		Up(ctx, tc.Wait(true)); err != nil {
		return nil, errors.Wrap(err, "compose up")
	}

	api, err := dc.ServiceContainer(ctx, "api")
	if err != nil {
		return nil, errors.Wrap(err, "find api")
	}
	endpoint, err := api.PortEndpoint(ctx, "8080/tcp", "http")
	if err != nil {
		return nil, errors.Wrap(err, "api endpoint")
	}
	baseURL = endpoint
	log.Printf("Register API at %s", baseURL)

	if err := awaitCatalog(ctx); err != nil {
		return nil, err
	}
	return &stack{compose: dc, api: api}, nil
}

// stop sends the api SIGINT first so the instrumented binary writes its
// coverage profile, then removes the project.
func (s *stack) stop(ctx context.Context) {
	grace := 30 * time.Second
	if err := s.api.Stop(ctx, &grace); err != nil {
		log.Printf("Stop api: %v", err)
	}
	if err := s.compose.Down(context.WithoutCancel(ctx), tc.RemoveOrphans(true)); err != nil {
		log.Printf("Compose down: %v", err)
	}
}

// awaitCatalog polls /api/products until every seeded product is listed.
func awaitCatalog(ctx context.Context) error {
	tick := time.NewTicker(500 * time.Millisecond)
	defer tick.Stop()

	last := errors.New("no attempt yet")
	for {
		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "catalog not served (last: %v)", last)
		case <-tick.C:
		}

		var products []productResponse
		if last = getJSON(ctx, "/api/products", &products); last != nil {
			continue
		}
		if len(products) == seededProducts {
			log.Printf("Catalog ready with %d products", len(products))
			return nil
		}
		last = errors.Errorf("%d of %d products", len(products), seededProducts)
	}
}

func getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// doRequest sends body as JSON when it is not nil. The caller closes the
// response body.
func doRequest(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(t.Context(), method, baseURL+path, rd)
	require.NoError(t, err)
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := httpClient.Do(req)
	require.NoError(t, err, "%s %s", method, path)
	return resp
}

func doGet(t *testing.T, path string) *http.Response {
	t.Helper()
	return doRequest(t, http.MethodGet, path, nil)
}

func doPost(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	return doRequest(t, http.MethodPost, path, body)
}

// decodeJSON reads the whole body into T.
func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}
