package e2e

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcneo4j "github.com/testcontainers/testcontainers-go/modules/neo4j"
	tcpg "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"go.uber.org/zap"

	"github.com/civitas-labs/agora/internal/agent"
	"github.com/civitas-labs/agora/internal/gateway"
	"github.com/civitas-labs/agora/internal/knowledge"
	"github.com/civitas-labs/agora/internal/provider"
	pgstore "github.com/civitas-labs/agora/internal/store"
	"github.com/civitas-labs/agora/internal/system"
)

// Suppress unused import warning for testcontainers base package.
var _ = testcontainers.GenericContainerRequest{}

// Package-level shared state — set by TestMain, used by all subtests.
var (
	testLogger    *zap.Logger
	testPGStore   *pgstore.Store
	testGraph     *knowledge.Graph
	testRedisURL  string
	testLLMConfig *llmTestConfig
)

type llmTestConfig struct {
	Endpoint string
	APIKey   string
	Model    string
}

// startNeo4j starts a Neo4j testcontainer, returns URI + cleanup func.
func startNeo4j(ctx context.Context) (string, func(), error) {
	container, err := tcneo4j.Run(ctx, "neo4j:5-community",
		tcneo4j.WithoutAuthentication(),
	)
	if err != nil {
		return "", nil, fmt.Errorf("start neo4j: %w", err)
	}
	uri, err := container.BoltUrl(ctx)
	if err != nil {
		container.Terminate(ctx)
		return "", nil, fmt.Errorf("neo4j bolt url: %w", err)
	}
	cleanup := func() { container.Terminate(ctx) }
	return uri, cleanup, nil
}

// startPostgres starts a PostgreSQL testcontainer, returns DSN + cleanup func.
func startPostgres(ctx context.Context) (string, func(), error) {
	container, err := tcpg.Run(ctx, "postgres:16-alpine",
		tcpg.WithDatabase("agora_test"),
		tcpg.WithUsername("test"),
		tcpg.WithPassword("test"),
		tcpg.BasicWaitStrategies(),
	)
	if err != nil {
		return "", nil, fmt.Errorf("start postgres: %w", err)
	}
	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return "", nil, fmt.Errorf("pg connection string: %w", err)
	}
	cleanup := func() { container.Terminate(ctx) }
	return dsn, cleanup, nil
}

// startRedis starts a Redis testcontainer, returns URL + cleanup func.
func startRedis(ctx context.Context) (string, func(), error) {
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		return "", nil, fmt.Errorf("start redis: %w", err)
	}
	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		container.Terminate(ctx)
		return "", nil, fmt.Errorf("redis endpoint: %w", err)
	}
	url := "redis://" + endpoint
	cleanup := func() { container.Terminate(ctx) }
	return url, cleanup, nil
}

// skipIfNoLLM skips the test if LLM env vars are not configured.
func skipIfNoLLM(t *testing.T) {
	t.Helper()
	if testLLMConfig == nil {
		t.Skip("LLM provider not configured (set AGORA_TEST_PROVIDER_ENDPOINT, AGORA_TEST_PROVIDER_API_KEY, AGORA_TEST_PROVIDER_MODEL)")
	}
}

// documentFixture builds a finished document artifact for persistence tests.
func documentFixture(title string, tags []string) *agent.Artifact {
	return &agent.Artifact{
		Kind:      agent.ArtifactDocument,
		Title:     title,
		CreatedAt: time.Now(),
		Document: &agent.DocumentContent{
			Content: "## Einleitung\nInhalt zum Thema " + title + ".",
			Metadata: agent.DocumentMeta{
				Author:         "ContentGeneratorAgent",
				CreatedAt:      time.Now(),
				Tags:           tags,
				TargetAudience: "Allgemeine Öffentlichkeit",
				Language:       "de",
			},
		},
	}
}

// setupSystem builds a full multi-agent system backed by the shared
// containers. Without an LLM config the system still initializes; only
// the generation flows need the provider.
func setupSystem(t *testing.T) *system.System {
	t.Helper()

	provRouter := provider.NewRouter(testLogger)
	credential := "e2e-placeholder"
	if testLLMConfig != nil {
		p := provider.NewOpenAIProvider(provider.Config{
			ID:       "test-llm",
			Type:     "openai",
			Name:     "Test LLM",
			Endpoint: testLLMConfig.Endpoint,
			APIKey:   testLLMConfig.APIKey,
			Models:   []string{testLLMConfig.Model},
		}, testLogger)
		provRouter.Register(p)
		credential = testLLMConfig.APIKey
	} else {
		provRouter.Register(&offlineProvider{})
	}

	sys := system.New(provRouter, system.Options{
		Store:     testPGStore,
		Knowledge: testGraph,
	}, testLogger)
	if err := sys.Initialize(credential, "de"); err != nil {
		t.Fatalf("initialize system: %v", err)
	}
	return sys
}

// offlineProvider stands in when no real LLM is configured so the
// system can initialize; every chat call fails loudly.
type offlineProvider struct{}

func (p *offlineProvider) ID() string   { return "offline" }
func (p *offlineProvider) Name() string { return "Offline" }

func (p *offlineProvider) ListModels(ctx context.Context) ([]provider.Model, error) {
	return nil, nil
}

func (p *offlineProvider) HealthCheck(ctx context.Context) error { return nil }

func (p *offlineProvider) Chat(ctx context.Context, req *provider.ChatRequest) (*provider.ChatResponse, error) {
	return nil, fmt.Errorf("no LLM configured for this test run")
}

// CaptureAdapter is a test gateway adapter that records all outbound messages.
type CaptureAdapter struct {
	sent    []*gateway.OutboundMessage
	handler gateway.MessageHandler
	mu      sync.Mutex
}

func (c *CaptureAdapter) Platform() string                   { return "test" }
func (c *CaptureAdapter) Connect(ctx context.Context) error  { return nil }
func (c *CaptureAdapter) OnMessage(h gateway.MessageHandler) { c.handler = h }
func (c *CaptureAdapter) Close() error                       { return nil }

func (c *CaptureAdapter) Send(ctx context.Context, msg *gateway.OutboundMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return nil
}

// Inject simulates an inbound message from a user.
func (c *CaptureAdapter) Inject(msg *gateway.InboundMessage) {
	msg.Platform = "test"
	if c.handler != nil {
		c.handler(msg)
	}
}

// Sent returns a copy of all captured outbound messages.
func (c *CaptureAdapter) Sent() []*gateway.OutboundMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make([]*gateway.OutboundMessage, len(c.sent))
	copy(cp, c.sent)
	return cp
}

// Reset clears captured messages.
func (c *CaptureAdapter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = nil
}

// waitForMessages polls the capture adapter until at least n messages
// arrived or the deadline passes.
func waitForMessages(c *CaptureAdapter, n int, deadline time.Duration) []*gateway.OutboundMessage {
	end := time.Now().Add(deadline)
	for time.Now().Before(end) {
		if sent := c.Sent(); len(sent) >= n {
			return sent
		}
		time.Sleep(100 * time.Millisecond)
	}
	return c.Sent()
}

// setupGateway wires a capture adapter through the bridge into the system.
func setupGateway(t *testing.T, sys *system.System) *CaptureAdapter {
	t.Helper()

	gw := gateway.NewGateway(testLogger)
	gateway.NewBridge(gw, sys, "de", testLogger)

	capture := &CaptureAdapter{}
	gw.Register(capture)
	t.Cleanup(func() { gw.Close() })

	return capture
}
