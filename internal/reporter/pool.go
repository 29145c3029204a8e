package reporter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aircrouching/delator/internal/models"
	"github.com/aircrouching/delator/pkg/logger"
)

const (
	// DefaultAttemptTimeout bounds one account's report attempt so a stuck
	// account cannot stall the whole dispatch barrier.
	DefaultAttemptTimeout = 30 * time.Second
)

// Pool owns the live reporting accounts and fans report actions out across
// all of them. One dispatch is a single best-effort sweep: per-account
// failures are collected, never retried, and never abort the siblings.
type Pool struct {
	logger *logger.Logger

	dialer         Dialer
	sessionsDir    string
	attemptTimeout time.Duration

	mu          sync.Mutex
	clients     []Client
	initialized bool
}

func NewPool(dialer Dialer, sessionsDir string, attemptTimeout time.Duration, logger *logger.Logger) *Pool {
	if attemptTimeout <= 0 {
		attemptTimeout = DefaultAttemptTimeout
	}
	return &Pool{
		logger:         logger,
		dialer:         dialer,
		sessionsDir:    sessionsDir,
		attemptTimeout: attemptTimeout,
	}
}

// Init scans the sessions directory and authorizes every credential bundle.
// Bundles that fail to dial or authorize are logged and skipped; they never
// abort initialization of the remaining bundles. Idempotent: a second call
// is a no-op. An empty or missing directory leaves the pool empty but valid.
func (p *Pool) Init(ctx context.Context) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return len(p.clients), nil
	}

	entries, err := os.ReadDir(p.sessionsDir)
	if err != nil {
		if os.IsNotExist(err) {
			p.logger.Warn("Sessions directory not found ", "dir ", p.sessionsDir)
			p.initialized = true
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".session") {
			continue
		}
		path := filepath.Join(p.sessionsDir, entry.Name())

		client, err := p.dialer.Dial(ctx, path)
		if err != nil {
			p.logger.Error("Failed to initialize session ", "session ", entry.Name(), " error ", err)
			continue
		}
		authorized, err := client.Authorized(ctx)
		if err != nil || !authorized {
			p.logger.Warn("Session not authorized ", "session ", entry.Name(), " error ", err)
			_ = client.Close()
			continue
		}

		p.clients = append(p.clients, client)
		p.logger.Info("Successfully initialized session ", "session ", entry.Name())
	}

	p.initialized = true
	p.logger.Infof("Initialized %d reporting accounts", len(p.clients))
	return len(p.clients), nil
}

// Size returns the number of live accounts.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clients)
}

// Dispatch parses the link and sends one report per live account,
// concurrently. It blocks until every attempt has completed and aggregates
// the outcome: Total attempts, Success count and per-account error strings
// in completion order.
func (p *Pool) Dispatch(ctx context.Context, rawLink string, reason models.ReportReason) *models.AggregateResult {
	if _, err := p.Init(ctx); err != nil {
		p.logger.Error("Failed to initialize account pool ", "error ", err)
	}

	p.mu.Lock()
	clients := make([]Client, len(p.clients))
	copy(clients, p.clients)
	p.mu.Unlock()

	if len(clients) == 0 {
		return &models.AggregateResult{Errors: []string{"no active accounts"}}
	}

	target, err := ParseMessageLink(rawLink)
	if err != nil {
		p.logger.Debug("Rejected message link ", "link ", rawLink, " error ", err)
		return &models.AggregateResult{Errors: []string{"invalid link"}}
	}

	results := make(chan string, len(clients))
	for _, client := range clients {
		go func(c Client) {
			results <- p.attempt(ctx, c, target, reason)
		}(client)
	}

	aggregate := &models.AggregateResult{Total: len(clients)}
	for range clients {
		if msg := <-results; msg == "" {
			aggregate.Success++
		} else {
			aggregate.Errors = append(aggregate.Errors, msg)
		}
	}
	return aggregate
}

// attempt runs one account's resolve+report cycle and returns an empty
// string on success or the error string otherwise. Panics are recovered and
// folded into the error string so one account can never take down a sweep.
func (p *Pool) attempt(ctx context.Context, client Client, target models.ReportTarget, reason models.ReportReason) (out string) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Report attempt panicked ", "account ", client.Name(), " panic ", r)
			out = fmt.Sprintf("%s: panic: %v", client.Name(), r)
		}
	}()

	attemptCtx, cancel := context.WithTimeout(ctx, p.attemptTimeout)
	defer cancel()

	peer, err := client.Resolve(attemptCtx, target)
	if err != nil {
		p.logger.Debug("Failed to resolve target ", "account ", client.Name(), " error ", err)
		return fmt.Sprintf("%s: %v", client.Name(), err)
	}

	if err := client.Report(attemptCtx, peer, target.MessageID, reason); err != nil {
		p.logger.Debug("Failed to send report ", "account ", client.Name(), " error ", err)
		return fmt.Sprintf("%s: %v", client.Name(), err)
	}
	return ""
}

// Close disconnects every account and empties the pool.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, client := range p.clients {
		if err := client.Close(); err != nil {
			p.logger.Error("Error disconnecting account ", "account ", client.Name(), " error ", err)
		}
	}
	p.clients = nil
	p.initialized = false
}
