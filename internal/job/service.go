// internal/job/service.go
package job

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"consignment-api/internal/metrics"
	"consignment-api/internal/model"
	"consignment-api/internal/provider"
)

// maxConsultasHoraPorToken is the provider's hard hourly ceiling per token.
// The configured cap can lower it, never raise it.
const maxConsultasHoraPorToken = 250

const (
	routeConsult   = "/private-consignment/consult"
	routeAuthorize = "/private-consignment/consult/{id}/authorize"
)

// Store is the relational side the job reads from and writes to.
type Store interface {
	EnsureColumns(ctx context.Context) error
	GetLatestTokensByEmpresa(ctx context.Context) ([]model.Token, error)
	GetPendingClientsBatch(ctx context.Context, limit int) ([]model.Client, error)
	UpdateClientByCPF(ctx context.Context, payload model.ClientUpdate) (int64, error)
}

// Provider drives the three downstream calls of the pipeline.
type Provider interface {
	CreateConsult(ctx context.Context, accessToken string, client model.Client) (*provider.ConsultResponse, error)
	AuthorizeConsult(ctx context.Context, accessToken, consultID string) (*provider.ConsultResponse, error)
	GetConsultResult(ctx context.Context, accessToken, cpf string) (*provider.ResultResponse, error)
}

// Tracker receives cycle lifecycle and error events.
type Tracker interface {
	StartCycle(source string)
	CompleteCycle()
	IncrementWindow()
	RecordAPIError(route string, status int, message string)
	RecordDBError(route string, status int, message string)
}

// EventPublisher receives the summary of every finished cycle.
type EventPublisher interface {
	PublishCycleSummary(summary any) error
}

// Config are the job tunables.
type Config struct {
	WaitBetweenAPIs    time.Duration
	WaitBetweenClients time.Duration
	MaxClientsPerToken int
}

// Service orchestrates consignment cycles: one run at a time, one worker
// per active token, sequential clients inside each worker.
type Service struct {
	store   Store
	client  Provider
	tracker Tracker
	events  EventPublisher
	log     *zap.Logger
	cfg     Config

	running atomic.Bool
	gate    *rateGate
	sleep   func(time.Duration)

	mu           sync.RWMutex
	lastSnapshot *Snapshot
}

func NewService(store Store, client Provider, tracker Tracker, events EventPublisher, cfg Config, log *zap.Logger) *Service {
	return &Service{
		store:   store,
		client:  client,
		tracker: tracker,
		events:  events,
		log:     log,
		cfg:     cfg,
		gate:    newRateGate(),
		sleep:   time.Sleep,
	}
}

// StatusSnapshot returns the last completed run, or an empty snapshot
// before the first cycle. Never blocks a running cycle.
func (s *Service) StatusSnapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastSnapshot == nil {
		return &Snapshot{}
	}
	return s.lastSnapshot
}

func (s *Service) setSnapshot(summary *CycleSummary) {
	snap := buildSnapshot(summary, time.Now())
	s.mu.Lock()
	s.lastSnapshot = snap
	s.mu.Unlock()
}

// Run executes one full cycle. A second call while one is in flight
// returns immediately with an already-running summary and touches nothing.
func (s *Service) Run(ctx context.Context, source string) *CycleSummary {
	if !s.running.CompareAndSwap(false, true) {
		return &CycleSummary{
			OK:      false,
			Reason:  "already_running",
			Message: "Ja existe uma execucao em andamento.",
		}
	}
	defer s.running.Store(false)

	startedAt := time.Now()
	summary := &CycleSummary{
		ID:               uuid.NewString(),
		OK:               true,
		Source:           source,
		StartedAt:        startedAt.UTC().Format(time.RFC3339),
		TokensExecutados: []*TokenSummary{},
	}

	s.tracker.StartCycle(source)
	defer s.tracker.CompleteCycle()
	metrics.CyclesStarted.WithLabelValues(source).Inc()
	metrics.CycleRunning.Set(1)
	defer metrics.CycleRunning.Set(0)

	s.log.Info("cycle starting", zap.String("source", source), zap.String("cycle_id", summary.ID))

	if err := s.store.EnsureColumns(ctx); err != nil {
		return s.failCycle(summary, startedAt, "sql:ensure_columns", err)
	}

	tokens, err := s.store.GetLatestTokensByEmpresa(ctx)
	if err != nil {
		return s.failCycle(summary, startedAt, "sql:get_latest_tokens", err)
	}

	if len(tokens) == 0 {
		summary.OK = false
		summary.Message = "Nenhum token encontrado na tabela tokens_v8."
		summary.finish(startedAt, time.Now())
		s.setSnapshot(summary)
		s.publish(summary)
		s.log.Warn("cycle ended without tokens")
		return summary
	}

	summary.TotalTokensDisponiveis = len(tokens)
	s.log.Info("tokens found", zap.Int("count", len(tokens)))

	maxPerToken := s.maxPerToken()
	limit := len(tokens) * maxPerToken

	clients, err := s.store.GetPendingClientsBatch(ctx, limit)
	if err != nil {
		return s.failCycle(summary, startedAt, "sql:get_pending_clients_batch", err)
	}

	s.log.Info("clients selected",
		zap.Int("clients", len(clients)),
		zap.Int("tokens", len(tokens)),
		zap.Int("max_per_token", maxPerToken))

	batches := splitAcrossTokens(clients, len(tokens), maxPerToken)

	tokenSummaries := make([]*TokenSummary, len(tokens))
	var wg sync.WaitGroup
	for i, token := range tokens {
		wg.Add(1)
		go func(idx int, token model.Token) {
			defer wg.Done()
			tokenSummaries[idx] = s.processTokenBatch(ctx, token, idx, len(tokens), batches[idx])
		}(i, token)
	}
	wg.Wait()

	var failed []string
	for _, ts := range tokenSummaries {
		summary.TotalTokensProcessados++
		summary.TokensExecutados = append(summary.TokensExecutados, ts)
		summary.merge(ts)
		if !ts.OK {
			failed = append(failed, strconv.Itoa(ts.TokenPosicao))
		}
	}
	if len(failed) > 0 {
		summary.OK = false
		summary.Message = fmt.Sprintf("Falha em %d token(s): %s", len(failed), strings.Join(failed, ", "))
	}

	summary.finish(startedAt, time.Now())
	s.log.Info("cycle finished",
		zap.Bool("ok", summary.OK),
		zap.Int("tokens_processed", summary.TotalTokensProcessados),
		zap.Int("tokens_available", summary.TotalTokensDisponiveis),
		zap.Int("clients_processed", summary.TotalProcessados),
		zap.Int("clients_selected", summary.TotalClientesSelecionados),
		zap.Int("status_200", summary.TotalConsultasCriadas),
		zap.Int("status_400", summary.TotalConsultasAtivas400),
		zap.Int("errors", summary.errorCount()),
		zap.String("duration", formatDurationHHMMSS(time.Duration(summary.DurationMs)*time.Millisecond)))

	s.setSnapshot(summary)
	s.publish(summary)
	return summary
}

// failCycle records a fatal store error, finalizes and snapshots the
// summary, and returns it.
func (s *Service) failCycle(summary *CycleSummary, startedAt time.Time, route string, err error) *CycleSummary {
	summary.OK = false
	summary.Message = err.Error()
	summary.TotalErrosDB++
	s.tracker.RecordDBError(route, 500, err.Error())
	s.log.Error("cycle failed", zap.String("route", route), zap.Error(err))
	summary.finish(startedAt, time.Now())
	s.setSnapshot(summary)
	s.publish(summary)
	return summary
}

func (s *Service) publish(summary *CycleSummary) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishCycleSummary(summary); err != nil {
		s.log.Warn("failed to publish cycle summary", zap.Error(err))
	}
}

func (s *Service) maxPerToken() int {
	configured := s.cfg.MaxClientsPerToken
	if configured <= 0 {
		configured = maxConsultasHoraPorToken
	}
	return min(maxConsultasHoraPorToken, max(1, configured))
}

// processTokenBatch runs one token's sub-batch sequentially. A panic while
// processing marks this token failed without touching its siblings.
func (s *Service) processTokenBatch(ctx context.Context, token model.Token, tokenIndex, totalTokens int, clients []model.Client) (ts *TokenSummary) {
	tokenStartedAt := time.Now()
	posicao := tokenIndex + 1
	ts = newTokenSummary(posicao, token)

	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprint(r)
			ts.OK = false
			ts.Message = msg
			ts.TotalErrosDB++
			s.tracker.RecordDBError("job:token_batch", 500, msg)
			s.log.Error("token batch failed",
				zap.Int("token", posicao), zap.Int("total", totalTokens), zap.String("error", msg))
		}
		ts.DurationMs = time.Since(tokenStartedAt).Milliseconds()
		s.log.Info(tokenFinalLine(ts, totalTokens))
	}()

	s.log.Info("token batch starting", zap.Int("token", posicao), zap.Int("total", totalTokens))
	s.tracker.IncrementWindow()
	metrics.WindowsStarted.Inc()

	if waited := s.gate.acquire(rateKey(token)); waited > 0 {
		s.log.Info("token waited for hourly window",
			zap.Int("token", posicao),
			zap.Int("total", totalTokens),
			zap.String("waited", formatDurationHHMMSS(waited)))
	}

	ts.TotalClientesSelecionados = len(clients)
	s.log.Info("token clients assigned", zap.Int("token", posicao), zap.Int("clients", len(clients)))

	progressStartedAt := time.Now()
	lastLoggedPercent := -1
	logProgress := func(current int) {
		percent := progressPercent(current, len(clients))
		if !shouldLogProgress(lastLoggedPercent, percent, current, len(clients)) {
			return
		}
		lastLoggedPercent = percent
		s.log.Info(fmt.Sprintf("Token %d/%d | Cliente %d/%d - %d%% %s | ETA %s",
			posicao, totalTokens, current, len(clients), percent,
			compactProgressText(current, len(clients)),
			estimateETAText(current, len(clients), progressStartedAt, time.Now())))
	}
	logProgress(0)

	for i, client := range clients {
		if !hasValidClientData(client) {
			ts.TotalIgnoradosDadosInvalidos++
			logProgress(i + 1)
			continue
		}

		result := s.processClient(ctx, token.AccessToken, client, token.Empresa)
		ts.TotalProcessados++
		ts.TotalConsultasCriadas += result.consultasCriadas
		ts.TotalConsultasAtivas400 += result.consultasAtivas400
		ts.TotalErrosAutorizar += result.errosAutorizar
		ts.TotalResultadosEncontrados += result.resultadosEncontrados
		ts.TotalResultadosSemDados += result.resultadosSemDados
		ts.TotalLinhasAtualizadas += result.linhasAtualizadas
		ts.TotalErrosAPI += result.errosAPI
		ts.TotalErrosDB += result.errosDB
		metrics.ClientsProcessed.WithLabelValues(token.Empresa).Inc()
		logProgress(i + 1)

		if s.cfg.WaitBetweenClients > 0 {
			s.sleep(s.cfg.WaitBetweenClients)
		}
	}

	return ts
}

type clientResult struct {
	consultasCriadas      int
	consultasAtivas400    int
	errosAutorizar        int
	resultadosEncontrados int
	resultadosSemDados    int
	linhasAtualizadas     int64
	errosAPI              int
	errosDB               int
}

// processClient drives the three-call sequence for one record and applies
// the resulting store update. Every terminal outcome lands in exactly one
// counter of the returned result.
func (s *Service) processClient(ctx context.Context, accessToken string, client model.Client, empresa string) clientResult {
	var result clientResult
	logFields := []zap.Field{
		zap.Int64("client_id", client.ID),
		zap.String("cpf", client.CPF),
		zap.String("empresa", strings.TrimSpace(empresa)),
	}

	shouldGetResult := false
	consultID := ""

	consultResp, err := s.client.CreateConsult(ctx, accessToken, client)
	if err != nil {
		result.errosAPI++
		s.tracker.RecordAPIError(routeConsult, 500, err.Error())
		s.log.Error("network failure creating consult", append(logFields, zap.Error(err))...)
		return result
	}
	switch {
	case consultResp.StatusCode >= 200 && consultResp.StatusCode < 300:
		result.consultasCriadas++
		metrics.ConsultsCreated.Inc()
		shouldGetResult = true
		consultID = consultResp.ID
	case consultResp.StatusCode == 400:
		// Provider answers 400 when a consult is already in progress for
		// this CPF; the result may still be available today.
		result.consultasAtivas400++
		metrics.ConsultsActive400.Inc()
		shouldGetResult = true
	default:
		result.errosAPI++
		s.tracker.RecordAPIError(routeConsult, consultResp.StatusCode,
			fmt.Sprintf("API1 retornou status %d", consultResp.StatusCode))
		return result
	}

	if s.cfg.WaitBetweenAPIs > 0 {
		s.sleep(s.cfg.WaitBetweenAPIs)
	}

	if consultID != "" {
		authResp, err := s.client.AuthorizeConsult(ctx, accessToken, consultID)
		if err != nil {
			result.errosAutorizar++
			s.tracker.RecordAPIError(routeAuthorize, 500, err.Error())
			s.log.Error("network failure authorizing consult",
				append(logFields, zap.String("consult_id", consultID), zap.Error(err))...)
		} else if authResp.StatusCode < 200 || authResp.StatusCode >= 300 {
			result.errosAutorizar++
			s.tracker.RecordAPIError(routeAuthorize, authResp.StatusCode,
				fmt.Sprintf("API2 retornou status %d", authResp.StatusCode))
		}
	}

	if !shouldGetResult {
		return result
	}

	if s.cfg.WaitBetweenAPIs > 0 {
		s.sleep(s.cfg.WaitBetweenAPIs)
	}

	resultResp, err := s.client.GetConsultResult(ctx, accessToken, client.CPF)
	if err != nil {
		result.errosAPI++
		s.tracker.RecordAPIError(routeConsult, 500, err.Error())
		s.log.Error("network failure fetching consult result", append(logFields, zap.Error(err))...)
		return result
	}
	if resultResp.StatusCode < 200 || resultResp.StatusCode >= 300 {
		result.errosAPI++
		s.tracker.RecordAPIError(routeConsult, resultResp.StatusCode,
			fmt.Sprintf("API3 retornou status %d", resultResp.StatusCode))
		return result
	}

	if len(resultResp.Data) == 0 {
		result.resultadosSemDados++
		return result
	}

	payload := extractPayload(resultResp.Data, empresa)
	if payload == nil {
		result.resultadosSemDados++
		return result
	}

	rowsAffected, err := s.store.UpdateClientByCPF(ctx, *payload)
	if err != nil {
		result.errosDB++
		s.tracker.RecordDBError("sql:update_client_by_cpf", 500, err.Error())
		s.log.Error("store update failed", append(logFields, zap.Error(err))...)
		return result
	}

	result.resultadosEncontrados++
	result.linhasAtualizadas += rowsAffected
	if rowsAffected == 0 {
		s.log.Warn("merge matched no rows", logFields...)
	}
	return result
}
