// internal/job/summary.go
package job

import (
	"fmt"
	"time"

	"consignment-api/internal/model"
)

// TokenSummary aggregates one token's share of a cycle.
type TokenSummary struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`

	TokenPosicao int    `json:"tokenPosicao"`
	TokenID      int64  `json:"tokenId"`
	Empresa      string `json:"empresa,omitempty"`

	TotalClientesSelecionados    int   `json:"totalClientesSelecionados"`
	TotalProcessados             int   `json:"totalProcessados"`
	TotalIgnoradosDadosInvalidos int   `json:"totalIgnoradosDadosInvalidos"`
	TotalConsultasCriadas        int   `json:"totalConsultasCriadas"`
	TotalConsultasAtivas400      int   `json:"totalConsultasAtivas400"`
	TotalErrosAutorizar          int   `json:"totalErrosAutorizar"`
	TotalResultadosEncontrados   int   `json:"totalResultadosEncontrados"`
	TotalResultadosSemDados      int   `json:"totalResultadosSemDados"`
	TotalLinhasAtualizadas       int64 `json:"totalLinhasAtualizadas"`
	TotalErrosAPI                int   `json:"totalErrosApi"`
	TotalErrosDB                 int   `json:"totalErrosDb"`

	DurationMs int64 `json:"durationMs"`
}

func newTokenSummary(posicao int, token model.Token) *TokenSummary {
	return &TokenSummary{
		OK:           true,
		TokenPosicao: posicao,
		TokenID:      token.ID,
		Empresa:      token.Empresa,
	}
}

func (ts *TokenSummary) errorCount() int {
	return ts.TotalErrosAPI + ts.TotalErrosAutorizar + ts.TotalErrosDB
}

// CycleSummary is the immutable record of one orchestration run.
type CycleSummary struct {
	ID      string `json:"cycleId,omitempty"`
	OK      bool   `json:"ok"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
	Source  string `json:"source,omitempty"`

	StartedAt  string `json:"startedAt,omitempty"`
	FinishedAt string `json:"finishedAt,omitempty"`
	DurationMs int64  `json:"durationMs"`

	TotalTokensDisponiveis int             `json:"totalTokensDisponiveis"`
	TotalTokensProcessados int             `json:"totalTokensProcessados"`
	TokensExecutados       []*TokenSummary `json:"tokensExecutados"`

	TotalClientesSelecionados    int   `json:"totalClientesSelecionados"`
	TotalProcessados             int   `json:"totalProcessados"`
	TotalIgnoradosDadosInvalidos int   `json:"totalIgnoradosDadosInvalidos"`
	TotalConsultasCriadas        int   `json:"totalConsultasCriadas"`
	TotalConsultasAtivas400      int   `json:"totalConsultasAtivas400"`
	TotalErrosAutorizar          int   `json:"totalErrosAutorizar"`
	TotalResultadosEncontrados   int   `json:"totalResultadosEncontrados"`
	TotalResultadosSemDados      int   `json:"totalResultadosSemDados"`
	TotalLinhasAtualizadas       int64 `json:"totalLinhasAtualizadas"`
	TotalErrosAPI                int   `json:"totalErrosApi"`
	TotalErrosDB                 int   `json:"totalErrosDb"`
}

// AlreadyRunning reports whether the summary is the no-work result of a
// trigger that found a cycle in flight.
func (cs *CycleSummary) AlreadyRunning() bool {
	return cs.Reason == "already_running"
}

func (cs *CycleSummary) errorCount() int {
	return cs.TotalErrosAPI + cs.TotalErrosAutorizar + cs.TotalErrosDB
}

// merge folds one token's counters into the cycle totals.
func (cs *CycleSummary) merge(ts *TokenSummary) {
	cs.TotalClientesSelecionados += ts.TotalClientesSelecionados
	cs.TotalProcessados += ts.TotalProcessados
	cs.TotalIgnoradosDadosInvalidos += ts.TotalIgnoradosDadosInvalidos
	cs.TotalConsultasCriadas += ts.TotalConsultasCriadas
	cs.TotalConsultasAtivas400 += ts.TotalConsultasAtivas400
	cs.TotalErrosAutorizar += ts.TotalErrosAutorizar
	cs.TotalResultadosEncontrados += ts.TotalResultadosEncontrados
	cs.TotalResultadosSemDados += ts.TotalResultadosSemDados
	cs.TotalLinhasAtualizadas += ts.TotalLinhasAtualizadas
	cs.TotalErrosAPI += ts.TotalErrosAPI
	cs.TotalErrosDB += ts.TotalErrosDB
}

func (cs *CycleSummary) finish(startedAt time.Time, now time.Time) *CycleSummary {
	cs.FinishedAt = now.UTC().Format(time.RFC3339)
	cs.DurationMs = now.Sub(startedAt).Milliseconds()
	return cs
}

// tokenFinalLine is the one-line recap logged (and snapshotted) per token.
func tokenFinalLine(ts *TokenSummary, totalTokens int) string {
	return fmt.Sprintf(
		"Finalizado Token %d/%d / Clientes %d (status 200=%d, status 400=%d, erros=%d) | 100%% | Tempo total %s",
		ts.TokenPosicao, totalTokens, ts.TotalClientesSelecionados,
		ts.TotalConsultasCriadas, ts.TotalConsultasAtivas400, ts.errorCount(),
		formatDurationHHMMSS(time.Duration(ts.DurationMs)*time.Millisecond),
	)
}

// Snapshot is the "last run" view served to callers. Field names are the
// wire format consumed by the existing dashboard, hence the pt-BR keys.
type Snapshot struct {
	UpdatedAt    string           `json:"updated_at,omitempty"`
	LastCycle    *SnapshotCycle   `json:"last_cycle"`
	Tokens       []*SnapshotToken `json:"tokens"`
	LinhasResumo []string         `json:"linhas_resumo"`
}

type SnapshotCycle struct {
	OK             bool   `json:"ok"`
	Source         string `json:"source,omitempty"`
	StartedAt      string `json:"started_at,omitempty"`
	FinishedAt     string `json:"finished_at,omitempty"`
	DurationMs     int64  `json:"duration_ms"`
	DurationHHMMSS string `json:"duration_hhmmss"`
	TokensTotal    int    `json:"tokens_total"`
	TokensOK       int    `json:"tokens_processados"`
	ClientesTotal  int    `json:"clientes_total"`
	Status200      int    `json:"status_200_consultados"`
	Status400      int    `json:"status_400_aguardando_resposta_v8"`
	Erros          int    `json:"erros"`
	Message        string `json:"message,omitempty"`
}

type SnapshotToken struct {
	TokenPosicao int    `json:"token_posicao"`
	TokenTotal   int    `json:"token_total"`
	TokenID      int64  `json:"token_id"`
	Empresa      string `json:"empresa,omitempty"`
	Clientes     int    `json:"clientes"`
	Status200    int    `json:"status_200_consultados"`
	Status400    int    `json:"status_400_aguardando_resposta_v8"`
	Erros        int    `json:"erros"`
	Percent      int    `json:"percent"`
	TempoTotal   string `json:"tempo_total_hhmmss"`
	Resumo       string `json:"resumo"`
}

func buildSnapshot(summary *CycleSummary, now time.Time) *Snapshot {
	if summary == nil {
		return &Snapshot{}
	}

	totalTokens := summary.TotalTokensDisponiveis
	tokens := make([]*SnapshotToken, 0, len(summary.TokensExecutados))
	linhas := make([]string, 0, len(summary.TokensExecutados))
	for _, ts := range summary.TokensExecutados {
		resumo := tokenFinalLine(ts, totalTokens)
		tokens = append(tokens, &SnapshotToken{
			TokenPosicao: ts.TokenPosicao,
			TokenTotal:   totalTokens,
			TokenID:      ts.TokenID,
			Empresa:      ts.Empresa,
			Clientes:     ts.TotalClientesSelecionados,
			Status200:    ts.TotalConsultasCriadas,
			Status400:    ts.TotalConsultasAtivas400,
			Erros:        ts.errorCount(),
			Percent:      100,
			TempoTotal:   formatDurationHHMMSS(time.Duration(ts.DurationMs) * time.Millisecond),
			Resumo:       resumo,
		})
		linhas = append(linhas, resumo)
	}

	return &Snapshot{
		UpdatedAt: now.UTC().Format(time.RFC3339),
		LastCycle: &SnapshotCycle{
			OK:             summary.OK,
			Source:         summary.Source,
			StartedAt:      summary.StartedAt,
			FinishedAt:     summary.FinishedAt,
			DurationMs:     summary.DurationMs,
			DurationHHMMSS: formatDurationHHMMSS(time.Duration(summary.DurationMs) * time.Millisecond),
			TokensTotal:    totalTokens,
			TokensOK:       summary.TotalTokensProcessados,
			ClientesTotal:  summary.TotalClientesSelecionados,
			Status200:      summary.TotalConsultasCriadas,
			Status400:      summary.TotalConsultasAtivas400,
			Erros:          summary.errorCount(),
			Message:        summary.Message,
		},
		Tokens:       tokens,
		LinhasResumo: linhas,
	}
}
