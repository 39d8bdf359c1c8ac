package job

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"consignment-api/internal/model"
	"consignment-api/internal/provider"
)

func TestNormalizeCPF(t *testing.T) {
	for _, tc := range []struct {
		in    string
		want  string
		valid bool
	}{
		{"529.982.247-25", "52998224725", true},
		{"52998224725", "52998224725", true},
		{"123", "00000000123", true},
		{" 1 ", "00000000001", true},
		{"", "", false},
		{"abc", "", false},
		{"123456789012", "", false}, // 12 digits cannot be a CPF
	} {
		got, ok := normalizeCPF(tc.in)
		require.Equal(t, tc.valid, ok, "input %q", tc.in)
		require.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestParseMarginValue(t *testing.T) {
	ptr := func(v float64) *float64 { return &v }

	for _, tc := range []struct {
		in   string
		want *float64
	}{
		{"1.234,56", ptr(1234.56)},
		{"1,234.56", ptr(1234.56)},
		{"2.500,00", ptr(2500.00)},
		{"50", ptr(50.00)},
		{"50,5", ptr(50.5)},
		{" 1 234,50 ", ptr(1234.50)},
		{"0,10", ptr(0.10)},
		{"", nil},
		{"   ", nil},
		{"abc", nil},
	} {
		got := parseMarginValue(tc.in)
		if tc.want == nil {
			require.Nil(t, got, "input %q", tc.in)
			continue
		}
		require.NotNil(t, got, "input %q", tc.in)
		require.InDelta(t, *tc.want, *got, 1e-9, "input %q", tc.in)
	}
}

func TestMapStatus(t *testing.T) {
	require.Nil(t, mapStatus(""))
	require.Nil(t, mapStatus("  "))

	for in, want := range map[string]string{
		"CONSENT_APPROVED":        model.StatusConsentimentoAprovado,
		"consent_approved":        model.StatusConsentimentoAprovado,
		"WAITING_CONSENT":         model.StatusAguardandoConsentimento,
		"WAITING_CONSULT":         model.StatusAguardandoConsulta,
		"WAITING_CREDIT_ANALYSIS": model.StatusAguardandoAnaliseCredito,
		"FAILED":                  model.StatusFalha,
		"REJECTED":                model.StatusRejeitado,
		"SUCCESS":                 model.StatusSucesso,
		"SOMETHING_ELSE":          "SOMETHING_ELSE", // unknown passes through
	} {
		got := mapStatus(in)
		require.NotNil(t, got, "input %q", in)
		require.Equal(t, want, *got, "input %q", in)
	}
}

func TestHasValidClientData(t *testing.T) {
	birth := time.Date(1980, 5, 2, 0, 0, 0, 0, time.UTC)
	valid := model.Client{CPF: "52998224725", Nome: "Maria", Sexo: "F", Nascimento: &birth}
	require.True(t, hasValidClientData(valid))

	for name, mutate := range map[string]func(c model.Client) model.Client{
		"missing cpf":   func(c model.Client) model.Client { c.CPF = " "; return c },
		"missing nome":  func(c model.Client) model.Client { c.Nome = ""; return c },
		"missing sexo":  func(c model.Client) model.Client { c.Sexo = ""; return c },
		"missing birth": func(c model.Client) model.Client { c.Nascimento = nil; return c },
	} {
		require.False(t, hasValidClientData(mutate(valid)), name)
	}
}

func strp(s string) *string { return &s }

func flexp(s string) *provider.FlexValue {
	f := provider.FlexValue(s)
	return &f
}

func TestExtractPayloadFirstEntryWins(t *testing.T) {
	data := []provider.ResultEntry{
		{DocumentNumber: strp("529.982.247-25"), AvailableMarginValue: flexp("1.234,56"), Status: strp("SUCCESS"), Description: strp(" tudo certo ")},
		{DocumentNumber: strp("000"), AvailableMarginValue: flexp("9"), Status: strp("FAILED"), Description: strp("ignored")},
	}

	payload := extractPayload(data, " empresaX ")
	require.NotNil(t, payload)
	require.Equal(t, "52998224725", payload.CPF11)
	require.NotNil(t, payload.ValorLiberado)
	require.InDelta(t, 1234.56, *payload.ValorLiberado, 1e-9)
	require.Equal(t, model.StatusSucesso, *payload.Status)
	require.Equal(t, "tudo certo", *payload.Descricao)
	require.Equal(t, "empresaX", *payload.TokenUsado)
}

func TestExtractPayloadSecondEntryFallback(t *testing.T) {
	data := []provider.ResultEntry{
		{Status: strp("WAITING_CONSULT")},
		{DocumentNumber: strp("123"), AvailableMarginValue: flexp("50")},
	}

	payload := extractPayload(data, "")
	require.NotNil(t, payload)
	require.Equal(t, "00000000123", payload.CPF11)
	require.InDelta(t, 50.0, *payload.ValorLiberado, 1e-9)
	require.Equal(t, model.StatusAguardandoConsulta, *payload.Status)
	require.Nil(t, payload.Descricao)
	require.Nil(t, payload.TokenUsado)
}

func TestExtractPayloadInvalid(t *testing.T) {
	// Nothing usable at all
	require.Nil(t, extractPayload([]provider.ResultEntry{{}, {}}, "x"))

	// Document number present but not a valid CPF
	data := []provider.ResultEntry{{DocumentNumber: strp("123456789012345")}}
	require.Nil(t, extractPayload(data, "x"))

	// Margin without a document number still needs the CPF
	data = []provider.ResultEntry{{AvailableMarginValue: flexp("10")}}
	require.Nil(t, extractPayload(data, "x"))
}
