// internal/job/normalize.go
package job

import (
	"math"
	"strconv"
	"strings"

	"consignment-api/internal/model"
	"consignment-api/internal/provider"
)

func hasValue(s string) bool {
	return strings.TrimSpace(s) != ""
}

// hasValidClientData reports whether the record carries everything the
// provider requires to open a consultation.
func hasValidClientData(c model.Client) bool {
	return hasValue(c.CPF) && hasValue(c.Sexo) && c.Nascimento != nil && hasValue(c.Nome)
}

// normalizeCPF strips non-digits and left-pads to 11. More than 11 digits
// means the value cannot be a CPF, so it is rejected rather than truncated.
func normalizeCPF(raw string) (string, bool) {
	var digits strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] >= '0' && raw[i] <= '9' {
			digits.WriteByte(raw[i])
		}
	}

	d := digits.String()
	if d == "" || len(d) > 11 {
		return "", false
	}
	return strings.Repeat("0", 11-len(d)) + d, true
}

// parseMarginValue parses a monetary amount that may use either '.' or ','
// as the decimal separator. When both appear, whichever comes last is the
// decimal point. Returns nil for blank or unparsable input.
func parseMarginValue(raw string) *float64 {
	value := strings.Join(strings.Fields(raw), "")
	if value == "" {
		return nil
	}

	lastDot := strings.LastIndex(value, ".")
	lastComma := strings.LastIndex(value, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			value = strings.ReplaceAll(value, ".", "")
			value = strings.Replace(value, ",", ".", 1)
		} else {
			value = strings.ReplaceAll(value, ",", "")
		}
	case lastComma >= 0:
		value = strings.Replace(value, ",", ".", 1)
	}

	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsInf(parsed, 0) || math.IsNaN(parsed) {
		return nil
	}

	rounded := math.Round(parsed*100) / 100
	return &rounded
}

// mapStatus translates provider status codes into the stored vocabulary.
// Unknown values pass through unchanged; blank becomes nil.
func mapStatus(status string) *string {
	if !hasValue(status) {
		return nil
	}

	mapped := status
	switch strings.ToUpper(status) {
	case "CONSENT_APPROVED":
		mapped = model.StatusConsentimentoAprovado
	case "WAITING_CONSENT":
		mapped = model.StatusAguardandoConsentimento
	case "WAITING_CONSULT":
		mapped = model.StatusAguardandoConsulta
	case "WAITING_CREDIT_ANALYSIS":
		mapped = model.StatusAguardandoAnaliseCredito
	case "FAILED":
		mapped = model.StatusFalha
	case "REJECTED":
		mapped = model.StatusRejeitado
	case "SUCCESS":
		mapped = model.StatusSucesso
	}
	return &mapped
}

func cleanDescription(description string) *string {
	value := strings.TrimSpace(description)
	if value == "" {
		return nil
	}
	return &value
}

// extractPayload builds the store update from the result array: fields come
// from the first entry, falling back to the second for anything absent.
// Returns nil when there is nothing usable or the document number does not
// normalize to a valid CPF.
func extractPayload(data []provider.ResultEntry, empresa string) *model.ClientUpdate {
	var first, second provider.ResultEntry
	if len(data) > 0 {
		first = data[0]
	}
	if len(data) > 1 {
		second = data[1]
	}

	documentNumber := coalesce(first.DocumentNumber, second.DocumentNumber)
	margin := coalesceFlex(first.AvailableMarginValue, second.AvailableMarginValue)
	status := coalesce(first.Status, second.Status)
	description := coalesce(first.Description, second.Description)

	if documentNumber == nil && margin == nil && status == nil && description == nil {
		return nil
	}

	var rawDoc string
	if documentNumber != nil {
		rawDoc = *documentNumber
	}
	cpf11, ok := normalizeCPF(rawDoc)
	if !ok {
		return nil
	}

	update := &model.ClientUpdate{CPF11: cpf11}
	if margin != nil {
		update.ValorLiberado = parseMarginValue(margin.String())
	}
	if status != nil {
		update.Status = mapStatus(*status)
	}
	if description != nil {
		update.Descricao = cleanDescription(*description)
	}
	if hasValue(empresa) {
		trimmed := strings.TrimSpace(empresa)
		update.TokenUsado = &trimmed
	}
	return update
}

func coalesce(a, b *string) *string {
	if a != nil {
		return a
	}
	return b
}

func coalesceFlex(a, b *provider.FlexValue) *provider.FlexValue {
	if a != nil {
		return a
	}
	return b
}
