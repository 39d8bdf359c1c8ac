// internal/model/client.go
package model

import "time"

// Consultation status vocabulary stored in clientes_clt.status_consulta_v8.
const (
	StatusAguardando               = "Aguardando"
	StatusAguardandoConsulta       = "Aguardando Consulta"
	StatusConsentimentoAprovado    = "Consentimento Aprovado"
	StatusAguardandoConsentimento  = "Aguardando Consentimento"
	StatusAguardandoAnaliseCredito = "Aguardando Analise Credito"
	StatusFalha                    = "Falha"
	StatusRejeitado                = "Rejeitado"
	StatusSucesso                  = "Sucesso"
)

// Client is one pending consultation row from clientes_clt.
type Client struct {
	ID         int64      `db:"id"`
	CPF        string     `db:"cliente_cpf"`
	Nome       string     `db:"cliente_nome"`
	Sexo       string     `db:"cliente_sexo"`
	Nascimento *time.Time `db:"nascimento"`
	Email      string     `db:"email"`
	Telefone   string     `db:"telefone"`
	Status     string     `db:"status_consulta_v8"`
}

// ClientUpdate is the coalesce-style merge applied after a consult result.
// Nil fields leave the stored value untouched; Descricao is always written,
// including when nil.
type ClientUpdate struct {
	CPF11         string
	ValorLiberado *float64
	Status        *string
	Descricao     *string
	TokenUsado    *string
}
