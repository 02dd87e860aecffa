// Package domain holds the registration payloads, the record-store row
// shapes and the error taxonomy shared by service, handler and infra.
package domain

// ============================================================
// Registration — Request / Response types (matches frontend API contract)
// ============================================================

// PersonType distinguishes individual (fisica) from organization (juridica).
type PersonType string

const (
	PersonFisica   PersonType = "fisica"
	PersonJuridica PersonType = "juridica"
)

// AccountClass is the account class stored in dados_usuario.tipo_cliente.
type AccountClass string

const (
	ClassCliente AccountClass = "cliente"
	ClassAdmin   AccountClass = "admin"
)

// ClientData carries the profile fields of the client payload.
type ClientData struct {
	NomeCompleto string     `json:"nomeCompleto"`
	RazaoSocial  string     `json:"razaoSocial"`
	TipoPessoa   PersonType `json:"tipoPessoa"`
	CPF          string     `json:"cpf"`
	CNPJ         string     `json:"cnpj"`
}

// ContactData carries the contato fields of the payload.
type ContactData struct {
	Email        string   `json:"email"`
	Celular      string   `json:"celular"`
	Telefone     string   `json:"telefone"`
	RedesSociais []string `json:"redesSociais"`
}

// AddressData carries the endereco fields of the payload.
type AddressData struct {
	CEP         string `json:"cep"`
	Rua         string `json:"rua"`
	Numero      string `json:"numero"`
	Complemento string `json:"complemento"`
	Bairro      string `json:"bairro"`
	Cidade      string `json:"cidade"`
	Estado      string `json:"estado"`
}

// CredentialData carries the credential fields of the client payload.
type CredentialData struct {
	EmailLogin             string `json:"emailLogin"`
	Senha                  string `json:"senha"`
	EnviarEmailCredenciais bool   `json:"enviarEmailCredenciais"`
}

// ClientRegistration is the body for POST /v1/registrations/clients.
type ClientRegistration struct {
	DadosCliente     ClientData     `json:"dadosCliente"`
	DadosContato     ContactData    `json:"dadosContato"`
	DadosEndereco    AddressData    `json:"dadosEndereco"`
	DadosCredenciais CredentialData `json:"dadosCredenciais"`
	IDAdminLogado    int64          `json:"idAdminLogado"`
}

// ClientResult is the success body for the client variant.
type ClientResult struct {
	Success   bool   `json:"success"`
	ClienteID int64  `json:"clienteId"`
	UsuarioID int64  `json:"usuarioId"`
	Email     string `json:"email"`
}

// AdminRegistration is the body for POST /v1/registrations/admins.
// The admin variant uses a flat payload.
type AdminRegistration struct {
	RazaoSocial  string   `json:"razaoSocial"`
	CNPJ         string   `json:"cnpj"`
	Email        string   `json:"email"`
	Senha        string   `json:"senha"`
	Celular      string   `json:"celular"`
	Telefone     string   `json:"telefone"`
	RedesSociais []string `json:"redesSociais"`
	CEP          string   `json:"cep"`
	Rua          string   `json:"rua"`
	Numero       string   `json:"numero"`
	Complemento  string   `json:"complemento"`
	Bairro       string   `json:"bairro"`
	Cidade       string   `json:"cidade"`
	Estado       string   `json:"estado"`
	AreaAtuacao  string   `json:"areaAtuacao"`
}

// AdminResultData holds the identifiers created by the admin variant.
type AdminResultData struct {
	UserID         string `json:"userId"`
	AdminID        int64  `json:"adminId"`
	DadosUsuarioID int64  `json:"dadosUsuarioId"`
	Email          string `json:"email"`
}

// AdminResult is the success body for the admin variant.
type AdminResult struct {
	Success           bool            `json:"success"`
	Message           string          `json:"message"`
	Data              AdminResultData `json:"data"`
	NeedsConfirmation bool            `json:"needsConfirmation"`
	MetadataSynced    bool            `json:"metadataSynced"`
}

// ============================================================
// Operational responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// RegistrationMetrics is returned by GET /v1/metrics/registrations.
type RegistrationMetrics struct {
	TotalAttempts         int64   `json:"totalAttempts"`
	Committed             int64   `json:"committed"`
	Duplicates            int64   `json:"duplicates"`
	Failed                int64   `json:"failed"`
	CompensationsExecuted int64   `json:"compensationsExecuted"`
	CompensationFailures  int64   `json:"compensationFailures"`
	CacheHitRate          float64 `json:"cacheHitRate"`
	Period                string  `json:"period"`
}
