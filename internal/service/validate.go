package service

import (
	"strings"

	"github.com/portalcadastro/cadastro-api/internal/domain"
)

// Resolved policy: every variant requires at least 8 characters. The
// legacy client flow only checked presence; the stricter rule wins.
const minPasswordLen = 8

// clientInput is the client payload after normalization, ready to store.
type clientInput struct {
	razaoNome  string
	cpfCnpj    string
	tipoPessoa domain.PersonType

	emailContato string
	emailLogin   string
	usuario      string
	celular      string
	telefone     string
	redesSociais []string

	cep         string
	rua         string
	numero      string
	complemento string
	bairro      string
	cidade      string
	estado      string

	senha string
}

// adminInput is the admin payload after normalization.
type adminInput struct {
	razaoSocial string
	cnpj        string
	areaAtuacao string

	email        string
	usuario      string
	celular      string
	telefone     string
	redesSociais []string

	cep         string
	rua         string
	numero      string
	complemento string
	bairro      string
	cidade      string
	estado      string

	senha string
}

func normalizeClient(req *domain.ClientRegistration) (*clientInput, error) {
	in := &clientInput{
		tipoPessoa:   req.DadosCliente.TipoPessoa,
		emailContato: normalizeEmail(req.DadosContato.Email),
		emailLogin:   normalizeEmail(req.DadosCredenciais.EmailLogin),
		celular:      digitsOnly(req.DadosContato.Celular),
		telefone:     digitsOnly(req.DadosContato.Telefone),
		redesSociais: req.DadosContato.RedesSociais,
		senha:        strings.TrimSpace(req.DadosCredenciais.Senha),
	}
	if in.redesSociais == nil {
		in.redesSociais = []string{}
	}
	if in.emailLogin == "" {
		in.emailLogin = in.emailContato
	}
	in.usuario = strings.ToLower(localPart(in.emailLogin))

	normalizeAddress(&req.DadosEndereco,
		&in.cep, &in.rua, &in.numero, &in.complemento, &in.bairro, &in.cidade, &in.estado)

	if in.emailContato == "" {
		return nil, &domain.ErrValidation{Field: "email", Message: "Email é obrigatório"}
	}
	if in.celular == "" {
		return nil, &domain.ErrValidation{Field: "celular", Message: "Celular é obrigatório"}
	}

	switch in.tipoPessoa {
	case domain.PersonFisica:
		in.razaoNome = strings.TrimSpace(req.DadosCliente.NomeCompleto)
		in.cpfCnpj = digitsOnly(req.DadosCliente.CPF)
		if len(in.cpfCnpj) != 11 {
			return nil, &domain.ErrValidation{Field: "cpf", Message: "CPF inválido"}
		}
	case domain.PersonJuridica:
		in.razaoNome = strings.TrimSpace(req.DadosCliente.RazaoSocial)
		in.cpfCnpj = digitsOnly(req.DadosCliente.CNPJ)
		if len(in.cpfCnpj) != 14 {
			return nil, &domain.ErrValidation{Field: "cnpj", Message: "CNPJ inválido"}
		}
	default:
		return nil, &domain.ErrValidation{Field: "tipoPessoa", Message: "Tipo de pessoa deve ser 'fisica' ou 'juridica'"}
	}
	if in.razaoNome == "" {
		return nil, &domain.ErrValidation{Field: "nomeCompleto", Message: "Nome completo ou razão social é obrigatório"}
	}

	if err := validateAddress(in.rua, in.numero, in.bairro, in.cidade, in.estado); err != nil {
		return nil, err
	}
	if err := validatePassword(in.senha); err != nil {
		return nil, err
	}
	return in, nil
}

func normalizeAdmin(req *domain.AdminRegistration) (*adminInput, error) {
	in := &adminInput{
		razaoSocial:  strings.TrimSpace(req.RazaoSocial),
		cnpj:         digitsOnly(req.CNPJ),
		areaAtuacao:  strings.TrimSpace(req.AreaAtuacao),
		email:        normalizeEmail(req.Email),
		celular:      digitsOnly(req.Celular),
		telefone:     digitsOnly(req.Telefone),
		redesSociais: req.RedesSociais,
		senha:        strings.TrimSpace(req.Senha),
	}
	if in.redesSociais == nil {
		in.redesSociais = []string{}
	}
	in.usuario = strings.ToLower(localPart(in.email))

	addr := domain.AddressData{
		CEP: req.CEP, Rua: req.Rua, Numero: req.Numero, Complemento: req.Complemento,
		Bairro: req.Bairro, Cidade: req.Cidade, Estado: req.Estado,
	}
	normalizeAddress(&addr,
		&in.cep, &in.rua, &in.numero, &in.complemento, &in.bairro, &in.cidade, &in.estado)

	if in.email == "" {
		return nil, &domain.ErrValidation{Field: "email", Message: "Email é obrigatório"}
	}
	if in.celular == "" {
		return nil, &domain.ErrValidation{Field: "celular", Message: "Celular é obrigatório"}
	}
	if in.razaoSocial == "" {
		return nil, &domain.ErrValidation{Field: "razaoSocial", Message: "Razão social é obrigatória"}
	}
	if len(in.cnpj) != 14 {
		return nil, &domain.ErrValidation{Field: "cnpj", Message: "CNPJ inválido"}
	}
	if err := validateAddress(in.rua, in.numero, in.bairro, in.cidade, in.estado); err != nil {
		return nil, err
	}
	if err := validatePassword(in.senha); err != nil {
		return nil, err
	}
	return in, nil
}

func normalizeAddress(a *domain.AddressData, cep, rua, numero, complemento, bairro, cidade, estado *string) {
	*cep = digitsOnly(a.CEP)
	*rua = strings.TrimSpace(a.Rua)
	*numero = strings.TrimSpace(a.Numero)
	*complemento = strings.TrimSpace(a.Complemento)
	*bairro = strings.TrimSpace(a.Bairro)
	*cidade = strings.TrimSpace(a.Cidade)
	*estado = strings.ToUpper(strings.TrimSpace(a.Estado))
}

func validateAddress(rua, numero, bairro, cidade, estado string) error {
	switch {
	case rua == "":
		return &domain.ErrValidation{Field: "rua", Message: "Rua é obrigatória"}
	case numero == "":
		return &domain.ErrValidation{Field: "numero", Message: "Número é obrigatório"}
	case bairro == "":
		return &domain.ErrValidation{Field: "bairro", Message: "Bairro é obrigatório"}
	case cidade == "":
		return &domain.ErrValidation{Field: "cidade", Message: "Cidade é obrigatória"}
	case estado == "":
		return &domain.ErrValidation{Field: "estado", Message: "Estado é obrigatório"}
	}
	return nil
}

func validatePassword(senha string) error {
	if senha == "" {
		return &domain.ErrValidation{Field: "senha", Message: "Senha é obrigatória"}
	}
	if len(senha) < minPasswordLen {
		return &domain.ErrValidation{Field: "senha", Message: "Senha deve ter no mínimo 8 caracteres"}
	}
	return nil
}
