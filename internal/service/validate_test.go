package service

import (
	"testing"

	"github.com/portalcadastro/cadastro-api/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validClientRequest() *domain.ClientRegistration {
	return &domain.ClientRegistration{
		DadosCliente: domain.ClientData{
			NomeCompleto: "  Maria da Silva ",
			TipoPessoa:   domain.PersonFisica,
			CPF:          "123.456.789-01",
		},
		DadosContato: domain.ContactData{
			Email:   " Maria@Example.COM ",
			Celular: "(11) 98888-7777",
		},
		DadosEndereco: domain.AddressData{
			CEP:    "01310-100",
			Rua:    "Av. Paulista",
			Numero: "1000",
			Bairro: "Bela Vista",
			Cidade: "São Paulo",
			Estado: "sp",
		},
		DadosCredenciais: domain.CredentialData{
			Senha: "segredo123",
		},
		IDAdminLogado: 7,
	}
}

func validAdminRequest() *domain.AdminRegistration {
	return &domain.AdminRegistration{
		RazaoSocial: "Empresa Exemplo LTDA",
		CNPJ:        "12.345.678/0001-95",
		Email:       "contato@empresa.com",
		Senha:       "segredo123",
		Celular:     "(11) 97777-6666",
		CEP:         "01310-100",
		Rua:         "Av. Paulista",
		Numero:      "1000",
		Bairro:      "Bela Vista",
		Cidade:      "São Paulo",
		Estado:      "sp",
		AreaAtuacao: "Contabilidade",
	}
}

func TestNormalizeClient(t *testing.T) {
	in, err := normalizeClient(validClientRequest())
	require.NoError(t, err)

	assert.Equal(t, "Maria da Silva", in.razaoNome)
	assert.Equal(t, "12345678901", in.cpfCnpj)
	assert.Equal(t, "maria@example.com", in.emailContato)
	assert.Equal(t, "maria@example.com", in.emailLogin)
	assert.Equal(t, "maria", in.usuario)
	assert.Equal(t, "11988887777", in.celular)
	assert.Equal(t, "01310100", in.cep)
	assert.Equal(t, "SP", in.estado)
	assert.NotNil(t, in.redesSociais)
}

func TestNormalizeClientSeparateLoginEmail(t *testing.T) {
	req := validClientRequest()
	req.DadosCredenciais.EmailLogin = "Login.Maria@Portal.com"

	in, err := normalizeClient(req)
	require.NoError(t, err)

	assert.Equal(t, "maria@example.com", in.emailContato)
	assert.Equal(t, "login.maria@portal.com", in.emailLogin)
	assert.Equal(t, "login.maria", in.usuario)
}

func TestNormalizeClientJuridica(t *testing.T) {
	req := validClientRequest()
	req.DadosCliente.TipoPessoa = domain.PersonJuridica
	req.DadosCliente.RazaoSocial = "Cliente PJ LTDA"
	req.DadosCliente.CNPJ = "12.345.678/0001-95"

	in, err := normalizeClient(req)
	require.NoError(t, err)
	assert.Equal(t, "Cliente PJ LTDA", in.razaoNome)
	assert.Equal(t, "12345678000195", in.cpfCnpj)
}

func TestNormalizeClientRejections(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*domain.ClientRegistration)
		message string
	}{
		{"missing email", func(r *domain.ClientRegistration) { r.DadosContato.Email = "" }, "Email é obrigatório"},
		{"missing celular", func(r *domain.ClientRegistration) { r.DadosContato.Celular = "" }, "Celular é obrigatório"},
		{"short cpf", func(r *domain.ClientRegistration) { r.DadosCliente.CPF = "123" }, "CPF inválido"},
		{"unknown tipo", func(r *domain.ClientRegistration) { r.DadosCliente.TipoPessoa = "empresa" }, "Tipo de pessoa deve ser 'fisica' ou 'juridica'"},
		{"missing nome", func(r *domain.ClientRegistration) { r.DadosCliente.NomeCompleto = "   " }, "Nome completo ou razão social é obrigatório"},
		{"missing rua", func(r *domain.ClientRegistration) { r.DadosEndereco.Rua = "" }, "Rua é obrigatória"},
		{"missing numero", func(r *domain.ClientRegistration) { r.DadosEndereco.Numero = "" }, "Número é obrigatório"},
		{"missing cidade", func(r *domain.ClientRegistration) { r.DadosEndereco.Cidade = "" }, "Cidade é obrigatória"},
		{"missing senha", func(r *domain.ClientRegistration) { r.DadosCredenciais.Senha = "" }, "Senha é obrigatória"},
		{"short senha", func(r *domain.ClientRegistration) { r.DadosCredenciais.Senha = "abc1234" }, "Senha deve ter no mínimo 8 caracteres"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validClientRequest()
			tc.mutate(req)

			_, err := normalizeClient(req)
			var validation *domain.ErrValidation
			require.ErrorAs(t, err, &validation)
			assert.Equal(t, tc.message, validation.Message)
		})
	}
}

func TestNormalizeAdmin(t *testing.T) {
	in, err := normalizeAdmin(validAdminRequest())
	require.NoError(t, err)

	assert.Equal(t, "Empresa Exemplo LTDA", in.razaoSocial)
	assert.Equal(t, "12345678000195", in.cnpj)
	assert.Equal(t, "contato@empresa.com", in.email)
	assert.Equal(t, "contato", in.usuario)
	assert.Equal(t, "SP", in.estado)
	assert.Equal(t, "Contabilidade", in.areaAtuacao)
}

func TestNormalizeAdminRejections(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*domain.AdminRegistration)
		message string
	}{
		{"missing razao social", func(r *domain.AdminRegistration) { r.RazaoSocial = "" }, "Razão social é obrigatória"},
		{"bad cnpj", func(r *domain.AdminRegistration) { r.CNPJ = "12345" }, "CNPJ inválido"},
		{"missing email", func(r *domain.AdminRegistration) { r.Email = "" }, "Email é obrigatório"},
		{"short senha", func(r *domain.AdminRegistration) { r.Senha = "curta12" }, "Senha deve ter no mínimo 8 caracteres"},
		{"missing estado", func(r *domain.AdminRegistration) { r.Estado = " " }, "Estado é obrigatório"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validAdminRequest()
			tc.mutate(req)

			_, err := normalizeAdmin(req)
			var validation *domain.ErrValidation
			require.ErrorAs(t, err, &validation)
			assert.Equal(t, tc.message, validation.Message)
		})
	}
}

func TestDigitsOnly(t *testing.T) {
	assert.Equal(t, "12345678901", digitsOnly("123.456.789-01"))
	assert.Equal(t, "", digitsOnly("abc"))
	assert.Equal(t, "5511988887777", digitsOnly("+55 (11) 98888-7777"))
}

func TestLocalPart(t *testing.T) {
	assert.Equal(t, "maria", localPart("maria@example.com"))
	assert.Equal(t, "semarroba", localPart("semarroba"))
}

func TestNullable(t *testing.T) {
	assert.Nil(t, nullable(""))
	assert.Equal(t, "x", nullable("x"))
}
