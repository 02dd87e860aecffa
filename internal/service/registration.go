// Package service implements the registration orchestrator: validation,
// duplicate pre-checks, the multi-step creation saga and the mapping of
// store failures into the API error taxonomy.
package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/portalcadastro/cadastro-api/internal/domain"
	"github.com/portalcadastro/cadastro-api/internal/infra/observability"
	"github.com/portalcadastro/cadastro-api/internal/port"
	"github.com/portalcadastro/cadastro-api/internal/saga"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	tableContato      = "contato"
	tableEndereco     = "endereco"
	tableDadosUsuario = "dados_usuario"
	tableCliente      = "cliente"
	tableAdmin        = "admin"
)

// RegistrationService orchestrates both registration variants against the
// record store and the identity provider.
type RegistrationService struct {
	store      port.RecordStore
	provider   port.IdentityProvider
	hasher     port.PasswordHasher
	adminCache port.Cache[bool]
	metrics    *observability.Metrics
	logger     *zap.Logger
}

func NewRegistrationService(
	store port.RecordStore,
	provider port.IdentityProvider,
	hasher port.PasswordHasher,
	adminCache port.Cache[bool],
	metrics *observability.Metrics,
	logger *zap.Logger,
) *RegistrationService {
	return &RegistrationService{
		store:      store,
		provider:   provider,
		hasher:     hasher,
		adminCache: adminCache,
		metrics:    metrics,
		logger:     logger,
	}
}

// RegisterClient creates a locally-authenticated client account:
// contato and endereco in parallel, then dados_usuario with the hashed
// credential, then the cliente record linking it to the responsible admin.
// Any failure after the first committed insert rolls back everything
// committed so far before the error is reported.
func (s *RegistrationService) RegisterClient(ctx context.Context, req *domain.ClientRegistration) (*domain.ClientResult, error) {
	in, err := normalizeClient(req)
	if err != nil {
		s.metrics.IncrRegistration(string(domain.ClassCliente), observability.OutcomeInvalid)
		return nil, err
	}

	if err := s.checkClientDuplicates(ctx, in); err != nil {
		s.classifyOutcome(domain.ClassCliente, err)
		return nil, err
	}

	if err := s.ensureAdminExists(ctx, req.IDAdminLogado); err != nil {
		s.classifyOutcome(domain.ClassCliente, err)
		return nil, err
	}

	sg := saga.New(s.metrics, s.logger)
	var (
		contatoID  int64
		enderecoID int64
		senhaHash  string
		usuarioID  int64
		clienteID  int64
	)

	err = sg.Execute(ctx,
		saga.Parallel("contato+endereco",
			saga.Step{Label: "contato", Do: func(ctx context.Context) (saga.CompensateFunc, error) {
				rec, err := s.insert(ctx, tableContato, map[string]any{
					"email":         in.emailContato,
					"celular":       in.celular,
					"telefone":      nullable(in.telefone),
					"redes_sociais": in.redesSociais,
				})
				if err != nil {
					return nil, err
				}
				contatoID = rec.Int64("id_contato")
				return s.deleteByID(tableContato, "id_contato", contatoID), nil
			}},
			saga.Step{Label: "endereco", Do: func(ctx context.Context) (saga.CompensateFunc, error) {
				rec, err := s.insert(ctx, tableEndereco, map[string]any{
					"cep":         in.cep,
					"rua":         in.rua,
					"numero":      in.numero,
					"complemento": nullable(in.complemento),
					"bairro":      in.bairro,
					"cidade":      in.cidade,
					"estado":      in.estado,
				})
				if err != nil {
					return nil, err
				}
				enderecoID = rec.Int64("id_endereco")
				return s.deleteByID(tableEndereco, "id_endereco", enderecoID), nil
			}},
		),
		saga.Single("credencial", func(ctx context.Context) (saga.CompensateFunc, error) {
			h, err := s.hasher.Hash(in.senha)
			if err != nil {
				return nil, err
			}
			senhaHash = h
			return nil, nil
		}),
		saga.Single("dados_usuario", func(ctx context.Context) (saga.CompensateFunc, error) {
			rec, err := s.insert(ctx, tableDadosUsuario, map[string]any{
				"razao_nome":   in.razaoNome,
				"cpf_cnpj":     in.cpfCnpj,
				"usuario":      in.usuario,
				"email":        in.emailLogin,
				"senha":        senhaHash,
				"tipo_pessoa":  string(in.tipoPessoa),
				"tipo_cliente": string(domain.ClassCliente),
				"id_contato":   contatoID,
				"id_endereco":  enderecoID,
				"first_login":  true,
			})
			if err != nil {
				return nil, err
			}
			usuarioID = rec.Int64("id_dados")
			return s.deleteByID(tableDadosUsuario, "id_dados", usuarioID), nil
		}),
		saga.Single("cliente", func(ctx context.Context) (saga.CompensateFunc, error) {
			rec, err := s.insert(ctx, tableCliente, map[string]any{
				"id_dados": usuarioID,
				"id_admin": req.IDAdminLogado,
			})
			if err != nil {
				return nil, err
			}
			clienteID = rec.Int64("id_cliente")
			return s.deleteByID(tableCliente, "id_cliente", clienteID), nil
		}),
	)
	if err != nil {
		mapped := s.classifyFailure(domain.ClassCliente, in.tipoPessoa, err)
		return nil, mapped
	}

	if req.DadosCredenciais.EnviarEmailCredenciais {
		// Credential e-mail delivery is handled out of band; record the
		// request so operators can correlate it.
		s.logger.Info("credential e-mail requested",
			zap.String("attempt_id", sg.AttemptID()),
			zap.Int64("usuario_id", usuarioID),
		)
	}

	s.metrics.IncrRegistration(string(domain.ClassCliente), observability.OutcomeCommitted)
	s.logger.Info("client registration committed",
		zap.String("attempt_id", sg.AttemptID()),
		zap.Int64("cliente_id", clienteID),
		zap.Int64("usuario_id", usuarioID),
	)
	return &domain.ClientResult{
		Success:   true,
		ClienteID: clienteID,
		UsuarioID: usuarioID,
		Email:     in.emailLogin,
	}, nil
}

// RegisterAdmin creates a provider-authenticated admin account. The provider
// sign-up is the first saga step so a later store failure deletes the
// orphaned account; after commit the provider metadata is patched with the
// created row ids on a best-effort basis.
func (s *RegistrationService) RegisterAdmin(ctx context.Context, req *domain.AdminRegistration) (*domain.AdminResult, error) {
	in, err := normalizeAdmin(req)
	if err != nil {
		s.metrics.IncrRegistration(string(domain.ClassAdmin), observability.OutcomeInvalid)
		return nil, err
	}

	if err := s.checkAdminDuplicates(ctx, in); err != nil {
		s.classifyOutcome(domain.ClassAdmin, err)
		return nil, err
	}

	sg := saga.New(s.metrics, s.logger)
	var (
		account    *port.IdentityAccount
		contatoID  int64
		enderecoID int64
		dadosID    int64
		adminID    int64
	)

	signupMetadata := map[string]any{
		"tipo_cliente": string(domain.ClassAdmin),
		"razao_nome":   in.razaoSocial,
		"cpf_cnpj":     in.cnpj,
		"area_atuacao": in.areaAtuacao,
	}

	err = sg.Execute(ctx,
		saga.Single("provider_account", func(ctx context.Context) (saga.CompensateFunc, error) {
			acc, err := s.provider.CreateAccount(ctx, in.email, in.senha, signupMetadata)
			if err != nil {
				s.metrics.IncrExternalError("identity_provider")
				return nil, err
			}
			account = acc
			return func(ctx context.Context) error {
				return s.provider.DeleteAccount(ctx, acc.ID)
			}, nil
		}),
		saga.Parallel("contato+endereco",
			saga.Step{Label: "contato", Do: func(ctx context.Context) (saga.CompensateFunc, error) {
				rec, err := s.insert(ctx, tableContato, map[string]any{
					"email":         in.email,
					"celular":       in.celular,
					"telefone":      nullable(in.telefone),
					"redes_sociais": in.redesSociais,
				})
				if err != nil {
					return nil, err
				}
				contatoID = rec.Int64("id_contato")
				return s.deleteByID(tableContato, "id_contato", contatoID), nil
			}},
			saga.Step{Label: "endereco", Do: func(ctx context.Context) (saga.CompensateFunc, error) {
				rec, err := s.insert(ctx, tableEndereco, map[string]any{
					"cep":         in.cep,
					"rua":         in.rua,
					"numero":      in.numero,
					"complemento": nullable(in.complemento),
					"bairro":      in.bairro,
					"cidade":      in.cidade,
					"estado":      in.estado,
				})
				if err != nil {
					return nil, err
				}
				enderecoID = rec.Int64("id_endereco")
				return s.deleteByID(tableEndereco, "id_endereco", enderecoID), nil
			}},
		),
		saga.Single("dados_usuario", func(ctx context.Context) (saga.CompensateFunc, error) {
			rec, err := s.insert(ctx, tableDadosUsuario, map[string]any{
				"razao_nome":   in.razaoSocial,
				"cpf_cnpj":     in.cnpj,
				"usuario":      in.usuario,
				"email":        in.email,
				"tipo_pessoa":  string(domain.PersonJuridica),
				"tipo_cliente": string(domain.ClassAdmin),
				"id_contato":   contatoID,
				"id_endereco":  enderecoID,
				"first_login":  true,
				"auth_user_id": account.ID,
			})
			if err != nil {
				return nil, err
			}
			dadosID = rec.Int64("id_dados")
			return s.deleteByID(tableDadosUsuario, "id_dados", dadosID), nil
		}),
		saga.Single("admin", func(ctx context.Context) (saga.CompensateFunc, error) {
			rec, err := s.insert(ctx, tableAdmin, map[string]any{
				"id_dados": dadosID,
			})
			if err != nil {
				return nil, err
			}
			adminID = rec.Int64("id")
			return s.deleteByID(tableAdmin, "id", adminID), nil
		}),
	)
	if err != nil {
		mapped := s.classifyFailure(domain.ClassAdmin, domain.PersonJuridica, err)
		return nil, mapped
	}

	// The row ids only exist after the saga commits, so they cannot ride on
	// the sign-up call. A failed patch must not undo a committed
	// registration; it is reported via MetadataSynced instead.
	synced := true
	patchErr := s.provider.UpdateAccountMetadata(ctx, account.ID, map[string]any{
		"tipo_cliente": string(domain.ClassAdmin),
		"razao_nome":   in.razaoSocial,
		"cpf_cnpj":     in.cnpj,
		"id_contato":   contatoID,
		"id_endereco":  enderecoID,
		"id_dados":     dadosID,
		"id_admin":     adminID,
		"area_atuacao": in.areaAtuacao,
	})
	if patchErr != nil {
		synced = false
		s.metrics.IncrExternalError("identity_provider")
		s.logger.Warn("admin metadata patch failed",
			zap.String("attempt_id", sg.AttemptID()),
			zap.String("account_id", account.ID),
			zap.Error(patchErr),
		)
	}

	s.adminCache.Delete(adminCacheKey(adminID))

	s.metrics.IncrRegistration(string(domain.ClassAdmin), observability.OutcomeCommitted)
	s.logger.Info("admin registration committed",
		zap.String("attempt_id", sg.AttemptID()),
		zap.Int64("admin_id", adminID),
		zap.String("account_id", account.ID),
	)
	return &domain.AdminResult{
		Success: true,
		Message: "Cadastro realizado com sucesso!",
		Data: domain.AdminResultData{
			UserID:         account.ID,
			AdminID:        adminID,
			DadosUsuarioID: dadosID,
			Email:          in.email,
		},
		NeedsConfirmation: account.NeedsConfirmation,
		MetadataSynced:    synced,
	}, nil
}

// Metrics returns the aggregated registration counters for the
// operational endpoint.
func (s *RegistrationService) Metrics() *domain.RegistrationMetrics {
	return s.metrics.GetRegistrationSnapshot()
}

// checkClientDuplicates runs the pre-write lookups concurrently. They are an
// optimization for a clear error message; the unique constraints remain the
// source of truth under races.
func (s *RegistrationService) checkClientDuplicates(ctx context.Context, in *clientInput) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rec, err := s.store.SelectOne(gCtx, tableContato, port.Filter{"email": in.emailContato}, "id_contato")
		if err != nil {
			return &domain.ErrWrite{Table: tableContato, Err: err}
		}
		if rec != nil {
			return &domain.ErrDuplicate{Field: "email", Message: "Este email já está cadastrado"}
		}
		return nil
	})
	g.Go(func() error {
		rec, err := s.store.SelectOne(gCtx, tableDadosUsuario, port.Filter{"cpf_cnpj": in.cpfCnpj}, "id_dados")
		if err != nil {
			return &domain.ErrWrite{Table: tableDadosUsuario, Err: err}
		}
		if rec != nil {
			return &domain.ErrDuplicate{Field: "cpf_cnpj", Message: duplicateDocMessage(in.tipoPessoa)}
		}
		return nil
	})
	return g.Wait()
}

// checkAdminDuplicates mirrors the client contato check plus the linked-only
// rule: a dados_usuario row with the same e-mail or CNPJ only blocks the
// registration when it is already linked to a provider account. An unlinked
// row may belong to a half-finished sign-up and gets resolved by the unique
// constraints at write time.
func (s *RegistrationService) checkAdminDuplicates(ctx context.Context, in *adminInput) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rec, err := s.store.SelectOne(gCtx, tableContato, port.Filter{"email": in.email}, "id_contato")
		if err != nil {
			return &domain.ErrWrite{Table: tableContato, Err: err}
		}
		if rec != nil {
			return &domain.ErrDuplicate{Field: "email", Message: "Este email já está cadastrado"}
		}
		return nil
	})
	g.Go(func() error {
		rec, err := s.store.SelectOne(gCtx, tableDadosUsuario, port.Filter{"cpf_cnpj": in.cnpj}, "id_dados", "auth_user_id")
		if err != nil {
			return &domain.ErrWrite{Table: tableDadosUsuario, Err: err}
		}
		if rec != nil && rec.String("auth_user_id") != "" {
			return &domain.ErrDuplicate{Field: "cpf_cnpj", Message: "Este CNPJ já está cadastrado"}
		}
		return nil
	})
	g.Go(func() error {
		rec, err := s.store.SelectOne(gCtx, tableDadosUsuario, port.Filter{"email": in.email}, "id_dados", "auth_user_id")
		if err != nil {
			return &domain.ErrWrite{Table: tableDadosUsuario, Err: err}
		}
		if rec != nil && rec.String("auth_user_id") != "" {
			return &domain.ErrDuplicate{Field: "email", Message: "Este email já está cadastrado"}
		}
		return nil
	})
	return g.Wait()
}

// ensureAdminExists validates the responsible admin before any write. The
// lookup is cached: admins are created rarely and never deleted mid-flight.
func (s *RegistrationService) ensureAdminExists(ctx context.Context, idAdmin int64) error {
	if idAdmin <= 0 {
		return &domain.ErrValidation{Field: "idAdminLogado", Message: "Admin responsável é obrigatório"}
	}

	key := adminCacheKey(idAdmin)
	if exists, ok := s.adminCache.Get(key); ok {
		s.metrics.IncrCacheHit("admin")
		if exists {
			return nil
		}
		return &domain.ErrValidation{Field: "idAdminLogado", Message: "Admin responsável não encontrado"}
	}
	s.metrics.IncrCacheMiss("admin")

	rec, err := s.store.SelectOne(ctx, tableAdmin, port.Filter{"id": strconv.FormatInt(idAdmin, 10)}, "id")
	if err != nil {
		return &domain.ErrWrite{Table: tableAdmin, Err: err}
	}
	s.adminCache.Set(key, rec != nil)
	if rec == nil {
		return &domain.ErrValidation{Field: "idAdminLogado", Message: "Admin responsável não encontrado"}
	}
	return nil
}

func (s *RegistrationService) insert(ctx context.Context, table string, fields map[string]any) (port.Record, error) {
	rec, err := s.store.Insert(ctx, table, fields)
	if err != nil {
		var uv *domain.ErrUniqueViolation
		if errors.As(err, &uv) {
			return nil, err
		}
		return nil, &domain.ErrWrite{Table: table, Err: err}
	}
	return rec, nil
}

func (s *RegistrationService) deleteByID(table, column string, id int64) saga.CompensateFunc {
	return func(ctx context.Context) error {
		return s.store.Delete(ctx, table, port.Filter{column: strconv.FormatInt(id, 10)})
	}
}

// classifyFailure converts a saga error into the API taxonomy after
// compensation already ran: a uniqueness violation lost a race with a
// concurrent registration and reads as a duplicate, a provider
// already-registered error likewise.
func (s *RegistrationService) classifyFailure(class domain.AccountClass, tipo domain.PersonType, err error) error {
	var uv *domain.ErrUniqueViolation
	if errors.As(err, &uv) {
		s.metrics.IncrRegistration(string(class), observability.OutcomeDuplicate)
		if strings.Contains(uv.Detail, "cpf_cnpj") {
			return &domain.ErrDuplicate{Field: "cpf_cnpj", Message: duplicateDocMessage(tipo)}
		}
		return &domain.ErrDuplicate{Field: "email", Message: "Este email já está cadastrado"}
	}

	var pe *domain.ErrProvider
	if errors.As(err, &pe) && pe.AlreadyRegistered {
		s.metrics.IncrRegistration(string(class), observability.OutcomeDuplicate)
		return &domain.ErrDuplicate{Field: "email", Message: "Este email já está cadastrado"}
	}

	s.metrics.IncrRegistration(string(class), observability.OutcomeFailed)
	return err
}

// classifyOutcome records the metric outcome for pre-saga failures.
func (s *RegistrationService) classifyOutcome(class domain.AccountClass, err error) {
	var dup *domain.ErrDuplicate
	var val *domain.ErrValidation
	switch {
	case errors.As(err, &dup):
		s.metrics.IncrRegistration(string(class), observability.OutcomeDuplicate)
	case errors.As(err, &val):
		s.metrics.IncrRegistration(string(class), observability.OutcomeInvalid)
	default:
		s.metrics.IncrRegistration(string(class), observability.OutcomeFailed)
	}
}

func adminCacheKey(id int64) string {
	return "admin:" + strconv.FormatInt(id, 10)
}

func duplicateDocMessage(tipo domain.PersonType) string {
	if tipo == domain.PersonJuridica {
		return "Este CNPJ já está cadastrado"
	}
	return "Este CPF já está cadastrado"
}
