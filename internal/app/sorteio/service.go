// Pacote sorteio implementa o motor de sorteio de promoções e as consultas de ganhadores.
package sorteio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strconv"
	"time"

	"gorm.io/datatypes"

	"github.com/marcelojr/sorteios-tv/internal/domain"
	"github.com/marcelojr/sorteios-tv/internal/platform/clock"
	"github.com/marcelojr/sorteios-tv/internal/platform/ids"
	"github.com/marcelojr/sorteios-tv/internal/platform/metrics"
)

const limiteMaximoEncerradas = 50

type Config struct {
	// RolesSorteio lista quem pode disparar sorteio; vazio vale só admin.
	RolesSorteio     []string
	LimpezaTimeout   time.Duration
	EncerradasLimite int
}

// Deps agrupa os colaboradores. Limitador, Contador e Fila são opcionais.
type Deps struct {
	Promocoes     domain.PromocaoRepository
	Participantes domain.ParticipanteRepository
	Ganhadores    domain.GanhadorRepository
	Store         domain.SorteioStore
	Limitador     domain.LimitadorSorteio
	Contador      domain.Contador
	Fila          domain.Fila
	Clock         domain.Clock
	Aleatorio     domain.Aleatorio
	IDs           *ids.Generator
	Logger        *slog.Logger
}

type Service struct {
	promocoes     domain.PromocaoRepository
	participantes domain.ParticipanteRepository
	ganhadores    domain.GanhadorRepository
	store         domain.SorteioStore
	limitador     domain.LimitadorSorteio
	contador      domain.Contador
	fila          domain.Fila
	clock         domain.Clock
	aleatorio     domain.Aleatorio
	ids           *ids.Generator
	log           *slog.Logger
	cfg           Config
}

func NewService(deps Deps, cfg Config) *Service {
	if deps.IDs == nil {
		deps.IDs = ids.DefaultGenerator()
	}
	if deps.Clock == nil {
		deps.Clock = clock.NewSystemClock()
	}
	if deps.Aleatorio == nil {
		deps.Aleatorio = aleatorioGlobal{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if len(cfg.RolesSorteio) == 0 {
		cfg.RolesSorteio = []string{domain.RoleAdmin}
	}
	if cfg.LimpezaTimeout <= 0 {
		cfg.LimpezaTimeout = 3 * time.Second
	}
	if cfg.EncerradasLimite <= 0 {
		cfg.EncerradasLimite = 5
	}
	return &Service{
		promocoes:     deps.Promocoes,
		participantes: deps.Participantes,
		ganhadores:    deps.Ganhadores,
		store:         deps.Store,
		limitador:     deps.Limitador,
		contador:      deps.Contador,
		fila:          deps.Fila,
		clock:         deps.Clock,
		aleatorio:     deps.Aleatorio,
		ids:           deps.IDs,
		log:           deps.Logger,
		cfg:           cfg,
	}
}

// aleatorioGlobal usa o gerador de math/rand/v2, seguro entre goroutines.
type aleatorioGlobal struct{}

func (aleatorioGlobal) IntN(n int) int {
	return rand.IntN(n)
}

// Sortear executa o sorteio completo de uma promoção. O estado só muda se a
// transação inteira confirmar; em qualquer falha depois de a promoção ser
// encontrada a flag is_drawing é limpa fora da transação.
func (s *Service) Sortear(ctx context.Context, pedido domain.PedidoSorteio) (domain.ResultadoSorteio, error) {
	inicio := time.Now()
	resultado, err := s.sortear(ctx, pedido)
	metrics.ObserveSorteio(statusMetrica(err), time.Since(inicio).Seconds())
	return resultado, err
}

func (s *Service) sortear(ctx context.Context, pedido domain.PedidoSorteio) (domain.ResultadoSorteio, error) {
	if pedido.PromocaoID == 0 {
		return domain.ResultadoSorteio{}, ErrPromocaoInvalida
	}
	if !slices.Contains(s.cfg.RolesSorteio, pedido.Principal.Role) {
		s.log.Warn("sorteio negado por role", "usuario_id", pedido.Principal.ID, "role", pedido.Principal.Role)
		return domain.ResultadoSorteio{}, ErrNaoAutorizado
	}
	if err := s.verificarLimite(ctx, pedido); err != nil {
		return domain.ResultadoSorteio{}, err
	}

	promocao, err := s.promocoes.FindByID(ctx, pedido.PromocaoID)
	if err != nil {
		return domain.ResultadoSorteio{}, s.traduzirErro(pedido.PromocaoID, err)
	}

	resultado, err := s.executar(ctx, pedido, promocao)
	if err != nil {
		s.limparSorteando(ctx, pedido.PromocaoID, err)
		return domain.ResultadoSorteio{}, s.traduzirErro(pedido.PromocaoID, err)
	}

	s.aposCommit(ctx, pedido, resultado)
	return resultado, nil
}

// executar checa o estado otimista e roda a transação sob lock.
func (s *Service) executar(ctx context.Context, pedido domain.PedidoSorteio, otimista domain.Promocao) (domain.ResultadoSorteio, error) {
	if err := checarEstado(otimista); err != nil {
		return domain.ResultadoSorteio{}, err
	}

	var resultado domain.ResultadoSorteio
	err := s.store.ExecutarEmTransacao(ctx, func(tx domain.SorteioTx) error {
		var err error
		resultado, err = s.sortearNaTransacao(ctx, tx, pedido)
		return err
	})
	return resultado, err
}

func (s *Service) sortearNaTransacao(ctx context.Context, tx domain.SorteioTx, pedido domain.PedidoSorteio) (domain.ResultadoSorteio, error) {
	promocao, err := tx.BloquearPromocao(ctx, pedido.PromocaoID)
	if err != nil {
		return domain.ResultadoSorteio{}, err
	}
	// Revalida sob o lock: outro sorteio pode ter fechado a promoção entre a leitura e o lock.
	if err := checarEstado(promocao); err != nil {
		return domain.ResultadoSorteio{}, err
	}

	if err := tx.MarcarSorteando(ctx, promocao.ID); err != nil {
		return domain.ResultadoSorteio{}, err
	}

	elegiveis, err := tx.ParticipantesElegiveis(ctx, promocao.ID)
	if err != nil {
		return domain.ResultadoSorteio{}, err
	}

	necessarios := max(promocao.NumeroGanhadores, 1)
	if len(elegiveis) < necessarios {
		return domain.ResultadoSorteio{}, &ParticipantesInsuficientesError{
			Disponiveis: len(elegiveis),
			Necessarios: necessarios,
		}
	}

	sorteioID := s.ids.Sorteio()
	agora := s.clock.Agora()
	escolhidos := sortearGanhadores(elegiveis, necessarios, s.aleatorio)

	ganhadores := make([]domain.GanhadorSorteado, 0, len(escolhidos))
	for i, p := range escolhidos {
		g := &domain.Ganhador{
			SorteioID:      sorteioID,
			PromocaoID:     promocao.ID,
			ParticipanteID: p.ID,
			Posicao:        i + 1,
			Premio:         Premio(i + 1),
			SorteadoEm:     agora,
			SorteadoPor:    pedido.Principal.ID,
		}
		if err := tx.RegistrarGanhador(ctx, g); err != nil {
			return domain.ResultadoSorteio{}, err
		}
		ganhadores = append(ganhadores, domain.GanhadorSorteado{
			GanhadorID:     g.ID,
			ParticipanteID: p.ID,
			Nome:           p.Nome,
			Telefone:       p.Telefone,
			Bairro:         p.Bairro,
			Posicao:        g.Posicao,
			Premio:         g.Premio,
		})
	}

	if err := tx.EncerrarPromocao(ctx, promocao.ID); err != nil {
		return domain.ResultadoSorteio{}, err
	}

	auditoria, err := s.auditoriaSorteio(sorteioID, promocao, ganhadores, pedido, agora)
	if err != nil {
		return domain.ResultadoSorteio{}, err
	}
	if err := tx.RegistrarAuditoria(ctx, auditoria); err != nil {
		return domain.ResultadoSorteio{}, err
	}

	return domain.ResultadoSorteio{
		SorteioID:  sorteioID,
		PromocaoID: promocao.ID,
		Ganhadores: ganhadores,
		SorteadoEm: agora,
	}, nil
}

// checarEstado aplica as pré-condições na ordem: em andamento, depois encerrada.
func checarEstado(p domain.Promocao) error {
	if p.Sorteando {
		return ErrSorteioEmAndamento
	}
	if p.Status == domain.StatusEncerrada {
		return ErrPromocaoEncerrada
	}
	return nil
}

type ganhadorAuditado struct {
	ID   domain.ParticipanteID `json:"id"`
	Nome string                `json:"nome"`
}

type payloadSorteio struct {
	SorteioID  domain.SorteioID   `json:"sorteio_id"`
	Promocao   string             `json:"promocao"`
	Ganhadores []ganhadorAuditado `json:"ganhadores"`
	Quantidade int                `json:"quantidade"`
}

func (s *Service) auditoriaSorteio(sorteioID domain.SorteioID, p domain.Promocao, ganhadores []domain.GanhadorSorteado, pedido domain.PedidoSorteio, agora time.Time) (domain.AuditLog, error) {
	payload := payloadSorteio{
		SorteioID:  sorteioID,
		Promocao:   p.Nome,
		Ganhadores: make([]ganhadorAuditado, len(ganhadores)),
		Quantidade: len(ganhadores),
	}
	for i, g := range ganhadores {
		payload.Ganhadores[i] = ganhadorAuditado{ID: g.ParticipanteID, Nome: g.Nome}
	}
	dados, err := json.Marshal(payload)
	if err != nil {
		return domain.AuditLog{}, fmt.Errorf("sorteio: serializar auditoria: %w", err)
	}
	return domain.AuditLog{
		EventoID:        s.ids.Evento(),
		UsuarioID:       pedido.Principal.ID,
		Acao:            domain.AcaoSorteioRealizado,
		Tabela:          "promocoes",
		RegistroID:      uint(p.ID),
		DadosAdicionais: datatypes.JSON(dados),
		IP:              pedido.OrigemIP,
		CriadoEm:        agora,
	}, nil
}

// verificarLimite deixa passar quando o limitador falha; só o estouro bloqueia.
func (s *Service) verificarLimite(ctx context.Context, pedido domain.PedidoSorteio) error {
	if s.limitador == nil {
		return nil
	}
	// Só o principal verificado entra na chave; o IP vem de header controlado pelo cliente.
	chave := strconv.FormatUint(uint64(pedido.Principal.ID), 10)
	err := s.limitador.Permitir(ctx, chave)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrLimiteExcedido):
		s.log.Warn("limite de sorteios excedido", "usuario_id", pedido.Principal.ID, "ip", pedido.OrigemIP)
		return fmt.Errorf("%w: %w", ErrLimiteSorteios, err)
	default:
		s.log.Warn("limitador indisponivel, seguindo sem limite", "erro", err)
		return nil
	}
}

// limparSorteando roda fora da transação, com prazo próprio e sem herdar o
// cancelamento da requisição. Falha aqui só gera log e métrica.
func (s *Service) limparSorteando(ctx context.Context, id domain.PromocaoID, causa error) {
	ctxLimpeza, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.LimpezaTimeout)
	defer cancel()

	err := s.store.LimparSorteando(ctxLimpeza, id)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrLockContention):
		// Quem segura o lock é dono da flag e a desliga ao terminar.
		s.log.Info("limpeza de is_drawing ignorada, promocao bloqueada por outro sorteio",
			"promocao_id", id,
			"causa", causa,
		)
	default:
		metrics.IncLimpezaFalha()
		s.log.Error("falha ao limpar is_drawing apos sorteio com erro",
			"promocao_id", id,
			"erro", err,
			"causa", causa,
		)
	}
}

func (s *Service) aposCommit(ctx context.Context, pedido domain.PedidoSorteio, r domain.ResultadoSorteio) {
	metrics.AddGanhadores(len(r.Ganhadores))
	s.log.Info("sorteio realizado",
		"sorteio_id", r.SorteioID,
		"promocao_id", r.PromocaoID,
		"ganhadores", len(r.Ganhadores),
		"usuario_id", pedido.Principal.ID,
	)

	evento := domain.EventoSorteio{
		SorteioID:       r.SorteioID,
		PromocaoID:      r.PromocaoID,
		TotalGanhadores: len(r.Ganhadores),
		SorteadoPor:     pedido.Principal.ID,
		SorteadoEm:      r.SorteadoEm,
	}

	if s.fila != nil {
		err := s.fila.PublicarSorteio(ctx, evento)
		if err == nil {
			return
		}
		s.log.Warn("falha ao publicar evento de sorteio, atualizando contadores direto", "sorteio_id", r.SorteioID, "erro", err)
	}
	if s.contador != nil {
		if err := AtualizarContadores(ctx, s.contador, evento); err != nil {
			s.log.Warn("falha ao atualizar contadores", "sorteio_id", r.SorteioID, "erro", err)
		}
	}
}

// traduzirErro mantém erros de negócio e esconde o resto atrás de ErrFalhaInterna.
func (s *Service) traduzirErro(id domain.PromocaoID, err error) error {
	switch {
	case erroDeNegocio(err):
		return err
	case errors.Is(err, domain.ErrLockContention):
		return fmt.Errorf("%w: %w", ErrLockOcupado, err)
	case errors.Is(err, domain.ErrNotFound):
		return ErrPromocaoNaoEncontrada
	}
	s.log.Error("falha interna no sorteio", "promocao_id", id, "erro", err)
	return fmt.Errorf("%w: %w", ErrFalhaInterna, err)
}

func statusMetrica(err error) string {
	switch {
	case err == nil:
		return "sucesso"
	case errors.Is(err, ErrLockOcupado), errors.Is(err, ErrSorteioEmAndamento):
		return "conflito"
	case errors.Is(err, ErrFalhaInterna):
		return "erro"
	default:
		return "rejeitado"
	}
}

func (s *Service) ListarGanhadores(ctx context.Context, promocaoID domain.PromocaoID) ([]domain.GanhadorDetalhe, error) {
	if err := s.garantirPromocao(ctx, promocaoID); err != nil {
		return nil, err
	}
	return s.ganhadores.ListByPromocao(ctx, promocaoID)
}

// ParticipantesDisponiveis usa a mesma regra de elegibilidade do sorteio, sem lock.
func (s *Service) ParticipantesDisponiveis(ctx context.Context, promocaoID domain.PromocaoID) ([]domain.Participante, error) {
	if err := s.garantirPromocao(ctx, promocaoID); err != nil {
		return nil, err
	}
	return s.participantes.ListDisponiveis(ctx, promocaoID)
}

func (s *Service) garantirPromocao(ctx context.Context, id domain.PromocaoID) error {
	if id == 0 {
		return ErrPromocaoInvalida
	}
	if _, err := s.promocoes.FindByID(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrPromocaoNaoEncontrada
		}
		return err
	}
	return nil
}

func (s *Service) ListarEncerradas(ctx context.Context, limite int) ([]domain.PromocaoEncerrada, error) {
	if limite <= 0 {
		limite = s.cfg.EncerradasLimite
	}
	limite = min(limite, limiteMaximoEncerradas)

	promocoes, err := s.promocoes.ListEncerradas(ctx, limite)
	if err != nil {
		return nil, err
	}

	result := make([]domain.PromocaoEncerrada, len(promocoes))
	for i, p := range promocoes {
		ganhadores, err := s.ganhadores.ListByPromocao(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		result[i] = domain.PromocaoEncerrada{
			ID:               p.ID,
			Nome:             p.Nome,
			Slug:             p.Slug,
			DataInicio:       p.DataInicio,
			DataFim:          p.DataFim,
			NumeroGanhadores: p.NumeroGanhadores,
			Ganhadores:       ganhadores,
		}
	}
	return result, nil
}

// CancelarGanhador não reabre a promoção; o participante volta a ser elegível
// apenas se a promoção for reaberta por fora.
func (s *Service) CancelarGanhador(ctx context.Context, id domain.GanhadorID, principal domain.Principal, origemIP string) (domain.Ganhador, error) {
	if principal.Role != domain.RoleAdmin {
		return domain.Ganhador{}, ErrNaoAutorizado
	}
	if id == 0 {
		return domain.Ganhador{}, ErrGanhadorNaoEncontrado
	}

	agora := s.clock.Agora()
	dados, err := json.Marshal(map[string]any{"ganhador_id": id, "cancelado_por": principal.Usuario})
	if err != nil {
		return domain.Ganhador{}, fmt.Errorf("sorteio: serializar auditoria: %w", err)
	}
	auditoria := domain.AuditLog{
		EventoID:        s.ids.Evento(),
		UsuarioID:       principal.ID,
		Acao:            domain.AcaoGanhadorCancelado,
		Tabela:          "ganhadores",
		RegistroID:      uint(id),
		DadosAdicionais: datatypes.JSON(dados),
		IP:              origemIP,
		CriadoEm:        agora,
	}

	ganhador, err := s.ganhadores.Cancelar(ctx, id, agora, auditoria)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Ganhador{}, ErrGanhadorNaoEncontrado
		}
		return domain.Ganhador{}, err
	}

	if s.contador != nil {
		if _, err := s.contador.Incrementar(ctx, domain.ChaveTotalGanhadores, -1); err != nil {
			s.log.Warn("falha ao descontar ganhador cancelado", "ganhador_id", id, "erro", err)
		}
	}
	s.log.Info("ganhador cancelado", "ganhador_id", id, "promocao_id", ganhador.PromocaoID, "usuario_id", principal.ID)
	return ganhador, nil
}

// Estatisticas prefere os contadores do Redis e cai para o banco se eles falharem.
func (s *Service) Estatisticas(ctx context.Context) (domain.Estatisticas, error) {
	if s.contador != nil {
		totais, err := s.contador.ObterTodos(ctx, domain.ChavesEstatisticas)
		if err == nil {
			return domain.Estatisticas{
				TotalSorteios:       totais[domain.ChaveTotalSorteios],
				TotalGanhadores:     totais[domain.ChaveTotalGanhadores],
				PromocoesComSorteio: totais[domain.ChavePromocoesComSorteio],
			}, nil
		}
		s.log.Warn("contadores indisponiveis, lendo do banco", "erro", err)
	}
	return s.ganhadores.Estatisticas(ctx)
}

// ListarTravadas mostra promoções com is_drawing ligado fora de um sorteio.
func (s *Service) ListarTravadas(ctx context.Context, principal domain.Principal) ([]domain.Promocao, error) {
	if principal.Role != domain.RoleAdmin {
		return nil, ErrNaoAutorizado
	}
	return s.promocoes.ListSorteando(ctx)
}

var _ domain.SorteioService = (*Service)(nil)
