package domain

import (
	"context"
	"net/http"
	"time"
)

type PromocaoRepository interface {
	FindByID(ctx context.Context, id PromocaoID) (Promocao, error)
	ListEncerradas(ctx context.Context, limite int) ([]Promocao, error)
	ListSorteando(ctx context.Context) ([]Promocao, error)
}

type ParticipanteRepository interface {
	ListDisponiveis(ctx context.Context, promocaoID PromocaoID) ([]Participante, error)
}

type GanhadorRepository interface {
	ListByPromocao(ctx context.Context, promocaoID PromocaoID) ([]GanhadorDetalhe, error)
	Cancelar(ctx context.Context, id GanhadorID, em time.Time, auditoria AuditLog) (Ganhador, error)
	Estatisticas(ctx context.Context) (Estatisticas, error)
}

type UsuarioRepository interface {
	FindByID(ctx context.Context, id UsuarioID) (Usuario, error)
}

// SorteioStore abre a transação do sorteio e oferece a limpeza fora dela.
// O callback roda dentro de BEGIN/COMMIT; qualquer erro devolvido provoca ROLLBACK.
type SorteioStore interface {
	ExecutarEmTransacao(ctx context.Context, fn func(tx SorteioTx) error) error
	LimparSorteando(ctx context.Context, id PromocaoID) error
}

type SorteioTx interface {
	// BloquearPromocao falha com ErrLockContention em vez de esperar o lock.
	BloquearPromocao(ctx context.Context, id PromocaoID) (Promocao, error)
	MarcarSorteando(ctx context.Context, id PromocaoID) error
	ParticipantesElegiveis(ctx context.Context, id PromocaoID) ([]Participante, error)
	RegistrarGanhador(ctx context.Context, g *Ganhador) error
	EncerrarPromocao(ctx context.Context, id PromocaoID) error
	RegistrarAuditoria(ctx context.Context, a AuditLog) error
}

type Contador interface {
	Incrementar(ctx context.Context, chave string, delta int64) (int64, error)
	Obter(ctx context.Context, chave string) (int64, error)
	ObterTodos(ctx context.Context, chaves []string) (map[string]int64, error)
}

type Fila interface {
	PublicarSorteio(ctx context.Context, evento EventoSorteio) error
	ConsumirSorteios(ctx context.Context, handler func(context.Context, EventoSorteio) error) error
}

// LimitadorSorteio controla a frequência de pedidos de sorteio por chave.
type LimitadorSorteio interface {
	Permitir(ctx context.Context, chave string) error
}

type Autenticador interface {
	Autenticar(ctx context.Context, r *http.Request) (Principal, error)
}

type Clock interface {
	Agora() time.Time
}

// Aleatorio é a fonte de sorteio; *rand.Rand de math/rand/v2 satisfaz.
type Aleatorio interface {
	IntN(n int) int
}

type SorteioService interface {
	Sortear(ctx context.Context, pedido PedidoSorteio) (ResultadoSorteio, error)
	ListarGanhadores(ctx context.Context, promocaoID PromocaoID) ([]GanhadorDetalhe, error)
	ParticipantesDisponiveis(ctx context.Context, promocaoID PromocaoID) ([]Participante, error)
	ListarEncerradas(ctx context.Context, limite int) ([]PromocaoEncerrada, error)
	CancelarGanhador(ctx context.Context, id GanhadorID, principal Principal, origemIP string) (Ganhador, error)
	Estatisticas(ctx context.Context) (Estatisticas, error)
	ListarTravadas(ctx context.Context, principal Principal) ([]Promocao, error)
}

type PedidoSorteio struct {
	PromocaoID PromocaoID
	Principal  Principal
	OrigemIP   string
}
