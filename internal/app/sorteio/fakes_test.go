package sorteio

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/marcelojr/sorteios-tv/internal/domain"
	"github.com/marcelojr/sorteios-tv/internal/platform/clock"
	"github.com/marcelojr/sorteios-tv/internal/platform/ids"
)

// bancoMemoria imita o contrato do Postgres: lock de linha sem espera e
// transação com desfazer. Escritas não confirmadas ficam visíveis a leituras
// concorrentes, o que é mais fraco que READ COMMITTED e suficiente aqui.
type bancoMemoria struct {
	mu            sync.Mutex
	promocoes     map[domain.PromocaoID]domain.Promocao
	participantes []domain.Participante
	ganhadores    []domain.Ganhador
	auditorias    []domain.AuditLog
	locks         map[domain.PromocaoID]bool
	proximoID     domain.GanhadorID

	falhas       map[string]error
	erroLimpeza  error
	limpezas     []domain.PromocaoID
	transacoes   int
	atrasoNoLock time.Duration
}

func novoBanco() *bancoMemoria {
	return &bancoMemoria{
		promocoes: make(map[domain.PromocaoID]domain.Promocao),
		locks:     make(map[domain.PromocaoID]bool),
		falhas:    make(map[string]error),
	}
}

func (b *bancoMemoria) addPromocao(p domain.Promocao) domain.Promocao {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p.ID == 0 {
		p.ID = domain.PromocaoID(len(b.promocoes) + 1)
	}
	if p.Status == "" {
		p.Status = domain.StatusAtiva
	}
	b.promocoes[p.ID] = p
	return p
}

func (b *bancoMemoria) addParticipantes(promocaoID domain.PromocaoID, nomes ...string) []domain.Participante {
	b.mu.Lock()
	defer b.mu.Unlock()
	criados := make([]domain.Participante, 0, len(nomes))
	for _, nome := range nomes {
		p := domain.Participante{
			ID:         domain.ParticipanteID(len(b.participantes) + 1),
			PromocaoID: promocaoID,
			Nome:       nome,
			Telefone:   "69 9" + nome,
			Bairro:     "Centro",
		}
		b.participantes = append(b.participantes, p)
		criados = append(criados, p)
	}
	return criados
}

func (b *bancoMemoria) addGanhador(g domain.Ganhador) domain.Ganhador {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.proximoID++
	g.ID = b.proximoID
	b.ganhadores = append(b.ganhadores, g)
	return g
}

func (b *bancoMemoria) promocao(id domain.PromocaoID) domain.Promocao {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.promocoes[id]
}

func (b *bancoMemoria) ganhadoresDe(id domain.PromocaoID) []domain.Ganhador {
	b.mu.Lock()
	defer b.mu.Unlock()
	var result []domain.Ganhador
	for _, g := range b.ganhadores {
		if g.PromocaoID == id {
			result = append(result, g)
		}
	}
	return result
}

func (b *bancoMemoria) totalAuditorias() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.auditorias)
}

func (b *bancoMemoria) elegiveis(id domain.PromocaoID) []domain.Participante {
	var result []domain.Participante
	for _, p := range b.participantes {
		if p.PromocaoID != id || p.DeletedAt.Valid {
			continue
		}
		jaGanhou := slices.ContainsFunc(b.ganhadores, func(g domain.Ganhador) bool {
			return g.PromocaoID == id && g.ParticipanteID == p.ID && !g.Cancelado
		})
		if !jaGanhou {
			result = append(result, p)
		}
	}
	return result
}

// PromocaoRepository

func (b *bancoMemoria) FindByID(_ context.Context, id domain.PromocaoID) (domain.Promocao, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.falhas["buscar"]; err != nil {
		return domain.Promocao{}, err
	}
	p, ok := b.promocoes[id]
	if !ok {
		return domain.Promocao{}, domain.ErrNotFound
	}
	return p, nil
}

func (b *bancoMemoria) ListEncerradas(_ context.Context, limite int) ([]domain.Promocao, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var result []domain.Promocao
	for _, p := range b.promocoes {
		if p.Status == domain.StatusEncerrada {
			result = append(result, p)
		}
	}
	slices.SortFunc(result, func(a, c domain.Promocao) int { return int(c.ID) - int(a.ID) })
	if len(result) > limite {
		result = result[:limite]
	}
	return result, nil
}

func (b *bancoMemoria) ListSorteando(context.Context) ([]domain.Promocao, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var result []domain.Promocao
	for _, p := range b.promocoes {
		if p.Sorteando {
			result = append(result, p)
		}
	}
	return result, nil
}

// ParticipanteRepository

func (b *bancoMemoria) ListDisponiveis(_ context.Context, id domain.PromocaoID) ([]domain.Participante, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.elegiveis(id), nil
}

// GanhadorRepository

func (b *bancoMemoria) ListByPromocao(_ context.Context, id domain.PromocaoID) ([]domain.GanhadorDetalhe, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var result []domain.GanhadorDetalhe
	for _, g := range b.ganhadores {
		if g.PromocaoID != id || g.Cancelado {
			continue
		}
		result = append(result, domain.GanhadorDetalhe{
			GanhadorID:     g.ID,
			SorteioID:      g.SorteioID,
			PromocaoID:     g.PromocaoID,
			ParticipanteID: g.ParticipanteID,
			Posicao:        g.Posicao,
			Premio:         g.Premio,
		})
	}
	return result, nil
}

func (b *bancoMemoria) Cancelar(_ context.Context, id domain.GanhadorID, em time.Time, auditoria domain.AuditLog) (domain.Ganhador, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, g := range b.ganhadores {
		if g.ID == id && !g.Cancelado {
			b.ganhadores[i].Cancelado = true
			b.ganhadores[i].CanceladoEm = &em
			b.auditorias = append(b.auditorias, auditoria)
			return b.ganhadores[i], nil
		}
	}
	return domain.Ganhador{}, domain.ErrNotFound
}

func (b *bancoMemoria) Estatisticas(context.Context) (domain.Estatisticas, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	lotes := map[domain.SorteioID]bool{}
	promos := map[domain.PromocaoID]bool{}
	var total int64
	var ultimo *time.Time
	for _, g := range b.ganhadores {
		if g.Cancelado {
			continue
		}
		total++
		lotes[g.SorteioID] = true
		promos[g.PromocaoID] = true
		if ultimo == nil || g.SorteadoEm.After(*ultimo) {
			em := g.SorteadoEm
			ultimo = &em
		}
	}
	return domain.Estatisticas{
		TotalSorteios:       int64(len(lotes)),
		TotalGanhadores:     total,
		PromocoesComSorteio: int64(len(promos)),
		UltimoSorteio:       ultimo,
	}, nil
}

// SorteioStore

func (b *bancoMemoria) ExecutarEmTransacao(_ context.Context, fn func(tx domain.SorteioTx) error) error {
	b.mu.Lock()
	b.transacoes++
	b.mu.Unlock()

	tx := &txMemoria{b: b}
	err := fn(tx)
	if err == nil {
		err = b.falha("commit")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		for i := len(tx.desfazer) - 1; i >= 0; i-- {
			tx.desfazer[i]()
		}
	}
	for _, id := range tx.locks {
		delete(b.locks, id)
	}
	return err
}

func (b *bancoMemoria) LimparSorteando(_ context.Context, id domain.PromocaoID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.limpezas = append(b.limpezas, id)
	if b.erroLimpeza != nil {
		return b.erroLimpeza
	}
	if b.locks[id] {
		return domain.ErrLockContention
	}
	p := b.promocoes[id]
	p.Sorteando = false
	b.promocoes[id] = p
	return nil
}

func (b *bancoMemoria) falha(etapa string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.falhas[etapa]
}

type txMemoria struct {
	b        *bancoMemoria
	desfazer []func()
	locks    []domain.PromocaoID
}

func (t *txMemoria) BloquearPromocao(_ context.Context, id domain.PromocaoID) (domain.Promocao, error) {
	t.b.mu.Lock()
	if t.b.locks[id] {
		t.b.mu.Unlock()
		return domain.Promocao{}, domain.ErrLockContention
	}
	p, ok := t.b.promocoes[id]
	if !ok {
		t.b.mu.Unlock()
		return domain.Promocao{}, domain.ErrNotFound
	}
	t.b.locks[id] = true
	t.locks = append(t.locks, id)
	atraso := t.b.atrasoNoLock
	t.b.mu.Unlock()

	if atraso > 0 {
		time.Sleep(atraso)
	}
	return p, nil
}

func (t *txMemoria) alterarPromocao(etapa string, id domain.PromocaoID, mudar func(*domain.Promocao)) error {
	t.b.mu.Lock()
	defer t.b.mu.Unlock()
	if err := t.b.falhas[etapa]; err != nil {
		return err
	}
	anterior := t.b.promocoes[id]
	novo := anterior
	mudar(&novo)
	t.b.promocoes[id] = novo
	t.desfazer = append(t.desfazer, func() { t.b.promocoes[id] = anterior })
	return nil
}

func (t *txMemoria) MarcarSorteando(_ context.Context, id domain.PromocaoID) error {
	return t.alterarPromocao("marcar", id, func(p *domain.Promocao) { p.Sorteando = true })
}

func (t *txMemoria) EncerrarPromocao(_ context.Context, id domain.PromocaoID) error {
	return t.alterarPromocao("encerrar", id, func(p *domain.Promocao) {
		p.Status = domain.StatusEncerrada
		p.Sorteando = false
	})
}

func (t *txMemoria) ParticipantesElegiveis(_ context.Context, id domain.PromocaoID) ([]domain.Participante, error) {
	t.b.mu.Lock()
	defer t.b.mu.Unlock()
	if err := t.b.falhas["elegiveis"]; err != nil {
		return nil, err
	}
	return t.b.elegiveis(id), nil
}

func (t *txMemoria) RegistrarGanhador(_ context.Context, g *domain.Ganhador) error {
	t.b.mu.Lock()
	defer t.b.mu.Unlock()
	if err := t.b.falhas["ganhador"]; err != nil {
		return err
	}
	duplicado := slices.ContainsFunc(t.b.ganhadores, func(o domain.Ganhador) bool {
		return o.PromocaoID == g.PromocaoID && o.ParticipanteID == g.ParticipanteID && !o.Cancelado
	})
	if duplicado {
		return domain.ErrDuplicado
	}
	t.b.proximoID++
	g.ID = t.b.proximoID
	t.b.ganhadores = append(t.b.ganhadores, *g)
	id := g.ID
	t.desfazer = append(t.desfazer, func() {
		t.b.ganhadores = slices.DeleteFunc(t.b.ganhadores, func(o domain.Ganhador) bool { return o.ID == id })
	})
	return nil
}

func (t *txMemoria) RegistrarAuditoria(_ context.Context, a domain.AuditLog) error {
	t.b.mu.Lock()
	defer t.b.mu.Unlock()
	if err := t.b.falhas["auditoria"]; err != nil {
		return err
	}
	t.b.auditorias = append(t.b.auditorias, a)
	t.desfazer = append(t.desfazer, func() {
		t.b.auditorias = slices.DeleteFunc(t.b.auditorias, func(o domain.AuditLog) bool { return o.EventoID == a.EventoID })
	})
	return nil
}

type contadorMemoria struct {
	mu      sync.Mutex
	valores map[string]int64
	err     error
}

func (c *contadorMemoria) Incrementar(_ context.Context, chave string, delta int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, c.err
	}
	if c.valores == nil {
		c.valores = map[string]int64{}
	}
	c.valores[chave] += delta
	return c.valores[chave], nil
}

func (c *contadorMemoria) Obter(_ context.Context, chave string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.valores[chave], c.err
}

func (c *contadorMemoria) ObterTodos(_ context.Context, chaves []string) (map[string]int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	result := make(map[string]int64, len(chaves))
	for _, ch := range chaves {
		result[ch] = c.valores[ch]
	}
	return result, nil
}

type filaMemoria struct {
	mu      sync.Mutex
	eventos []domain.EventoSorteio
	err     error
}

func (f *filaMemoria) PublicarSorteio(_ context.Context, e domain.EventoSorteio) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.eventos = append(f.eventos, e)
	return nil
}

func (f *filaMemoria) ConsumirSorteios(context.Context, func(context.Context, domain.EventoSorteio) error) error {
	return errors.New("nao usado")
}

type limitadorFunc func(ctx context.Context, chave string) error

func (f limitadorFunc) Permitir(ctx context.Context, chave string) error {
	return f(ctx, chave)
}

// aleatorioRoteiro devolve os valores na ordem, limitados a n.
type aleatorioRoteiro struct {
	valores []int
	i       int
}

func (a *aleatorioRoteiro) IntN(n int) int {
	v := a.valores[a.i%len(a.valores)] % n
	a.i++
	return v
}

type serviceDeps struct {
	banco    *bancoMemoria
	contador *contadorMemoria
	fila     *filaMemoria
	agora    time.Time
}

func newServiceDeps() *serviceDeps {
	return &serviceDeps{
		banco:    novoBanco(),
		contador: &contadorMemoria{},
		fila:     &filaMemoria{},
		agora:    time.Date(2025, 5, 10, 21, 30, 0, 0, time.UTC),
	}
}

func (d *serviceDeps) deps() Deps {
	return Deps{
		Promocoes:     d.banco,
		Participantes: d.banco,
		Ganhadores:    d.banco,
		Store:         d.banco,
		Contador:      d.contador,
		Fila:          d.fila,
		Clock:         clock.Fixo{Instante: d.agora},
		IDs:           ids.NewGenerator(),
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func (d *serviceDeps) service() *Service {
	return NewService(d.deps(), Config{})
}

var admin = domain.Principal{ID: 1, Usuario: "admin", Role: domain.RoleAdmin}

func pedido(id domain.PromocaoID) domain.PedidoSorteio {
	return domain.PedidoSorteio{PromocaoID: id, Principal: admin, OrigemIP: "200.10.10.10"}
}
