package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/marcelojr/sorteios-tv/internal/domain"
)

// SorteioStore delimita a transação de um sorteio. Tudo que o callback grava
// entra no mesmo COMMIT ou é desfeito junto.
type SorteioStore struct {
	db *gorm.DB
}

func NewSorteioStore(db *gorm.DB) *SorteioStore {
	return &SorteioStore{db: db}
}

type auditLogModel struct {
	ID              uint           `gorm:"column:id;primaryKey"`
	EventoID        string         `gorm:"column:evento_id"`
	UsuarioID       uint           `gorm:"column:usuario_id"`
	Acao            string         `gorm:"column:acao"`
	Tabela          string         `gorm:"column:tabela"`
	RegistroID      uint           `gorm:"column:registro_id"`
	DadosAdicionais datatypes.JSON `gorm:"column:dados_adicionais"`
	IP              string         `gorm:"column:ip"`
	CriadoEm        time.Time      `gorm:"column:criado_em"`
}

func (auditLogModel) TableName() string {
	return "audit_logs"
}

func fromDomainAuditLog(a domain.AuditLog) auditLogModel {
	return auditLogModel{
		EventoID:        a.EventoID,
		UsuarioID:       uint(a.UsuarioID),
		Acao:            a.Acao,
		Tabela:          a.Tabela,
		RegistroID:      a.RegistroID,
		DadosAdicionais: a.DadosAdicionais,
		IP:              a.IP,
		CriadoEm:        a.CriadoEm,
	}
}

// ExecutarEmTransacao devolve o erro do callback sem embrulhar para preservar a semântica do chamador.
func (s *SorteioStore) ExecutarEmTransacao(ctx context.Context, fn func(tx domain.SorteioTx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&sorteioTx{db: tx})
	})
}

// LimparSorteando abre transação própria e só zera is_drawing se conseguir o lock
// sem esperar; um sorteio vivo segurando a linha não é tocado.
func (s *SorteioStore) LimparSorteando(ctx context.Context, id domain.PromocaoID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model, err := bloquearPromocao(tx, id)
		if err != nil {
			return err
		}
		if !model.Sorteando {
			return nil
		}
		return tx.Model(&promocaoModel{}).
			Where("id = ?", id).
			Update("is_drawing", false).Error
	})
	if err != nil {
		return fmt.Errorf("gorm sorteio: limpar is_drawing: %w", err)
	}
	return nil
}

type sorteioTx struct {
	db *gorm.DB
}

func (t *sorteioTx) BloquearPromocao(ctx context.Context, id domain.PromocaoID) (domain.Promocao, error) {
	model, err := bloquearPromocao(t.db.WithContext(ctx), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Promocao{}, domain.ErrNotFound
		}
		return domain.Promocao{}, fmt.Errorf("gorm sorteio: bloquear promocao: %w", err)
	}
	return model.toDomain(), nil
}

func (t *sorteioTx) MarcarSorteando(ctx context.Context, id domain.PromocaoID) error {
	err := t.db.WithContext(ctx).
		Model(&promocaoModel{}).
		Where("id = ?", id).
		Update("is_drawing", true).Error
	if err != nil {
		return fmt.Errorf("gorm sorteio: marcar is_drawing: %w", traduzirErro(err))
	}
	return nil
}

func (t *sorteioTx) ParticipantesElegiveis(ctx context.Context, id domain.PromocaoID) ([]domain.Participante, error) {
	var models []participanteModel
	if err := consultaElegiveis(t.db.WithContext(ctx), id).
		Order("id ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("gorm sorteio: participantes elegiveis: %w", traduzirErro(err))
	}
	return toDomainParticipantes(models), nil
}

func (t *sorteioTx) RegistrarGanhador(ctx context.Context, g *domain.Ganhador) error {
	model := fromDomainGanhador(*g)
	if err := t.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("gorm sorteio: registrar ganhador: %w", traduzirErro(err))
	}
	g.ID = domain.GanhadorID(model.ID)
	return nil
}

func (t *sorteioTx) EncerrarPromocao(ctx context.Context, id domain.PromocaoID) error {
	res := t.db.WithContext(ctx).
		Model(&promocaoModel{}).
		Where("id = ? AND status = ?", id, domain.StatusAtiva).
		Updates(map[string]any{"status": domain.StatusEncerrada, "is_drawing": false})
	if res.Error != nil {
		return fmt.Errorf("gorm sorteio: encerrar promocao: %w", traduzirErro(res.Error))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("gorm sorteio: encerrar promocao %d: nenhuma linha ativa", id)
	}
	return nil
}

func (t *sorteioTx) RegistrarAuditoria(ctx context.Context, a domain.AuditLog) error {
	model := fromDomainAuditLog(a)
	if err := t.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("gorm sorteio: registrar auditoria: %w", traduzirErro(err))
	}
	return nil
}

var (
	_ domain.SorteioStore = (*SorteioStore)(nil)
	_ domain.SorteioTx    = (*sorteioTx)(nil)
)
