package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/marcelojr/sorteios-tv/internal/domain"
)

// PromocaoRepository lê promoções; mudanças de estado só acontecem dentro do SorteioStore.
type PromocaoRepository struct {
	db *gorm.DB
}

func NewPromocaoRepository(db *gorm.DB) *PromocaoRepository {
	return &PromocaoRepository{db: db}
}

type promocaoModel struct {
	ID               uint           `gorm:"column:id;primaryKey"`
	Nome             string         `gorm:"column:nome"`
	Slug             string         `gorm:"column:slug"`
	Descricao        string         `gorm:"column:descricao"`
	DataInicio       time.Time      `gorm:"column:data_inicio"`
	DataFim          time.Time      `gorm:"column:data_fim"`
	Status           string         `gorm:"column:status"`
	NumeroGanhadores int            `gorm:"column:numero_ganhadores"`
	Sorteando        bool           `gorm:"column:is_drawing"`
	CriadoEm         time.Time      `gorm:"column:criado_em"`
	AtualizadoEm     time.Time      `gorm:"column:atualizado_em;autoUpdateTime"`
	DeletedAt        gorm.DeletedAt `gorm:"column:deleted_at"`
}

func (promocaoModel) TableName() string {
	return "promocoes"
}

func (m promocaoModel) toDomain() domain.Promocao {
	return domain.Promocao{
		ID:               domain.PromocaoID(m.ID),
		Nome:             m.Nome,
		Slug:             m.Slug,
		Descricao:        m.Descricao,
		DataInicio:       m.DataInicio,
		DataFim:          m.DataFim,
		Status:           domain.StatusPromocao(m.Status),
		NumeroGanhadores: m.NumeroGanhadores,
		Sorteando:        m.Sorteando,
		CriadoEm:         m.CriadoEm,
		AtualizadoEm:     m.AtualizadoEm,
		DeletedAt:        m.DeletedAt,
	}
}

func (r *PromocaoRepository) FindByID(ctx context.Context, id domain.PromocaoID) (domain.Promocao, error) {
	var model promocaoModel
	if err := r.db.WithContext(ctx).Take(&model, "id = ?", id).Error; err != nil {
		if err = traduzirErro(err); err == domain.ErrNotFound {
			return domain.Promocao{}, err
		}
		return domain.Promocao{}, fmt.Errorf("gorm promocao: buscar id: %w", err)
	}
	return model.toDomain(), nil
}

func (r *PromocaoRepository) ListEncerradas(ctx context.Context, limite int) ([]domain.Promocao, error) {
	var models []promocaoModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", domain.StatusEncerrada).
		Order("criado_em DESC").
		Limit(limite).
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("gorm promocao: listar encerradas: %w", err)
	}
	return toDomainPromocoes(models), nil
}

// ListSorteando devolve promoções com is_drawing em repouso; serve ao diagnóstico manual.
func (r *PromocaoRepository) ListSorteando(ctx context.Context) ([]domain.Promocao, error) {
	var models []promocaoModel
	if err := r.db.WithContext(ctx).
		Where("is_drawing = ?", true).
		Order("atualizado_em ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("gorm promocao: listar sorteando: %w", err)
	}
	return toDomainPromocoes(models), nil
}

func toDomainPromocoes(models []promocaoModel) []domain.Promocao {
	result := make([]domain.Promocao, len(models))
	for i, model := range models {
		result[i] = model.toDomain()
	}
	return result
}

// bloquearPromocao lê a linha com FOR UPDATE NOWAIT. SQLite ignora a cláusula de lock.
func bloquearPromocao(tx *gorm.DB, id domain.PromocaoID) (promocaoModel, error) {
	var model promocaoModel
	err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "NOWAIT"}).
		Take(&model, "id = ?", id).Error
	return model, traduzirErro(err)
}

var _ domain.PromocaoRepository = (*PromocaoRepository)(nil)
