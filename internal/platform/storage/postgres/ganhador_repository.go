package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/marcelojr/sorteios-tv/internal/domain"
)

type GanhadorRepository struct {
	db *gorm.DB
}

func NewGanhadorRepository(db *gorm.DB) *GanhadorRepository {
	return &GanhadorRepository{db: db}
}

type ganhadorModel struct {
	ID             uint       `gorm:"column:id;primaryKey"`
	SorteioID      string     `gorm:"column:sorteio_id"`
	PromocaoID     uint       `gorm:"column:promocao_id"`
	ParticipanteID uint       `gorm:"column:participante_id"`
	Posicao        int        `gorm:"column:posicao"`
	Premio         string     `gorm:"column:premio"`
	SorteadoEm     time.Time  `gorm:"column:sorteado_em"`
	SorteadoPor    uint       `gorm:"column:sorteado_por"`
	Cancelado      bool       `gorm:"column:cancelado"`
	CanceladoEm    *time.Time `gorm:"column:cancelado_em"`
}

func (ganhadorModel) TableName() string {
	return "ganhadores"
}

func (m ganhadorModel) toDomain() domain.Ganhador {
	return domain.Ganhador{
		ID:             domain.GanhadorID(m.ID),
		SorteioID:      domain.SorteioID(m.SorteioID),
		PromocaoID:     domain.PromocaoID(m.PromocaoID),
		ParticipanteID: domain.ParticipanteID(m.ParticipanteID),
		Posicao:        m.Posicao,
		Premio:         m.Premio,
		SorteadoEm:     m.SorteadoEm,
		SorteadoPor:    domain.UsuarioID(m.SorteadoPor),
		Cancelado:      m.Cancelado,
		CanceladoEm:    m.CanceladoEm,
	}
}

func fromDomainGanhador(g domain.Ganhador) ganhadorModel {
	return ganhadorModel{
		ID:             uint(g.ID),
		SorteioID:      string(g.SorteioID),
		PromocaoID:     uint(g.PromocaoID),
		ParticipanteID: uint(g.ParticipanteID),
		Posicao:        g.Posicao,
		Premio:         g.Premio,
		SorteadoEm:     g.SorteadoEm,
		SorteadoPor:    uint(g.SorteadoPor),
		Cancelado:      g.Cancelado,
		CanceladoEm:    g.CanceladoEm,
	}
}

type ganhadorDetalheRow struct {
	GanhadorID     uint      `gorm:"column:ganhador_id"`
	SorteioID      string    `gorm:"column:sorteio_id"`
	PromocaoID     uint      `gorm:"column:promocao_id"`
	ParticipanteID uint      `gorm:"column:participante_id"`
	Nome           string    `gorm:"column:nome"`
	Telefone       string    `gorm:"column:telefone"`
	Bairro         string    `gorm:"column:bairro"`
	Cidade         string    `gorm:"column:cidade"`
	Posicao        int       `gorm:"column:posicao"`
	Premio         string    `gorm:"column:premio"`
	SorteadoEm     time.Time `gorm:"column:sorteado_em"`
}

// ListByPromocao traz os ganhadores vigentes; participante excluído depois do sorteio continua listado.
func (r *GanhadorRepository) ListByPromocao(ctx context.Context, promocaoID domain.PromocaoID) ([]domain.GanhadorDetalhe, error) {
	var rows []ganhadorDetalheRow
	err := r.db.WithContext(ctx).
		Table("ganhadores AS g").
		Select(`g.id AS ganhador_id, g.sorteio_id, g.promocao_id, g.participante_id,
			p.nome, p.telefone, p.bairro, p.cidade, g.posicao, g.premio, g.sorteado_em`).
		Joins("JOIN participantes AS p ON p.id = g.participante_id").
		Where("g.promocao_id = ? AND g.cancelado = ?", promocaoID, false).
		Order("g.posicao ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("gorm ganhador: listar por promocao: %w", err)
	}

	result := make([]domain.GanhadorDetalhe, len(rows))
	for i, row := range rows {
		result[i] = domain.GanhadorDetalhe{
			GanhadorID:     domain.GanhadorID(row.GanhadorID),
			SorteioID:      domain.SorteioID(row.SorteioID),
			PromocaoID:     domain.PromocaoID(row.PromocaoID),
			ParticipanteID: domain.ParticipanteID(row.ParticipanteID),
			Nome:           row.Nome,
			Telefone:       row.Telefone,
			Bairro:         row.Bairro,
			Cidade:         row.Cidade,
			Posicao:        row.Posicao,
			Premio:         row.Premio,
			SorteadoEm:     row.SorteadoEm,
		}
	}
	return result, nil
}

// Cancelar marca o ganhador como cancelado e grava a auditoria na mesma transação.
// Ganhador inexistente ou já cancelado resulta em domain.ErrNotFound.
func (r *GanhadorRepository) Cancelar(ctx context.Context, id domain.GanhadorID, em time.Time, auditoria domain.AuditLog) (domain.Ganhador, error) {
	var model ganhadorModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&ganhadorModel{}).
			Where("id = ? AND cancelado = ?", id, false).
			Updates(map[string]any{"cancelado": true, "cancelado_em": em})
		if res.Error != nil {
			return traduzirErro(res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}

		if err := tx.Take(&model, "id = ?", id).Error; err != nil {
			return traduzirErro(err)
		}

		audit := fromDomainAuditLog(auditoria)
		return traduzirErro(tx.Create(&audit).Error)
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Ganhador{}, domain.ErrNotFound
		}
		return domain.Ganhador{}, fmt.Errorf("gorm ganhador: cancelar: %w", err)
	}
	return model.toDomain(), nil
}

// Estatisticas conta lotes de sorteio, ganhadores vigentes e promoções sorteadas.
func (r *GanhadorRepository) Estatisticas(ctx context.Context) (domain.Estatisticas, error) {
	var row struct {
		TotalSorteios       int64 `gorm:"column:total_sorteios"`
		TotalGanhadores     int64 `gorm:"column:total_ganhadores"`
		PromocoesComSorteio int64 `gorm:"column:promocoes_com_sorteio"`
	}
	err := r.db.WithContext(ctx).
		Model(&ganhadorModel{}).
		Select(`COUNT(DISTINCT sorteio_id) AS total_sorteios,
			COUNT(*) AS total_ganhadores,
			COUNT(DISTINCT promocao_id) AS promocoes_com_sorteio`).
		Where("cancelado = ?", false).
		Scan(&row).Error
	if err != nil {
		return domain.Estatisticas{}, fmt.Errorf("gorm ganhador: estatisticas: %w", err)
	}

	// Coluna pura em vez de MAX(): o sqlite só converte para time.Time
	// quando conhece o tipo declarado da coluna.
	var datas []time.Time
	err = r.db.WithContext(ctx).
		Model(&ganhadorModel{}).
		Where("cancelado = ?", false).
		Order("sorteado_em DESC").
		Limit(1).
		Pluck("sorteado_em", &datas).Error
	if err != nil {
		return domain.Estatisticas{}, fmt.Errorf("gorm ganhador: ultimo sorteio: %w", err)
	}

	stats := domain.Estatisticas{
		TotalSorteios:       row.TotalSorteios,
		TotalGanhadores:     row.TotalGanhadores,
		PromocoesComSorteio: row.PromocoesComSorteio,
	}
	if len(datas) > 0 {
		ultimo := datas[0]
		stats.UltimoSorteio = &ultimo
	}
	return stats, nil
}

var _ domain.GanhadorRepository = (*GanhadorRepository)(nil)
