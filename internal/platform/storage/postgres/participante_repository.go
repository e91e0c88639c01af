package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/marcelojr/sorteios-tv/internal/domain"
)

// ParticipanteRepository consulta participantes aptos ao sorteio de uma promoção.
type ParticipanteRepository struct {
	db *gorm.DB
}

func NewParticipanteRepository(db *gorm.DB) *ParticipanteRepository {
	return &ParticipanteRepository{db: db}
}

type participanteModel struct {
	ID         uint           `gorm:"column:id;primaryKey"`
	PromocaoID uint           `gorm:"column:promocao_id"`
	Nome       string         `gorm:"column:nome"`
	Telefone   string         `gorm:"column:telefone"`
	Bairro     string         `gorm:"column:bairro"`
	Cidade     string         `gorm:"column:cidade"`
	CriadoEm   time.Time      `gorm:"column:criado_em"`
	DeletedAt  gorm.DeletedAt `gorm:"column:deleted_at"`
}

func (participanteModel) TableName() string {
	return "participantes"
}

func (m participanteModel) toDomain() domain.Participante {
	return domain.Participante{
		ID:         domain.ParticipanteID(m.ID),
		PromocaoID: domain.PromocaoID(m.PromocaoID),
		Nome:       m.Nome,
		Telefone:   m.Telefone,
		Bairro:     m.Bairro,
		Cidade:     m.Cidade,
		CriadoEm:   m.CriadoEm,
		DeletedAt:  m.DeletedAt,
	}
}

func (r *ParticipanteRepository) ListDisponiveis(ctx context.Context, promocaoID domain.PromocaoID) ([]domain.Participante, error) {
	var models []participanteModel
	if err := consultaElegiveis(r.db.WithContext(ctx), promocaoID).
		Order("nome ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("gorm participante: listar disponiveis: %w", err)
	}
	return toDomainParticipantes(models), nil
}

// consultaElegiveis monta a regra de elegibilidade: mesma promoção, não excluído
// (soft delete do GORM) e sem registro de ganhador não cancelado nessa promoção.
func consultaElegiveis(db *gorm.DB, promocaoID domain.PromocaoID) *gorm.DB {
	jaSorteados := db.Session(&gorm.Session{NewDB: true}).
		Model(&ganhadorModel{}).
		Select("participante_id").
		Where("promocao_id = ? AND cancelado = ?", promocaoID, false)

	return db.Model(&participanteModel{}).
		Where("promocao_id = ?", promocaoID).
		Where("id NOT IN (?)", jaSorteados)
}

func toDomainParticipantes(models []participanteModel) []domain.Participante {
	result := make([]domain.Participante, len(models))
	for i, model := range models {
		result[i] = model.toDomain()
	}
	return result
}

var _ domain.ParticipanteRepository = (*ParticipanteRepository)(nil)
